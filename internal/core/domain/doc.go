// Package domain defines the core entities of the recall memory engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A markdown file in the vault, addressed by relative path
//   - Chunk: A bounded excerpt of a document, the unit of retrieval
//   - ConversationTurn: One message exchanged with the agent
//   - HeartbeatRecord: One evaluated proactive notification
//   - Config: The validated process configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
