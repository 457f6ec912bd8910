// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorStore: Chunk and embedding persistence with nearest-neighbour search
//   - TurnStore: Conversation turn persistence
//   - CheckpointStore: Distillation checkpoint per conversation scope
//   - HeartbeatLog: Proactive notification dedup log
//   - Vault: Markdown document access
//   - Chunker: Splits documents into bounded chunks
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingProvider: Generates vector embeddings. Without it, indexing is skipped.
//   - AgentService: Language model calls. Without it, distillation and heartbeats are disabled.
//   - Notifier: Chat transport for heartbeat delivery.
//   - PromptStore: Customisable prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
