// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Every service logs through an injected
// *zap.Logger; a nil logger is replaced with a no-op.
package services
