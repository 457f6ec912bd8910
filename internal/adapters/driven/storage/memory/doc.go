// Package memory provides in-memory implementations of the driven storage ports.
//
// The vector store is backed by chromem-go and the other stores by plain maps
// guarded by a mutex. Nothing survives the process; the package serves tests
// and the --ephemeral mode of the CLI.
package memory
