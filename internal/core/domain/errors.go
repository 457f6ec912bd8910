package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCountMismatch indicates chunks and embeddings of different lengths were
	// handed to the vector store. This is a caller bug; nothing is written.
	ErrCountMismatch = errors.New("chunk/embedding count mismatch")

	// ErrDimensionMismatch indicates an embedding of unexpected size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLLMUnavailable indicates the agent service is not configured.
	// Distillation and heartbeat checks are disabled.
	ErrLLMUnavailable = errors.New("agent service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and semantic search are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDistillationInProgress indicates a check is already running for the scope.
	ErrDistillationInProgress = errors.New("distillation in progress")

	// ErrTaskRunning indicates a scheduled task is already executing.
	ErrTaskRunning = errors.New("task already running")
)
