package domain

import "time"

// DistillOutcome reports what a distillation check did.
type DistillOutcome struct {
	// Checkpoint is the boundary to pass into the next check for the same scope.
	// It only moves forward once a distillate has been written to the vault.
	Checkpoint time.Time

	// Pending is the number of turns found strictly after the incoming checkpoint.
	Pending int

	// Distilled is true when a new section was appended to the vault.
	Distilled bool

	// Document is the vault path that received the section.
	Document string

	// Chunks is the number of chunks stored when the document was re-indexed.
	Chunks int

	// Indexed is false when the document was written but not embedded.
	Indexed bool
}
