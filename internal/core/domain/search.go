package domain

// Neighbor is a stored chunk returned by a nearest-neighbour query.
type Neighbor struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Distance is the cosine distance to the query vector (0 = identical).
	Distance float64
}

// SearchResult represents a single retrieval hit.
type SearchResult struct {
	// Content is the chunk text.
	Content string

	// SourceDocument is the vault-relative path the chunk came from.
	SourceDocument string

	// Distance is the non-negative cosine distance; smaller is more relevant.
	Distance float64
}

// Relevance converts the distance into a display score where higher is better.
func (r SearchResult) Relevance() float64 {
	return 1 - r.Distance
}
