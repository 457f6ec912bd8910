package driven

import "github.com/custodia-labs/recall/internal/core/domain"

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if the embedding service is not configured.
	ValidateEmbedding(config *domain.EmbeddingConfig) error

	// ValidateAgent validates an agent configuration by pinging the provider.
	// Returns nil if the agent service is not configured.
	ValidateAgent(config *domain.AgentConfig) error
}
