// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	openaiembed "github.com/custodia-labs/recall/internal/adapters/driven/embedding/openai"
	voyageembed "github.com/custodia-labs/recall/internal/adapters/driven/embedding/voyage"
	anthropicllm "github.com/custodia-labs/recall/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	Embedding driven.EmbeddingProvider
	Agent     driven.AgentService
	Warnings  []string // Non-fatal issues that left a service disabled.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		_ = r.Embedding.Close()
	}
	if r.Agent != nil {
		_ = r.Agent.Close()
	}
}

// Init creates both AI services. A service that is not configured or cannot
// be created is left nil and reported as a warning; the engine runs degraded.
// When validate is true each service is pinged before it is returned.
func Init(cfg *domain.Config, validate bool, log *zap.Logger) *InitResult {
	log = logger.OrNop(log)
	result := &InitResult{}

	var (
		emb driven.EmbeddingProvider
		err error
	)
	if validate {
		emb, err = CreateAndValidateEmbeddingProvider(&cfg.Embedding)
	} else {
		emb, err = CreateEmbeddingProvider(&cfg.Embedding)
	}
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case emb == nil:
		result.Warnings = append(result.Warnings, "embedding service not configured: indexing and search are disabled")
	default:
		result.Embedding = emb
	}

	var agent driven.AgentService
	if validate {
		agent, err = CreateAndValidateAgentService(&cfg.Agent, log)
	} else {
		agent, err = CreateAgentService(&cfg.Agent, log)
	}
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case agent == nil:
		result.Warnings = append(result.Warnings, "agent service not configured: distillation and heartbeats are disabled")
	default:
		result.Agent = agent
	}

	for _, w := range result.Warnings {
		log.Warn("ai service degraded", zap.String("reason", w))
	}
	return result
}

// CreateAndValidateEmbeddingProvider creates an embedding provider and validates connectivity.
// Returns the provider if successful, or an error with guidance.
func CreateAndValidateEmbeddingProvider(cfg *domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	if cfg == nil || !cfg.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'recall doctor' to diagnose",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'recall doctor' to diagnose",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateAgentService creates an agent service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateAgentService(cfg *domain.AgentConfig, log *zap.Logger) (driven.AgentService, error) {
	if cfg == nil || !cfg.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateAgentService(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'recall doctor' to diagnose",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'recall doctor' to diagnose",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a provider and pinging it.
func ValidateEmbeddingConfig(cfg *domain.EmbeddingConfig) error {
	if cfg == nil || !cfg.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingProvider(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	return nil
}

// ValidateAgentConfig validates an agent configuration by creating a service and pinging it.
func ValidateAgentConfig(cfg *domain.AgentConfig) error {
	if cfg == nil || !cfg.IsConfigured() {
		return nil
	}

	svc, err := CreateAgentService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("agent service unreachable: %w", err)
	}
	return nil
}

// CreateEmbeddingProvider creates an embedding provider based on configuration.
// Returns nil, nil if embedding is not configured.
func CreateEmbeddingProvider(cfg *domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	if cfg == nil || !cfg.IsConfigured() {
		return nil, nil
	}

	switch cfg.Provider {
	case domain.AIProviderVoyage:
		return createVoyageEmbedding(cfg)
	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(cfg)
	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not provide embedding models")
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// CreateAgentService creates the agent service based on configuration.
// Returns nil, nil if the agent is not configured.
func CreateAgentService(cfg *domain.AgentConfig, log *zap.Logger) (driven.AgentService, error) {
	if cfg == nil || !cfg.IsConfigured() {
		return nil, nil
	}
	svc, err := anthropicllm.NewAgentService(anthropicllm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createVoyageEmbedding(cfg *domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	svc, err := voyageembed.NewEmbeddingService(voyageembed.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		Dimensions: cfg.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOpenAIEmbedding(cfg *domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		Dimensions: cfg.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
