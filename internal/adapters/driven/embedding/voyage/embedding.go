// Package voyage provides an embedding provider adapter using the Voyage AI API.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingProvider = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.voyageai.com/v1"
	DefaultModel   = "voyage-3.5-lite"
	DefaultTimeout = 60 * time.Second
)

// Models that accept an output_dimension parameter.
var flexibleDimensionModels = map[string]bool{
	"voyage-3-large":  true,
	"voyage-3.5":      true,
	"voyage-3.5-lite": true,
	"voyage-code-3":   true,
}

// Native vector sizes of models that ignore output_dimension.
var fixedDimensionModels = map[string]int{
	"voyage-3":       1024,
	"voyage-3-lite":  512,
	"voyage-2":       1024,
	"voyage-large-2": 1536,
	"voyage-code-2":  1536,
}

// Config holds configuration for the Voyage embedding service.
type Config struct {
	// APIKey is the Voyage API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.voyageai.com/v1).
	BaseURL string

	// Model is the embedding model to use (default: voyage-3.5-lite).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the expected vector size (default: 1024).
	// It is sent as output_dimension for models that support it and ignored
	// for models with a fixed size.
	Dimensions int
}

// EmbeddingService generates embeddings using the Voyage API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// embeddingRequest is the Voyage API request format.
type embeddingRequest struct {
	Model           string   `json:"model"`
	Input           []string `json:"input"`
	InputType       string   `json:"input_type"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

// embeddingResponse is the Voyage API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// NewEmbeddingService creates a new Voyage embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("voyage: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.DefaultDimensions
	}
	if native, ok := fixedDimensionModels[cfg.Model]; ok {
		cfg.Dimensions = native
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// EmbedBatch generates embeddings for up to 128 texts with one API call.
func (s *EmbeddingService) EmbedBatch(
	ctx context.Context,
	texts []string,
	mode domain.EmbedMode,
) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown embed mode %q", domain.ErrInvalidInput, mode)
	}
	if len(texts) > domain.MaxEmbedBatchSize {
		return nil, fmt.Errorf("%w: %d texts exceeds batch limit %d",
			domain.ErrInvalidInput, len(texts), domain.MaxEmbedBatchSize)
	}

	reqBody := embeddingRequest{
		Model:     s.model,
		Input:     texts,
		InputType: string(mode),
	}
	if flexibleDimensionModels[s.model] {
		reqBody.OutputDimension = s.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp embeddingResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("voyage error (status %d): %s", resp.StatusCode, errResp.Detail)
		}
		return nil, fmt.Errorf("voyage error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return orderByIndex(embedResp, len(texts))
}

// orderByIndex places each returned vector at its input position and checks
// that every position is filled with vectors of one size.
func orderByIndex(resp embeddingResponse, n int) ([][]float32, error) {
	if len(resp.Data) != n {
		return nil, fmt.Errorf("%w: voyage returned %d embeddings for %d texts",
			domain.ErrCountMismatch, len(resp.Data), n)
	}

	embeddings := make([][]float32, n)
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= n || embeddings[data.Index] != nil {
			return nil, fmt.Errorf("voyage: invalid embedding index %d", data.Index)
		}
		if len(data.Embedding) == 0 {
			return nil, fmt.Errorf("voyage: empty embedding at index %d", data.Index)
		}
		if len(data.Embedding) != len(resp.Data[0].Embedding) {
			return nil, fmt.Errorf("%w: voyage returned vectors of %d and %d values",
				domain.ErrDimensionMismatch, len(resp.Data[0].Embedding), len(data.Embedding))
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by embedding a single short query.
// Voyage has no model listing endpoint, so this costs one token.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.EmbedBatch(ctx, []string{"ping"}, domain.EmbedModeQuery); err != nil {
		return fmt.Errorf("voyage: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
