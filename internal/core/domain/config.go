package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AIProvider identifies an AI service provider for embeddings or the agent.
type AIProvider string

// Available AI providers.
const (
	// AIProviderVoyage is the Voyage AI embedding API.
	AIProviderVoyage AIProvider = "voyage"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValidEmbedding returns true if the provider can serve embeddings.
func (p AIProvider) IsValidEmbedding() bool {
	return p == AIProviderVoyage || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Config is the complete, validated configuration of the engine.
// Every option is enumerated here; unknown or malformed values are rejected
// by Validate instead of being coerced.
type Config struct {
	// VaultPath is the root directory of the markdown vault.
	VaultPath string

	// DataDir holds the SQLite database.
	DataDir string

	// Verbose enables debug logging.
	Verbose bool

	Embedding EmbeddingConfig
	Agent     AgentConfig
	Chunking  ChunkingConfig
	Search    SearchConfig
	Distill   DistillConfig
	Heartbeat HeartbeatConfig
	Watch     WatchConfig
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	Provider AIProvider

	// APIKey is the credential. Empty means indexing is skipped (degraded mode).
	APIKey string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	Model      string
	Dimensions int

	// BatchSize is the number of texts per external call (1..128).
	BatchSize int

	// BatchDelay is the pause between successive calls.
	BatchDelay time.Duration

	Timeout time.Duration
}

// IsConfigured returns true if embeddings can be produced.
func (c EmbeddingConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// AgentConfig configures the agent (LLM) service used for distillation and heartbeats.
type AgentConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// IsConfigured returns true if the agent service can be called.
func (c AgentConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// ChunkingConfig configures the text chunker.
type ChunkingConfig struct {
	// MaxChars is the chunk length bound in characters.
	MaxChars int
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	// DefaultLimit is used when a caller asks for zero results.
	DefaultLimit int
}

// DistillConfig configures the distillation trigger.
type DistillConfig struct {
	// Threshold is the number of pending turns that triggers a distillation.
	Threshold int

	// Interval is how often the scheduler runs a check.
	Interval time.Duration

	// Timezone names the location used for daily memory files and section headers.
	Timezone string
}

// HeartbeatConfig configures proactive checks.
type HeartbeatConfig struct {
	Enabled bool

	// Interval is how often the scheduler runs a heartbeat tick.
	Interval time.Duration

	// ActiveStart and ActiveEnd bound the active window as HH:MM, inclusive.
	ActiveStart string
	ActiveEnd   string

	// Timezone names the location the active window is evaluated in.
	Timezone string

	// Recipient is passed to the notifier on delivery.
	Recipient string

	// Checklist is the vault path of the checklist document.
	Checklist string
}

// WatchConfig configures vault watching and listing.
type WatchConfig struct {
	// Enabled re-indexes documents when they change on disk.
	Enabled bool

	// Debounce coalesces bursts of filesystem events per file.
	Debounce time.Duration

	// Exclude holds doublestar patterns of vault paths to skip.
	Exclude []string
}

// Default configuration values.
const (
	DefaultChunkMaxChars     = 2000
	DefaultSearchLimit       = 5
	DefaultDistillThreshold  = 20
	DefaultBatchDelay        = 200 * time.Millisecond
	DefaultDistillInterval   = 30 * time.Minute
	DefaultHeartbeatInterval = 30 * time.Minute
	DefaultTimeout           = 60 * time.Second
	DefaultWatchDebounce     = 500 * time.Millisecond
)

// DefaultConfig returns the configuration used before any file or environment override.
func DefaultConfig() Config {
	return Config{
		VaultPath: "./vault",
		DataDir:   "./data",
		Embedding: EmbeddingConfig{
			Provider:   AIProviderVoyage,
			Model:      "voyage-3.5-lite",
			Dimensions: DefaultDimensions,
			BatchSize:  MaxEmbedBatchSize,
			BatchDelay: DefaultBatchDelay,
			Timeout:    DefaultTimeout,
		},
		Agent: AgentConfig{
			Model:   "claude-haiku-4-5",
			Timeout: 2 * DefaultTimeout,
		},
		Chunking: ChunkingConfig{MaxChars: DefaultChunkMaxChars},
		Search:   SearchConfig{DefaultLimit: DefaultSearchLimit},
		Distill: DistillConfig{
			Threshold: DefaultDistillThreshold,
			Interval:  DefaultDistillInterval,
			Timezone:  "UTC",
		},
		Heartbeat: HeartbeatConfig{
			Enabled:     true,
			Interval:    DefaultHeartbeatInterval,
			ActiveStart: "08:00",
			ActiveEnd:   "22:00",
			Timezone:    "UTC",
			Checklist:   "heartbeat.md",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: DefaultWatchDebounce,
		},
	}
}

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validate checks every option and returns all problems at once.
// The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.VaultPath) == "" {
		fail("vault_path is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		fail("data_dir is required")
	}

	if !c.Embedding.Provider.IsValidEmbedding() {
		fail("embedding.provider %q is not supported (want voyage or openai)", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		fail("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		fail("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize < 1 || c.Embedding.BatchSize > MaxEmbedBatchSize {
		fail("embedding.batch_size must be between 1 and %d, got %d", MaxEmbedBatchSize, c.Embedding.BatchSize)
	}
	if c.Embedding.BatchDelay < 0 {
		fail("embedding.batch_delay must not be negative, got %s", c.Embedding.BatchDelay)
	}
	if c.Embedding.Timeout <= 0 {
		fail("embedding.timeout must be positive, got %s", c.Embedding.Timeout)
	}

	if c.Agent.Model == "" {
		fail("agent.model is required")
	}
	if c.Agent.Timeout <= 0 {
		fail("agent.timeout must be positive, got %s", c.Agent.Timeout)
	}

	if c.Chunking.MaxChars <= 0 {
		fail("chunking.max_chars must be positive, got %d", c.Chunking.MaxChars)
	}
	if c.Search.DefaultLimit <= 0 {
		fail("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}

	if c.Distill.Threshold <= 0 {
		fail("distill.threshold must be positive, got %d", c.Distill.Threshold)
	}
	if c.Distill.Interval <= 0 {
		fail("distill.interval must be positive, got %s", c.Distill.Interval)
	}
	if _, err := time.LoadLocation(c.Distill.Timezone); err != nil {
		fail("distill.timezone %q: %v", c.Distill.Timezone, err)
	}

	if c.Heartbeat.Enabled {
		if c.Heartbeat.Interval <= 0 {
			fail("heartbeat.interval must be positive, got %s", c.Heartbeat.Interval)
		}
		if !clockPattern.MatchString(c.Heartbeat.ActiveStart) {
			fail("heartbeat.active_start %q must be HH:MM", c.Heartbeat.ActiveStart)
		}
		if !clockPattern.MatchString(c.Heartbeat.ActiveEnd) {
			fail("heartbeat.active_end %q must be HH:MM", c.Heartbeat.ActiveEnd)
		}
		if _, err := time.LoadLocation(c.Heartbeat.Timezone); err != nil {
			fail("heartbeat.timezone %q: %v", c.Heartbeat.Timezone, err)
		}
		if c.Heartbeat.Checklist == "" {
			fail("heartbeat.checklist is required")
		}
	}

	if c.Watch.Debounce < 0 {
		fail("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
