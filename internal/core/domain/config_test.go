package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, AIProviderVoyage, cfg.Embedding.Provider)
	assert.Equal(t, "voyage-3.5-lite", cfg.Embedding.Model)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, 128, cfg.Embedding.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Embedding.BatchDelay)
	assert.Equal(t, 20, cfg.Distill.Threshold)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Embedding.IsConfigured())
	assert.False(t, cfg.Agent.IsConfigured())
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty vault", func(c *Config) { c.VaultPath = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"anthropic embeddings", func(c *Config) { c.Embedding.Provider = AIProviderAnthropic }},
		{"batch too large", func(c *Config) { c.Embedding.BatchSize = 129 }},
		{"batch zero", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"negative delay", func(c *Config) { c.Embedding.BatchDelay = -time.Second }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"zero max chars", func(c *Config) { c.Chunking.MaxChars = 0 }},
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"zero threshold", func(c *Config) { c.Distill.Threshold = 0 }},
		{"bad distill tz", func(c *Config) { c.Distill.Timezone = "Mars/Olympus" }},
		{"bad active start", func(c *Config) { c.Heartbeat.ActiveStart = "8am" }},
		{"bad active end", func(c *Config) { c.Heartbeat.ActiveEnd = "24:00" }},
		{"missing checklist", func(c *Config) { c.Heartbeat.Checklist = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestConfig_Validate_DisabledHeartbeatSkipsChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Heartbeat.Enabled = false
	cfg.Heartbeat.ActiveStart = "nonsense"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_ReportsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VaultPath = ""
	cfg.Search.DefaultLimit = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault_path")
	assert.Contains(t, err.Error(), "search.default_limit")
}
