package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// ConfigFile is the configuration file name inside the config directory.
const ConfigFile = "config.toml"

// EnvFile is the dotenv file read from the working directory.
const EnvFile = ".env"

// fileConfig mirrors the TOML layout. Pointer fields distinguish an absent
// key from a zero value so defaults survive partial files.
type fileConfig struct {
	VaultPath *string `toml:"vault_path"`
	DataDir   *string `toml:"data_dir"`
	Verbose   *bool   `toml:"verbose"`

	Embedding struct {
		Provider   *string `toml:"provider"`
		APIKey     *string `toml:"api_key"`
		BaseURL    *string `toml:"base_url"`
		Model      *string `toml:"model"`
		Dimensions *int    `toml:"dimensions"`
		BatchSize  *int    `toml:"batch_size"`
		BatchDelay *string `toml:"batch_delay"`
		Timeout    *string `toml:"timeout"`
	} `toml:"embedding"`

	Agent struct {
		APIKey  *string `toml:"api_key"`
		BaseURL *string `toml:"base_url"`
		Model   *string `toml:"model"`
		Timeout *string `toml:"timeout"`
	} `toml:"agent"`

	Chunking struct {
		MaxChars *int `toml:"max_chars"`
	} `toml:"chunking"`

	Search struct {
		DefaultLimit *int `toml:"default_limit"`
	} `toml:"search"`

	Distill struct {
		Threshold *int    `toml:"threshold"`
		Interval  *string `toml:"interval"`
		Timezone  *string `toml:"timezone"`
	} `toml:"distill"`

	Heartbeat struct {
		Enabled     *bool   `toml:"enabled"`
		Interval    *string `toml:"interval"`
		ActiveStart *string `toml:"active_start"`
		ActiveEnd   *string `toml:"active_end"`
		Timezone    *string `toml:"timezone"`
		Recipient   *string `toml:"recipient"`
		Checklist   *string `toml:"checklist"`
	} `toml:"heartbeat"`

	Watch struct {
		Enabled  *bool    `toml:"enabled"`
		Debounce *string  `toml:"debounce"`
		Exclude  []string `toml:"exclude"`
	} `toml:"watch"`
}

// Options controls where Load looks for its inputs.
type Options struct {
	// EnvFile is the dotenv file to read. Empty means ".env" in the working directory.
	EnvFile string

	// LookupEnv reads the process environment. Nil means os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// DefaultDir returns ~/.recall.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// DefaultPath returns ~/.recall/config.toml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFile), nil
}

// Load builds the configuration from defaults, the TOML file at path, the
// dotenv file and the environment, in that order, and validates the result.
//
// An empty path means ~/.recall/config.toml, which may be absent. An explicit
// path must exist.
func Load(path string) (domain.Config, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions is Load with explicit env sources.
func LoadWithOptions(path string, opts Options) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	if dir, err := DefaultDir(); err == nil {
		cfg.DataDir = filepath.Join(dir, "data")
		cfg.VaultPath = filepath.Join(dir, "vault")
	}

	optional := path == ""
	if optional {
		p, err := DefaultPath()
		if err != nil {
			return domain.Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(&cfg, data); err != nil {
			return domain.Config{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && optional:
		// No config file yet - defaults apply
	default:
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	env, err := environment(opts)
	if err != nil {
		return domain.Config{}, err
	}
	if err := applyEnv(&cfg, env); err != nil {
		return domain.Config{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	cfg.VaultPath = expandHome(cfg.VaultPath)
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML with restricted permissions.
// API keys are never written; they belong in the environment.
func Save(path string, cfg domain.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var fc fileConfig
	fc.VaultPath = &cfg.VaultPath
	fc.DataDir = &cfg.DataDir
	fc.Verbose = &cfg.Verbose

	provider := cfg.Embedding.Provider.String()
	batchDelay := cfg.Embedding.BatchDelay.String()
	embedTimeout := cfg.Embedding.Timeout.String()
	fc.Embedding.Provider = &provider
	fc.Embedding.Model = &cfg.Embedding.Model
	fc.Embedding.Dimensions = &cfg.Embedding.Dimensions
	fc.Embedding.BatchSize = &cfg.Embedding.BatchSize
	fc.Embedding.BatchDelay = &batchDelay
	fc.Embedding.Timeout = &embedTimeout
	if cfg.Embedding.BaseURL != "" {
		fc.Embedding.BaseURL = &cfg.Embedding.BaseURL
	}

	agentTimeout := cfg.Agent.Timeout.String()
	fc.Agent.Model = &cfg.Agent.Model
	fc.Agent.Timeout = &agentTimeout
	if cfg.Agent.BaseURL != "" {
		fc.Agent.BaseURL = &cfg.Agent.BaseURL
	}

	fc.Chunking.MaxChars = &cfg.Chunking.MaxChars
	fc.Search.DefaultLimit = &cfg.Search.DefaultLimit

	distillInterval := cfg.Distill.Interval.String()
	fc.Distill.Threshold = &cfg.Distill.Threshold
	fc.Distill.Interval = &distillInterval
	fc.Distill.Timezone = &cfg.Distill.Timezone

	heartbeatInterval := cfg.Heartbeat.Interval.String()
	fc.Heartbeat.Enabled = &cfg.Heartbeat.Enabled
	fc.Heartbeat.Interval = &heartbeatInterval
	fc.Heartbeat.ActiveStart = &cfg.Heartbeat.ActiveStart
	fc.Heartbeat.ActiveEnd = &cfg.Heartbeat.ActiveEnd
	fc.Heartbeat.Timezone = &cfg.Heartbeat.Timezone
	fc.Heartbeat.Recipient = &cfg.Heartbeat.Recipient
	fc.Heartbeat.Checklist = &cfg.Heartbeat.Checklist

	debounce := cfg.Watch.Debounce.String()
	fc.Watch.Enabled = &cfg.Watch.Enabled
	fc.Watch.Debounce = &debounce
	fc.Watch.Exclude = cfg.Watch.Exclude

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	// Write with restricted permissions
	return os.WriteFile(path, data, 0600)
}

// applyFile decodes a TOML document over cfg. Unknown keys are rejected.
func applyFile(cfg *domain.Config, data []byte) error {
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}

	var errs []error
	duration := func(dst *time.Duration, key string, src *string) {
		if src == nil {
			return
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	setString(&cfg.VaultPath, fc.VaultPath)
	setString(&cfg.DataDir, fc.DataDir)
	setBool(&cfg.Verbose, fc.Verbose)

	if fc.Embedding.Provider != nil {
		cfg.Embedding.Provider = domain.AIProvider(*fc.Embedding.Provider)
	}
	setString(&cfg.Embedding.APIKey, fc.Embedding.APIKey)
	setString(&cfg.Embedding.BaseURL, fc.Embedding.BaseURL)
	setString(&cfg.Embedding.Model, fc.Embedding.Model)
	setInt(&cfg.Embedding.Dimensions, fc.Embedding.Dimensions)
	setInt(&cfg.Embedding.BatchSize, fc.Embedding.BatchSize)
	duration(&cfg.Embedding.BatchDelay, "embedding.batch_delay", fc.Embedding.BatchDelay)
	duration(&cfg.Embedding.Timeout, "embedding.timeout", fc.Embedding.Timeout)

	setString(&cfg.Agent.APIKey, fc.Agent.APIKey)
	setString(&cfg.Agent.BaseURL, fc.Agent.BaseURL)
	setString(&cfg.Agent.Model, fc.Agent.Model)
	duration(&cfg.Agent.Timeout, "agent.timeout", fc.Agent.Timeout)

	setInt(&cfg.Chunking.MaxChars, fc.Chunking.MaxChars)
	setInt(&cfg.Search.DefaultLimit, fc.Search.DefaultLimit)

	setInt(&cfg.Distill.Threshold, fc.Distill.Threshold)
	duration(&cfg.Distill.Interval, "distill.interval", fc.Distill.Interval)
	setString(&cfg.Distill.Timezone, fc.Distill.Timezone)

	setBool(&cfg.Heartbeat.Enabled, fc.Heartbeat.Enabled)
	duration(&cfg.Heartbeat.Interval, "heartbeat.interval", fc.Heartbeat.Interval)
	setString(&cfg.Heartbeat.ActiveStart, fc.Heartbeat.ActiveStart)
	setString(&cfg.Heartbeat.ActiveEnd, fc.Heartbeat.ActiveEnd)
	setString(&cfg.Heartbeat.Timezone, fc.Heartbeat.Timezone)
	setString(&cfg.Heartbeat.Recipient, fc.Heartbeat.Recipient)
	setString(&cfg.Heartbeat.Checklist, fc.Heartbeat.Checklist)

	setBool(&cfg.Watch.Enabled, fc.Watch.Enabled)
	duration(&cfg.Watch.Debounce, "watch.debounce", fc.Watch.Debounce)
	if fc.Watch.Exclude != nil {
		cfg.Watch.Exclude = fc.Watch.Exclude
	}

	return errors.Join(errs...)
}

// environment merges the dotenv file under the process environment.
// Process variables win over dotenv entries.
func environment(opts Options) (func(string) (string, bool), error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = EnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		dotenv = map[string]string{}
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// applyEnv applies RECALL_* overrides and the provider key variables.
func applyEnv(cfg *domain.Config, env func(string) (string, bool)) error {
	var errs []error
	str := func(dst *string, key string) {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) {
		v, ok := env(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	flag := func(dst *bool, key string) {
		v, ok := env(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}
	dur := func(dst *time.Duration, key string) {
		v, ok := env(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str(&cfg.VaultPath, "RECALL_VAULT_PATH")
	str(&cfg.DataDir, "RECALL_DATA_DIR")
	flag(&cfg.Verbose, "RECALL_VERBOSE")

	if v, ok := env("RECALL_EMBEDDING_PROVIDER"); ok && v != "" {
		cfg.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
	}
	// Provider keys fill in first so RECALL_EMBEDDING_API_KEY can override them.
	switch cfg.Embedding.Provider {
	case domain.AIProviderVoyage:
		str(&cfg.Embedding.APIKey, "VOYAGE_API_KEY")
	case domain.AIProviderOpenAI:
		str(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	}
	str(&cfg.Embedding.APIKey, "RECALL_EMBEDDING_API_KEY")
	str(&cfg.Embedding.BaseURL, "RECALL_EMBEDDING_BASE_URL")
	str(&cfg.Embedding.Model, "RECALL_EMBEDDING_MODEL")
	num(&cfg.Embedding.Dimensions, "RECALL_EMBEDDING_DIMENSIONS")
	num(&cfg.Embedding.BatchSize, "RECALL_EMBEDDING_BATCH_SIZE")
	dur(&cfg.Embedding.BatchDelay, "RECALL_EMBEDDING_BATCH_DELAY")

	str(&cfg.Agent.APIKey, "ANTHROPIC_API_KEY")
	str(&cfg.Agent.APIKey, "RECALL_AGENT_API_KEY")
	str(&cfg.Agent.BaseURL, "RECALL_AGENT_BASE_URL")
	str(&cfg.Agent.Model, "RECALL_AGENT_MODEL")

	num(&cfg.Chunking.MaxChars, "RECALL_CHUNK_MAX_CHARS")
	num(&cfg.Search.DefaultLimit, "RECALL_SEARCH_DEFAULT_LIMIT")

	num(&cfg.Distill.Threshold, "RECALL_DISTILL_THRESHOLD")
	dur(&cfg.Distill.Interval, "RECALL_DISTILL_INTERVAL")
	str(&cfg.Distill.Timezone, "RECALL_TIMEZONE")

	flag(&cfg.Heartbeat.Enabled, "RECALL_HEARTBEAT_ENABLED")
	dur(&cfg.Heartbeat.Interval, "RECALL_HEARTBEAT_INTERVAL")
	str(&cfg.Heartbeat.ActiveStart, "RECALL_HEARTBEAT_ACTIVE_START")
	str(&cfg.Heartbeat.ActiveEnd, "RECALL_HEARTBEAT_ACTIVE_END")
	str(&cfg.Heartbeat.Timezone, "RECALL_TIMEZONE")
	str(&cfg.Heartbeat.Recipient, "RECALL_HEARTBEAT_RECIPIENT")

	flag(&cfg.Watch.Enabled, "RECALL_WATCH_ENABLED")

	return errors.Join(errs...)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
