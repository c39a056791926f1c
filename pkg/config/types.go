package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent reverie configuration stored as
// config.toml in the .reverie/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Extraction  ExtractionConfig  `toml:"extraction"`
	Compression CompressionConfig `toml:"compression"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Wake        WakeConfig        `toml:"wake"`
	Events      EventsConfig      `toml:"events"`
	Tokens      TokensConfig      `toml:"tokens"`
}

// StorageConfig holds the persistence backend settings.
type StorageConfig struct {
	// Backend selects the storage driver: "sqlite", "postgres", or
	// "memory".
	Backend     string `toml:"backend,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ExtractionConfig holds extraction capability settings.
type ExtractionConfig struct {
	// Provider selects the extraction driver: "openai" or "static".
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`

	// KeySource selects whose credential extraction calls use:
	// "operator", "user" (BYOK), or "proxy".
	KeySource string `toml:"key_source,omitempty"`
}

// CompressionConfig holds compression capability settings.
type CompressionConfig struct {
	// Provider selects the compression driver: "openai" or "static".
	Provider string `toml:"provider,omitempty"`
}

// PipelineConfig holds worker pool and retry settings.
type PipelineConfig struct {
	Workers           uint `toml:"workers,omitempty"`
	QueueSize         uint `toml:"queue_size,omitempty"`
	MaxAttempts       int  `toml:"max_attempts,omitempty"`
	JobTimeoutSeconds int  `toml:"job_timeout_seconds,omitempty"`
}

// WakeConfig holds wake prompt generation settings.
type WakeConfig struct {
	DefaultBudget int `toml:"default_budget,omitempty"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	// Provider selects the publisher: "nop" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// TokensConfig holds token estimator settings.
type TokensConfig struct {
	// Estimator selects the token estimator: "tiktoken" or "heuristic".
	Estimator string `toml:"estimator,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.backend": {
		get: func(c *Config) string { return c.Storage.Backend },
		set: func(c *Config, v string) error { c.Storage.Backend = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"extraction.provider": {
		get: func(c *Config) string { return c.Extraction.Provider },
		set: func(c *Config, v string) error { c.Extraction.Provider = v; return nil },
	},
	"extraction.model": {
		get: func(c *Config) string { return c.Extraction.Model },
		set: func(c *Config, v string) error { c.Extraction.Model = v; return nil },
	},
	"extraction.base_url": {
		get: func(c *Config) string { return c.Extraction.BaseURL },
		set: func(c *Config, v string) error { c.Extraction.BaseURL = v; return nil },
	},
	"extraction.key_source": {
		get: func(c *Config) string { return c.Extraction.KeySource },
		set: func(c *Config, v string) error { c.Extraction.KeySource = v; return nil },
	},
	"compression.provider": {
		get: func(c *Config) string { return c.Compression.Provider },
		set: func(c *Config, v string) error { c.Compression.Provider = v; return nil },
	},
	"pipeline.workers": {
		get: func(c *Config) string {
			if c.Pipeline.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Pipeline.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for pipeline.workers: %w", err)
			}
			c.Pipeline.Workers = uint(n)
			return nil
		},
	},
	"pipeline.queue_size": {
		get: func(c *Config) string {
			if c.Pipeline.QueueSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Pipeline.QueueSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for pipeline.queue_size: %w", err)
			}
			c.Pipeline.QueueSize = uint(n)
			return nil
		},
	},
	"pipeline.max_attempts": {
		get: func(c *Config) string {
			if c.Pipeline.MaxAttempts == 0 {
				return ""
			}
			return strconv.Itoa(c.Pipeline.MaxAttempts)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for pipeline.max_attempts: %w", err)
			}
			c.Pipeline.MaxAttempts = n
			return nil
		},
	},
	"pipeline.job_timeout_seconds": {
		get: func(c *Config) string {
			if c.Pipeline.JobTimeoutSeconds == 0 {
				return ""
			}
			return strconv.Itoa(c.Pipeline.JobTimeoutSeconds)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for pipeline.job_timeout_seconds: %w", err)
			}
			c.Pipeline.JobTimeoutSeconds = n
			return nil
		},
	},
	"wake.default_budget": {
		get: func(c *Config) string {
			if c.Wake.DefaultBudget == 0 {
				return ""
			}
			return strconv.Itoa(c.Wake.DefaultBudget)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for wake.default_budget: %w", err)
			}
			c.Wake.DefaultBudget = n
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			c.Events.Brokers = strings.Split(v, ",")
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"tokens.estimator": {
		get: func(c *Config) string { return c.Tokens.Estimator },
		set: func(c *Config, v string) error { c.Tokens.Estimator = v; return nil },
	},
}
