package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/reveriehq/reverie/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .reverie/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"storage.backend",
		"storage.sqlite_path",
		"storage.postgres_dsn",
		"api.listen",
		"extraction.provider",
		"extraction.model",
		"extraction.base_url",
		"extraction.key_source",
		"compression.provider",
		"pipeline.workers",
		"pipeline.queue_size",
		"pipeline.max_attempts",
		"pipeline.job_timeout_seconds",
		"wake.default_budget",
		"events.provider",
		"events.brokers",
		"events.topic",
		"tokens.estimator",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .reverie/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Extraction.Provider == "" {
		cfg.Extraction.Provider = defaults.Extraction.Provider
	}
	if cfg.Extraction.Model == "" {
		cfg.Extraction.Model = defaults.Extraction.Model
	}
	if cfg.Extraction.BaseURL == "" {
		cfg.Extraction.BaseURL = defaults.Extraction.BaseURL
	}
	if cfg.Extraction.KeySource == "" {
		cfg.Extraction.KeySource = defaults.Extraction.KeySource
	}

	if cfg.Compression.Provider == "" {
		cfg.Compression.Provider = defaults.Compression.Provider
	}

	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = defaults.Pipeline.Workers
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = defaults.Pipeline.QueueSize
	}
	if cfg.Pipeline.MaxAttempts == 0 {
		cfg.Pipeline.MaxAttempts = defaults.Pipeline.MaxAttempts
	}
	if cfg.Pipeline.JobTimeoutSeconds == 0 {
		cfg.Pipeline.JobTimeoutSeconds = defaults.Pipeline.JobTimeoutSeconds
	}

	if cfg.Wake.DefaultBudget == 0 {
		cfg.Wake.DefaultBudget = defaults.Wake.DefaultBudget
	}

	if cfg.Events.Provider == "" {
		cfg.Events.Provider = defaults.Events.Provider
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaults.Events.Topic
	}

	if cfg.Tokens.Estimator == "" {
		cfg.Tokens.Estimator = defaults.Tokens.Estimator
	}
}

// SaveConfig persists the configuration to config.toml in the target .reverie/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named deployment preset.
// Supported presets: "local", "openai", "production".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "local":
		return &Config{
			Version: CurrentV,
			Storage: StorageConfig{
				Backend: "sqlite",
			},
			API: APIConfig{
				Listen: ":8081",
			},
			Extraction: ExtractionConfig{
				Provider: "static",
			},
			Compression: CompressionConfig{
				Provider: "static",
			},
			Events: EventsConfig{
				Provider: "nop",
			},
			Tokens: TokensConfig{
				Estimator: "heuristic",
			},
		}, nil

	case "openai":
		return &Config{
			Version: CurrentV,
			Storage: StorageConfig{
				Backend: "sqlite",
			},
			API: APIConfig{
				Listen: ":8081",
			},
			Extraction: ExtractionConfig{
				Provider:  "openai",
				Model:     "gpt-4o-mini",
				BaseURL:   "https://api.openai.com/v1",
				KeySource: "operator",
			},
			Compression: CompressionConfig{
				Provider: "openai",
			},
			Events: EventsConfig{
				Provider: "nop",
			},
		}, nil

	case "production":
		return &Config{
			Version: CurrentV,
			Storage: StorageConfig{
				Backend: "postgres",
			},
			API: APIConfig{
				Listen: ":8081",
			},
			Extraction: ExtractionConfig{
				Provider:  "openai",
				Model:     "gpt-4o-mini",
				BaseURL:   "https://api.openai.com/v1",
				KeySource: "operator",
			},
			Compression: CompressionConfig{
				Provider: "openai",
			},
			Events: EventsConfig{
				Provider: "kafka",
				Brokers:  []string{"localhost:9092"},
				Topic:    "reverie.captures",
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: local, openai, production)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"local", "openai", "production"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
