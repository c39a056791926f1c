// Package initcmder provides the init command for initializing a local .reverie
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reveriehq/reverie/pkg/cliui"
	"github.com/reveriehq/reverie/pkg/config"
)

const (
	dirName = ".reverie"
)

const initLongDesc string = `Initialize a new .reverie/ directory in the current working directory.

Creates a local .reverie/ directory that takes precedence over the default
~/.reverie/ directory for storage, configuration, and other reverie
operations, and writes a config.toml with default values.

This is useful for maintaining separate reverie state per project or directory.

Use --preset to start from a deployment preset (local, openai, production)
or fetch a shared config.toml from a URL:
  reverie init
  reverie init --preset openai
  reverie init --preset https://configs.example.com/reverie.toml`

const initShortDesc string = "Initialize a local .reverie/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Config preset name (local, openai, production) or a URL to a config.toml")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	alreadyInitialized := false
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		alreadyInitialized = true
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .reverie directory: %w", err)
	}

	cfg, err := resolveConfig(preset)
	if err != nil {
		return err
	}

	// A plain re-init keeps the existing config.toml; an explicit preset
	// overwrites it.
	configPath := filepath.Join(dir, "config.toml")
	if alreadyInitialized && preset == "" {
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Already initialized: %s\n", dir)
			return nil
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if alreadyInitialized {
		fmt.Printf("Updated config: %s\n", configPath)
	} else {
		fmt.Printf("Initialized .reverie directory: %s\n", dir)
	}
	return nil
}

// resolveConfig maps the --preset value to a Config: empty means defaults,
// an http(s) URL is fetched and parsed, anything else is a named preset.
func resolveConfig(preset string) (*config.Config, error) {
	if preset == "" {
		return config.NewDefaultConfig(), nil
	}

	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		var cfg *config.Config
		err := cliui.Step(os.Stdout, "Fetching remote config", func() error {
			var ferr error
			cfg, ferr = fetchRemoteConfig(preset)
			return ferr
		})
		return cfg, err
	}

	return config.PresetConfig(preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
