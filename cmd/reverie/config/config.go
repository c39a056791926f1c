// Package configcmder provides the config command for managing persistent
// reverie configuration stored in the .reverie/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent reverie configuration.

Configuration is stored as config.toml in the .reverie/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  extraction.provider, extraction.model, extraction.base_url, extraction.key_source,
  compression.provider,
  pipeline.workers, pipeline.queue_size, pipeline.max_attempts, pipeline.job_timeout_seconds,
  wake.default_budget,
  events.provider, events.brokers, events.topic,
  tokens.estimator

Use subcommands to get, set, or list configuration values:
  reverie config set <key> <value>    Set a configuration value
  reverie config get <key>            Get a configuration value
  reverie config list                 List all configuration values

Examples:
  reverie config set extraction.provider openai
  reverie config set wake.default_budget 1500
  reverie config get storage.backend
  reverie config list`

const configShortDesc string = "Manage persistent reverie configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
