// Package reveriecmder
package reveriecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/reveriehq/reverie/cmd/reverie/config"
	initcmder "github.com/reveriehq/reverie/cmd/reverie/init"
	servecmder "github.com/reveriehq/reverie/cmd/reverie/serve"
	wakecmder "github.com/reveriehq/reverie/cmd/reverie/wake"
	versioncmder "github.com/reveriehq/reverie/cmd/version"
)

const reverieLongDesc string = `Reverie is durable memory for AI companions.

Captured conversation fragments are distilled into structured memories and
packed into wake prompts that fit a token budget.

Run services using:
  reverie serve        Run the API, MCP, and extraction pipeline
  reverie wake         Generate a wake prompt for a profile
  reverie config       Manage persistent configuration`

const reverieShortDesc string = "Reverie - Companion Memory"

func NewReverieCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reverie",
		Short: reverieShortDesc,
		Long:  reverieLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: .reverie/ resolution)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(wakecmder.NewWakeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
