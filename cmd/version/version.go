// Package versioncmder
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reveriehq/reverie/pkg/cliui"
	"github.com/reveriehq/reverie/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, row := range [][2]string{
				{"version", utils.Version},
				{"sha", utils.Sha},
				{"built", utils.Buildtime},
			} {
				fmt.Printf("%s %s\n", cliui.KeyStyle.Render(row[0]+":"), cliui.ValueStyle.Render(row[1]))
			}
			return nil
		},
	}
}
