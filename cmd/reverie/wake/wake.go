// Package wakecmder provides the wake command for generating a wake prompt
// from the terminal.
package wakecmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/cliui"
	compressstatic "github.com/reveriehq/reverie/pkg/compress/static"
	"github.com/reveriehq/reverie/pkg/dotdir"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/storage/sqlite"
	"github.com/reveriehq/reverie/pkg/tokens"
	"github.com/reveriehq/reverie/pkg/wake"
)

type wakeCommander struct {
	sqlitePath string
	categories string
	budget     int
	raw        bool
}

const wakeLongDesc string = `Generate a wake prompt for a profile from local storage.

Packs the profile's memories by importance into the given token budget and
prints the resulting markdown. Condensation of overflow memories uses the
deterministic compressor, so output is stable across runs.

Examples:
  reverie wake 6a1f...
  reverie wake 6a1f... --budget 1200 --categories relationships,preferences
  reverie wake 6a1f... --raw`

const wakeShortDesc string = "Generate a wake prompt for a profile"

func NewWakeCmd() *cobra.Command {
	cmder := &wakeCommander{}

	cmd := &cobra.Command{
		Use:   "wake <profile-id>",
		Short: wakeShortDesc,
		Long:  wakeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(args[0], configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database (default: .reverie/reverie.db)")
	cmd.Flags().StringVarP(&cmder.categories, "categories", "c", "", "Comma-separated category filter (default: all categories)")
	cmd.Flags().IntVarP(&cmder.budget, "budget", "b", 0, "Token budget for the wake prompt (default: configured budget)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print raw markdown instead of rendering for the terminal")

	return cmd
}

func (c *wakeCommander) run(profileID, configDir string) error {
	path := c.sqlitePath
	if path == "" {
		var err error
		path, err = dotdir.NewManager().DatabasePath(configDir)
		if err != nil {
			return fmt.Errorf("resolving database path: %w", err)
		}
	}

	driver, err := sqlite.New(path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer driver.Close()

	categories, err := parseCategories(c.categories)
	if err != nil {
		return err
	}

	ctx := context.Background()

	profile, err := driver.GetProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	mems, err := driver.AllMemories(ctx, profileID)
	if err != nil {
		return fmt.Errorf("loading memories: %w", err)
	}

	estimator := tokens.NewHeuristic()
	compressor := compressstatic.NewDriver(estimator)
	generator := wake.NewGenerator(compressor, compressor, zap.NewNop())

	artifact, err := generator.Generate(ctx, profile.Name, mems, categories, c.budget)
	if err != nil {
		return fmt.Errorf("generating wake prompt: %w", err)
	}

	if c.raw {
		fmt.Print(artifact.Text)
	} else {
		rendered, err := cliui.RenderMarkdown(artifact.Text)
		if err != nil {
			// Fall back to raw markdown when the terminal renderer fails.
			rendered = artifact.Text
		}
		fmt.Print(rendered)
	}

	fmt.Printf("\n  %s %d tokens, %d memories\n",
		cliui.DimStyle.Render("packed:"),
		artifact.TokenCount,
		artifact.MemoryCount,
	)

	return nil
}

func parseCategories(raw string) ([]memory.Category, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	categories := make([]memory.Category, 0, len(parts))
	for _, p := range parts {
		c := memory.Category(strings.TrimSpace(p))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category: %q (available: %s)", p, joinCategories())
		}
		categories = append(categories, c)
	}

	return categories, nil
}

func joinCategories() string {
	all := memory.Categories()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
