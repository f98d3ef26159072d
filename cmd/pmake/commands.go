// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"

	"github.com/pmake/pmake/internal/script"
	"github.com/pmake/pmake/pkg/types"

	"github.com/spf13/cobra"
)

func newCommandsCommand(app *App) *cobra.Command {
	var category string

	commandsCmd := &cobra.Command{
		Use:   "commands",
		Short: "List the helper commands available to PMakefiles",
		Long: `List the helper commands PMakefiles can call in addition to host programs.

Helpers are resolved before binaries on PATH. Boolean helpers such as
'is_file_exists' answer through their exit status, so they fit 'if' and '&&'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := script.Categories()
			if category != "" {
				if !slices.Contains(categories, script.Category(category)) {
					return app.fail(cmd, types.ExitUsage, fmt.Errorf("unknown category %q (valid: %v)", category, categories))
				}
				categories = []script.Category{script.Category(category)}
			}
			listBuiltins(app, script.DefaultRegistry, categories)
			return nil
		},
	}
	commandsCmd.Flags().StringVar(&category, "category", "", "only list one category: paths, cache, fs, exec or session")

	return commandsCmd
}

func listBuiltins(app *App, registry *script.Registry, categories []script.Category) {
	_, _ = fmt.Fprintln(app.stdout, TitleStyle.Render("PMakefile helpers"))
	for _, cat := range categories {
		builtins := registry.ByCategory(cat)
		if len(builtins) == 0 {
			continue
		}
		_, _ = fmt.Fprintln(app.stdout)
		_, _ = fmt.Fprintln(app.stdout, SubtitleStyle.Render(string(cat)+":"))
		for _, b := range builtins {
			_, _ = fmt.Fprintf(app.stdout, "  %s %s\n", CmdStyle.Render(b.Name), VerboseStyle.Render(b.Usage))
			if b.Description != "" {
				_, _ = fmt.Fprintf(app.stdout, "      %s\n", b.Description)
			}
		}
	}
}
