// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pmake/pmake/internal/config"
	"github.com/pmake/pmake/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `pmake config` command tree.
// Subcommands that read configuration use the App's Provider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pmake configuration",
		Long: `Manage pmake configuration.

Configuration is stored in:
  - Linux: ~/.config/pmake/config.cue
  - macOS: ~/Library/Application Support/pmake/config.cue
  - Windows: %APPDATA%\pmake\config.cue

Every value can be overridden with a PMAKE_* environment variable,
for instance PMAKE_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd.Context(), app); err != nil {
				return app.fail(cmd, 1, err)
			}
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig(force)
			if err != nil {
				return app.fail(cmd, 1, fmt.Errorf("failed to create config: %w", err))
			}
			_, _ = fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "replace an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.FilePath(config.LoadOptions{ConfigFilePath: app.configPath})
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			_, _ = fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	var schema bool
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schema {
				_, _ = fmt.Fprint(app.stdout, config.Schema())
				return nil
			}
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.configPath})
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			_, _ = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	}
	dumpCmd.Flags().BoolVar(&schema, "schema", false, "output the CUE schema instead")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	out := app.stdout

	_, _ = fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	_, _ = fmt.Fprintln(out)

	path, pathErr := config.FilePath(config.LoadOptions{ConfigFilePath: app.configPath})
	if pathErr == nil && fileExistsCheck(path) {
		_, _ = fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		_, _ = fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(cfg.LogLevel.String()))

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s:\n", keyStyle.Render("script"))
	_, _ = fmt.Fprintf(out, "  default_file: %s\n", valueStyle.Render(cfg.Script.DefaultFile))
	shell := cfg.Script.Shell
	if shell == "" {
		shell = SubtitleStyle.Render("(host default)")
	} else {
		shell = valueStyle.Render(shell)
	}
	_, _ = fmt.Fprintf(out, "  shell: %s\n", shell)

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s:\n", keyStyle.Render("cache"))
	_, _ = fmt.Fprintf(out, "  file: %s\n", valueStyle.Render(cfg.Cache.File))

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	_, _ = fmt.Fprintf(out, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	_, _ = fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s:\n", keyStyle.Render("paths.rules"))
	if len(cfg.Paths.Rules) == 0 {
		_, _ = fmt.Fprintf(out, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, rule := range cfg.Paths.Rules {
		_, _ = fmt.Fprintf(out, "  - %s: %s in %s\n",
			valueStyle.Render(rule.Name), rule.Pattern, strings.Join(rule.Roots, ", "))
	}

	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
