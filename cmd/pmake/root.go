// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pmake.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pmake/pmake/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pmake",
		Short: "A build script runner that knows where your tools live",
		Long: TitleStyle.Render("pmake") + SubtitleStyle.Render(" - A build script runner that knows where your tools live") + `

pmake runs PMakefiles: POSIX shell scripts enriched with helper commands.
Before the script starts, pmake scans the well-known installation folders of
the host and resolves the latest version of every tool it recognizes
(JDKs, Maven, Gradle, Python, ...), so scripts can ask for them by name.

` + SubtitleStyle.Render("Examples:") + `
  pmake run                 Run ./PMakefile
  pmake run build test      Run ./PMakefile with the targets 'build' and 'test'
  pmake run -V mode=release Define a variable for the script
  pmake paths               List the discovered interesting paths
  pmake commands            List the helper commands available to scripts`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(cmd.Context()); err != nil {
				return app.fail(cmd, 1, err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/pmake/config.cue)")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)")

	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newPathsCommand(app))
	rootCmd.AddCommand(newCommandsCommand(app))
	rootCmd.AddCommand(newCacheCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
// ldflags win; go-install builds fall back to the module version.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// scriptVersion is the version PMakefiles see in $PMAKE_VERSION and check
// with require_pmake_version.
func scriptVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
