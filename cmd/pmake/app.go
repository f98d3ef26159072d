// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pmake/pmake/internal/config"
	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/pkg/interesting"
	"github.com/pmake/pmake/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every Cobra command handler receives an App reference.
	App struct {
		Config config.Provider
		// Probe replaces host detection when set.
		Probe  interesting.Probe
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer

		// Persistent flag values.
		configPath string
		verbose    bool
		logLevel   string

		// Set by setup before any RunE handler runs.
		cfg    *config.Config
		logger *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Probe  interesting.Probe
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		Probe:  deps.Probe,
		stdin:  deps.Stdin,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		cfg:    config.DefaultConfig(),
		logger: slog.Default(),
	}, nil
}

// setup loads the configuration and installs the logger. It runs once per
// invocation, from the root command's PersistentPreRunE.
func (a *App) setup(ctx context.Context) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}

	level := config.LogLevel(a.logLevel)
	if level == "" {
		level = cfg.LogLevel
	}
	logger, err := newLogger(a.stderr, level)
	if err != nil {
		return err
	}
	a.logger = slog.New(logger)
	slog.SetDefault(a.logger)
	return nil
}

// newLogger builds the charm logger every pmake diagnostic goes through.
func newLogger(w io.Writer, level config.LogLevel) (*log.Logger, error) {
	if valid, errs := level.IsValid(); !valid {
		return nil, errs[0]
	}
	charmLevel, err := log.ParseLevel(level.String())
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  charmLevel,
	}), nil
}

// loadConfig reads the configuration. A broken file at an explicit --config
// path is fatal; a broken default file only produces a warning and the
// defaults.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err == nil {
		return cfg, nil
	}

	if a.configPath != "" {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(a.configPath).
			WithSuggestion("Check the file against 'pmake config dump' output").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	_, _ = fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
	return config.DefaultConfig(), nil
}

// fail reports err on stderr, renders the linked troubleshooting guide and
// turns it into an ExitError that Cobra will not print again.
func (a *App) fail(cmd *cobra.Command, code types.ExitCode, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	_, _ = fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue() != nil {
		a.renderIssue(ae.Issue().Id())
	}
	return &ExitError{Code: code, Err: err}
}

// renderIssue prints the troubleshooting guide of id with the configured
// color scheme.
func (a *App) renderIssue(id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(a.cfg.UI.ColorScheme.GlamourStyle())
	if err != nil {
		a.logger.Debug("failed to render issue", "id", int(id), "error", err)
		return
	}
	_, _ = fmt.Fprint(a.stderr, rendered)
}
