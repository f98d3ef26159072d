// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmake/pmake/internal/config"
	"github.com/pmake/pmake/internal/execute"
	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/internal/platform"
	"github.com/pmake/pmake/internal/script"
	"github.com/pmake/pmake/internal/session"
	"github.com/pmake/pmake/pkg/types"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// errInvalidVariable is returned for a -V value that is not name=value.
var errInvalidVariable = errors.New("variables must be given as name=value")

// runOptions are the flags of `pmake run`.
type runOptions struct {
	file          string
	script        string
	variables     []string
	variablesFile string
	cacheFile     string
	noCache       bool
}

func newRunCommand(app *App) *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run [TARGET...]",
		Short: "Run a PMakefile",
		Long: `Run a PMakefile with the given targets.

The script is ./PMakefile unless --file or --string say otherwise. Targets are
the script's positional parameters ($1, $2, ...) and can be tested with the
'specifies_target' helper. Variables are exported into the script environment.`,
		Example: `  pmake run
  pmake run build test
  pmake run -f ci/PMakefile -V mode=release
  pmake run -s 'info "jdk is $(latest_interesting_path jdk)"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPMakefile(cmd, app, opts, args)
		},
	}

	runCmd.Flags().StringVarP(&opts.file, "file", "f", "", "PMakefile to run (default from config, usually PMakefile)")
	runCmd.Flags().StringVarP(&opts.script, "string", "s", "", "run this script instead of a file")
	runCmd.Flags().StringArrayVarP(&opts.variables, "variable", "V", nil, "define a variable as name=value (repeatable)")
	runCmd.Flags().StringVar(&opts.variablesFile, "variables-file", "", "TOML file with a flat table of variables")
	runCmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "cache file, relative to the PMakefile folder (default from config)")
	runCmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "run without a persistent cache")
	runCmd.MarkFlagsMutuallyExclusive("file", "string")
	runCmd.MarkFlagsMutuallyExclusive("cache-file", "no-cache")

	return runCmd
}

func runPMakefile(cmd *cobra.Command, app *App, opts *runOptions, targets []string) error {
	ctx := cmd.Context()
	cfg := app.cfg

	variables, err := loadVariables(opts.variablesFile, opts.variables)
	if err != nil {
		return app.fail(cmd, types.ExitUsage, err)
	}

	rules, err := compileRules(cfg.Paths.Rules)
	if err != nil {
		return app.fail(cmd, 1, err)
	}

	sessOpts := session.Options{
		ScriptString: opts.script,
		Targets:      targets,
		Variables:    variables,
		CacheFile:    cfg.Cache.File,
		Version:      scriptVersion(),
		Rules:        rules,
	}
	if opts.cacheFile != "" {
		sessOpts.CacheFile = opts.cacheFile
	}
	if opts.noCache {
		sessOpts.CacheFile = ""
	}
	if opts.script == "" {
		path, err := locatePMakefile(opts.file, cfg.Script.DefaultFile)
		if err != nil {
			return app.fail(cmd, 1, err)
		}
		sessOpts.ScriptPath = path
	}

	runner := execute.NewRunner(
		execute.WithLogger(app.logger),
		execute.WithShell(cfg.Script.Shell),
	)
	sess, err := session.New(ctx, sessOpts, session.Dependencies{Probe: app.Probe, Runner: runner, Logger: app.logger})
	if err != nil {
		return app.fail(cmd, 1, err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			app.logger.Error("failed to save the cache", "error", closeErr)
		}
	}()

	engine := script.NewEngine(sess, script.WithStdIO(app.stdin, app.stdout, app.stderr))
	return app.scriptResult(cmd, engine.Run(ctx))
}

// scriptResult maps the outcome of a script to the process exit code.
func (a *App) scriptResult(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}

	var status interp.ExitStatus
	if errors.As(err, &status) {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: types.ExitCode(status)}
	}

	var halt *script.HaltError
	if errors.As(err, &halt) {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		_, _ = fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+halt.Error())
		if halt.IssueID != 0 {
			a.renderIssue(halt.IssueID)
		}
		return &ExitError{Code: types.ExitFailure, Err: err}
	}

	var parseErr syntax.ParseError
	if errors.As(err, &parseErr) {
		return a.fail(cmd, types.ExitUsage, issue.NewErrorContext().
			WithOperation("parse PMakefile").
			WithResource(parseErr.Filename).
			WithSuggestion("Check the reported line with 'sh -n' or shellcheck").
			WithIssue(issue.PMakefileParseErrorId).
			Wrap(err).
			BuildError())
	}

	if errors.Is(err, context.Canceled) {
		return a.fail(cmd, types.ExitFailure, fmt.Errorf("interrupted: %w", err))
	}
	return a.fail(cmd, types.ExitFailure, issue.NewErrorContext().
		WithOperation("run PMakefile").
		WithIssue(issue.ScriptExecutionFailedId).
		Wrap(err).
		BuildError())
}

// locatePMakefile resolves the script to run and checks that it exists.
func locatePMakefile(file, defaultFile string) (string, error) {
	if file == "" {
		file = defaultFile
	}
	if file == "" {
		file = config.DefaultScriptFile
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", file, err)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", abs)
		}
		return "", issue.NewErrorContext().
			WithOperation("find PMakefile").
			WithResource(abs).
			WithSuggestion("Run pmake from the folder that holds the PMakefile").
			WithSuggestion("Point at another script with --file, or pass one inline with --string").
			WithIssue(issue.PMakefileNotFoundId).
			Wrap(err).
			BuildError()
	}
	return abs, nil
}

// loadVariables merges the variables file with -V values. Command line
// values win.
func loadVariables(file string, pairs []string) (map[string]string, error) {
	vars := make(map[string]string)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read variables file: %w", err)
		}
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse variables file %s: %w", file, err)
		}
		for name, value := range table {
			switch value.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("variable %q in %s must be a scalar", name, file)
			}
			vars[name] = fmt.Sprint(value)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidVariable, pair)
		}
		vars[name] = value
	}
	return vars, nil
}

// compileRules turns configured path rules into scanner rules.
func compileRules(specs []config.PathRule) ([]platform.Rule, error) {
	raw := make([]platform.RuleSpec, 0, len(specs))
	for _, s := range specs {
		raw = append(raw, platform.RuleSpec{
			Name:         s.Name,
			Roots:        s.Roots,
			Pattern:      s.Pattern,
			Architecture: s.Architecture,
		})
	}
	rules, err := platform.CompileRules(raw)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("compile path rules").
			WithSuggestion("Fix the paths.rules entries with 'pmake config show'").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return rules, nil
}

// newSession builds a session without a script, for the inspection commands.
func newSession(ctx context.Context, app *App, cacheFile string) (*session.Session, error) {
	rules, err := compileRules(app.cfg.Paths.Rules)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return session.New(ctx, session.Options{
		ScriptString: ":",
		StartingCwd:  cwd,
		CacheFile:    cacheFile,
		Version:      scriptVersion(),
		Rules:        rules,
	}, session.Dependencies{Probe: app.Probe, Logger: app.logger})
}
