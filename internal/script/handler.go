// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pmake/pmake/internal/execute"
	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/internal/session"
	"github.com/pmake/pmake/pkg/interesting"
	"github.com/pmake/pmake/pkg/types"

	"github.com/spf13/pflag"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

var (
	// ErrUsage is the sentinel error wrapped by UsageError.
	ErrUsage = errors.New("invalid usage")
	// ErrHalted is the sentinel error wrapped by HaltError.
	ErrHalted = errors.New("script halted")
	// ErrNoCache is returned by the cache builtins when the run has no cache.
	ErrNoCache = errors.New("the cache is disabled for this run")
)

type (
	// HandlerContext provides the execution context of a builtin.
	// It is extracted from mvdan/sh's interp.HandlerCtx.
	HandlerContext struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		// Dir is the shell's current directory.
		Dir string
		// LookupEnv reads shell variables.
		LookupEnv func(string) (string, bool)
		// Environ lists the exported shell variables as K=V pairs, the
		// environment host commands started by the shell would see.
		Environ func() []string
	}

	handlerContextKey struct{}

	// Call is one invocation of a builtin.
	Call struct {
		*HandlerContext
		// Name is the invoked builtin.
		Name string
		// Args are the arguments after the name.
		Args     []string
		Session  *session.Session
		Registry *Registry

		usage string
		eval  func(ctx context.Context, src string) error
	}

	// UsageError reports invalid builtin arguments. It maps to exit status 2.
	UsageError struct {
		Builtin string
		Usage   string
		Reason  string
	}

	// shellStatus wraps the status of code run by Call.Eval so that it can
	// be handed back to the interpreter untouched.
	shellStatus struct {
		err error
	}

	// HaltError stops the whole script. It is returned by assertion builtins.
	HaltError struct {
		Builtin string
		IssueID issue.Id
		Err     error
	}
)

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Usage == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s\nusage: %s %s", e.Reason, e.Builtin, e.Usage)
}

// Unwrap returns ErrUsage for errors.Is() compatibility.
func (e *UsageError) Unwrap() error { return ErrUsage }

// Error implements the error interface.
func (e *HaltError) Error() string {
	return fmt.Sprintf("%s: %v", e.Builtin, e.Err)
}

// Unwrap exposes both ErrHalted and the cause.
func (e *HaltError) Unwrap() []error { return []error{ErrHalted, e.Err} }

func (e *shellStatus) Error() string { return e.err.Error() }

func (e *shellStatus) Unwrap() error { return e.err }

// ExtractHandlerContext builds a HandlerContext from mvdan/sh's context.
func ExtractHandlerContext(ctx context.Context) *HandlerContext {
	hc := interp.HandlerCtx(ctx)
	return &HandlerContext{
		Stdin:  hc.Stdin,
		Stdout: hc.Stdout,
		Stderr: hc.Stderr,
		Dir:    hc.Dir,
		LookupEnv: func(name string) (string, bool) {
			v := hc.Env.Get(name)
			return v.String(), v.IsSet()
		},
		Environ: func() []string { return exportedEnv(hc.Env) },
	}
}

func exportedEnv(env expand.Environ) []string {
	list := []string{}
	env.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.IsSet() && vr.Kind == expand.String {
			list = append(list, name+"="+vr.String())
		}
		return true
	})
	return list
}

// WithHandlerContext stores a HandlerContext in the context, replacing the
// interpreter's. Used by tests that call builtins directly.
func WithHandlerContext(ctx context.Context, hc *HandlerContext) context.Context {
	return context.WithValue(ctx, handlerContextKey{}, hc)
}

// GetHandlerContext returns the HandlerContext stored by WithHandlerContext,
// or the one of the running interpreter.
func GetHandlerContext(ctx context.Context) *HandlerContext {
	if hc, ok := ctx.Value(handlerContextKey{}).(*HandlerContext); ok {
		return hc
	}
	return ExtractHandlerContext(ctx)
}

// StatusOf maps a builtin error to its exit status.
func StatusOf(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}

	var status interp.ExitStatus
	if errors.As(err, &status) {
		return types.ExitCode(status)
	}
	var exitErr *execute.ExitCodeError
	if errors.As(err, &exitErr) && exitErr.ExitCode > 0 && exitErr.ExitCode < 256 {
		return types.ExitCode(exitErr.ExitCode)
	}

	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, interesting.ErrInvalidArchitecture):
		return types.ExitUsage
	case errors.Is(err, interesting.ErrUnknownInterestingPathName):
		return types.ExitUnknownName
	case errors.Is(err, interesting.ErrNoMatchingArchitecture):
		return types.ExitNoMatchingArchitecture
	case errors.Is(err, interesting.ErrMalformedVersion):
		return types.ExitMalformedVersion
	default:
		return types.ExitFailure
	}
}

// answer turns a yes/no result into an exit status.
func answer(yes bool) error {
	if yes {
		return nil
	}
	return interp.ExitStatus(types.ExitFailure)
}

// Flags returns an empty flag set for the builtin.
func (c *Call) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(c.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// Parse parses the call arguments into fs and checks the positional count.
// A negative maxArgs means unbounded.
func (c *Call) Parse(fs *pflag.FlagSet, minArgs, maxArgs int) ([]string, error) {
	if err := fs.Parse(c.Args); err != nil {
		return nil, c.usageError(err.Error())
	}
	args := fs.Args()
	switch {
	case len(args) < minArgs:
		return nil, c.usageError(fmt.Sprintf("expected at least %d argument(s), got %d", minArgs, len(args)))
	case maxArgs >= 0 && len(args) > maxArgs:
		return nil, c.usageError(fmt.Sprintf("expected at most %d argument(s), got %d", maxArgs, len(args)))
	}
	return args, nil
}

// positional parses a call that takes no flags.
func (c *Call) positional(minArgs, maxArgs int) ([]string, error) {
	return c.Parse(c.Flags(), minArgs, maxArgs)
}

func (c *Call) usageError(reason string) error {
	return &UsageError{Builtin: c.Name, Usage: c.usage, Reason: reason}
}

func (c *Call) halt(id issue.Id, err error) error {
	return &HaltError{Builtin: c.Name, IssueID: id, Err: err}
}

// Path resolves p against the shell's current directory.
func (c *Call) Path(p string) string {
	if p == "" {
		return c.Dir
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.Dir, p)
	}
	return filepath.Clean(p)
}

// Println writes a result line to stdout.
func (c *Call) Println(a ...any) {
	_, _ = fmt.Fprintln(c.Stdout, a...)
}

// PrintLines writes one value per line to stdout.
func (c *Call) PrintLines(lines []string) {
	if len(lines) == 0 {
		return
	}
	_, _ = io.WriteString(c.Stdout, strings.Join(lines, "\n")+"\n")
}

// Eval runs shell code in a subshell of the running script.
func (c *Call) Eval(ctx context.Context, src string) error {
	if c.eval == nil {
		return errors.New("evaluation is not available outside a script")
	}
	return c.eval(ctx, src)
}

// Logger returns the session logger tagged with the builtin name.
func (c *Call) Logger() *slog.Logger {
	return c.Session.Logger().With("builtin", c.Name)
}
