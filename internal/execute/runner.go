// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"
)

// Output handling modes.
const (
	// ModeForget discards stdout. Stderr is still kept for diagnostics.
	ModeForget Mode = iota
	// ModeOnScreen streams stdout and stderr to the request writers.
	ModeOnScreen
	// ModeCapture collects stdout into the Result without showing it.
	ModeCapture
	// ModeTTY runs the command on a pseudo-terminal and streams its output,
	// so tools keep their colours. Falls back to ModeOnScreen where
	// pseudo-terminals are unavailable.
	ModeTTY
)

var (
	// ErrNonZeroExit is the sentinel error wrapped by ExitCodeError.
	ErrNonZeroExit = errors.New("command exited with non-zero status")
	// ErrTimeout is the sentinel error wrapped by TimeoutError.
	ErrTimeout = errors.New("command timed out")
	// ErrEmptyCommand is returned when a request has no command line.
	ErrEmptyCommand = errors.New("no command to execute")
)

type (
	// Mode selects what happens to the output of a command.
	Mode int

	// Request describes one execution.
	Request struct {
		// Args are command lines run one after the other in the same shell;
		// the chain stops at the first failure.
		Args []string
		// Shell overrides the host shell.
		Shell string
		// Dir is the working directory. Empty means the current one.
		Dir string
		// BaseEnv replaces the pmake process environment as the starting
		// point when Inherit is set. Nil means os.Environ().
		BaseEnv []string
		// Env holds extra environment variables.
		Env map[string]string
		// Inherit starts from BaseEnv before applying Env.
		Inherit bool
		// Timeout aborts the command after the given duration when positive.
		Timeout time.Duration
		// Mode selects output handling.
		Mode Mode
		// CheckExitCode turns a non-zero exit status into an ExitCodeError.
		CheckExitCode bool
		// Admin runs the command with administrator rights.
		Admin bool
		// AdminPassword is handed to the elevation tool. Leaks easily; avoid.
		AdminPassword string
		// Stdout and Stderr receive streamed output. Nil means os.Stdout and
		// os.Stderr.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result is the outcome of a finished command. Output is trimmed of
	// surrounding whitespace.
	Result struct {
		ExitCode int
		Stdout   string
		Stderr   string
	}

	// ExitCodeError is returned when CheckExitCode is set and the command
	// exited with a non-zero status.
	ExitCodeError struct {
		Command  string
		ExitCode int
		Stderr   string
	}

	// TimeoutError is returned when a command outlives its timeout.
	TimeoutError struct {
		Command string
		Timeout time.Duration
	}

	// Runner launches host processes.
	Runner struct {
		goos     string
		shell    string
		getenv   func(string) string
		lookPath func(string) (string, error)
		logger   *slog.Logger
	}

	// RunnerOption customizes a Runner.
	RunnerOption func(*Runner)
)

// Error implements the error interface.
func (e *ExitCodeError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns ErrNonZeroExit for errors.Is() compatibility.
func (e *ExitCodeError) Unwrap() error { return ErrNonZeroExit }

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
}

// Unwrap returns ErrTimeout for errors.Is() compatibility.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// WithGOOS makes the runner behave as on goos.
func WithGOOS(goos string) RunnerOption { return func(r *Runner) { r.goos = goos } }

// WithShell sets the shell used when a request names none.
func WithShell(shell string) RunnerOption { return func(r *Runner) { r.shell = shell } }

// WithGetenv replaces os.Getenv for shell detection.
func WithGetenv(getenv func(string) string) RunnerOption {
	return func(r *Runner) { r.getenv = getenv }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(lookPath func(string) (string, error)) RunnerOption {
	return func(r *Runner) { r.lookPath = lookPath }
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner for the host.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		goos:     runtime.GOOS,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookPath reports whether program can be found on PATH.
func (r *Runner) LookPath(program string) bool {
	_, err := r.lookPath(program)
	return err == nil
}

// Run executes req and waits for it to finish. A non-zero exit status is
// only an error when req.CheckExitCode is set; failing to start the process
// always is.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	commands := slices.DeleteFunc(slices.Clone(req.Args), func(s string) bool {
		return strings.TrimSpace(s) == ""
	})
	if len(commands) == 0 {
		return Result{}, ErrEmptyCommand
	}

	shell := req.Shell
	if shell == "" {
		var err error
		if shell, err = r.defaultShell(); err != nil {
			return Result{}, err
		}
	}
	script := joinCommands(shell, commands)

	inv := invocation{name: shell, args: shellArgs(shell, script)}
	if req.Admin {
		var err error
		if inv, err = r.elevate(shell, script, req.AdminPassword); err != nil {
			return Result{}, err
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.name, inv.args...)
	cmd.Dir = req.Dir
	// Grandchildren holding the output pipes must not keep Run blocked
	// past a kill.
	cmd.WaitDelay = time.Second
	cmd.Env = buildEnv(req)
	if inv.stdin != "" {
		cmd.Stdin = strings.NewReader(inv.stdin)
	}

	stdout, stderr := req.Stdout, req.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	r.logger.Debug("executing command", "shell", shell, "script", script, "dir", req.Dir, "admin", req.Admin)

	var outBuf, errBuf bytes.Buffer
	var runErr error
	switch req.Mode {
	case ModeTTY:
		runErr = runTTY(cmd, io.MultiWriter(stdout, &outBuf))
	case ModeOnScreen:
		cmd.Stdout = io.MultiWriter(stdout, &outBuf)
		cmd.Stderr = io.MultiWriter(stderr, &errBuf)
		runErr = cmd.Run()
	case ModeCapture:
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
		runErr = cmd.Run()
	default:
		cmd.Stdout = io.Discard
		cmd.Stderr = &errBuf
		runErr = cmd.Run()
	}

	result := Result{
		Stdout: strings.TrimSpace(outBuf.String()),
		Stderr: strings.TrimSpace(errBuf.String()),
	}

	if req.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, &TimeoutError{Command: script, Timeout: req.Timeout}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return result, fmt.Errorf("failed to execute %q: %w", script, runErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if req.CheckExitCode && result.ExitCode != 0 {
		return result, &ExitCodeError{Command: script, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result, nil
}

// buildEnv returns nil (inherit everything) when the request neither
// isolates, replaces nor extends the environment.
func buildEnv(req Request) []string {
	if req.Inherit && req.BaseEnv == nil && len(req.Env) == 0 {
		return nil
	}

	var env []string
	if req.Inherit {
		if req.BaseEnv != nil {
			env = slices.Clone(req.BaseEnv)
		} else {
			env = os.Environ()
		}
	}
	keys := make([]string, 0, len(req.Env))
	for k := range req.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+req.Env[k])
	}
	if env == nil {
		env = []string{}
	}
	return env
}
