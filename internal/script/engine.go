// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pmake/pmake/internal/session"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// Engine runs PMakefiles against a session.
	Engine struct {
		session  *session.Session
		registry *Registry
		stdin    io.Reader
		stdout   io.Writer
		stderr   io.Writer
		environ  []string
	}

	// EngineOption customizes an Engine.
	EngineOption func(*Engine)
)

// WithStdIO sets the script's standard streams.
func WithStdIO(stdin io.Reader, stdout, stderr io.Writer) EngineOption {
	return func(e *Engine) {
		e.stdin, e.stdout, e.stderr = stdin, stdout, stderr
	}
}

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

// WithEnviron sets the base environment ("KEY=value" pairs). Defaults to
// os.Environ().
func WithEnviron(env []string) EngineOption {
	return func(e *Engine) { e.environ = env }
}

// NewEngine creates an Engine for s.
func NewEngine(s *session.Session, opts ...EngineOption) *Engine {
	e := &Engine{
		session:  s,
		registry: DefaultRegistry,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.environ == nil {
		e.environ = os.Environ()
	}
	return e
}

// Run executes the session's script: the inline string when set, the
// PMakefile otherwise.
func (e *Engine) Run(ctx context.Context) error {
	if src := e.session.ScriptString(); src != "" {
		return e.RunString(ctx, "<string>", src)
	}
	return e.RunFile(ctx, e.session.ScriptPath())
}

// RunFile executes the PMakefile at path.
func (e *Engine) RunFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read PMakefile: %w", err)
	}
	return e.RunString(ctx, path, string(data))
}

// RunString executes src. name is used in error positions. A non-zero exit
// status is returned as interp.ExitStatus; a halted script as *HaltError.
func (e *Engine) RunString(ctx context.Context, name, src string) error {
	prog, err := Parse(name, src)
	if err != nil {
		return err
	}

	opts := []interp.RunnerOption{
		interp.Dir(e.session.StartingCwd()),
		interp.Env(expand.ListEnviron(e.environment()...)),
		interp.StdIO(e.stdin, e.stdout, e.stderr),
		interp.ExecHandlers(e.execHandler),
	}
	// "--" stops targets such as "-v" from being read as shell options.
	if targets := e.session.Targets(); len(targets) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, targets...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	e.session.Logger().Debug("running PMakefile", "file", name, "targets", e.session.Targets())
	return runner.Run(ctx, prog)
}

// Parse dedents and parses a script.
func Parse(name, src string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(dedent(src)), name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return prog, nil
}

func (e *Engine) environment() []string {
	s := e.session
	env := make([]string, 0, len(e.environ)+8)
	env = append(env, e.environ...)
	env = append(env,
		"PMAKE_VERSION="+s.Version(),
		"PMAKEFILE="+s.ScriptPath(),
		"PMAKEFILE_DIR="+s.ScriptDir(),
		"PMAKE_STARTING_CWD="+s.StartingCwd(),
		"PMAKE_ARCHITECTURE="+s.Architecture().String(),
		"PMAKE_PLATFORM="+s.Platform(),
	)
	for name, value := range s.Variables() {
		env = append(env, name+"="+value)
	}
	return env
}

// execHandler resolves builtins before host binaries.
func (e *Engine) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		b, found := e.registry.Lookup(args[0])
		if !found {
			return next(ctx, args)
		}

		call := &Call{
			HandlerContext: GetHandlerContext(ctx),
			Name:           args[0],
			Args:           args[1:],
			Session:        e.session,
			Registry:       e.registry,
			usage:          b.Usage,
			eval: func(ctx context.Context, src string) error {
				if err := interp.HandlerCtx(ctx).Builtin(ctx, []string{"eval", src}); err != nil {
					return &shellStatus{err: err}
				}
				return nil
			},
		}
		return finish(call, b.Run(ctx, call))
	}
}

// finish reports a builtin failure on stderr and converts it to an exit
// status. Halt errors are returned unchanged, which stops the interpreter.
func finish(c *Call, err error) error {
	if err == nil {
		return nil
	}
	var halt *HaltError
	if errors.As(err, &halt) {
		return halt
	}
	// The interpreter's own status carries exits and returns of eval'd code.
	var st *shellStatus
	if errors.As(err, &st) {
		return st.err
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return status
	}
	_, _ = fmt.Fprintf(c.Stderr, "%s: %v\n", c.Name, err)
	return interp.ExitStatus(StatusOf(err).Uint8())
}

// dedent removes the whitespace prefix shared by every non-blank line.
func dedent(src string) string {
	lines := strings.Split(src, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return src
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
