// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pmake/pmake/internal/execute"

	"github.com/spf13/pflag"
	"mvdan.cc/sh/v3/interp"
)

// AdminPasswordEnv is read by the execute_admin_with_password_* builtins
// when --password is not given.
const AdminPasswordEnv = "PMAKE_ADMIN_PASSWORD"

type execOptions struct {
	cwd      string
	env      []string
	timeout  time.Duration
	noCheck  bool
	shell    string
	cleanEnv bool
	password string
}

func init() {
	const usage = "[--cwd DIR] [--env K=V]... [--timeout D] [--no-check] [--shell SH] [--clean-env] COMMAND..."
	const adminUsage = "[--password P] " + usage
	registerAll(CategoryExec,
		Builtin{Name: "execute_and_forget", Usage: usage, Description: "Run commands, discarding their output", Run: execRunner(execute.ModeForget, false, false)},
		Builtin{Name: "execute_stdout_on_screen", Usage: usage, Description: "Run commands, showing their output", Run: execRunner(execute.ModeOnScreen, false, false)},
		Builtin{Name: "execute_return_stdout", Usage: usage, Description: "Run commands and print their trimmed stdout", Run: execRunner(execute.ModeCapture, false, false)},
		Builtin{Name: "execute_tty", Usage: usage, Description: "Run commands on a pseudo-terminal", Run: execRunner(execute.ModeTTY, false, false)},
		Builtin{Name: "execute_admin_and_forget", Usage: usage, Description: "Run commands as administrator, discarding their output", Run: execRunner(execute.ModeForget, true, false)},
		Builtin{Name: "execute_admin_stdout_on_screen", Usage: usage, Description: "Run commands as administrator, showing their output", Run: execRunner(execute.ModeOnScreen, true, false)},
		Builtin{Name: "execute_admin_return_stdout", Usage: usage, Description: "Run commands as administrator and print their stdout", Run: execRunner(execute.ModeCapture, true, false)},
		Builtin{Name: "execute_admin_with_password_and_forget", Usage: adminUsage, Description: "Like execute_admin_and_forget, feeding a password to the elevation tool", Run: execRunner(execute.ModeForget, true, true)},
		Builtin{Name: "execute_admin_with_password_stdout_on_screen", Usage: adminUsage, Description: "Like execute_admin_stdout_on_screen, feeding a password to the elevation tool", Run: execRunner(execute.ModeOnScreen, true, true)},
		Builtin{Name: "execute_admin_with_password_return_stdout", Usage: adminUsage, Description: "Like execute_admin_return_stdout, feeding a password to the elevation tool", Run: execRunner(execute.ModeCapture, true, true)},
		Builtin{Name: "is_program_installed", Usage: "PROGRAM", Description: "Succeed when PROGRAM is found on PATH", Run: runIsProgramInstalled},
	)
}

func bindExecFlags(fs *pflag.FlagSet, o *execOptions, withPassword bool) {
	fs.StringVar(&o.cwd, "cwd", "", "working directory (default: the shell's)")
	fs.StringArrayVar(&o.env, "env", nil, "extra environment variable K=V")
	fs.DurationVar(&o.timeout, "timeout", 0, "abort after this duration")
	fs.BoolVar(&o.noCheck, "no-check", false, "ignore a non-zero exit status")
	fs.StringVar(&o.shell, "shell", "", "shell running the commands")
	fs.BoolVar(&o.cleanEnv, "clean-env", false, "do not inherit the script's exported environment")
	if withPassword {
		fs.StringVar(&o.password, "password", "", "password for the elevation tool (default: $"+AdminPasswordEnv+")")
	}
	// Everything after the first command word belongs to the command.
	fs.SetInterspersed(false)
}

func execRunner(mode execute.Mode, admin, withPassword bool) RunFunc {
	return func(ctx context.Context, c *Call) error {
		var o execOptions
		fs := c.Flags()
		bindExecFlags(fs, &o, withPassword)
		args, err := c.Parse(fs, 1, -1)
		if err != nil {
			return err
		}

		env := make(map[string]string, len(o.env))
		for _, kv := range o.env {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return c.usageError(fmt.Sprintf("--env expects K=V, got %q", kv))
			}
			env[k] = v
		}
		if withPassword && o.password == "" {
			o.password, _ = c.LookupEnv(AdminPasswordEnv)
			if o.password == "" {
				return c.usageError("no password: pass --password or set " + AdminPasswordEnv)
			}
		}

		var base []string
		if !o.cleanEnv && c.Environ != nil {
			base = c.Environ()
		}

		req := execute.Request{
			Args:          args,
			Shell:         o.shell,
			Dir:           c.Path(o.cwd),
			BaseEnv:       base,
			Env:           env,
			Inherit:       !o.cleanEnv,
			Timeout:       o.timeout,
			Mode:          mode,
			CheckExitCode: !o.noCheck,
			Admin:         admin,
			AdminPassword: o.password,
			Stdout:        c.Stdout,
			Stderr:        c.Stderr,
		}
		res, err := c.Session.Runner().Run(ctx, req)
		if mode == execute.ModeCapture && res.Stdout != "" {
			c.Println(res.Stdout)
		}
		if err != nil {
			return err
		}
		// --no-check: hand the status to the script without an error message.
		switch {
		case res.ExitCode == 0:
			return nil
		case res.ExitCode > 0 && res.ExitCode < 256:
			return interp.ExitStatus(uint8(res.ExitCode))
		default:
			return answer(false)
		}
	}
}

func runIsProgramInstalled(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	return answer(c.Session.Runner().LookPath(args[0]))
}
