// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"fmt"
	"strings"

	"github.com/pmake/pmake/internal/platform"
)

// invocation is a fully resolved process launch.
type invocation struct {
	name  string
	args  []string
	stdin string
}

// elevate wraps a shell invocation so that it runs with administrator
// rights. On POSIX systems sudo is used; a password, when given, is fed
// through sudo's stdin. On Windows the process is relaunched through
// Start-Process -Verb RunAs, which cannot take a password or capture output.
func (r *Runner) elevate(shell, script, password string) (invocation, error) {
	if platform.IsWindows(r.goos) {
		ps, err := r.lookPath("powershell")
		if err != nil {
			if ps, err = r.lookPath("pwsh"); err != nil {
				return invocation{}, fmt.Errorf("elevation requires PowerShell: %w", err)
			}
		}
		quoted := make([]string, 0, 2)
		for _, a := range shellArgs(shell, script) {
			quoted = append(quoted, psQuote(a))
		}
		cmd := fmt.Sprintf("Start-Process -FilePath %s -ArgumentList %s -Verb RunAs -Wait",
			psQuote(shell), strings.Join(quoted, ","))
		return invocation{name: ps, args: []string{"-NoProfile", "-Command", cmd}}, nil
	}

	sudo, err := r.lookPath("sudo")
	if err != nil {
		return invocation{}, fmt.Errorf("elevation requires sudo: %w", err)
	}
	args := []string{}
	stdin := ""
	if password != "" {
		args = append(args, "-S", "-p", "")
		stdin = password + "\n"
	}
	args = append(args, shell)
	args = append(args, shellArgs(shell, script)...)
	return invocation{name: sudo, args: args, stdin: stdin}, nil
}

// psQuote single-quotes s for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
