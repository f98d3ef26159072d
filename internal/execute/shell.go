// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/pmake/pmake/internal/platform"
)

// ErrNoShell is returned when no usable shell could be found on the host.
var ErrNoShell = errors.New("no shell found")

type shellKind int

const (
	shellPOSIX shellKind = iota
	shellCmd
	shellPowerShell
)

// defaultShell picks the host shell: pwsh, powershell or cmd on Windows;
// $SHELL, bash or sh elsewhere.
func (r *Runner) defaultShell() (string, error) {
	if r.shell != "" {
		return r.shell, nil
	}
	if platform.IsWindows(r.goos) {
		for _, candidate := range []string{"pwsh", "powershell", "cmd"} {
			if p, err := r.lookPath(candidate); err == nil {
				return p, nil
			}
		}
		return "", ErrNoShell
	}

	if shell := r.getenv("SHELL"); shell != "" {
		return shell, nil
	}
	for _, candidate := range []string{"bash", "sh"} {
		if p, err := r.lookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", ErrNoShell
}

func kindOf(shell string) shellKind {
	base := strings.TrimSuffix(strings.ToLower(filepath.Base(shell)), ".exe")
	switch base {
	case "cmd":
		return shellCmd
	case "powershell", "pwsh":
		return shellPowerShell
	default:
		return shellPOSIX
	}
}

// shellArgs returns the arguments that make shell run script.
func shellArgs(shell, script string) []string {
	switch kindOf(shell) {
	case shellCmd:
		return []string{"/C", script}
	case shellPowerShell:
		return []string{"-NoProfile", "-Command", script}
	default:
		return []string{"-c", script}
	}
}

// joinCommands chains command lines so that a failing one stops the chain.
func joinCommands(shell string, commands []string) string {
	if kindOf(shell) == shellPowerShell {
		return strings.Join(commands, "; if (-not $?) { exit 1 }; ")
	}
	return strings.Join(commands, " && ")
}
