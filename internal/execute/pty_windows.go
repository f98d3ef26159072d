// SPDX-License-Identifier: MPL-2.0

//go:build windows

package execute

import (
	"io"
	"os"
	"os/exec"
)

// runTTY streams output directly: creack/pty does not support Windows.
func runTTY(cmd *exec.Cmd, out io.Writer) error {
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
