// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package execute

import (
	"io"
	"os/exec"

	"github.com/creack/pty"
)

// runTTY starts cmd on a new pseudo-terminal and copies everything it
// writes to out until it exits.
func runTTY(cmd *exec.Cmd, out io.Writer) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		// The read side fails with EIO once the child is gone; that is the
		// normal end of output.
		_, _ = io.Copy(out, ptmx)
	}()

	waitErr := cmd.Wait()
	<-copyDone
	return waitErr
}
