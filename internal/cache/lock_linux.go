// SPDX-License-Identifier: MPL-2.0

//go:build linux

package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const lockPollInterval = 20 * time.Millisecond

// fileLock holds an exclusive flock on the cache's lock file. The kernel
// drops the lock when the descriptor is closed, including on crash, so an
// orphaned lock file is harmless.
type fileLock struct {
	file *os.File
}

// acquireLock opens (or creates) path and polls a non-blocking flock until
// it is granted or timeout elapses. A timed-out attempt returns an error
// wrapping ErrLocked.
func acquireLock(path string, timeout time.Duration) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{file: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%w: %s held for more than %s", ErrLocked, path, timeout)
		}
		time.Sleep(lockPollInterval)
	}
}

// Release unlocks and closes the lock file. Safe to call on nil and more
// than once.
func (l *fileLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("cache unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("cache lock file close failed", "error", err)
	}
	l.file = nil
}
