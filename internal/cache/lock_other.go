// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package cache

import "time"

// fileLock is the non-Linux stub. Concurrent pmake processes sharing a cache
// file are not serialized on these platforms.
type fileLock struct{}

func acquireLock(string, time.Duration) (*fileLock, error) { return &fileLock{}, nil }

// Release is a no-op on non-Linux platforms.
func (l *fileLock) Release() {}
