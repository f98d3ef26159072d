// SPDX-License-Identifier: MPL-2.0

// Package cache implements the persistent key/value store PMakefiles use to
// remember information between runs.
//
// A Store is opened once per session and should be closed when the session
// ends, whether or not the script succeeded: Close writes pending changes.
// The file is only locked while it is read or written, so several pmake
// processes may share it. On Linux the lock is an exclusive flock on a
// sibling "<file>.lock", polled until DefaultLockTimeout; elsewhere access is
// not serialized.
package cache
