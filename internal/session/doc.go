// SPDX-License-Identifier: MPL-2.0

// Package session holds the state of one pmake invocation.
//
// A Session selects the platform probe once, discovers the interesting path
// catalog, resolves the latest installation per name for the session
// architecture and opens the persistent cache. All of it is read-only for the
// lifetime of the session except the cache, which is flushed by Close.
package session
