// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long Open and Flush wait for another
// process to release the cache file.
const DefaultLockTimeout = 10 * time.Second

var (
	// ErrCorruptCache is the sentinel error wrapped by CorruptCacheError.
	ErrCorruptCache = errors.New("corrupt cache file")

	// ErrLocked is returned when the cache file stays locked by another
	// process for longer than the lock timeout.
	ErrLocked = errors.New("cache file is locked")
)

type (
	// CorruptCacheError is returned by Open when the cache file exists but is
	// not a JSON object.
	CorruptCacheError struct {
		Path string
		Err  error
	}

	// Option configures a Store.
	Option func(*Store)

	// change is a pending write for one key. deleted marks a removal.
	change struct {
		value   any
		deleted bool
	}

	// Store is a JSON-backed key/value map. Values are arbitrary JSON values.
	// It is safe for concurrent use.
	//
	// The file lock is only held while the file is read or written. Pending
	// changes are replayed on top of the file's current content at flush
	// time, so several pmake processes can share one cache file.
	Store struct {
		mu          sync.Mutex
		path        string
		data        map[string]any
		changes     map[string]change
		reset       bool
		closed      bool
		lockTimeout time.Duration
	}
)

// Error implements the error interface.
func (e *CorruptCacheError) Error() string {
	return fmt.Sprintf("corrupt cache file %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrCorruptCache for errors.Is() compatibility.
func (e *CorruptCacheError) Unwrap() error { return ErrCorruptCache }

// WithLockTimeout sets how long the store waits for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// Open loads the cache file at path. A missing or blank file is an empty
// cache.
func Open(path string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve cache path %s: %w", path, err)
	}

	s := &Store{path: abs, changes: map[string]change{}, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}

	lock, err := acquireLock(s.lockPath(), s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	s.data, err = load(abs)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func load(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &CorruptCacheError{Path: path, Err: err}
	}
	if data == nil {
		// A literal "null" document.
		data = map[string]any{}
	}
	return data, nil
}

// Path returns the absolute path of the cache file.
func (s *Store) Path() string { return s.path }

func (s *Store) lockPath() string { return s.path + ".lock" }

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	return v, ok
}

// GetString returns the value under key as text: strings unchanged, any
// other value JSON-encoded.
func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	if str, isStr := v.(string); isStr {
		return str, true
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return string(encoded), true
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key. When key already exists and overwrite is
// false the cache is left untouched and Set returns false.
func (s *Store) Set(key string, value any, overwrite bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists && !overwrite {
		return false
	}
	s.data[key] = value
	s.changes[key] = change{value: value}
	return true
}

// Update replaces the value under key with fn(old, present) and returns
// the new value.
func (s *Store) Update(key string, fn func(old any, present bool) any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[key]
	value := fn(old, ok)
	s.data[key] = value
	s.changes[key] = change{value: value}
	return value
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	s.changes[key] = change{deleted: true}
	return true
}

// Keys returns every key in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data)
}

// Reset removes every key.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = map[string]any{}
	s.changes = map[string]change{}
	s.reset = true
}

// Flush writes pending changes to disk. The changes are applied on top of
// what the file currently holds, so keys written by other processes since
// Open survive unless this store changed them too. The file is replaced
// atomically.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.changes) == 0 && !s.reset {
		return nil
	}

	lock, err := acquireLock(s.lockPath(), s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	merged := map[string]any{}
	if !s.reset {
		if merged, err = load(s.path); err != nil {
			return err
		}
	}
	for key, c := range s.changes {
		if c.deleted {
			delete(merged, key)
			continue
		}
		merged[key] = c.value
	}

	if err := s.write(merged); err != nil {
		return err
	}

	s.data = merged
	s.changes = map[string]change{}
	s.reset = false
	return nil
}

func (s *Store) write(data map[string]any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	encoded = append(encoded, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file %s: %w", s.path, err)
	}
	return nil
}

// Close flushes pending changes. Calling Close more than once is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.flushLocked()
}
