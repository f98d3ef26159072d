// SPDX-License-Identifier: MPL-2.0

package interesting

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

type (
	// Probe is the platform collaborator that knows where tools live on the
	// current operating system.
	Probe interface {
		// Name identifies the probe variant (e.g. "posix", "windows").
		Name() string
		// Architecture reports the pointer width of the running process,
		// used as the default resolution target.
		Architecture() Architecture
		// FetchInterestingPaths scans the host and returns every candidate it
		// found, keyed by logical name. Versions must already be parsed and
		// the order of each list must be deterministic.
		FetchInterestingPaths(ctx context.Context) (map[string][]InterestingPath, error)
	}

	// Catalog maps a logical name to every InterestingPath discovered for it.
	// It is a passive, read-only container: no filtering, no deduplication,
	// no mutators.
	Catalog struct {
		entries map[string][]InterestingPath
		names   []string
	}
)

// NewCatalog copies raw into a Catalog. Every entry must be stored under its
// own name; an entry filed under a different key fails with
// ErrCatalogNameMismatch.
func NewCatalog(raw map[string][]InterestingPath) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string][]InterestingPath, len(raw)),
		names:   make([]string, 0, len(raw)),
	}
	for name, paths := range raw {
		for i, p := range paths {
			if p.Name != name {
				return nil, fmt.Errorf("%w: %s[%d] is named %q", ErrCatalogNameMismatch, name, i, p.Name)
			}
		}
		c.entries[name] = slices.Clone(paths)
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Discover builds the session catalog from a probe. It runs exactly once per
// session; a failing probe aborts session startup.
func Discover(ctx context.Context, probe Probe) (*Catalog, error) {
	raw, err := probe.FetchInterestingPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover interesting paths (%s): %w", probe.Name(), err)
	}
	return NewCatalog(raw)
}

// Names returns the catalog keys in sorted order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Paths returns a copy of the entries stored under name, in discovery order.
func (c *Catalog) Paths(name string) ([]InterestingPath, bool) {
	paths, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(paths), true
}

// Has reports whether name is a catalog key.
func (c *Catalog) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Len returns the number of distinct names.
func (c *Catalog) Len() int { return len(c.names) }
