// SPDX-License-Identifier: MPL-2.0

package interesting

import "sort"

// ResolvedLatestMap holds, per name, the latest entry for one architecture.
// Names whose entries all target another architecture are absent.
type ResolvedLatestMap struct {
	architecture Architecture
	latest       map[string]InterestingPath
}

// ResolveLatest reduces every name of the catalog to its highest-versioned
// entry among those built for arch. On equal versions the entry reported
// first by the probe wins.
func ResolveLatest(c *Catalog, arch Architecture) ResolvedLatestMap {
	m := ResolvedLatestMap{
		architecture: arch,
		latest:       make(map[string]InterestingPath, len(c.entries)),
	}
	for name, paths := range c.entries {
		if p, ok := latestOf(paths, arch); ok {
			m.latest[name] = p
		}
	}
	return m
}

// LatestPathWithArchitecture resolves a single name on demand. Unlike
// ResolveLatest it fails when nothing matches: UnknownInterestingPathNameError
// if name is not in the catalog, NoMatchingArchitectureError if none of its
// entries targets arch.
func LatestPathWithArchitecture(c *Catalog, name string, arch Architecture) (InterestingPath, error) {
	paths, ok := c.entries[name]
	if !ok {
		return InterestingPath{}, &UnknownInterestingPathNameError{Name: name}
	}
	p, ok := latestOf(paths, arch)
	if !ok {
		return InterestingPath{}, &NoMatchingArchitectureError{Name: name, Architecture: arch}
	}
	return p, nil
}

// latestOf keeps the first entry with the greatest version among those
// targeting arch.
func latestOf(paths []InterestingPath, arch Architecture) (InterestingPath, bool) {
	i := LatestIndex(paths, arch)
	if i < 0 {
		return InterestingPath{}, false
	}
	return paths[i], true
}

// LatestIndex returns the index of the first entry with the greatest version
// among those targeting arch, or -1 when none does. Only a strictly greater
// version replaces the current pick.
func LatestIndex(paths []InterestingPath, arch Architecture) int {
	best := -1
	for i, p := range paths {
		if p.Architecture != arch {
			continue
		}
		if best < 0 || p.Version.Compare(paths[best].Version) > 0 {
			best = i
		}
	}
	return best
}

// Architecture returns the architecture the map was resolved for.
func (m ResolvedLatestMap) Architecture() Architecture { return m.architecture }

// Get returns the resolved entry for name, or false when absent.
func (m ResolvedLatestMap) Get(name string) (InterestingPath, bool) {
	p, ok := m.latest[name]
	return p, ok
}

// Names returns the names that resolved to an entry, sorted.
func (m ResolvedLatestMap) Names() []string {
	names := make([]string, 0, len(m.latest))
	for name := range m.latest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of resolved names.
func (m ResolvedLatestMap) Len() int { return len(m.latest) }
