// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Builtin categories.
const (
	CategoryPaths   Category = "paths"
	CategoryCache   Category = "cache"
	CategoryFS      Category = "fs"
	CategoryExec    Category = "exec"
	CategorySession Category = "session"
)

// DefaultRegistry holds every pmake builtin. Builtins are registered during
// package initialization.
var DefaultRegistry = NewRegistry()

type (
	// Category groups builtins in listings.
	Category string

	// RunFunc implements a builtin.
	RunFunc func(ctx context.Context, c *Call) error

	// Builtin is a helper command available to PMakefiles.
	Builtin struct {
		// Name is the command name scripts invoke.
		Name string
		// Usage is the argument synopsis, without the name.
		Usage string
		// Description is a one-line summary.
		Description string
		Category    Category
		Run         RunFunc
	}

	// Registry maps builtin names to implementations. It is safe for
	// concurrent use.
	Registry struct {
		mu       sync.RWMutex
		builtins map[string]Builtin
	}
)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{builtins: make(map[string]Builtin)}
}

// Register adds a builtin. It panics on an empty name, a nil Run or a
// duplicate name.
func (r *Registry) Register(b Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Name == "" {
		panic("script: cannot register builtin with empty name")
	}
	if b.Run == nil {
		panic(fmt.Sprintf("script: builtin %q has no implementation", b.Name))
	}
	if _, exists := r.builtins[b.Name]; exists {
		panic(fmt.Sprintf("script: builtin %q already registered", b.Name))
	}
	r.builtins[b.Name] = b
}

// Lookup retrieves a builtin by name.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.builtins[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every builtin sorted by name.
func (r *Registry) All() []Builtin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Builtin, 0, len(r.builtins))
	for _, b := range r.builtins {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// ByCategory returns the builtins of one category sorted by name.
func (r *Registry) ByCategory(cat Category) []Builtin {
	var out []Builtin
	for _, b := range r.All() {
		if b.Category == cat {
			out = append(out, b)
		}
	}
	return out
}

// Categories lists the categories in display order.
func Categories() []Category {
	return []Category{CategoryPaths, CategoryCache, CategoryFS, CategoryExec, CategorySession}
}

// RegisterDefault registers a builtin in the DefaultRegistry.
func RegisterDefault(b Builtin) {
	DefaultRegistry.Register(b)
}

func registerAll(category Category, builtins ...Builtin) {
	for _, b := range builtins {
		b.Category = category
		RegisterDefault(b)
	}
}
