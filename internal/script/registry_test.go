// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"slices"
	"testing"
)

func noop(context.Context, *Call) error { return nil }

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(Builtin{Name: "zeta", Category: CategoryFS, Run: noop})
	r.Register(Builtin{Name: "alpha", Category: CategoryPaths, Run: noop})

	if _, ok := r.Lookup("alpha"); !ok {
		t.Error("Lookup(alpha) not found")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) found")
	}
	if got := r.Names(); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := r.ByCategory(CategoryFS); len(got) != 1 || got[0].Name != "zeta" {
		t.Errorf("ByCategory(fs) = %v", got)
	}
}

func TestRegistryRegisterPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    Builtin
	}{
		{"empty name", Builtin{Run: noop}},
		{"nil run", Builtin{Name: "x"}},
		{"duplicate", Builtin{Name: "dup", Run: noop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry()
			r.Register(Builtin{Name: "dup", Run: noop})
			defer func() {
				if recover() == nil {
					t.Errorf("Register(%+v) did not panic", tt.b)
				}
			}()
			r.Register(tt.b)
		})
	}
}

func TestDefaultRegistryIsComplete(t *testing.T) {
	t.Parallel()

	categories := Categories()
	for _, b := range DefaultRegistry.All() {
		if !slices.Contains(categories, b.Category) {
			t.Errorf("%s: unknown category %q", b.Name, b.Category)
		}
		if b.Description == "" {
			t.Errorf("%s: missing description", b.Name)
		}
	}

	for _, name := range []string{
		"interesting_paths", "latest_interesting_path", "get_latest_path_with_architecture",
		"get_latest_version_in_folder", "latest_directory", "version_compare",
		"set_variable_in_cache", "get_variable_in_cache_or", "clear_cache",
		"copy_tree", "remove_tree", "ls_recursive", "download_url",
		"execute_return_stdout", "execute_admin_with_password_and_forget", "is_program_installed",
		"echo_color", "ensure_condition", "require_pmake_version", "convert_table", "pmake_commands",
	} {
		if _, ok := DefaultRegistry.Lookup(name); !ok {
			t.Errorf("builtin %q is not registered", name)
		}
	}
}
