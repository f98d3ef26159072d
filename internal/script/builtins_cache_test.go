// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pmake/pmake/internal/session"
	"github.com/pmake/pmake/pkg/types"
)

func TestCacheBuiltins(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{})

	steps := []struct {
		builtin    string
		args       []string
		want       string
		wantStatus types.ExitCode
	}{
		{"has_variable_in_cache", []string{"JAVA_HOME"}, "", types.ExitFailure},
		{"get_variable_in_cache", []string{"JAVA_HOME"}, "", types.ExitFailure},
		{"get_variable_in_cache_or", []string{"JAVA_HOME", "/usr"}, "/usr\n", types.ExitSuccess},
		{"set_variable_in_cache", []string{"JAVA_HOME", "/opt/jdk-17"}, "", types.ExitSuccess},
		{"set_variable_in_cache", []string{"--no-overwrite", "JAVA_HOME", "/opt/jdk-11"}, "", types.ExitSuccess},
		{"get_variable_in_cache", []string{"JAVA_HOME"}, "/opt/jdk-17\n", types.ExitSuccess},
		{"set_variable_in_cache", []string{"JAVA_HOME", "/opt/jdk-21"}, "", types.ExitSuccess},
		{"get_variable_in_cache", []string{"JAVA_HOME"}, "/opt/jdk-21\n", types.ExitSuccess},
		{"add_or_update_variable_in_cache", []string{"--increment", "BUILDS", "1"}, "", types.ExitSuccess},
		{"add_or_update_variable_in_cache", []string{"--increment", "BUILDS", "2"}, "", types.ExitSuccess},
		{"get_variable_in_cache", []string{"BUILDS"}, "3\n", types.ExitSuccess},
		{"add_or_update_variable_in_cache", []string{"--append", ":", "PATHS", "/a"}, "", types.ExitSuccess},
		{"add_or_update_variable_in_cache", []string{"--append", ":", "PATHS", "/b"}, "", types.ExitSuccess},
		{"get_variable_in_cache", []string{"PATHS"}, "/a:/b\n", types.ExitSuccess},
		{"add_or_update_variable_in_cache", []string{"--increment", "PATHS", "1"}, "", types.ExitFailure},
		{"add_or_update_variable_in_cache", []string{"--increment", "--append", ",", "X", "1"}, "", types.ExitUsage},
		{"remove_variable_in_cache", []string{"PATHS"}, "", types.ExitSuccess},
		{"remove_variable_in_cache", []string{"PATHS"}, "", types.ExitFailure},
		{"has_variable_in_cache", []string{"JAVA_HOME"}, "", types.ExitSuccess},
		{"clear_cache", nil, "", types.ExitSuccess},
		{"has_variable_in_cache", []string{"JAVA_HOME"}, "", types.ExitFailure},
	}

	// Steps share one cache and must run in order.
	for i, step := range steps {
		out, err := invoke(t, s, "", step.builtin, step.args...)
		if out != step.want || StatusOf(err) != step.wantStatus {
			t.Fatalf("step %d: %s %v = %q, status %v (%v); want %q, %v",
				i, step.builtin, step.args, out, StatusOf(err), err, step.want, step.wantStatus)
		}
	}
}

func TestCacheBuiltinsPersist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := session.Options{StartingCwd: dir, ScriptPath: "PMakefile", CacheFile: "state.json"}
	deps := session.Dependencies{Probe: toolProbe(t), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	first, err := session.New(context.Background(), opts, deps)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := invoke(t, first, "", "set_variable_in_cache", "KEY", "value"); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := session.New(context.Background(), opts, deps)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = second.Close() }()
	out, err := invoke(t, second, "", "get_variable_in_cache", "KEY")
	if err != nil || out != "value\n" {
		t.Errorf("get_variable_in_cache after reopen = %q, %v", out, err)
	}
	if second.Cache().Path() == "" {
		t.Error("cache path is empty")
	}
}

func TestCacheBuiltinsWithoutCache(t *testing.T) {
	t.Parallel()

	s, err := session.New(context.Background(), session.Options{
		StartingCwd: t.TempDir(),
		ScriptPath:  "PMakefile",
	}, session.Dependencies{Probe: toolProbe(t), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	_, err = invoke(t, s, "", "has_variable_in_cache", "KEY")
	if !errors.Is(err, ErrNoCache) || StatusOf(err) != types.ExitFailure {
		t.Errorf("error = %v, want ErrNoCache", err)
	}
}
