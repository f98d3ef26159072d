// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmake/pmake/internal/testutil"
	"github.com/pmake/pmake/pkg/types"
)

func TestRunString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantStdout string
		wantCode   types.ExitCode
	}{
		{
			name:       "builtin output",
			args:       []string{"run", "--no-cache", "-s", "latest_interesting_path jdk"},
			wantStdout: "/opt/jdk-17\n",
		},
		{
			name:       "targets are positional parameters",
			args:       []string{"run", "--no-cache", "-s", `echo "$#:$1:$2"`, "build", "test"},
			wantStdout: "2:build:test\n",
		},
		{
			name:       "specifies_target",
			args:       []string{"run", "--no-cache", "-s", "specifies_target test && echo yes", "build", "test"},
			wantStdout: "yes\n",
		},
		{
			name:       "variables are exported",
			args:       []string{"run", "--no-cache", "-V", "mode=release", "-V", "empty=", "-s", `echo "$mode[$empty]"`},
			wantStdout: "release[]\n",
		},
		{
			name:     "script exit status",
			args:     []string{"run", "--no-cache", "-s", "exit 3"},
			wantCode: 3,
		},
		{
			name:     "builtin status of the last command",
			args:     []string{"run", "--no-cache", "-s", "latest_interesting_path nope"},
			wantCode: types.ExitUnknownName,
		},
		{
			name:     "parse error",
			args:     []string{"run", "--no-cache", "-s", "if then"},
			wantCode: types.ExitUsage,
		},
		{
			name:     "invalid variable",
			args:     []string{"run", "--no-cache", "-V", "novalue", "-s", "true"},
			wantCode: types.ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := runCLI(t, nil, "", tt.args...)
			if got := exitCode(res.err); got != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", got, tt.wantCode, res.stderr)
			}
			if tt.wantStdout != "" && res.stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", res.stdout, tt.wantStdout)
			}
		})
	}
}

func TestRunFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pmakefile := filepath.Join(dir, "PMakefile")
	testutil.MustWriteFile(t, pmakefile, `
		if specifies_target greet; then
			echo "hello $who"
		fi
		set_variable_in_cache runs 1
		get_pmakefile_dirpath
	`)

	res := runCLI(t, nil, "", "run", "-f", pmakefile, "-V", "who=world", "greet")
	if res.err != nil {
		t.Fatalf("run error = %v (stderr: %s)", res.err, res.stderr)
	}

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 2 || lines[0] != "hello world" {
		t.Fatalf("stdout = %q", res.stdout)
	}
	if got, _ := filepath.EvalSymlinks(lines[1]); got != mustEvalSymlinks(t, dir) {
		t.Errorf("get_pmakefile_dirpath = %q, want %q", lines[1], dir)
	}

	// The cache is created next to the PMakefile.
	cached := testutil.MustReadFile(t, filepath.Join(dir, "pmake-cache.json"))
	if !strings.Contains(cached, `"runs"`) {
		t.Errorf("cache = %s, want a runs entry", cached)
	}
}

func TestRunVariablesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	vars := filepath.Join(dir, "vars.toml")
	testutil.MustWriteFile(t, vars, "mode = \"release\"\njobs = 4\n")

	res := runCLI(t, nil, "", "run", "--no-cache", "--variables-file", vars, "-V", "mode=debug", "-s", `echo "$mode $jobs"`)
	if res.err != nil {
		t.Fatalf("run error = %v (stderr: %s)", res.err, res.stderr)
	}
	if res.stdout != "debug 4\n" {
		t.Errorf("stdout = %q, want %q", res.stdout, "debug 4\n")
	}
}

func TestRunMissingPMakefile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "PMakefile")
	res := runCLI(t, nil, "", "run", "-f", missing)
	if got := exitCode(res.err); got != types.ExitFailure {
		t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
	}
	if !strings.Contains(res.stderr, "failed to find PMakefile") {
		t.Errorf("stderr = %q, want the missing PMakefile reported", res.stderr)
	}
}

func TestRunHaltStopsScript(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", "run", "--no-cache", "-s", "echo before\nensure_has_variable target_dir\necho after")
	if got := exitCode(res.err); got != types.ExitFailure {
		t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
	}
	if res.stdout != "before\n" {
		t.Errorf("stdout = %q, want only the output before the halt", res.stdout)
	}
	if !strings.Contains(res.stderr, "target_dir") {
		t.Errorf("stderr = %q, want the missing variable named", res.stderr)
	}
}

func TestRunInvalidLogLevel(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", "--log-level", "loud", "run", "--no-cache", "-s", "true")
	if got := exitCode(res.err); got != types.ExitFailure {
		t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
	}
}

func TestRunExplicitConfigFailure(t *testing.T) {
	t.Parallel()

	provider := &staticConfig{err: errors.New("bad field")}
	res := runCLI(t, provider, "", "--config", "/nowhere/config.cue", "run", "--no-cache", "-s", "true")
	if got := exitCode(res.err); got != types.ExitFailure {
		t.Fatalf("exit code = %d, want %d", got, types.ExitFailure)
	}
	if !strings.Contains(res.stderr, "bad field") {
		t.Errorf("stderr = %q, want the config error", res.stderr)
	}
}

func TestRunDefaultConfigFailureWarns(t *testing.T) {
	t.Parallel()

	provider := &staticConfig{err: errors.New("bad field")}
	res := runCLI(t, provider, "", "run", "--no-cache", "-s", "echo ok")
	if res.err != nil {
		t.Fatalf("run error = %v", res.err)
	}
	if res.stdout != "ok\n" || !strings.Contains(res.stderr, "Warning") {
		t.Errorf("stdout = %q, stderr = %q", res.stdout, res.stderr)
	}
}

func TestLoadVariables(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "nested.toml")
	testutil.MustWriteFile(t, nested, "[section]\nkey = 1\n")

	tests := []struct {
		name    string
		file    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "pairs", pairs: []string{"a=1", "b=x=y"}, want: map[string]string{"a": "1", "b": "x=y"}},
		{name: "last pair wins", pairs: []string{"a=1", "a=2"}, want: map[string]string{"a": "2"}},
		{name: "missing equals", pairs: []string{"a"}, wantErr: true},
		{name: "empty name", pairs: []string{"=1"}, wantErr: true},
		{name: "nested table", file: nested, wantErr: true},
		{name: "missing file", file: filepath.Join(dir, "nope.toml"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := loadVariables(tt.file, tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadVariables() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("loadVariables() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("variable %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func mustEvalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func TestRunDefaultPMakefile(t *testing.T) {
	// Not parallel: changes the working directory.
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "PMakefile"), "echo from-default\n")
	t.Cleanup(testutil.MustChdir(t, dir))

	res := runCLI(t, nil, "", "run", "--no-cache")
	if res.err != nil {
		t.Fatalf("run error = %v (stderr: %s)", res.err, res.stderr)
	}
	if res.stdout != "from-default\n" {
		t.Errorf("stdout = %q, want %q", res.stdout, "from-default\n")
	}
}
