// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/internal/session"

	"mvdan.cc/sh/v3/interp"
)

func TestDedent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no indent", "a\nb", "a\nb"},
		{"common spaces", "    a\n      b\n    c", "a\n  b\nc"},
		{"blank lines ignored", "\n  a\n\n  b\n", "\na\n\nb\n"},
		{"tabs", "\tif true; then\n\t\techo x\n\tfi", "if true; then\n\techo x\nfi"},
		{"mixed prefix", "  a\n b", " a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := dedent(tt.in); got != tt.want {
				t.Errorf("dedent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEngineTargetsAndVariables(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{
		Targets:   []string{"build", "-v"},
		Variables: map[string]string{"PROFILE": "release"},
	})

	out, _, err := runScript(t, s, `
		echo "$#" "$1" "$2"
		echo "$PROFILE"
		if specifies_target build; then echo building; fi
		specifies_target deploy || echo "no deploy"
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
	want := "2 build -v\nrelease\nbuilding\nno deploy\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestEngineExportsSessionEnvironment(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{Version: "1.4.0"})

	out, _, err := runScript(t, s, `echo "$PMAKE_VERSION $PMAKE_ARCHITECTURE $PMAKE_PLATFORM"; echo "$PMAKEFILE_DIR"; pwd`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("stdout = %q", out)
	}
	if lines[0] != "1.4.0 64 fake" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != s.ScriptDir() || lines[2] != s.StartingCwd() {
		t.Errorf("dirs = %q, %q; want %q, %q", lines[1], lines[2], s.ScriptDir(), s.StartingCwd())
	}
}

func TestEngineExitStatuses(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{})

	tests := []struct {
		name       string
		cmd        string
		wantStatus string
		wantStderr string
	}{
		{"found", "latest_interesting_path jdk >/dev/null", "0", ""},
		{"absent for architecture", "latest_interesting_path maven", "1", ""},
		{"usage", "get_architecture extra", "2", "expected at most 0"},
		{"unknown name", "latest_interesting_path gradle", "3", "gradle"},
		{"no architecture match", "get_latest_path_with_architecture maven 64", "4", "maven"},
		{"malformed version", "version_compare 1.x 2", "5", "1.x"},
		{"invalid architecture", "get_latest_path_with_architecture jdk 128", "2", "128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, stderr, err := runScript(t, s, tt.cmd+"\necho \"status=$?\"")
			if err != nil {
				t.Fatalf("RunString() error = %v", err)
			}
			if !strings.HasSuffix(out, "status="+tt.wantStatus+"\n") {
				t.Errorf("stdout = %q, want status %s", out, tt.wantStatus)
			}
			if tt.wantStderr == "" && stderr != "" {
				t.Errorf("stderr = %q, want none", stderr)
			}
			if !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestEngineLastStatusIsReturned(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{})

	_, _, err := runScript(t, s, "latest_interesting_path gradle")
	var status interp.ExitStatus
	if !errors.As(err, &status) || status != 3 {
		t.Errorf("RunString() error = %v, want exit status 3", err)
	}
}

func TestEngineHaltStopsScript(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{})

	out, _, err := runScript(t, s, `
		ensure_condition '[ 1 -eq 1 ]'
		echo before
		ensure_condition -m "jdk 8 is required" false
		echo after
	`)
	var halt *HaltError
	if !errors.As(err, &halt) {
		t.Fatalf("RunString() error = %v, want *HaltError", err)
	}
	if !errors.Is(err, ErrHalted) || halt.IssueID != issue.ScriptExecutionFailedId {
		t.Errorf("halt = %+v", halt)
	}
	if !strings.Contains(halt.Error(), "jdk 8 is required") {
		t.Errorf("halt message = %q", halt.Error())
	}
	if out != "before\n" {
		t.Errorf("stdout = %q, want only the output before the halt", out)
	}
}

func TestEngineHaltInsideFunction(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{})

	out, _, err := runScript(t, s, `
		check() { ensure_has_variable JAVA_HOME; }
		check || echo "handled"
		echo after
	`)
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("RunString() error = %v, want a halt", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
}

func TestEngineFallsBackToHostPrograms(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
	t.Parallel()

	s := newTestSession(t, session.Options{})

	out, _, err := runScript(t, s, `sh -c 'exit 7'; echo "status=$?"`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
	if out != "status=7\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestEngineRunPrefersScriptString(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{ScriptString: "echo inline"})

	var out strings.Builder
	e := NewEngine(s, WithStdIO(strings.NewReader(""), &out, &out), WithEnviron([]string{}))
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "inline\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestEngineRunFile(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, session.Options{})
	if err := os.WriteFile(s.ScriptPath(), []byte("    echo from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	e := NewEngine(s, WithStdIO(strings.NewReader(""), &out, &out), WithEnviron([]string{}))
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "from-file\n" {
		t.Errorf("stdout = %q", out.String())
	}

	if err := e.RunFile(context.Background(), filepath.Join(s.ScriptDir(), "missing")); err == nil {
		t.Error("RunFile(missing) error = nil")
	}
}

func TestParseReportsSyntaxErrors(t *testing.T) {
	t.Parallel()

	if _, err := Parse("bad", "if true; then"); err == nil {
		t.Error("Parse() error = nil, want a syntax error")
	}
}
