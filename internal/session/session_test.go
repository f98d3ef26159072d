// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/pkg/interesting"
)

type fakeProbe struct {
	arch  interesting.Architecture
	paths map[string][]interesting.InterestingPath
	err   error
}

func (p *fakeProbe) Name() string                           { return "fake" }
func (p *fakeProbe) Architecture() interesting.Architecture { return p.arch }

func (p *fakeProbe) FetchInterestingPaths(context.Context) (map[string][]interesting.InterestingPath, error) {
	return p.paths, p.err
}

func jdkProbe(t *testing.T) *fakeProbe {
	t.Helper()
	mk := func(path string, arch interesting.Architecture, v string) interesting.InterestingPath {
		p, err := interesting.NewInterestingPath("jdk", path, arch, v)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	return &fakeProbe{
		arch: interesting.Arch64,
		paths: map[string][]interesting.InterestingPath{
			"jdk": {
				mk("/opt/jdk-11", interesting.Arch64, "11"),
				mk("/opt/jdk-17", interesting.Arch64, "17.0.2"),
				mk("/opt/jdk-21-x86", interesting.Arch32, "21"),
			},
		},
	}
}

func newTestSession(t *testing.T, opts Options, probe interesting.Probe) *Session {
	t.Helper()
	s, err := New(context.Background(), opts, Dependencies{Probe: probe})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewResolvesLatestForProbeArchitecture(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := newTestSession(t, Options{
		ScriptPath:  "PMakefile",
		StartingCwd: dir,
		CacheFile:   "cache.json",
	}, jdkProbe(t))

	latest, ok := s.Latest().Get("jdk")
	if !ok || latest.Path != "/opt/jdk-17" {
		t.Errorf("Latest().Get(jdk) = %v, %v; want /opt/jdk-17", latest, ok)
	}
	if s.Architecture() != interesting.Arch64 {
		t.Errorf("Architecture() = %v", s.Architecture())
	}
	if s.ScriptPath() != filepath.Join(dir, "PMakefile") || s.ScriptDir() != dir {
		t.Errorf("ScriptPath() = %q, ScriptDir() = %q", s.ScriptPath(), s.ScriptDir())
	}
	if s.Cache() == nil || s.Cache().Path() != filepath.Join(dir, "cache.json") {
		t.Errorf("cache path = %v", s.Cache())
	}

	p32, err := s.LatestPathWithArchitecture("jdk", interesting.Arch32)
	if err != nil || p32.Path != "/opt/jdk-21-x86" {
		t.Errorf("LatestPathWithArchitecture(jdk, 32) = %v, %v", p32, err)
	}
	if _, err := s.LatestPathWithArchitecture("maven", interesting.Arch64); !errors.Is(err, interesting.ErrUnknownInterestingPathName) {
		t.Errorf("unknown name error = %v", err)
	}
}

func TestNewWithoutCache(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{ScriptString: "true", StartingCwd: t.TempDir()}, jdkProbe(t))
	if s.Cache() != nil {
		t.Error("Cache() should be nil without CacheFile")
	}
	if s.ScriptPath() != "" || s.ScriptDir() != s.StartingCwd() {
		t.Errorf("inline script paths: %q, %q", s.ScriptPath(), s.ScriptDir())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewRequiresScript(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Options{StartingCwd: t.TempDir()}, Dependencies{Probe: jdkProbe(t)})
	if !errors.Is(err, ErrNoScript) {
		t.Errorf("New() error = %v, want ErrNoScript", err)
	}
}

func TestNewUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Options{ScriptString: "true", GOOS: "plan9"}, Dependencies{})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.UnsupportedPlatformId {
		t.Fatalf("New() error = %v, want UnsupportedPlatform issue", err)
	}
}

func TestNewDiscoveryFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := New(context.Background(),
		Options{ScriptString: "true", StartingCwd: t.TempDir()},
		Dependencies{Probe: &fakeProbe{arch: interesting.Arch64, err: boom}})
	if !errors.Is(err, boom) {
		t.Fatalf("New() error = %v, want wrapped probe error", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.PathDiscoveryFailedId {
		t.Errorf("IssueID mismatch: %v", err)
	}
}

func TestNewCorruptCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cache.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(context.Background(),
		Options{ScriptPath: "PMakefile", StartingCwd: dir, CacheFile: "cache.json"},
		Dependencies{Probe: jdkProbe(t)})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.CorruptCacheId {
		t.Fatalf("New() error = %v, want CorruptCache issue", err)
	}
}

func TestCloseFlushesCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := Options{ScriptPath: "PMakefile", StartingCwd: dir, CacheFile: "cache.json"}

	s, err := New(context.Background(), opts, Dependencies{Probe: jdkProbe(t)})
	if err != nil {
		t.Fatal(err)
	}
	s.Cache().Set("answer", "42", true)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2 := newTestSession(t, opts, jdkProbe(t))
	if v, ok := s2.Cache().GetString("answer"); !ok || v != "42" {
		t.Errorf("GetString(answer) = %q, %v after reopen", v, ok)
	}
}

func TestVariablesAndTargets(t *testing.T) {
	t.Parallel()

	vars := map[string]string{"mode": "release"}
	s := newTestSession(t, Options{
		ScriptString: "true",
		StartingCwd:  t.TempDir(),
		Targets:      []string{"build", "test"},
		Variables:    vars,
		Version:      "1.2.3",
	}, jdkProbe(t))

	if !s.HasVariable("mode") || s.HasVariable("other") {
		t.Error("HasVariable mismatch")
	}
	got := s.Variables()
	got["mode"] = "debug"
	if s.Variables()["mode"] != "release" {
		t.Error("Variables() must return a copy")
	}
	if !s.SpecifiesTarget("test") || s.SpecifiesTarget("clean") {
		t.Error("SpecifiesTarget mismatch")
	}
	if s.Version() != "1.2.3" || s.Platform() != "fake" {
		t.Errorf("Version() = %q, Platform() = %q", s.Version(), s.Platform())
	}
}

func TestSessionsShareCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := Options{ScriptPath: "PMakefile", StartingCwd: dir, CacheFile: "cache.json"}

	outer, err := New(context.Background(), opts, Dependencies{Probe: jdkProbe(t)})
	if err != nil {
		t.Fatal(err)
	}
	outer.Cache().Set("outer", "1", true)

	// A nested run on the same cache opens while the outer one is live.
	inner, err := New(context.Background(), opts, Dependencies{Probe: jdkProbe(t)})
	if err != nil {
		t.Fatalf("nested New() error = %v", err)
	}
	inner.Cache().Set("inner", "2", true)
	if err := inner.Close(); err != nil {
		t.Fatalf("nested Close() error = %v", err)
	}
	if err := outer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	after := newTestSession(t, opts, jdkProbe(t))
	for _, key := range []string{"outer", "inner"} {
		if !after.Cache().Has(key) {
			t.Errorf("cache lost %q written by a concurrent session", key)
		}
	}
}

func TestCloseReportsFlushFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(context.Background(),
		Options{ScriptPath: "PMakefile", StartingCwd: dir, CacheFile: "cache.json"},
		Dependencies{Probe: jdkProbe(t)})
	if err != nil {
		t.Fatal(err)
	}
	s.Cache().Set("k", "v", true)

	// A directory where the cache file should be makes the flush fail.
	if err := os.Mkdir(filepath.Join(dir, "cache.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	var ae *issue.ActionableError
	if err := s.Close(); !errors.As(err, &ae) || ae.Operation != "flush cache" {
		t.Fatalf("Close() error = %v, want a flush cache ActionableError", err)
	}
	if ae.Resource != filepath.Join(dir, "cache.json") {
		t.Errorf("Resource = %q", ae.Resource)
	}
}
