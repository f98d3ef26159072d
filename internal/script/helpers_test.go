// SPDX-License-Identifier: MPL-2.0

package script

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/pmake/pmake/internal/session"
	"github.com/pmake/pmake/pkg/interesting"
)

type fakeProbe struct {
	arch  interesting.Architecture
	paths map[string][]interesting.InterestingPath
}

func (p *fakeProbe) Name() string                           { return "fake" }
func (p *fakeProbe) Architecture() interesting.Architecture { return p.arch }

func (p *fakeProbe) FetchInterestingPaths(context.Context) (map[string][]interesting.InterestingPath, error) {
	return p.paths, nil
}

// toolProbe reports two jdks for 64 bit, one for 32 bit, and a maven
// installed only for 32 bit.
func toolProbe(t *testing.T) *fakeProbe {
	t.Helper()
	mk := func(name, path string, arch interesting.Architecture, v string) interesting.InterestingPath {
		p, err := interesting.NewInterestingPath(name, path, arch, v)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	return &fakeProbe{
		arch: interesting.Arch64,
		paths: map[string][]interesting.InterestingPath{
			"jdk": {
				mk("jdk", "/opt/jdk-11", interesting.Arch64, "11"),
				mk("jdk", "/opt/jdk-17", interesting.Arch64, "17.0.2"),
				mk("jdk", "/opt/jdk-21-x86", interesting.Arch32, "21"),
			},
			"maven": {
				mk("maven", "/opt/maven-3", interesting.Arch32, "3.9"),
			},
		},
	}
}

// newTestSession opens a session in a fresh directory. The cache lives in
// that directory unless opts.CacheFile says otherwise.
func newTestSession(t *testing.T, opts session.Options) *session.Session {
	t.Helper()
	if opts.StartingCwd == "" {
		opts.StartingCwd = t.TempDir()
	}
	if opts.ScriptPath == "" && opts.ScriptString == "" {
		opts.ScriptPath = "PMakefile"
	}
	if opts.CacheFile == "" {
		opts.CacheFile = "pmake-cache.json"
	}
	s, err := session.New(context.Background(), opts, session.Dependencies{
		Probe:  toolProbe(t),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// runScript runs src in s and returns its output.
func runScript(t *testing.T, s *session.Session, src string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	e := NewEngine(s,
		WithStdIO(strings.NewReader(""), &out, &errOut),
		WithEnviron([]string{"PATH=" + os.Getenv("PATH"), "HOME=" + s.StartingCwd()}),
	)
	err = e.RunString(context.Background(), "PMakefile", src)
	return out.String(), errOut.String(), err
}

// invoke calls a builtin directly, outside of any interpreter.
func invoke(t *testing.T, s *session.Session, stdin string, name string, args ...string) (string, error) {
	t.Helper()
	b, ok := DefaultRegistry.Lookup(name)
	if !ok {
		t.Fatalf("builtin %q is not registered", name)
	}
	var out bytes.Buffer
	ctx := WithHandlerContext(context.Background(), &HandlerContext{
		Stdin:     strings.NewReader(stdin),
		Stdout:    &out,
		Stderr:    io.Discard,
		Dir:       s.StartingCwd(),
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	c := &Call{
		HandlerContext: GetHandlerContext(ctx),
		Name:           name,
		Args:           args,
		Session:        s,
		Registry:       DefaultRegistry,
		usage:          b.Usage,
	}
	err := b.Run(ctx, c)
	return out.String(), err
}
