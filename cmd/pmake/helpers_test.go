// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pmake/pmake/internal/config"
	"github.com/pmake/pmake/pkg/interesting"
	"github.com/pmake/pmake/pkg/types"
)

type (
	fakeProbe struct {
		paths map[string][]interesting.InterestingPath
	}

	staticConfig struct {
		cfg *config.Config
		err error
	}

	cliResult struct {
		stdout string
		stderr string
		err    error
	}
)

func (p *fakeProbe) Name() string                           { return "fake" }
func (p *fakeProbe) Architecture() interesting.Architecture { return interesting.Arch64 }

func (p *fakeProbe) FetchInterestingPaths(context.Context) (map[string][]interesting.InterestingPath, error) {
	return p.paths, nil
}

func (s *staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return config.DefaultConfig(), nil
	}
	return s.cfg, nil
}

// newFakeProbe reports jdk 11 and 17 for 64 bit and jdk 21 for 32 bit.
func newFakeProbe(t *testing.T) *fakeProbe {
	t.Helper()
	mk := func(path string, arch interesting.Architecture, v string) interesting.InterestingPath {
		p, err := interesting.NewInterestingPath("jdk", path, arch, v)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	return &fakeProbe{paths: map[string][]interesting.InterestingPath{
		"jdk": {
			mk("/opt/jdk-11", interesting.Arch64, "11"),
			mk("/opt/jdk-17", interesting.Arch64, "17.0.2"),
			mk("/opt/jdk-21-x86", interesting.Arch32, "21"),
		},
	}}
}

// runCLI runs pmake with args against a fake probe and the default
// configuration.
func runCLI(t *testing.T, provider config.Provider, stdin string, args ...string) cliResult {
	t.Helper()
	return runCLIWithProbe(t, provider, newFakeProbe(t), stdin, args...)
}

// runCLIWithProbe is runCLI with a caller-supplied probe.
func runCLIWithProbe(t *testing.T, provider config.Provider, probe interesting.Probe, stdin string, args ...string) cliResult {
	t.Helper()
	if provider == nil {
		provider = &staticConfig{}
	}

	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{
		Config: provider,
		Probe:  probe,
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}

	root := newRootCommand(app)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// exitCode returns the code carried by an ExitError, 0 for nil and -1 for
// any other error.
func exitCode(err error) types.ExitCode {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}
