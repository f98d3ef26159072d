// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/pmake/pmake/pkg/interesting"
)

type (
	// Options configures a probe.
	Options struct {
		// Rules replaces the default rules of the probe variant when non-nil.
		Rules []Rule
		// ExtraRules are scanned after the base rules.
		ExtraRules []Rule
		// Architecture overrides the pointer width reported by the probe.
		// Zero means the running process's.
		Architecture interesting.Architecture
		// Getenv resolves root variables. Defaults to os.Getenv.
		Getenv func(string) string
		// Logger receives scan diagnostics. Defaults to slog.Default().
		Logger *slog.Logger
	}

	// POSIXProbe discovers installations on Linux, macOS and the BSDs.
	POSIXProbe struct {
		goos string
		scanner
	}

	// WindowsProbe discovers installations under Program Files and the
	// per-user program folders.
	WindowsProbe struct {
		scanner
	}
)

// Detect selects the probe variant for goos.
func Detect(goos string, opts Options) (interesting.Probe, error) {
	switch {
	case IsWindows(goos):
		return NewWindowsProbe(opts), nil
	case IsPOSIX(goos):
		return NewPOSIXProbe(goos, opts), nil
	default:
		return nil, &UnsupportedPlatformError{GOOS: goos}
	}
}

// NewPOSIXProbe creates a POSIX probe.
func NewPOSIXProbe(goos string, opts Options) *POSIXProbe {
	return &POSIXProbe{goos: goos, scanner: newScanner(DefaultPOSIXRules(), opts)}
}

// NewWindowsProbe creates a Windows probe. Reserved device names are never
// reported as installations.
func NewWindowsProbe(opts Options) *WindowsProbe {
	s := newScanner(DefaultWindowsRules(), opts)
	s.skip = IsWindowsReservedName
	return &WindowsProbe{scanner: s}
}

func newScanner(defaults []Rule, opts Options) scanner {
	rules := defaults
	if opts.Rules != nil {
		rules = opts.Rules
	}
	rules = append(slices.Clone(rules), opts.ExtraRules...)

	arch := opts.Architecture
	if arch == 0 {
		arch = interesting.CurrentArchitecture()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return scanner{rules: rules, architecture: arch, getenv: getenv, logger: logger}
}

// Name implements interesting.Probe.
func (p *POSIXProbe) Name() string { return "posix/" + p.goos }

// Architecture implements interesting.Probe.
func (p *POSIXProbe) Architecture() interesting.Architecture { return p.architecture }

// FetchInterestingPaths implements interesting.Probe.
func (p *POSIXProbe) FetchInterestingPaths(ctx context.Context) (map[string][]interesting.InterestingPath, error) {
	return p.scan(ctx)
}

// Rules returns the rules the probe scans, in order.
func (p *POSIXProbe) Rules() []Rule { return slices.Clone(p.rules) }

// Name implements interesting.Probe.
func (p *WindowsProbe) Name() string { return Windows }

// Architecture implements interesting.Probe.
func (p *WindowsProbe) Architecture() interesting.Architecture { return p.architecture }

// FetchInterestingPaths implements interesting.Probe.
func (p *WindowsProbe) FetchInterestingPaths(ctx context.Context) (map[string][]interesting.InterestingPath, error) {
	return p.scan(ctx)
}

// Rules returns the rules the probe scans, in order.
func (p *WindowsProbe) Rules() []Rule { return slices.Clone(p.rules) }
