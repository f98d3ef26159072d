// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pmake/pmake/internal/cache"
	"github.com/pmake/pmake/internal/execute"
	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/internal/platform"
	"github.com/pmake/pmake/pkg/interesting"
)

// ErrNoScript is returned when neither a script path nor a script string is set.
var ErrNoScript = errors.New("no PMakefile to run")

type (
	// Options are the user inputs of a session.
	Options struct {
		// ScriptPath is the PMakefile to run. Ignored when ScriptString is set.
		ScriptPath string
		// ScriptString is an inline script.
		ScriptString string
		// StartingCwd is the directory pmake was started from. Defaults to
		// the current working directory.
		StartingCwd string
		// Targets are the requested targets, in command line order.
		Targets []string
		// Variables are the user-defined variables.
		Variables map[string]string
		// CacheFile is the cache location. Relative paths are resolved
		// against the script directory.
		CacheFile string
		// Version is the running pmake version.
		Version string
		// GOOS selects the probe variant. Defaults to runtime.GOOS.
		GOOS string
		// Rules are scanned in addition to the probe defaults.
		Rules []platform.Rule
	}

	// Dependencies are the injection points of a session. Nil fields get
	// production defaults.
	Dependencies struct {
		// Probe replaces platform detection.
		Probe interesting.Probe
		// Runner launches host processes.
		Runner *execute.Runner
		// Logger receives session diagnostics.
		Logger *slog.Logger
		// Getenv resolves environment variables for the probe.
		Getenv func(string) string
	}

	// Session is the state shared by every builtin during one run.
	Session struct {
		opts        Options
		scriptPath  string
		scriptDir   string
		startingCwd string
		probe       interesting.Probe
		catalog     *interesting.Catalog
		latest      interesting.ResolvedLatestMap
		cache       *cache.Store
		runner      *execute.Runner
		logger      *slog.Logger
	}
)

// New builds a session. Any failure while selecting the probe, discovering
// paths or opening the cache aborts with an *issue.ActionableError.
func New(ctx context.Context, opts Options, deps Dependencies) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.Runner == nil {
		deps.Runner = execute.NewRunner(execute.WithLogger(deps.Logger))
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}

	s := &Session{opts: opts, runner: deps.Runner, logger: deps.Logger}

	if err := s.resolveLocations(); err != nil {
		return nil, err
	}

	probe := deps.Probe
	if probe == nil {
		var err error
		probe, err = platform.Detect(opts.GOOS, platform.Options{
			ExtraRules: opts.Rules,
			Getenv:     deps.Getenv,
			Logger:     deps.Logger,
		})
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("detect platform").
				WithResource(opts.GOOS).
				WithSuggestion("pmake supports Windows and POSIX-like systems only").
				WithIssue(issue.UnsupportedPlatformId).
				Wrap(err).
				BuildError()
		}
	}
	s.probe = probe

	catalog, err := interesting.Discover(ctx, probe)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("discover interesting paths").
			WithResource(probe.Name()).
			WithSuggestion("Run 'pmake paths --log-level debug' to see which directories were scanned").
			WithSuggestion("Check the paths.rules entries of your configuration").
			WithIssue(issue.PathDiscoveryFailedId).
			Wrap(err).
			BuildError()
	}
	s.catalog = catalog
	s.latest = interesting.ResolveLatest(catalog, probe.Architecture())
	s.logger.Debug("interesting paths discovered",
		"probe", probe.Name(),
		"names", catalog.Len(),
		"architecture", probe.Architecture().String())

	if s.cache, err = s.openCache(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) resolveLocations() error {
	cwd := s.opts.StartingCwd
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return fmt.Errorf("failed to resolve starting directory: %w", err)
	}
	s.startingCwd = abs

	switch {
	case s.opts.ScriptString != "":
		s.scriptDir = s.startingCwd
	case s.opts.ScriptPath != "":
		path := s.opts.ScriptPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.startingCwd, path)
		}
		s.scriptPath = filepath.Clean(path)
		s.scriptDir = filepath.Dir(s.scriptPath)
	default:
		return ErrNoScript
	}
	return nil
}

func (s *Session) openCache() (*cache.Store, error) {
	path := s.opts.CacheFile
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.scriptDir, path)
	}

	store, err := cache.Open(path)
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("open cache").
			WithResource(path).
			Wrap(err)
		switch {
		case errors.Is(err, cache.ErrCorruptCache):
			ec = ec.WithSuggestion("Delete the file or run 'pmake cache clear --file " + path + "'").
				WithIssue(issue.CorruptCacheId)
		case errors.Is(err, cache.ErrLocked):
			ec = ec.WithSuggestions(
				"Wait for the other pmake run using this cache to finish",
				"Pass --cache-file or --no-cache to use a different cache",
			).WithIssue(issue.CacheLockedId)
		default:
			ec = ec.WithSuggestion("Check that the directory is writable").
				WithIssue(issue.PermissionDeniedId)
		}
		return nil, ec.BuildError()
	}
	return store, nil
}

// Close flushes and releases the cache. It is safe to call more than once.
func (s *Session) Close() error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Close(); err != nil {
		ae := issue.WrapWithContext(err, "flush cache", s.cache.Path())
		if errors.Is(err, cache.ErrLocked) {
			ae.IssueID = issue.CacheLockedId
		}
		return ae
	}
	return nil
}

// Catalog returns every discovered installation.
func (s *Session) Catalog() *interesting.Catalog { return s.catalog }

// Latest returns the newest installation per name for the session architecture.
func (s *Session) Latest() interesting.ResolvedLatestMap { return s.latest }

// Architecture is the pointer width reported by the probe.
func (s *Session) Architecture() interesting.Architecture { return s.probe.Architecture() }

// Platform names the probe variant in use.
func (s *Session) Platform() string { return s.probe.Name() }

// GOOS is the operating system the session targets.
func (s *Session) GOOS() string { return s.opts.GOOS }

// LatestPathWithArchitecture returns the newest installation of name built
// for arch.
func (s *Session) LatestPathWithArchitecture(name string, arch interesting.Architecture) (interesting.InterestingPath, error) {
	return interesting.LatestPathWithArchitecture(s.catalog, name, arch)
}

// Cache returns the session cache, or nil when the session runs without one.
func (s *Session) Cache() *cache.Store { return s.cache }

// Runner returns the process runner used by the execute builtins.
func (s *Session) Runner() *execute.Runner { return s.runner }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Variables returns a copy of the user-defined variables.
func (s *Session) Variables() map[string]string { return maps.Clone(s.opts.Variables) }

// HasVariable reports whether the user defined name.
func (s *Session) HasVariable(name string) bool {
	_, ok := s.opts.Variables[name]
	return ok
}

// Targets returns the requested targets.
func (s *Session) Targets() []string { return slices.Clone(s.opts.Targets) }

// SpecifiesTarget reports whether target was requested.
func (s *Session) SpecifiesTarget(target string) bool {
	return slices.Contains(s.opts.Targets, target)
}

// ScriptPath is the absolute PMakefile path, or "" for inline scripts.
func (s *Session) ScriptPath() string { return s.scriptPath }

// ScriptString is the inline script, if any.
func (s *Session) ScriptString() string { return s.opts.ScriptString }

// ScriptDir is the PMakefile folder. Inline scripts use the starting directory.
func (s *Session) ScriptDir() string { return s.scriptDir }

// StartingCwd is the directory pmake was started from.
func (s *Session) StartingCwd() string { return s.startingCwd }

// Version is the running pmake version.
func (s *Session) Version() string { return s.opts.Version }
