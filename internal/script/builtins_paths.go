// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/pkg/interesting"

	"github.com/Masterminds/semver/v3"
)

// Formats accepted by latest_directory.
const (
	folderFormatNumber  = "number"
	folderFormatSemver2 = "semver2"
)

func init() {
	registerAll(CategoryPaths,
		Builtin{
			Name:        "interesting_paths",
			Usage:       "[--long] [NAME]",
			Description: "List discovered installation names, or the installations of NAME",
			Run:         runInterestingPaths,
		},
		Builtin{
			Name:        "latest_interesting_path",
			Usage:       "[--version] NAME",
			Description: "Print the newest installation of NAME for the session architecture",
			Run:         runLatestInterestingPath,
		},
		Builtin{
			Name:        "get_latest_path_with_architecture",
			Usage:       "NAME 32|64",
			Description: "Print the newest installation of NAME built for the given architecture",
			Run:         runLatestPathWithArchitecture,
		},
		Builtin{
			Name:        "get_architecture",
			Description: "Print the pointer width of the running pmake (32 or 64)",
			Run:         runGetArchitecture,
		},
		Builtin{
			Name:        "get_latest_version_in_folder",
			Usage:       "[--folder DIR] [--prefix P] [--strict] [--skip-unversioned] [--paths]",
			Description: "Print the highest version carried by the entries of a folder",
			Run:         runLatestVersionInFolder,
		},
		Builtin{
			Name:        "latest_directory",
			Usage:       "[--ignore-mismatch] FOLDER PREFIX number|semver2",
			Description: "Print the subfolder of FOLDER named PREFIX<id> with the greatest id",
			Run:         runLatestDirectory,
		},
		Builtin{
			Name:        "version_compare",
			Usage:       "A B",
			Description: "Print -1, 0 or 1 comparing two versions",
			Run:         runVersionCompare,
		},
		Builtin{
			Name:        "version_satisfies",
			Usage:       "VERSION CONSTRAINT",
			Description: "Succeed when VERSION satisfies a semver constraint such as \">= 1.2, < 2\"",
			Run:         runVersionSatisfies,
		},
	)
}

func formatPathRow(p interesting.InterestingPath) string {
	return strings.Join([]string{p.Name, p.Architecture.String(), p.Version.String(), p.Path}, "\t")
}

func runInterestingPaths(_ context.Context, c *Call) error {
	fs := c.Flags()
	long := fs.Bool("long", false, "print name, architecture, version and path")
	args, err := c.Parse(fs, 0, 1)
	if err != nil {
		return err
	}

	catalog := c.Session.Catalog()
	if len(args) == 0 {
		if !*long {
			c.PrintLines(catalog.Names())
			return nil
		}
		for _, name := range catalog.Names() {
			paths, _ := catalog.Paths(name)
			for _, p := range paths {
				c.Println(formatPathRow(p))
			}
		}
		return nil
	}

	paths, ok := catalog.Paths(args[0])
	if !ok {
		return &interesting.UnknownInterestingPathNameError{Name: args[0]}
	}
	for _, p := range paths {
		if *long {
			c.Println(formatPathRow(p))
		} else {
			c.Println(p.Path)
		}
	}
	return nil
}

func runLatestInterestingPath(_ context.Context, c *Call) error {
	fs := c.Flags()
	version := fs.Bool("version", false, "print the version instead of the path")
	args, err := c.Parse(fs, 1, 1)
	if err != nil {
		return err
	}

	name := args[0]
	if !c.Session.Catalog().Has(name) {
		return &interesting.UnknownInterestingPathNameError{Name: name}
	}
	p, ok := c.Session.Latest().Get(name)
	if !ok {
		// Absent for this architecture: a silent "no".
		return answer(false)
	}
	if *version {
		c.Println(p.Version.String())
	} else {
		c.Println(p.Path)
	}
	return nil
}

func runLatestPathWithArchitecture(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	arch, err := interesting.ParseArchitecture(args[1])
	if err != nil {
		return err
	}
	p, err := c.Session.LatestPathWithArchitecture(args[0], arch)
	if err != nil {
		return err
	}
	c.Println(p.Path)
	return nil
}

func runGetArchitecture(_ context.Context, c *Call) error {
	if _, err := c.positional(0, 0); err != nil {
		return err
	}
	c.Println(c.Session.Architecture().String())
	return nil
}

func runLatestVersionInFolder(_ context.Context, c *Call) error {
	fs := c.Flags()
	folder := fs.String("folder", "", "folder to inspect (default: current directory)")
	prefix := fs.String("prefix", "", "only consider entries starting with this prefix")
	strict := fs.Bool("strict", false, "require complete MAJOR.MINOR.PATCH versions")
	skip := fs.Bool("skip-unversioned", false, "ignore entries without a version")
	paths := fs.Bool("paths", false, "print the entries carrying the highest version")
	if _, err := c.Parse(fs, 0, 0); err != nil {
		return err
	}

	opts := interesting.FolderOptions{SkipUnversioned: *skip}
	if *strict {
		opts.Extract = interesting.ExtractStrictVersion
	}
	if *prefix != "" {
		opts.Filter = func(p string) bool { return strings.HasPrefix(filepath.Base(p), *prefix) }
		extract := opts.Extract
		if extract == nil {
			extract = interesting.ExtractVersion
		}
		opts.Extract = func(name string) (interesting.VersionTag, error) {
			return extract(strings.TrimPrefix(filepath.Base(name), *prefix))
		}
	}

	latest, found, err := interesting.LatestInFolder(c.Path(*folder), opts)
	if err != nil {
		return err
	}
	if !found {
		return answer(false)
	}
	if *paths {
		c.PrintLines(latest.Paths)
	} else {
		c.Println(latest.Version.String())
	}
	return nil
}

type directoryCandidate struct {
	path   string
	number int
	semver *semver.Version
}

func runLatestDirectory(_ context.Context, c *Call) error {
	fs := c.Flags()
	ignoreMismatch := fs.Bool("ignore-mismatch", false, "skip subfolders not following the format")
	args, err := c.Parse(fs, 3, 3)
	if err != nil {
		return err
	}
	folder, prefix, format := c.Path(args[0]), args[1], args[2]
	if format != folderFormatNumber && format != folderFormatSemver2 {
		return c.usageError(fmt.Sprintf("invalid format %q (valid: number, semver2)", format))
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", folder, err)
	}

	var candidates []directoryCandidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		cand, err := parseDirectoryCandidate(name, prefix, format)
		if err != nil {
			if *ignoreMismatch {
				c.Logger().Debug("skipping subfolder", "folder", folder, "name", name, "reason", err)
				continue
			}
			return fmt.Errorf("subfolder %q in %s: %w", name, folder, err)
		}
		cand.path = filepath.Join(folder, name)
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no subfolder of %s matches %s<%s>", folder, prefix, format)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if format == folderFormatNumber {
			return candidates[i].number > candidates[j].number
		}
		return candidates[i].semver.GreaterThan(candidates[j].semver)
	})
	c.Println(candidates[0].path)
	return nil
}

func parseDirectoryCandidate(name, prefix, format string) (directoryCandidate, error) {
	id, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return directoryCandidate{}, fmt.Errorf("does not start with %q", prefix)
	}
	if format == folderFormatNumber {
		n, err := strconv.Atoi(id)
		if err != nil {
			return directoryCandidate{}, fmt.Errorf("%q is not a number", id)
		}
		return directoryCandidate{number: n}, nil
	}
	v, err := semver.StrictNewVersion(id)
	if err != nil {
		return directoryCandidate{}, &interesting.MalformedVersionError{Value: id, Reason: err.Error()}
	}
	return directoryCandidate{semver: v}, nil
}

func runVersionCompare(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	a, err := interesting.ParseVersion(args[0])
	if err != nil {
		return err
	}
	b, err := interesting.ParseVersion(args[1])
	if err != nil {
		return err
	}
	c.Println(strconv.Itoa(a.Compare(b)))
	return nil
}

func runVersionSatisfies(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	v, err := interesting.ParseVersion(args[0])
	if err != nil {
		return err
	}
	ok, err := v.Satisfies(args[1])
	if err != nil {
		return c.usageError(err.Error())
	}
	return answer(ok)
}

// requireVersion checks the running pmake version against a minimum version
// or a constraint. Development builds pass every check.
func requireVersion(c *Call, requirement string) error {
	current := c.Session.Version()
	cv, err := semver.NewVersion(current)
	if err != nil {
		c.Logger().Warn("cannot check required pmake version on a development build", "version", current)
		return nil
	}

	constraint := requirement
	if _, err := semver.NewVersion(requirement); err == nil {
		constraint = ">= " + requirement
	}
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return c.usageError(fmt.Sprintf("invalid version requirement %q: %v", requirement, err))
	}
	if !cons.Check(cv) {
		return c.halt(issue.PMakeVersionMismatchId,
			fmt.Errorf("the script requires pmake %s, but this is pmake %s", constraint, cv))
	}
	return nil
}
