// SPDX-License-Identifier: MPL-2.0

package interesting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var (
	// quasiSemverPattern matches "1", "1.2" and "1.2.3".
	quasiSemverPattern = regexp.MustCompile(`\d+(?:\.\d+(?:\.\d+)?)?`)
	// strictSemverPattern matches only complete "1.2.3" cores.
	strictSemverPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)
)

type (
	// VersionExtractor derives a version from a file or folder base name.
	VersionExtractor func(name string) (VersionTag, error)

	// FolderOptions tunes LatestInFolder.
	FolderOptions struct {
		// Filter, when set, decides whether an absolute entry path takes part.
		Filter func(path string) bool
		// Extract derives the version from an entry base name.
		// Defaults to ExtractVersion.
		Extract VersionExtractor
		// SkipUnversioned ignores entries whose name carries no version
		// instead of failing.
		SkipUnversioned bool
	}

	// FolderLatest is the outcome of LatestInFolder.
	FolderLatest struct {
		// Version is the highest version found.
		Version VersionTag
		// Paths are the absolute paths of every entry carrying Version,
		// in directory order.
		Paths []string
	}
)

// ExtractVersion finds the first "N", "N.N" or "N.N.N" substring of the base
// name of s, e.g. "jdk-11.0.2" -> 11.0.2 and "python3.9" -> 3.9.0.
func ExtractVersion(s string) (VersionTag, error) {
	return extractWith(quasiSemverPattern, s)
}

// ExtractStrictVersion is like ExtractVersion but only accepts complete
// "N.N.N" substrings.
func ExtractStrictVersion(s string) (VersionTag, error) {
	return extractWith(strictSemverPattern, s)
}

func extractWith(re *regexp.Regexp, s string) (VersionTag, error) {
	base := filepath.Base(s)
	m := re.FindString(base)
	if m == "" {
		return VersionTag{}, &MalformedVersionError{
			Value:  base,
			Reason: fmt.Sprintf("no substring matches %s", re.String()),
		}
	}
	return ParseVersion(m)
}

// LatestInFolder scans the direct children of dir, extracts a version from
// every name and returns the highest version together with all the entries
// that carry it. found is false when no entry took part.
func LatestInFolder(dir string, opts FolderOptions) (latest FolderLatest, found bool, err error) {
	extract := opts.Extract
	if extract == nil {
		extract = ExtractVersion
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return FolderLatest{}, false, fmt.Errorf("read folder %s: %w", dir, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return FolderLatest{}, false, fmt.Errorf("resolve folder %s: %w", dir, err)
	}

	for _, entry := range entries {
		full := filepath.Join(absDir, entry.Name())
		if opts.Filter != nil && !opts.Filter(full) {
			continue
		}

		v, extractErr := extract(entry.Name())
		if extractErr != nil {
			if opts.SkipUnversioned && errors.Is(extractErr, ErrMalformedVersion) {
				continue
			}
			return FolderLatest{}, false, extractErr
		}

		switch {
		case !found || v.Compare(latest.Version) > 0:
			latest = FolderLatest{Version: v, Paths: []string{full}}
			found = true
		case v.Equal(latest.Version):
			latest.Paths = append(latest.Paths, full)
		}
	}

	return latest, found, nil
}
