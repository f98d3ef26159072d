// SPDX-License-Identifier: MPL-2.0

package interesting

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// maxVersionComponents is the number of dot-separated components a
// VersionTag accepts ("major.minor.patch").
const maxVersionComponents = 3

// VersionTag is a normalized major.minor.patch version used as a sort key.
// The zero value is 0.0.0.
type VersionTag struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// ParseVersion parses one to three dot-separated non-negative integers.
// Missing trailing components default to zero, so "7" and "7.0.0" parse to
// the same VersionTag.
func ParseVersion(raw string) (VersionTag, error) {
	if raw == "" {
		return VersionTag{}, &MalformedVersionError{Value: raw, Reason: "empty version"}
	}

	parts := strings.Split(raw, ".")
	if len(parts) > maxVersionComponents {
		return VersionTag{}, &MalformedVersionError{
			Value:  raw,
			Reason: fmt.Sprintf("%d components, at most %d allowed", len(parts), maxVersionComponents),
		}
	}

	var nums [maxVersionComponents]uint64
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return VersionTag{}, &MalformedVersionError{
				Value:  raw,
				Reason: fmt.Sprintf("component %q is not numeric", part),
			}
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return VersionTag{}, &MalformedVersionError{Value: raw, Reason: err.Error()}
		}
		nums[i] = n
	}

	return VersionTag{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParseVersion is like ParseVersion but panics on malformed input.
func MustParseVersion(raw string) VersionTag {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after other. Components are compared numerically, major first.
func (v VersionTag) Compare(other VersionTag) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, other.Patch)
}

// Less reports whether v sorts strictly before other.
func (v VersionTag) Less(other VersionTag) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other denote the same version.
func (v VersionTag) Equal(other VersionTag) bool { return v == other }

// String renders the version as "major.minor.patch".
func (v VersionTag) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// SemVer converts the tag into a semver.Version.
func (v VersionTag) SemVer() *semver.Version {
	return semver.New(v.Major, v.Minor, v.Patch, "", "")
}

// Satisfies reports whether v matches a semver constraint such as ">= 1.2"
// or "^3".
func (v VersionTag) Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c.Check(v.SemVer()), nil
}
