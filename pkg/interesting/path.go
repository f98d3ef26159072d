// SPDX-License-Identifier: MPL-2.0

package interesting

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errEmptyName = errors.New("name must not be empty")
	errEmptyPath = errors.New("path must not be empty")
)

// InterestingPath is a single discovered installation of a tool or SDK.
// Values are created once during discovery and never mutated.
type InterestingPath struct {
	// Name is the logical identifier shared by every installation of the same
	// tool (e.g. "jdk").
	Name string
	// Path is the filesystem location of the installation.
	Path string
	// Architecture is the pointer width the installation was built for.
	Architecture Architecture
	// Version is the installation's normalized version.
	Version VersionTag
}

// NewInterestingPath builds an InterestingPath, parsing the raw version.
func NewInterestingPath(name, path string, arch Architecture, rawVersion string) (InterestingPath, error) {
	version, err := ParseVersion(rawVersion)
	if err != nil {
		return InterestingPath{}, err
	}
	p := InterestingPath{Name: name, Path: path, Architecture: arch, Version: version}
	if valid, errs := p.IsValid(); !valid {
		return InterestingPath{}, errs[0]
	}
	return p, nil
}

// IsValid returns whether the name and path are set and the architecture is
// 32 or 64, and a list of validation errors if not.
func (p InterestingPath) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errEmptyName)
	}
	if strings.TrimSpace(p.Path) == "" {
		errs = append(errs, errEmptyPath)
	}
	if valid, fieldErrs := p.Architecture.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidInterestingPathError{FieldErrors: errs}}
	}
	return true, nil
}

// String returns a compact one-line description.
func (p InterestingPath) String() string {
	return fmt.Sprintf("%s %s (%s-bit) %s", p.Name, p.Version, p.Architecture, p.Path)
}
