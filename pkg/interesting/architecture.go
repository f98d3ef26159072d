// SPDX-License-Identifier: MPL-2.0

package interesting

import (
	"strconv"
	"strings"
)

const (
	// Arch32 is a 32-bit build or tool variant.
	Arch32 Architecture = 32
	// Arch64 is a 64-bit build or tool variant.
	Arch64 Architecture = 64
)

// Architecture is the pointer width of a build or tool variant.
type Architecture int

// CurrentArchitecture reports the pointer width of the running process.
func CurrentArchitecture() Architecture {
	if strconv.IntSize == 64 {
		return Arch64
	}
	return Arch32
}

// ParseArchitecture accepts a bit width ("32", "64") or a common
// architecture spelling ("x86", "i386", "amd64", "x86_64", "arm64", ...).
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "32", "x86", "386", "i386", "i686", "arm", "win32":
		return Arch32, nil
	case "64", "x64", "amd64", "x86_64", "arm64", "aarch64", "win64":
		return Arch64, nil
	default:
		return 0, &InvalidArchitectureError{Value: s}
	}
}

// String returns the bit width as a decimal string.
func (a Architecture) String() string { return strconv.Itoa(int(a)) }

// IsValid returns whether the Architecture is 32 or 64,
// and a list of validation errors if it is not.
func (a Architecture) IsValid() (bool, []error) {
	switch a {
	case Arch32, Arch64:
		return true, nil
	default:
		return false, []error{&InvalidArchitectureError{Value: a.String()}}
	}
}
