// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"slices"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// posixSystems lists the GOOS values served by the POSIX probe.
var posixSystems = []string{
	Linux, Darwin, "freebsd", "netbsd", "openbsd", "dragonfly", "solaris", "illumos", "aix",
}

// windowsReservedNames are filenames that cannot be used on Windows,
// regardless of extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindows reports whether goos is Windows.
func IsWindows(goos string) bool { return goos == Windows }

// IsPOSIX reports whether goos is served by the POSIX probe.
func IsPOSIX(goos string) bool { return slices.Contains(posixSystems, goos) }

// IsWindowsReservedName checks if a filename is a Windows reserved name.
// Extensions are ignored: "nul.txt" is reserved too.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.LastIndex(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}
