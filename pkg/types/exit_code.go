// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Exit statuses shared by the pmake builtins and the CLI.
const (
	// ExitSuccess is returned when a builtin or script succeeds.
	ExitSuccess ExitCode = 0
	// ExitFailure is the generic failure status, also used for a false
	// answer from a boolean builtin.
	ExitFailure ExitCode = 1
	// ExitUsage is returned for invalid builtin arguments.
	ExitUsage ExitCode = 2
	// ExitUnknownName is returned when an interesting path name has no
	// installation on the host.
	ExitUnknownName ExitCode = 3
	// ExitNoMatchingArchitecture is returned when a name exists but never
	// for the requested architecture.
	ExitNoMatchingArchitecture ExitCode = 4
	// ExitMalformedVersion is returned when a version string cannot be parsed.
	ExitMalformedVersion ExitCode = 5
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// Uint8 returns the code as a shell exit status, clamping out-of-range
// values to 255.
func (c ExitCode) Uint8() uint8 {
	if c.Validate() != nil {
		return 255
	}
	return uint8(c)
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
