// SPDX-License-Identifier: MPL-2.0

package interesting

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedVersion is the sentinel error wrapped by MalformedVersionError.
	ErrMalformedVersion = errors.New("malformed version")
	// ErrInvalidArchitecture is the sentinel error wrapped by InvalidArchitectureError.
	ErrInvalidArchitecture = errors.New("invalid architecture")
	// ErrUnknownInterestingPathName is the sentinel error wrapped by UnknownInterestingPathNameError.
	ErrUnknownInterestingPathName = errors.New("unknown interesting path name")
	// ErrNoMatchingArchitecture is the sentinel error wrapped by NoMatchingArchitectureError.
	ErrNoMatchingArchitecture = errors.New("no matching architecture")
	// ErrInvalidInterestingPath is the sentinel error wrapped by InvalidInterestingPathError.
	ErrInvalidInterestingPath = errors.New("invalid interesting path")
	// ErrCatalogNameMismatch is returned when a catalog entry is stored under a
	// key different from its own name.
	ErrCatalogNameMismatch = errors.New("catalog entry name does not match its key")
)

type (
	// MalformedVersionError is returned when a raw string cannot be parsed into
	// a VersionTag.
	MalformedVersionError struct {
		Value  string
		Reason string
	}

	// InvalidArchitectureError is returned when an Architecture is neither 32 nor 64.
	InvalidArchitectureError struct {
		Value string
	}

	// UnknownInterestingPathNameError is returned when a query names a path
	// that is not a key of the catalog.
	UnknownInterestingPathNameError struct {
		Name string
	}

	// NoMatchingArchitectureError is returned by single-name queries when the
	// name exists but none of its entries has the requested architecture.
	NoMatchingArchitectureError struct {
		Name         string
		Architecture Architecture
	}

	// InvalidInterestingPathError collects the field errors of an InterestingPath.
	InvalidInterestingPathError struct {
		FieldErrors []error
	}
)

// Error implements the error interface.
func (e *MalformedVersionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("malformed version %q", e.Value)
	}
	return fmt.Sprintf("malformed version %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrMalformedVersion for errors.Is() compatibility.
func (e *MalformedVersionError) Unwrap() error { return ErrMalformedVersion }

// Error implements the error interface.
func (e *InvalidArchitectureError) Error() string {
	return fmt.Sprintf("invalid architecture %q (valid: 32, 64)", e.Value)
}

// Unwrap returns ErrInvalidArchitecture for errors.Is() compatibility.
func (e *InvalidArchitectureError) Unwrap() error { return ErrInvalidArchitecture }

// Error implements the error interface.
func (e *UnknownInterestingPathNameError) Error() string {
	return fmt.Sprintf("unknown interesting path %q", e.Name)
}

// Unwrap returns ErrUnknownInterestingPathName for errors.Is() compatibility.
func (e *UnknownInterestingPathNameError) Unwrap() error { return ErrUnknownInterestingPathName }

// Error implements the error interface.
func (e *NoMatchingArchitectureError) Error() string {
	return fmt.Sprintf("no interesting path %q matches architecture %s", e.Name, e.Architecture)
}

// Unwrap returns ErrNoMatchingArchitecture for errors.Is() compatibility.
func (e *NoMatchingArchitectureError) Unwrap() error { return ErrNoMatchingArchitecture }

// Error implements the error interface.
func (e *InvalidInterestingPathError) Error() string {
	return fmt.Sprintf("invalid interesting path: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidInterestingPath for errors.Is() compatibility.
func (e *InvalidInterestingPathError) Unwrap() error { return ErrInvalidInterestingPath }
