// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is the sentinel error wrapped by UnsupportedPlatformError.
	ErrUnsupportedPlatform = errors.New("cannot identify platform")
	// ErrInvalidRule is the sentinel error wrapped by InvalidRuleError.
	ErrInvalidRule = errors.New("invalid path rule")
)

type (
	// UnsupportedPlatformError is returned by Detect when no probe variant
	// serves the operating system.
	UnsupportedPlatformError struct {
		GOOS string
	}

	// InvalidRuleError is returned when a rule specification cannot be compiled.
	InvalidRuleError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface.
func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("cannot identify platform %q (supported: windows, linux, darwin and other unix systems)", e.GOOS)
}

// Unwrap returns ErrUnsupportedPlatform for errors.Is() compatibility.
func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// Error implements the error interface.
func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid path rule %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidRule for errors.Is() compatibility.
func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }
