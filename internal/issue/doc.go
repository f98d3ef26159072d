// SPDX-License-Identifier: MPL-2.0

// Package issue turns pmake failures into user-facing guidance.
//
// ActionableError carries what was attempted, on which resource, and what the
// user can do about it. The Issue catalog holds longer Markdown explanations,
// rendered for the terminal with glamour.
package issue
