// SPDX-License-Identifier: MPL-2.0

// Package platform implements the host collaborators that discover
// interesting paths.
//
// A probe walks a list of scanning rules: each rule names a tool, the root
// folders its installations live in, and a pattern that recognizes an
// installation folder and carries its version. Detect picks the probe
// variant for the running operating system once per session.
package platform
