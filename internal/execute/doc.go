// SPDX-License-Identifier: MPL-2.0

// Package execute runs host commands on behalf of PMakefile builtins.
//
// A Request carries one or more command lines that are joined and handed to
// a single shell invocation, so they share the same working directory and
// environment. The Mode decides what happens to the output: discarded,
// streamed, captured, or streamed through a pseudo-terminal.
package execute
