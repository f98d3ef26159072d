// SPDX-License-Identifier: MPL-2.0

// Package script runs PMakefiles.
//
// A PMakefile is a POSIX shell script executed in-process by mvdan.cc/sh. The
// pmake helper library is exposed as builtins resolved by the interpreter's
// exec handler before host binaries, so a script calls them like any other
// command:
//
//	jdk=$(latest_interesting_path jdk)
//	if has_variable_in_cache built; then
//	    info "already built with $(get_variable_in_cache built)"
//	fi
//
// Builtins print their result on stdout and answer yes/no questions through
// the exit status. Failures use the statuses listed in pkg/types (usage 2,
// unknown name 3, no matching architecture 4, malformed version 5). The
// ensure_* and require_* builtins halt the whole script.
package script
