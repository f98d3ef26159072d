// SPDX-License-Identifier: MPL-2.0

// Package config handles pmake configuration using Viper with CUE as the file format.
//
// The file lives at config.cue inside ConfigDir ($XDG_CONFIG_HOME/pmake on
// Linux, ~/Library/Application Support/pmake on macOS, %APPDATA%\pmake on
// Windows) and is validated against the embedded #Config schema before being
// merged over the defaults. Every key can be overridden from the environment
// with the PMAKE_ prefix, dots replaced by underscores.
package config
