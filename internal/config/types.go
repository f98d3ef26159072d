// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// LogLevelDebug logs every builtin call and scan decision.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn only logs warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError only logs errors.
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultScriptFile is the PMakefile looked up when --file is not given.
	DefaultScriptFile = "PMakefile"
	// DefaultCacheFile is the cache file name, relative to the PMakefile folder.
	DefaultCacheFile = "pmake-cache.json"
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorScheme is the sentinel error wrapped by InvalidColorSchemeError.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidPathRule is the sentinel error wrapped by InvalidPathRuleError.
	ErrInvalidPathRule = errors.New("invalid path rule")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	pathRuleNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

type (
	// LogLevel is the minimum severity written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidPathRuleError collects the field errors of a PathRule.
	InvalidPathRuleError struct {
		Name        string
		FieldErrors []error
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		LogLevel LogLevel     `json:"log_level" mapstructure:"log_level"`
		Script   ScriptConfig `json:"script" mapstructure:"script"`
		Cache    CacheConfig  `json:"cache" mapstructure:"cache"`
		UI       UIConfig     `json:"ui" mapstructure:"ui"`
		Paths    PathsConfig  `json:"paths" mapstructure:"paths"`
	}

	// ScriptConfig configures how PMakefiles are found and run.
	ScriptConfig struct {
		// DefaultFile is the script run when neither --file nor --string is given.
		DefaultFile string `json:"default_file" mapstructure:"default_file"`
		// Shell overrides the host shell used by the execute builtins.
		Shell string `json:"shell" mapstructure:"shell"`
	}

	// CacheConfig configures the persistent cache.
	CacheConfig struct {
		// File is the cache file. Relative paths are resolved against the
		// PMakefile folder.
		File string `json:"file" mapstructure:"file"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}

	// PathsConfig configures interesting path discovery.
	PathsConfig struct {
		// Rules are scanned after the built-in rules of the platform.
		Rules []PathRule `json:"rules" mapstructure:"rules"`
	}

	// PathRule teaches pmake where to find the installations of a tool.
	PathRule struct {
		Name         string   `json:"name" mapstructure:"name"`
		Roots        []string `json:"roots" mapstructure:"roots"`
		Pattern      string   `json:"pattern" mapstructure:"pattern"`
		Architecture int      `json:"architecture,omitempty" mapstructure:"architecture"`
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// GlamourStyle maps the scheme to a glamour standard style name.
func (cs ColorScheme) GlamourStyle() string {
	switch cs {
	case ColorSchemeDark:
		return "dark"
	case ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// Error implements the error interface.
func (e *InvalidPathRuleError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid path rule %q: %s", e.Name, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidPathRule for errors.Is() compatibility.
func (e *InvalidPathRuleError) Unwrap() error { return ErrInvalidPathRule }

// IsValid checks the name, roots, pattern and architecture of the rule.
func (r PathRule) IsValid() (bool, []error) {
	var errs []error
	if !pathRuleNamePattern.MatchString(r.Name) {
		errs = append(errs, fmt.Errorf("name %q must be alphanumeric with '.', '_' or '-'", r.Name))
	}
	if len(r.Roots) == 0 {
		errs = append(errs, errors.New("at least one root is required"))
	}
	for i, root := range r.Roots {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, fmt.Errorf("roots[%d] is empty", i))
		}
	}
	if _, err := regexp.Compile(r.Pattern); err != nil {
		errs = append(errs, fmt.Errorf("pattern: %w", err))
	}
	if r.Architecture != 0 && r.Architecture != 32 && r.Architecture != 64 {
		errs = append(errs, fmt.Errorf("architecture %d is not 32 or 64", r.Architecture))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidPathRuleError{Name: r.Name, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid validates every field of the configuration.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.LogLevel.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.UI.ColorScheme.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Script.DefaultFile) == "" {
		errs = append(errs, errors.New("script.default_file must not be empty"))
	}
	if strings.TrimSpace(c.Cache.File) == "" {
		errs = append(errs, errors.New("cache.file must not be empty"))
	}
	for _, r := range c.Paths.Rules {
		if ok, fieldErrs := r.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: LogLevelInfo,
		Script:   ScriptConfig{DefaultFile: DefaultScriptFile},
		Cache:    CacheConfig{File: DefaultCacheFile},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
		Paths: PathsConfig{Rules: []PathRule{}},
	}
}
