// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmake/pmake/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := DefaultConfig()
	if cfg.LogLevel != def.LogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, def.LogLevel)
	}
	if cfg.Script.DefaultFile != DefaultScriptFile {
		t.Errorf("Script.DefaultFile = %q, want %q", cfg.Script.DefaultFile, DefaultScriptFile)
	}
	if cfg.Cache.File != DefaultCacheFile {
		t.Errorf("Cache.File = %q, want %q", cfg.Cache.File, DefaultCacheFile)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("UI.ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
	if len(cfg.Paths.Rules) != 0 {
		t.Errorf("Paths.Rules = %v, want empty", cfg.Paths.Rules)
	}
}

func TestLoad_FromCUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
log_level: "debug"
script: shell: "/bin/bash"
cache: file: "build/cache.json"
ui: {
	color_scheme: "dark"
	verbose: true
}
paths: rules: [
	{name: "android-ndk", roots: ["/opt/android"], pattern: "^ndk-(?P<version>[0-9.]+)$", architecture: 64},
]
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != LogLevelDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Script.Shell != "/bin/bash" {
		t.Errorf("Script.Shell = %q", cfg.Script.Shell)
	}
	if cfg.Script.DefaultFile != DefaultScriptFile {
		t.Errorf("Script.DefaultFile = %q, want default kept", cfg.Script.DefaultFile)
	}
	if cfg.Cache.File != "build/cache.json" {
		t.Errorf("Cache.File = %q", cfg.Cache.File)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark || !cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if len(cfg.Paths.Rules) != 1 {
		t.Fatalf("len(Paths.Rules) = %d, want 1", len(cfg.Paths.Rules))
	}
	rule := cfg.Paths.Rules[0]
	if rule.Name != "android-ndk" || rule.Architecture != 64 || len(rule.Roots) != 1 {
		t.Errorf("rule = %+v", rule)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `log_level: "loud"`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("Load() should fail for an invalid log level")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T, want *issue.ActionableError", err)
	}
	if ae.IssueID != issue.ConfigLoadFailedId {
		t.Errorf("IssueID = %d, want %d", ae.IssueID, issue.ConfigLoadFailedId)
	}
	if ae.Resource != path {
		t.Errorf("Resource = %q, want %q", ae.Resource, path)
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error %q should name the offending field", err)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `unknown_key: 1`)

	if _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir}); err == nil {
		t.Fatal("Load() should reject fields outside the schema")
	}
}

func TestLoad_SyntaxError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `log_level: "debug`)

	if _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir}); err == nil {
		t.Fatal("Load() should fail on a CUE syntax error")
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("Load() should fail when an explicit file does not exist")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %q", err)
	}
}

func TestLoad_ExplicitFileWinsOverDir(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()
	writeConfig(t, dirA, `log_level: "warn"`)
	explicit := writeConfig(t, dirB, `log_level: "error"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: explicit,
		ConfigDirPath:  dirA,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != LogLevelError {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_TooLarge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "// "+strings.Repeat("x", maxConfigFileSize)+"\n")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("Load() error = %v, want size error", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PMAKE_LOG_LEVEL", "warn")
	t.Setenv("PMAKE_CACHE_FILE", "other.json")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != LogLevelWarn {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Cache.File != "other.json" {
		t.Errorf("Cache.File = %q, want other.json", cfg.Cache.File)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("PMAKE_UI_COLOR_SCHEME", "neon")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidColorScheme) {
		t.Errorf("Load() error = %v, want ErrInvalidColorScheme", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.LogLevel = LogLevelDebug
	cfg.Script.Shell = "/bin/zsh"
	cfg.UI.Verbose = true
	cfg.Paths.Rules = []PathRule{
		{Name: "sdk", Roots: []string{"/opt", "$HOME/sdk"}, Pattern: `^sdk-(\d+)$`, Architecture: 32},
	}

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() of generated CUE error = %v\n%s", err, GenerateCUE(cfg))
	}
	if loaded.LogLevel != cfg.LogLevel || loaded.Script.Shell != cfg.Script.Shell || !loaded.UI.Verbose {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Paths.Rules) != 1 || loaded.Paths.Rules[0].Pattern != `^sdk-(\d+)$` {
		t.Errorf("rules = %+v", loaded.Paths.Rules)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig(false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	if err := os.WriteFile(path, []byte(`log_level: "warn"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(false); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"warn"`) {
		t.Error("CreateDefaultConfig(false) must not overwrite an existing file")
	}

	if _, err := CreateDefaultConfig(true); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), `log_level: "info"`) {
		t.Errorf("CreateDefaultConfig(true) content = %s", data)
	}
}

func TestFormatCUEPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parts []string
		want  string
	}{
		{nil, ""},
		{[]string{"log_level"}, "log_level"},
		{[]string{"paths", "rules", "0", "name"}, "paths.rules[0].name"},
	}
	for _, tt := range tests {
		if got := formatCUEPath(tt.parts); got != tt.want {
			t.Errorf("formatCUEPath(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}
