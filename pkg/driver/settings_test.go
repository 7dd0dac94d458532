package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yml")
	writeFile(t, path, `
core_dir: /opt/luna-core
history:
  enabled: true
  limit: 20
color: Never
log_level: debug
modules:
  repository: https://example.com/luna/core.git
  constraint: ">= 0.1, < 0.3"
`)

	settings, err := LoadSettings(path, "0.0.1")
	require.NoError(t, err)
	assert.Equal(t, path, settings.Path)
	assert.Equal(t, "/opt/luna-core", settings.CoreDir)
	assert.Equal(t, HistorySettings{Enabled: true, Limit: 20}, settings.History)
	assert.Equal(t, ColorNever, settings.Color)
	assert.Equal(t, zerolog.DebugLevel, settings.LogLevel)
	assert.Equal(t, "https://example.com/luna/core.git", settings.Modules.Repository)
	assert.Equal(t, ">= 0.1, < 0.3", settings.Modules.Constraint)
}

func TestLoadSettingsKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yml")
	writeFile(t, path, "history: false\n")

	settings, err := LoadSettings(path, "0.0.1")
	require.NoError(t, err)
	assert.False(t, settings.History.Enabled)
	assert.Equal(t, DefaultHistoryLimit, settings.History.Limit)
	assert.Equal(t, ColorAuto, settings.Color)
	assert.Equal(t, zerolog.WarnLevel, settings.LogLevel)
	assert.Equal(t, DefaultModulesConstraint, settings.Modules.Constraint)
	assert.Equal(t, DefaultCoreDir("0.0.1"), settings.CoreDir)

	empty := filepath.Join(dir, "empty.yml")
	writeFile(t, empty, "")
	settings, err = LoadSettings(empty, "0.0.1")
	require.NoError(t, err)
	assert.True(t, settings.History.Enabled)
}

func TestLoadSettingsRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yml")
	writeFile(t, path, "colour: never\n")

	_, err := LoadSettings(path, "0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field colour not found")
}

func TestLoadSettingsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yml")
	writeFile(t, path, `
history:
  limit: -1
color: sometimes
log_level: chatty
modules:
  constraint: "not a version"
`)

	_, err := LoadSettings(path, "0.0.1")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validation.Issues) != 4 {
		t.Fatalf("expected 4 issues, got %v", validation.Issues)
	}
	assert.Contains(t, err.Error(), "history.limit must not be negative, got -1")
	assert.Contains(t, err.Error(), `color must be one of auto, always, never; got "sometimes"`)
	assert.Contains(t, err.Error(), `log_level "chatty" is not a known level`)
	assert.Contains(t, err.Error(), `modules.constraint "not a version" is invalid`)
}

func TestResolveSettingsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	t.Setenv(SettingsEnv, "")
	t.Setenv(CoreDirEnv, "")

	settings, err := ResolveSettings("0.0.1")
	require.NoError(t, err)
	assert.Empty(t, settings.Path)

	xdgPath := filepath.Join(dir, "xdg", SettingsRelPath)
	writeFile(t, xdgPath, "color: always\n")
	settings, err = ResolveSettings("0.0.1")
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, settings.Color)

	explicit := filepath.Join(dir, "custom.yml")
	writeFile(t, explicit, "color: never\ncore_dir: /from/file\n")
	t.Setenv(SettingsEnv, explicit)
	t.Setenv(CoreDirEnv, "/from/env")
	settings, err = ResolveSettings("0.0.1")
	require.NoError(t, err)
	assert.Equal(t, ColorNever, settings.Color)
	assert.Equal(t, "/from/env", settings.CoreDir)

	written, err := SettingsFilePath()
	require.NoError(t, err)
	assert.Equal(t, explicit, written)
}

func TestSettingsMarshalRoundTrip(t *testing.T) {
	settings := DefaultSettings("0.0.1")
	settings.Color = ColorNever
	settings.Modules.Repository = "https://example.com/core.git"

	data, err := settings.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "settings.yml")
	writeFile(t, path, string(data))
	loaded, err := LoadSettings(path, "0.0.1")
	require.NoError(t, err)
	loaded.Path = ""
	assert.Equal(t, settings, loaded)
}
