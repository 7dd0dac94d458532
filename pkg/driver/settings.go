package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SettingsRelPath is where settings.yml lives below the XDG config home.
const SettingsRelPath = "luna/settings.yml"

const (
	// SettingsEnv names a settings file that replaces the XDG lookup.
	SettingsEnv = "LUNA_SETTINGS"
	// CoreDirEnv overrides the core directory from any settings file.
	CoreDirEnv = "LUNA_CORE"
)

// DefaultHistoryLimit is how many REPL lines are kept when settings.yml
// does not say otherwise.
const DefaultHistoryLimit = 500

// DefaultModulesConstraint selects core module tags compatible with the
// language version.
const DefaultModulesConstraint = "~0.0"

// Settings represents the parsed contents of settings.yml.
type Settings struct {
	Path     string
	CoreDir  string
	History  HistorySettings
	Color    ColorMode
	LogLevel zerolog.Level
	Modules  ModuleSource
}

type HistorySettings struct {
	Enabled bool
	Limit   int
}

// ModuleSource describes where `luna doctor --fetch` installs core modules from.
type ModuleSource struct {
	Repository string
	Constraint string
}

// ColorMode enumerates the accepted values of the color setting.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// IsValid reports whether the color mode is recognised.
func (c ColorMode) IsValid() bool {
	switch c {
	case ColorAuto, ColorAlways, ColorNever:
		return true
	default:
		return false
	}
}

// ValidationError aggregates settings validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "settings: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("settings validation failed")
	if e.Path != "" {
		b.WriteString(" (" + e.Path + ")")
	}
	b.WriteString(":")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings(version string) *Settings {
	return &Settings{
		CoreDir:  DefaultCoreDir(version),
		History:  HistorySettings{Enabled: true, Limit: DefaultHistoryLimit},
		Color:    ColorAuto,
		LogLevel: zerolog.WarnLevel,
		Modules:  ModuleSource{Constraint: DefaultModulesConstraint},
	}
}

// LocateSettings returns the settings file to read: LUNA_SETTINGS when set,
// else an existing XDG config file. found is false when neither exists.
func LocateSettings() (path string, found bool) {
	if env := strings.TrimSpace(os.Getenv(SettingsEnv)); env != "" {
		return env, true
	}
	path, err := xdg.SearchConfigFile(SettingsRelPath)
	if err != nil {
		return "", false
	}
	return path, true
}

// SettingsFilePath returns where settings.yml should be written, creating
// its parent directory.
func SettingsFilePath() (string, error) {
	if env := strings.TrimSpace(os.Getenv(SettingsEnv)); env != "" {
		return env, nil
	}
	return xdg.ConfigFile(SettingsRelPath)
}

// ResolveSettings loads the located settings file, or the defaults when
// there is none, and applies the LUNA_CORE override.
func ResolveSettings(version string) (*Settings, error) {
	settings := DefaultSettings(version)
	if path, found := LocateSettings(); found {
		loaded, err := LoadSettings(path, version)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if core := strings.TrimSpace(os.Getenv(CoreDirEnv)); core != "" {
		settings.CoreDir = expandHome(core)
	}
	return settings, nil
}

// LoadSettings parses settings.yml from disk, returning validated settings.
// Absent fields keep their defaults.
func LoadSettings(path, version string) (*Settings, error) {
	if path == "" {
		return nil, fmt.Errorf("settings: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw settingsFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("settings: parse %s: %w", absPath, err)
	}
	return raw.toSettings(absPath, version)
}

type settingsFile struct {
	CoreDir  string      `yaml:"core_dir"`
	History  historyYAML `yaml:"history"`
	Color    string      `yaml:"color"`
	LogLevel string      `yaml:"log_level"`
	Modules  struct {
		Repository string `yaml:"repository"`
		Constraint string `yaml:"constraint"`
	} `yaml:"modules"`
}

// historyYAML accepts either a boolean (`history: false`) or a mapping
// with enabled and limit.
type historyYAML struct {
	Enabled *bool
	Limit   *int
}

func (h *historyYAML) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*h = historyYAML{}
			return nil
		}
		var enabled bool
		if err := value.Decode(&enabled); err != nil {
			return fmt.Errorf("settings: history must be a boolean or a mapping: %w", err)
		}
		*h = historyYAML{Enabled: &enabled}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Enabled *bool `yaml:"enabled"`
			Limit   *int  `yaml:"limit"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*h = historyYAML{Enabled: raw.Enabled, Limit: raw.Limit}
		return nil
	case yaml.AliasNode:
		return h.UnmarshalYAML(value.Alias)
	case 0:
		*h = historyYAML{}
		return nil
	default:
		return fmt.Errorf("settings: expected boolean or mapping for history but found %s", value.ShortTag())
	}
}

func (sf settingsFile) toSettings(path, version string) (*Settings, error) {
	result := DefaultSettings(version)
	result.Path = path
	errs := ValidationError{Path: path}

	if dir := strings.TrimSpace(sf.CoreDir); dir != "" {
		result.CoreDir = expandHome(dir)
	}
	if sf.History.Enabled != nil {
		result.History.Enabled = *sf.History.Enabled
	}
	if sf.History.Limit != nil {
		if *sf.History.Limit < 0 {
			errs.Issues = append(errs.Issues, fmt.Sprintf("history.limit must not be negative, got %d", *sf.History.Limit))
		} else {
			result.History.Limit = *sf.History.Limit
		}
	}
	if color := strings.TrimSpace(sf.Color); color != "" {
		mode := ColorMode(strings.ToLower(color))
		if !mode.IsValid() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("color must be one of auto, always, never; got %q", color))
		} else {
			result.Color = mode
		}
	}
	if level := strings.TrimSpace(sf.LogLevel); level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("log_level %q is not a known level", level))
		} else {
			result.LogLevel = parsed
		}
	}
	result.Modules.Repository = strings.TrimSpace(sf.Modules.Repository)
	if constraint := strings.TrimSpace(sf.Modules.Constraint); constraint != "" {
		if _, err := semver.NewConstraint(constraint); err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("modules.constraint %q is invalid: %v", constraint, err))
		} else {
			result.Modules.Constraint = constraint
		}
	}

	if len(errs.Issues) > 0 {
		return nil, &errs
	}
	return result, nil
}

// Marshal renders s in the settings.yml format.
func (s *Settings) Marshal() ([]byte, error) {
	var out settingsFile
	out.CoreDir = s.CoreDir
	enabled, limit := s.History.Enabled, s.History.Limit
	out.History = historyYAML{Enabled: &enabled, Limit: &limit}
	out.Color = string(s.Color)
	out.LogLevel = s.LogLevel.String()
	out.Modules.Repository = s.Modules.Repository
	out.Modules.Constraint = s.Modules.Constraint
	return yaml.Marshal(out)
}

func (h historyYAML) MarshalYAML() (any, error) {
	return map[string]any{"enabled": h.Enabled != nil && *h.Enabled, "limit": derefInt(h.Limit)}, nil
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// ModulesConstraint parses the configured tag constraint.
func (s *Settings) ModulesConstraint() (*semver.Constraints, error) {
	constraint := s.Modules.Constraint
	if constraint == "" {
		constraint = DefaultModulesConstraint
	}
	return semver.NewConstraint(constraint)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
