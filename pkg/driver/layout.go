package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	goruntime "runtime"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	modulesDirName  = "modules"
	configFileName  = "config.lnx"
	historyFileName = "history.json"
	lockFileName    = "modules.lock.json"
)

// DefaultConfigSource is written to config.lnx when `luna config` creates it.
const DefaultConfigSource = `# Luna configuration. The exported config object is read when luna starts.
config: out = {
  before_exit: lambda {}
}
`

// DefaultCoreDir is ~/luna-core/v<version> on linux and darwin, and
// ~/Documents/luna-core/v<version> elsewhere.
func DefaultCoreDir(version string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	leaf := filepath.Join("luna-core", "v"+version)
	switch goruntime.GOOS {
	case "linux", "darwin":
		return filepath.Join(home, leaf)
	default:
		return filepath.Join(home, "Documents", leaf)
	}
}

// CoreLayout names the files kept in a core directory.
type CoreLayout struct {
	Root string
}

func (l CoreLayout) ModulesDir() string  { return filepath.Join(l.Root, modulesDirName) }
func (l CoreLayout) ConfigFile() string  { return filepath.Join(l.Root, configFileName) }
func (l CoreLayout) HistoryFile() string { return filepath.Join(l.Root, historyFileName) }
func (l CoreLayout) LockFile() string    { return filepath.Join(l.ModulesDir(), lockFileName) }

// Exists reports whether the modules directory is present.
func (l CoreLayout) Exists() bool {
	info, err := os.Stat(l.ModulesDir())
	return err == nil && info.IsDir()
}

// EnsureCoreLayout creates root and its modules directory. created is true
// when the modules directory did not exist before.
func EnsureCoreLayout(root string, logger zerolog.Logger) (layout CoreLayout, created bool, err error) {
	if root == "" {
		return CoreLayout{}, false, fmt.Errorf("core: empty directory")
	}
	layout = CoreLayout{Root: root}
	if layout.Exists() {
		return layout, false, nil
	}
	if err := os.MkdirAll(layout.ModulesDir(), 0o755); err != nil {
		return CoreLayout{}, false, fmt.Errorf("core: create %s: %w", layout.ModulesDir(), err)
	}
	logger.Info().Str("dir", layout.ModulesDir()).Msg("created core modules directory")
	return layout, true, nil
}

// EnsureConfig writes DefaultConfigSource to config.lnx unless the file
// already exists.
func (l CoreLayout) EnsureConfig() (path string, created bool, err error) {
	path = l.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return "", false, fmt.Errorf("core: create %s: %w", l.Root, err)
	}
	if err := os.WriteFile(path, []byte(DefaultConfigSource), 0o644); err != nil {
		return "", false, fmt.Errorf("core: write %s: %w", path, err)
	}
	return path, true, nil
}

// ModulesLock records which tag of the core modules repository is installed.
type ModulesLock struct {
	Repository string   `json:"repository"`
	Tag        string   `json:"tag"`
	Version    string   `json:"version"`
	Commit     string   `json:"commit"`
	Files      []string `json:"files"`
}

// ReadModulesLock returns the installed lock, or nil when nothing was fetched.
func (l CoreLayout) ReadModulesLock() (*ModulesLock, error) {
	data, err := os.ReadFile(l.LockFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lock ModulesLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("core: parse %s: %w", l.LockFile(), err)
	}
	return &lock, nil
}

func (l CoreLayout) writeModulesLock(lock *ModulesLock) error {
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.LockFile(), append(data, '\n'), 0o644)
}
