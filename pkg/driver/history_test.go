package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryDeduplicatesAndLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	store, err := OpenHistory(path, 3)
	require.NoError(t, err)
	assert.Empty(t, store.Entries())

	for _, line := range []string{"a = 1", "  ", "b = 2", "a = 1", "c = 3", "d = 4\n"} {
		store.Add(line)
	}
	assert.Equal(t, []string{"a = 1", "c = 3", "d = 4"}, store.Entries())

	require.NoError(t, store.Save())
	reopened, err := OpenHistory(path, 3)
	require.NoError(t, err)
	assert.Equal(t, store.Entries(), reopened.Entries())

	smaller, err := OpenHistory(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c = 3", "d = 4"}, smaller.Entries())
}

func TestHistoryRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	writeFile(t, path, "{not json")
	_, err := OpenHistory(path, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history: parse")
}

func TestEnsureCoreLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "core")
	layout, created, err := EnsureCoreLayout(root, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, layout.Exists())
	assert.Equal(t, filepath.Join(root, "modules"), layout.ModulesDir())

	_, created, err = EnsureCoreLayout(root, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, created)

	path, created, err := layout.EnsureConfig()
	require.NoError(t, err)
	assert.True(t, created)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigSource, string(data))

	writeFile(t, path, "config: out = {}\n")
	_, created, err = layout.EnsureConfig()
	require.NoError(t, err)
	assert.False(t, created)

	lock, err := layout.ReadModulesLock()
	require.NoError(t, err)
	assert.Nil(t, lock)
}

func TestDefaultCoreDirCarriesVersion(t *testing.T) {
	dir := DefaultCoreDir("1.2.3")
	assert.Equal(t, "v1.2.3", filepath.Base(dir))
	assert.Equal(t, "luna-core", filepath.Base(filepath.Dir(dir)))
}
