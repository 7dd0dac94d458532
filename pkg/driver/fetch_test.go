package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moduleRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newModuleRepo(t *testing.T) *moduleRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return &moduleRepo{t: t, dir: dir, repo: repo}
}

// commit writes files, commits them and tags the commit when tag is set.
func (m *moduleRepo) commit(files map[string]string, tag string) plumbing.Hash {
	m.t.Helper()
	worktree, err := m.repo.Worktree()
	if err != nil {
		m.t.Fatalf("Worktree: %v", err)
	}
	for name, contents := range files {
		writeFile(m.t, filepath.Join(m.dir, name), contents)
		if _, err := worktree.Add(name); err != nil {
			m.t.Fatalf("add %s: %v", name, err)
		}
	}
	hash, err := worktree.Commit("update "+tag, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Luna CLI",
			Email: "luna@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		m.t.Fatalf("Commit: %v", err)
	}
	if tag != "" {
		if _, err := m.repo.CreateTag(tag, hash, nil); err != nil {
			m.t.Fatalf("CreateTag %s: %v", tag, err)
		}
	}
	return hash
}

func TestFetchCoreModulesPicksHighestMatchingTag(t *testing.T) {
	source := newModuleRepo(t)
	source.commit(map[string]string{
		"strings.lnx": "out fn shout s: s + '!'\n",
		"README.md":   "core modules\n",
	}, "v0.0.1")
	want := source.commit(map[string]string{
		"strings.lnx":   "out fn shout s: s + '!!'\n",
		"extra/math.ln": "out fn sq x: x * x\n",
	}, "v0.0.2")
	source.commit(map[string]string{"strings.lnx": "out fn shout s: s\n"}, "v0.1.0")
	source.commit(map[string]string{"strings.lnx": "out fn shout s: s + '?'\n"}, "not-a-version")

	layout := CoreLayout{Root: t.TempDir()}
	lock, err := FetchCoreModules(context.Background(), FetchOptions{
		Repository: source.dir,
		Constraint: "~0.0",
		Layout:     layout,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, "v0.0.2", lock.Tag)
	assert.Equal(t, "0.0.2", lock.Version)
	assert.Equal(t, want.String(), lock.Commit)
	assert.Equal(t, []string{"extra/math.ln", "strings.lnx"}, lock.Files)

	data, err := os.ReadFile(filepath.Join(layout.ModulesDir(), "strings.lnx"))
	require.NoError(t, err)
	assert.Equal(t, "out fn shout s: s + '!!'\n", string(data))
	_, err = os.Stat(filepath.Join(layout.ModulesDir(), "README.md"))
	assert.True(t, os.IsNotExist(err), "non-module files must not be installed")

	stored, err := layout.ReadModulesLock()
	require.NoError(t, err)
	assert.Equal(t, lock, stored)
}

func TestFetchCoreModulesErrors(t *testing.T) {
	layout := CoreLayout{Root: t.TempDir()}
	_, err := FetchCoreModules(context.Background(), FetchOptions{Layout: layout, Logger: zerolog.Nop()})
	if !errors.Is(err, ErrNoRepository) {
		t.Fatalf("expected ErrNoRepository, got %v", err)
	}

	source := newModuleRepo(t)
	source.commit(map[string]string{"a.ln": "x = 1\n"}, "v2.0.0")
	_, err = FetchCoreModules(context.Background(), FetchOptions{
		Repository: source.dir,
		Constraint: "~0.0",
		Layout:     layout,
		Logger:     zerolog.Nop(),
	})
	if !errors.Is(err, ErrNoMatchingTag) {
		t.Fatalf("expected ErrNoMatchingTag, got %v", err)
	}

	_, err = FetchCoreModules(context.Background(), FetchOptions{
		Repository: source.dir,
		Constraint: "nonsense",
		Layout:     layout,
		Logger:     zerolog.Nop(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `fetch: constraint "nonsense"`)
}
