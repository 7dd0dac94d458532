package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

// ErrNoRepository is returned when settings.yml names no modules repository.
var ErrNoRepository = errors.New("fetch: modules.repository is not configured")

// ErrNoMatchingTag is returned when no tag of the repository satisfies the
// configured constraint.
var ErrNoMatchingTag = errors.New("fetch: no tag satisfies the modules constraint")

// FetchOptions configures FetchCoreModules.
type FetchOptions struct {
	Repository string
	Constraint string
	Layout     CoreLayout
	Logger     zerolog.Logger
}

// FetchCoreModules clones the core modules repository, checks out the
// highest semver tag satisfying the constraint and copies its .ln and .lnx
// files into the modules directory of the layout.
func FetchCoreModules(ctx context.Context, opts FetchOptions) (*ModulesLock, error) {
	url := strings.TrimSpace(opts.Repository)
	if url == "" {
		return nil, ErrNoRepository
	}
	constraintText := opts.Constraint
	if constraintText == "" {
		constraintText = DefaultModulesConstraint
	}
	constraint, err := semver.NewConstraint(constraintText)
	if err != nil {
		return nil, fmt.Errorf("fetch: constraint %q: %w", constraintText, err)
	}
	if err := os.MkdirAll(opts.Layout.ModulesDir(), 0o755); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "luna-modules-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	opts.Logger.Info().Str("repository", url).Msg("cloning core modules")
	repo, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:  url,
		Tags: git.AllTags,
	})
	if err != nil {
		return nil, fmt.Errorf("git clone %s: %w", url, err)
	}

	tag, version, err := selectTag(repo, constraint)
	if err != nil {
		return nil, err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision("refs/tags/" + tag))
	if err != nil {
		return nil, fmt.Errorf("resolve tag %s: %w", tag, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		return nil, fmt.Errorf("git checkout %s: %w", tag, err)
	}
	opts.Logger.Info().Str("tag", tag).Str("commit", hash.String()).Msg("checked out core modules")

	files, err := copyModuleFiles(tmpDir, opts.Layout.ModulesDir())
	if err != nil {
		return nil, fmt.Errorf("fetch: install modules: %w", err)
	}
	lock := &ModulesLock{
		Repository: url,
		Tag:        tag,
		Version:    version.String(),
		Commit:     hash.String(),
		Files:      files,
	}
	if err := opts.Layout.writeModulesLock(lock); err != nil {
		return nil, fmt.Errorf("fetch: write lock: %w", err)
	}
	return lock, nil
}

// selectTag returns the highest tag that parses as a version satisfying c.
func selectTag(repo *git.Repository, c *semver.Constraints) (string, *semver.Version, error) {
	refs, err := repo.Tags()
	if err != nil {
		return "", nil, fmt.Errorf("list tags: %w", err)
	}
	type candidate struct {
		name    string
		version *semver.Version
	}
	var candidates []candidate
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		version, err := semver.NewVersion(name)
		if err != nil {
			return nil
		}
		if c.Check(version) {
			candidates = append(candidates, candidate{name: name, version: version})
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if len(candidates) == 0 {
		return "", nil, ErrNoMatchingTag
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].version.GreaterThan(candidates[j].version)
	})
	return candidates[0].name, candidates[0].version, nil
}

func isModuleFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".ln" || ext == ".lnx"
}

// copyModuleFiles copies every .ln and .lnx file below src into dst,
// keeping relative paths, and returns those paths sorted.
func copyModuleFiles(src, dst string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isModuleFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if err := copyFile(path, filepath.Join(dst, rel)); err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
