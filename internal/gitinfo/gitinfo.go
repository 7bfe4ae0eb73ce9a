// Package gitinfo resolves per-file last-commit times when the docs tree
// lives inside a git work tree, so pages can carry an accurate "last
// updated" stamp.
package gitinfo

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
)

// Resolver answers last-modified queries against one repository.
type Resolver struct {
	repo *git.Repository
	root string
}

// Open locates the repository containing dir, walking upwards like the git
// CLI does. A nil Resolver with no error means dir is not under version
// control; callers treat that as "no stamps".
func Open(dir string) (*Resolver, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve dir: %w", err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return nil, nil
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository worktree: %w", err)
	}

	slog.Debug("Git repository detected for docs tree", "root", wt.Filesystem.Root())
	return &Resolver{repo: repo, root: wt.Filesystem.Root()}, nil
}

// LastModified returns the committer time of the newest commit touching
// path (absolute or relative to the working directory). The boolean is
// false for untracked or never-committed files.
func (r *Resolver) LastModified(path string) (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, false
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return time.Time{}, false
	}
	rel = filepath.ToSlash(rel)

	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return time.Time{}, false
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return time.Time{}, false
	}
	return commit.Committer.When, true
}
