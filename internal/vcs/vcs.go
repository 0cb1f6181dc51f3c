// Package vcs reads source revision information with go-git.
package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Revision describes the commit a source tree is checked out at.
type Revision struct {
	Hash   string
	Branch string
	// Dirty is true when the worktree has uncommitted changes.
	Dirty bool
}

// Short returns the abbreviated hash.
func (r Revision) Short() string {
	if len(r.Hash) > 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

// ErrNotRepository is returned when path is not inside a git repository.
var ErrNotRepository = errors.New("not a git repository")

// Head returns the revision of the repository containing path. Parent
// directories are searched for the repository root.
func Head(path string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Revision{}, ErrNotRepository
	}
	if err != nil {
		return Revision{}, fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	rev := Revision{Hash: ref.Hash().String()}
	if ref.Name().IsBranch() {
		rev.Branch = ref.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		return rev, nil
	}
	rev.Dirty = !status.IsClean()
	return rev, nil
}
