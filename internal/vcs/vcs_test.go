package vcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	sub := filepath.Join(dir, "mypkg")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.go"), []byte("package mypkg\n"), 0o600))

	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add("mypkg/a.go")
	require.NoError(t, err)
	sha, err := w.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)

	rev, err := Head(sub)
	require.NoError(t, err)
	require.Equal(t, sha.String(), rev.Hash)
	require.Equal(t, sha.String()[:12], rev.Short())
	require.False(t, rev.Dirty)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.go"), []byte("package mypkg\n\nvar X = 1\n"), 0o600))
	rev, err = Head(dir)
	require.NoError(t, err)
	require.True(t, rev.Dirty)
}

func TestHead_NotRepository(t *testing.T) {
	_, err := Head(t.TempDir())
	require.ErrorIs(t, err, ErrNotRepository)
}
