// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repomgr

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/store"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{
		"-C", dir,
		"-c", "user.email=delta@test",
		"-c", "user.name=delta",
		"-c", "commit.gpgsign=false",
	}
	out, err := exec.Command("git", append(base, args...)...).CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

// sourceRepo builds a two-commit repository: app.py returns 1 at the
// first commit and 2 at the second.
func sourceRepo(t *testing.T) (dir, first, second string) {
	t.Helper()
	dir = t.TempDir()
	runGit(t, dir, "init", "-q")

	writeFile(t, dir, "app.py", "def main():\n    return 1\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	first = runGit(t, dir, "rev-parse", "HEAD")

	writeFile(t, dir, "app.py", "def main():\n    return 2\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "update")
	second = runGit(t, dir, "rev-parse", "HEAD")
	return dir, first, second
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestCloneAndFileAt(t *testing.T) {
	requireGit(t)
	src, first, second := sourceRepo(t)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	repo, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)

	before, err := repo.FileAt(context.Background(), first, "app.py")
	require.NoError(t, err)
	assert.Equal(t, "def main():\n    return 1\n", before)

	after, err := repo.FileAt(context.Background(), second, "app.py")
	require.NoError(t, err)
	assert.Equal(t, "def main():\n    return 2\n", after)
}

func TestFileAtMissingPath(t *testing.T) {
	requireGit(t)
	src, first, _ := sourceRepo(t)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	repo, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)

	_, err = repo.FileAt(context.Background(), first, "absent.py")
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestCheckoutPositionsWorkingTree(t *testing.T) {
	requireGit(t)
	src, first, _ := sourceRepo(t)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	repo, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(context.Background(), first))

	content, err := repo.WorkingFile("app.py")
	require.NoError(t, err)
	assert.Equal(t, "def main():\n    return 1\n", content)

	head, err := repo.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func TestCloneReturnsCachedHandle(t *testing.T) {
	requireGit(t)
	src, _, _ := sourceRepo(t)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	repo1, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)
	repo2, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)
	assert.Same(t, repo1, repo2)
}

func TestFileAtReadsStoreFirst(t *testing.T) {
	requireGit(t)
	src, first, _ := sourceRepo(t)

	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m, err := NewManager(t.TempDir(), WithStore(st))
	require.NoError(t, err)
	repo, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)

	key := store.FileKey("owner_repo", first, "app.py")
	require.NoError(t, st.Put(context.Background(), key, []byte("cached snapshot"), 0))

	content, err := repo.FileAt(context.Background(), first, "app.py")
	require.NoError(t, err)
	assert.Equal(t, "cached snapshot", content)
}

func TestRemoveDeletesClone(t *testing.T) {
	requireGit(t)
	src, _, _ := sourceRepo(t)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	repo, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)

	require.NoError(t, m.Remove("owner_repo"))
	_, statErr := os.Stat(repo.Dir())
	assert.True(t, os.IsNotExist(statErr))

	// A fresh clone after removal starts over cleanly.
	again, err := m.Clone(context.Background(), src, "owner_repo")
	require.NoError(t, err)
	assert.NotSame(t, repo, again)
}

func TestCloneBadURL(t *testing.T) {
	requireGit(t)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = m.Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), "bad")
	require.ErrorIs(t, err, ErrCloneFailed)
}

func TestCloneRejectsUnsafeName(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	// A traversal name must be rejected before any path is built.
	for _, name := range []string{"../escape", "a/b", ".."} {
		_, err := m.Clone(context.Background(), "https://example.com/x.git", name)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "invalid cache name")
	}
}
