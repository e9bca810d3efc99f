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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/Deltascope/pkg/validation"
	"github.com/AleutianAI/Deltascope/services/delta/store"
)

const (
	defaultCloneTimeout   = 5 * time.Minute
	defaultCommandTimeout = 30 * time.Second
)

// Option configures a Manager.
type Option func(*Manager)

// WithCloneTimeout bounds clone operations. Values at or below zero are
// ignored.
func WithCloneTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cloneTimeout = d
		}
	}
}

// WithCommandTimeout bounds every git operation except clone. Values at
// or below zero are ignored.
func WithCommandTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.commandTimeout = d
		}
	}
}

// WithStore caches file snapshots read via FileAt, keyed by repo,
// commit, and path, so repeated runs over a dataset skip git entirely.
func WithStore(st *store.Store) Option {
	return func(m *Manager) {
		m.cache = st
	}
}

// Manager caches git clones under one directory, one clone per
// repository name.
//
// Thread Safety:
//
//	Safe for concurrent use. Clones of distinct repositories proceed in
//	parallel; operations on one repository serialize on its Repo.
type Manager struct {
	cacheDir       string
	cloneTimeout   time.Duration
	commandTimeout time.Duration
	cache          *store.Store

	mu    sync.Mutex
	repos map[string]*Repo
}

// NewManager creates a manager rooted at cacheDir, creating the
// directory if needed.
func NewManager(cacheDir string, opts ...Option) (*Manager, error) {
	if cacheDir == "" {
		return nil, errors.New("repomgr: cache directory is required")
	}
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	m := &Manager{
		cacheDir:       cacheDir,
		cloneTimeout:   defaultCloneTimeout,
		commandTimeout: defaultCommandTimeout,
		repos:          make(map[string]*Repo),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Repo is one cached clone. The same name always yields the same Repo,
// so its lock serializes working-tree use across goroutines.
type Repo struct {
	m    *Manager
	name string
	url  string
	dir  string

	mu sync.Mutex
}

// Clone returns the cached clone for name, cloning it first if needed.
//
// Description:
//
//	A shallow clone is attempted first; when the server rejects it the
//	partial directory is removed and a full clone runs. A directory
//	left behind without .git, from a run that died mid-clone, is
//	removed and recloned.
//
// Inputs:
//   - ctx: bounds the clone together with the manager's clone timeout.
//   - repoURL: anything git clone accepts.
//   - name: cache directory name, typically owner_repo. Must be a
//     single path component; the name is joined onto the cache root.
//
// Outputs:
//   - *Repo: handle for the working tree. Stable across calls.
//   - error: ErrCloneFailed (wrapped) when both attempts fail.
func (m *Manager) Clone(ctx context.Context, repoURL, name string) (*Repo, error) {
	if err := validation.ValidateCacheName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	r, ok := m.repos[name]
	if !ok {
		r = &Repo{m: m, name: name, url: repoURL, dir: filepath.Join(m.cacheDir, name)}
		m.repos[name] = r
	}
	m.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cloned() {
		slog.Debug("using cached repository", "name", name, "dir", r.dir)
		return r, nil
	}
	if _, err := os.Stat(r.dir); err == nil {
		if err := os.RemoveAll(r.dir); err != nil {
			return nil, fmt.Errorf("removing stale clone %q: %w", r.dir, err)
		}
	}

	slog.Info("cloning repository", "url", repoURL, "name", name)
	if _, err := m.git(ctx, "", m.cloneTimeout, "clone", "--depth", "1", repoURL, r.dir); err != nil {
		slog.Warn("shallow clone failed, retrying full clone", "name", name, "error", err)
		if rmErr := os.RemoveAll(r.dir); rmErr != nil {
			return nil, fmt.Errorf("removing failed clone %q: %w", r.dir, rmErr)
		}
		if _, err := m.git(ctx, "", m.cloneTimeout, "clone", repoURL, r.dir); err != nil {
			_ = os.RemoveAll(r.dir)
			return nil, fmt.Errorf("%w: %s: %s", ErrCloneFailed, repoURL, err)
		}
	}
	return r, nil
}

// Remove deletes a cached clone and forgets its handle.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	r, ok := m.repos[name]
	if ok {
		delete(m.repos, name)
	}
	m.mu.Unlock()

	dir := filepath.Join(m.cacheDir, name)
	if r != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		dir = r.dir
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing clone %q: %w", dir, err)
	}
	return nil
}

// Dir is the working-tree path, for scope resolution and direct reads.
func (r *Repo) Dir() string {
	return r.dir
}

// Lock serializes working-tree use between analyses of the same
// repository. Checkout mutates the tree, so hold the lock from the
// checkout until the last file read.
func (r *Repo) Lock() { r.mu.Lock() }

// Unlock releases the working-tree lock.
func (r *Repo) Unlock() { r.mu.Unlock() }

// Checkout forces the working tree to a commit. Shallow clones fetch
// the commit first, unshallowing when the server will not serve a
// single commit.
func (r *Repo) Checkout(ctx context.Context, commit string) error {
	if r.shallow() {
		if _, err := r.m.git(ctx, r.dir, r.m.cloneTimeout, "fetch", "--depth", "1", "origin", commit); err != nil {
			slog.Debug("single-commit fetch failed, unshallowing", "name", r.name, "error", err)
			if _, err := r.m.git(ctx, r.dir, r.m.cloneTimeout, "fetch", "--unshallow"); err != nil {
				return fmt.Errorf("unshallowing %s: %w", r.name, err)
			}
		}
	}

	if _, err := r.m.git(ctx, r.dir, r.m.commandTimeout, "checkout", "-f", commit); err != nil {
		return fmt.Errorf("checking out %s at %s: %w", r.name, shortCommit(commit), err)
	}
	slog.Debug("checked out commit", "name", r.name, "commit", shortCommit(commit))
	return nil
}

// FileAt reads one file as of a commit, through the snapshot cache when
// the manager has one. The working tree is not consulted, so FileAt is
// safe without the repo lock.
func (r *Repo) FileAt(ctx context.Context, commit, path string) (string, error) {
	var key []byte
	if r.m.cache != nil {
		key = store.FileKey(r.name, commit, path)
		if val, ok, err := r.m.cache.Get(ctx, key); err == nil && ok {
			return string(val), nil
		}
	}

	out, err := r.m.git(ctx, r.dir, r.m.commandTimeout, "show", commit+":"+path)
	if err != nil {
		return "", fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, shortCommit(commit))
	}

	if r.m.cache != nil {
		if err := r.m.cache.Put(ctx, key, []byte(out), 0); err != nil {
			slog.Debug("caching file snapshot failed", "path", path, "error", err)
		}
	}
	return out, nil
}

// WorkingFile reads one file from the current working tree. Callers
// hold the repo lock across the checkout that positioned the tree.
func (r *Repo) WorkingFile(path string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return string(raw), nil
}

// Head reports the commit the working tree sits at.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.m.git(ctx, r.dir, r.m.commandTimeout, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving HEAD of %s: %w", r.name, err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) cloned() bool {
	info, err := os.Stat(filepath.Join(r.dir, ".git"))
	return err == nil && info.IsDir()
}

func (r *Repo) shallow() bool {
	_, err := os.Stat(filepath.Join(r.dir, ".git", "shallow"))
	return err == nil
}

// git runs one git command with a timeout and captured output.
func (m *Manager) git(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
