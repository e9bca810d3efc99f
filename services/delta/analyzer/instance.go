// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Deltascope/pkg/validation"
	"github.com/AleutianAI/Deltascope/services/delta/dataset"
	"github.com/AleutianAI/Deltascope/services/delta/patch"
	"github.com/AleutianAI/Deltascope/services/delta/repomgr"
	"github.com/AleutianAI/Deltascope/services/delta/scope"
)

// RepoResolver maps a dataset instance to the clone URL and cache name
// the repository manager should use. The default resolver normalizes the
// instance's repo field; tests substitute one pointing at local fixtures.
type RepoResolver func(inst dataset.Instance) (cloneURL, cacheName string)

// InstanceOption configures an InstanceAnalyzer.
type InstanceOption func(*InstanceAnalyzer)

// WithScopeOptions forwards options to the scope resolver built for each
// instance.
func WithScopeOptions(opts ...scope.Option) InstanceOption {
	return func(ia *InstanceAnalyzer) {
		ia.scopeOpts = opts
	}
}

// WithRepoResolver replaces the clone URL resolution.
func WithRepoResolver(r RepoResolver) InstanceOption {
	return func(ia *InstanceAnalyzer) {
		if r != nil {
			ia.resolve = r
		}
	}
}

// InstanceAnalyzer runs the full analysis workflow for benchmark
// instances: clone, checkout, scope expansion, in-memory patch
// application, and per-file comparison.
//
// Thread Safety:
//
//	Safe for concurrent use. Instances sharing a repository serialize on
//	the repository manager's per-repo lock for the checkout and scope
//	walk; everything after reads from the object store and memory.
type InstanceAnalyzer struct {
	analyzer  *Analyzer
	repos     *repomgr.Manager
	scopeOpts []scope.Option
	resolve   RepoResolver
}

// NewInstanceAnalyzer wires an analyzer to a repository manager.
func NewInstanceAnalyzer(a *Analyzer, repos *repomgr.Manager, opts ...InstanceOption) *InstanceAnalyzer {
	ia := &InstanceAnalyzer{
		analyzer: a,
		repos:    repos,
		resolve: func(inst dataset.Instance) (string, string) {
			return inst.CloneURL(), inst.CacheName()
		},
	}
	for _, opt := range opts {
		opt(ia)
	}
	return ia
}

// Analyze runs one instance end to end.
//
// Description:
//
//	Clones or reuses the instance's repository, checks out the base
//	commit, expands the patch's changed files to module scope, and
//	compares the before and after version of every Python file in
//	scope. The after version is reconstructed in memory from the patch,
//	so the cached clone's working tree is never modified.
//
//	Analyze never returns a Go error. Every failure, from a missing
//	dataset field to a clone that would not complete, is recorded in the
//	envelope's Errors list, so batch runs always yield one envelope per
//	instance.
//
// Inputs:
//   - ctx: Context for cancellation, checked between git operations and
//     between file comparisons. Cancellation mid-run yields a partial
//     envelope with the cancellation recorded.
//   - inst: Dataset instance. Repo, BaseCommit, and Patch are required.
//
// Outputs:
//   - *InstanceAnalysis: Envelope with per-file records, scope summary,
//     and accumulated errors. Never nil.
//
// Thread Safety: Safe for concurrent use.
func (ia *InstanceAnalyzer) Analyze(ctx context.Context, inst dataset.Instance) *InstanceAnalysis {
	ctx, span := tracer.Start(ctx, "analyzer.AnalyzeInstance")
	defer span.End()
	span.SetAttributes(attribute.String("instance_id", inst.InstanceID))

	start := time.Now()
	env := &InstanceAnalysis{InstanceID: inst.InstanceID}
	defer func() {
		env.ElapsedMS = time.Since(start).Milliseconds()
		span.SetAttributes(
			attribute.Int("files", len(env.Files)),
			attribute.Int("errors", len(env.Errors)),
		)
		if len(env.Errors) > 0 {
			span.SetStatus(codes.Error, env.Errors[0])
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	if inst.Repo == "" || inst.BaseCommit == "" || inst.Patch == "" {
		env.failf("missing required fields: repo, base_commit, or patch")
		return env
	}
	// The commit goes to git as an argument, so dataset content never
	// gets to smuggle in a flag or a refspec.
	if err := validation.ValidateCommitSHA(inst.BaseCommit); err != nil {
		env.failf("invalid base commit: %v", err)
		return env
	}

	cloneURL, cacheName := ia.resolve(inst)
	env.Repo = repoIdentifier(cloneURL)
	env.BaseCommit = inst.BaseCommit

	slog.Info("analyzing instance",
		slog.String("instance_id", inst.InstanceID),
		slog.String("repo", env.Repo),
		slog.String("base_commit", shortCommit(inst.BaseCommit)),
	)

	repo, err := ia.repos.Clone(ctx, cloneURL, cacheName)
	if err != nil {
		env.failf("clone failed: %v", err)
		return env
	}

	changed, err := patch.ChangedFiles(inst.Patch)
	if err != nil {
		env.failf("reading patch: %v", err)
		return env
	}
	env.NumChangedFiles = len(changed)
	env.ChangedFiles = changed
	if len(changed) == 0 {
		env.failf("no files found in patch")
		return env
	}

	// The checkout and the scope walk both touch the working tree, so
	// they share the repo lock. Everything after reads the object store.
	var sc *scope.Scope
	err = func() error {
		repo.Lock()
		defer repo.Unlock()
		if err := repo.Checkout(ctx, inst.BaseCommit); err != nil {
			return err
		}
		var expandErr error
		sc, expandErr = scope.NewResolver(repo.Dir(), ia.scopeOpts...).Expand(ctx, changed)
		return expandErr
	}()
	if err != nil {
		env.failf("preparing scope at %s: %v", shortCommit(inst.BaseCommit), err)
		return env
	}
	env.Scope = &ScopeSummary{
		Primary:       sc.Primary,
		Secondary:     sc.Secondary,
		DirectImports: sc.DirectImports,
		TotalSize:     sc.Size(),
	}

	changedSet := make(map[string]bool, len(changed))
	for _, f := range changed {
		changedSet[f] = true
	}

	before := make(map[string]string, len(sc.All))
	for _, f := range sc.All {
		content, err := repo.FileAt(ctx, inst.BaseCommit, f)
		if err != nil {
			// Files created by the patch have no before version.
			slog.Debug("no before content", slog.String("file", f), slog.String("error", err.Error()))
			content = ""
		}
		before[f] = content
	}

	after := make(map[string]string, len(sc.All))
	for _, f := range sc.All {
		if !changedSet[f] {
			after[f] = before[f]
			continue
		}
		content, err := patch.ApplyToContent(before[f], inst.Patch, f)
		if err != nil {
			slog.Warn("patch application failed, comparing unchanged content",
				slog.String("file", f),
				slog.String("error", err.Error()),
			)
			content = before[f]
		}
		after[f] = content
	}

	for _, f := range sc.All {
		if !strings.HasSuffix(f, ".py") {
			continue
		}
		if err := ctx.Err(); err != nil {
			env.failf("analysis cancelled: %v", err)
			break
		}
		fr := ia.analyzer.Compare(ctx, f, before[f], after[f])
		fr.Changed = changedSet[f]
		env.Files = append(env.Files, fr)
	}

	slog.Info("instance analysis complete",
		slog.String("instance_id", inst.InstanceID),
		slog.Int("files", len(env.Files)),
		slog.Int("errors", len(env.Errors)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return env
}

// repoIdentifier reduces a clone URL to the owner/repo form carried in
// results.
func repoIdentifier(cloneURL string) string {
	id := strings.TrimPrefix(cloneURL, "https://github.com/")
	return strings.TrimSuffix(id, ".git")
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
