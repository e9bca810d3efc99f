// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package delta provides the HTTP service for program-graph comparison.
//
// The service exposes endpoints for:
//   - Comparing two versions of one source file across graph kinds
//   - Analyzing every file pair a unified diff touches
//   - Health and readiness checks
package delta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
	"github.com/AleutianAI/Deltascope/services/delta/ast"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
	"github.com/AleutianAI/Deltascope/services/delta/patch"
)

// ServiceConfig configures the delta comparison service.
type ServiceConfig struct {
	// MaxCompareDuration is the wall-clock limit for one request.
	// Default: 30s
	MaxCompareDuration time.Duration

	// MaxSourceBytes caps each side of a compare request.
	// Default: 1MB
	MaxSourceBytes int

	// MaxPatchBytes caps the patch body of a patch request.
	// Default: 4MB
	MaxPatchBytes int

	// MaxPatchFiles caps the changed files accepted per patch request.
	// Default: 100
	MaxPatchFiles int

	// Kinds are the comparison kinds applied when a request names none.
	// Default: all kinds.
	Kinds []analyzer.Kind

	// Strategy selects the comparison algorithm (hybrid, astar, beam).
	// Default: hybrid
	Strategy string

	// BeamWidth overrides the beam width. 0 keeps the strategy default.
	BeamWidth int

	// Budget overrides the per-comparison wall-clock budget inside the
	// search. 0 keeps the strategy default.
	Budget time.Duration

	// SSA selects the versioned data flow builder. Default: true
	SSA bool
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxCompareDuration: 30 * time.Second,
		MaxSourceBytes:     1 << 20, // 1MB
		MaxPatchBytes:      4 << 20, // 4MB
		MaxPatchFiles:      100,
		Kinds:              analyzer.AllKinds(),
		Strategy:           ged.StrategyHybrid,
		SSA:                true,
	}
}

// Service is the delta comparison service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. The strategy carries
//	configuration only and each request builds its own analyzer, so
//	requests share no mutable state.
type Service struct {
	config   ServiceConfig
	strategy ged.Strategy

	readyMu sync.Mutex
	ready   bool
}

// NewService creates a new delta comparison service.
//
// Description:
//
//	Builds the comparison strategy from the configuration. An empty
//	strategy name falls back to the hybrid selector.
//
// Inputs:
//
//	config - Service configuration
//
// Outputs:
//
//	*Service - The configured service
//	error - Non-nil when the strategy name is not recognized
func NewService(config ServiceConfig) (*Service, error) {
	if config.Strategy == "" {
		config.Strategy = ged.StrategyHybrid
	}
	if len(config.Kinds) == 0 {
		config.Kinds = analyzer.AllKinds()
	}

	var opts []ged.Option
	if config.BeamWidth > 0 {
		opts = append(opts, ged.WithBeamWidth(config.BeamWidth))
	}
	if config.Budget > 0 {
		opts = append(opts, ged.WithBudget(config.Budget))
	}
	strategy, err := ged.ParseStrategy(config.Strategy, opts...)
	if err != nil {
		return nil, err
	}

	return &Service{config: config, strategy: strategy}, nil
}

// Compare compares two versions of one source file.
//
// Description:
//
//	Runs the full graph comparison pipeline on the request pair: parse
//	both sides, build the graphs the requested kinds need, and compute
//	one distance record per kind. Per-kind failures degrade to sentinel
//	records inside the result instead of failing the request.
//
// Inputs:
//
//	ctx - Context for cancellation
//	req - The comparison request
//
// Outputs:
//
//	*CompareResponse - One record per requested kind
//	error - Non-nil when the request fails validation
//
// Errors:
//
//	ErrNoSources - Both sides are empty
//	ErrSourceTooLarge - One side exceeds MaxSourceBytes
//	ErrUnknownKind - A requested kind is not recognized
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	if req.Before == "" && req.After == "" {
		return nil, ErrNoSources
	}
	if limit := s.config.MaxSourceBytes; limit > 0 && (len(req.Before) > limit || len(req.After) > limit) {
		return nil, fmt.Errorf("%w: limit %d bytes per side", ErrSourceTooLarge, limit)
	}

	kinds, err := resolveKinds(req.Kinds)
	if err != nil {
		return nil, err
	}

	path := req.Path
	if path == "" {
		path = "source.py"
	}

	if s.config.MaxCompareDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MaxCompareDuration)
		defer cancel()
	}

	res := s.analyzer(kinds).Compare(ctx, path, req.Before, req.After)
	return &CompareResponse{
		Path:      res.Path,
		Records:   res.Records,
		ElapsedMS: res.ElapsedMS,
	}, nil
}

// Patch analyzes every Python file pair a unified diff touches.
//
// Description:
//
//	Reconstructs both sides of each changed file from the diff hunks and
//	compares the pairs in patch order. Non-Python files are skipped. A
//	patch touching no Python files yields an empty file list, not an
//	error.
//
// Inputs:
//
//	ctx - Context for cancellation
//	req - The patch request
//
// Outputs:
//
//	*PatchResponse - One comparison result per changed Python file
//	error - Non-nil when the request fails validation or times out
//
// Errors:
//
//	ErrPatchTooLarge - Patch body exceeds MaxPatchBytes
//	ErrPatchInvalid - Patch is not a parseable unified diff
//	ErrTooManyFiles - Patch touches more than MaxPatchFiles files
//	ErrUnknownKind - A requested kind is not recognized
//	ErrCompareTimeout - MaxCompareDuration elapsed mid-analysis
func (s *Service) Patch(ctx context.Context, req PatchRequest) (*PatchResponse, error) {
	if limit := s.config.MaxPatchBytes; limit > 0 && len(req.Patch) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrPatchTooLarge, limit)
	}

	kinds, err := resolveKinds(req.Kinds)
	if err != nil {
		return nil, err
	}

	pairs, err := patch.ExtractFilePairs(req.Patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchInvalid, err)
	}
	if limit := s.config.MaxPatchFiles; limit > 0 && len(pairs) > limit {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(pairs), limit)
	}

	if s.config.MaxCompareDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MaxCompareDuration)
		defer cancel()
	}

	a := s.analyzer(kinds)
	start := time.Now()
	resp := &PatchResponse{Files: make([]analyzer.FileResult, 0, len(pairs))}
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrCompareTimeout
			}
			return nil, err
		}
		fr := a.Compare(ctx, pair.Path, pair.Before, pair.After)
		fr.Changed = true
		resp.Files = append(resp.Files, fr)
	}
	resp.FilesCompared = len(resp.Files)
	resp.ElapsedMS = time.Since(start).Milliseconds()
	return resp, nil
}

// Ready reports whether the comparison pipeline can do real work.
//
// Description:
//
//	Pushes a probe source through the parser on first call and caches a
//	successful outcome. Failures are retried on the next call so a
//	slow-starting runtime converges to ready instead of sticking.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) Ready(ctx context.Context) bool {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	if s.ready {
		return true
	}

	p := ast.NewPythonParser()
	mod, err := p.Parse(ctx, []byte("x = 1\n"), "probe.py")
	if err != nil {
		slog.Error("readiness probe failed", "error", err)
		return false
	}
	mod.Close()
	s.ready = true
	return true
}

// Config returns the service configuration.
func (s *Service) Config() ServiceConfig {
	return s.config
}

// analyzer builds the per-request analyzer. Analyzer values are small;
// the parser allocates its tree-sitter state per Parse call, so this
// costs one allocation, not a runtime.
func (s *Service) analyzer(kinds []analyzer.Kind) *analyzer.Analyzer {
	if len(kinds) == 0 {
		kinds = s.config.Kinds
	}
	return analyzer.NewAnalyzer(
		analyzer.WithStrategy(s.strategy),
		analyzer.WithKinds(kinds...),
		analyzer.WithSSA(s.config.SSA),
	)
}

// resolveKinds maps request strings onto comparison kinds. An empty list
// resolves to nil so the caller's default applies.
func resolveKinds(names []string) ([]analyzer.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	kinds := make([]analyzer.Kind, 0, len(names))
	for _, n := range names {
		k, err := analyzer.ParseKind(n)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownKind, n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
