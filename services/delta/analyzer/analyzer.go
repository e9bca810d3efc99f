// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer compares two versions of Python source across the
// graph representations the builders produce: control flow, data flow,
// call graph, and the merged dependence and property graphs.
//
// Each comparison yields one Record per requested kind. Failures are
// isolated at the record boundary: a panic or error while computing one
// kind produces a sentinel record for that kind and leaves the siblings
// untouched. On top of the per-pair comparison the package runs whole
// benchmark instances (clone, checkout, scope expansion, patch
// application) and batches of instances on a bounded worker pool.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/Deltascope/services/delta/ast"
	"github.com/AleutianAI/Deltascope/services/delta/builder"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

var tracer = otel.Tracer("aleutian.delta.analyzer")

// Kind selects one graph representation for comparison.
type Kind string

const (
	KindCFG       Kind = "cfg"
	KindDFG       Kind = "dfg"
	KindCallGraph Kind = "callgraph"
	KindPDG       Kind = "pdg"
	KindCPG       Kind = "cpg"
)

// AllKinds returns every comparison kind in report order.
func AllKinds() []Kind {
	return []Kind{KindCFG, KindDFG, KindCallGraph, KindPDG, KindCPG}
}

// ParseKind maps a request string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCFG, KindDFG, KindCallGraph, KindPDG, KindCPG:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown graph kind %q", s)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStrategy sets the comparison strategy. The default is the hybrid
// selector with its default thresholds.
func WithStrategy(s ged.Strategy) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.strategy = s
		}
	}
}

// WithKinds restricts comparisons to the given kinds. Records follow the
// order given here.
func WithKinds(kinds ...Kind) Option {
	return func(a *Analyzer) {
		if len(kinds) > 0 {
			a.kinds = kinds
		}
	}
}

// WithSSA selects between the SSA-renaming data flow builder and the
// plain one. SSA is the default.
func WithSSA(enabled bool) Option {
	return func(a *Analyzer) {
		a.ssa = enabled
	}
}

// Analyzer compares file pairs across graph kinds.
//
// Thread Safety:
//
//	Safe for concurrent use. The parser is concurrency-safe and every
//	Compare call builds its own graphs and search state.
type Analyzer struct {
	parser   *ast.PythonParser
	strategy ged.Strategy
	kinds    []Kind
	ssa      bool
}

// NewAnalyzer creates an analyzer with the given options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:   ast.NewPythonParser(),
		strategy: ged.NewHybrid(),
		kinds:    AllKinds(),
		ssa:      true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// sideGraphs holds one version's graphs, built once per Compare call and
// shared by every kind that needs them.
type sideGraphs struct {
	cfg *graph.CFG
	dfg *graph.DFG
	cg  *graph.CallGraph
}

// bundle adapts a side to the merged-graph comparison input.
func (s sideGraphs) bundle() ged.Graphs {
	return ged.Graphs{CFG: s.cfg, DFG: s.dfg, CallGraph: s.cg}
}

// Compare analyzes one file pair across the configured kinds.
//
// Description:
//
//	Parses each side once, builds the graphs the configured kinds need,
//	and compares them pairwise. A side that fails to parse degrades to
//	one-node error graphs, so the comparison still yields distances. A
//	failure while computing one kind, including a panic, yields a
//	sentinel record (Distance -1, Error set) for that kind only.
//
// Inputs:
//   - ctx: Context for cancellation, checked by the search strategies
//     between expansions.
//   - path: File identifier carried into graphs, logs, and the result.
//   - before, after: Full source text of the two versions. Empty means
//     the file does not exist on that side. When both are empty the
//     result carries no records.
//
// Outputs:
//   - FileResult: One record per configured kind, in configuration
//     order. Never nil fields beyond empty Records for the
//     both-sides-empty case.
//
// Thread Safety: Safe for concurrent use.
func (a *Analyzer) Compare(ctx context.Context, path, before, after string) FileResult {
	res := FileResult{Path: path}
	if before == "" && after == "" {
		return res
	}

	start := time.Now()
	b := a.buildSide(ctx, path, before)
	f := a.buildSide(ctx, path, after)

	for _, k := range a.kinds {
		res.Records = append(res.Records, a.compareKind(ctx, k, b, f))
	}
	res.ElapsedMS = time.Since(start).Milliseconds()
	return res
}

// wants reports whether the given kind is configured.
func (a *Analyzer) wants(kinds ...Kind) bool {
	for _, k := range a.kinds {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
	}
	return false
}

// buildSide parses one version and builds the graphs the configured
// kinds need. Parse and build failures degrade to one-node error graphs.
func (a *Analyzer) buildSide(ctx context.Context, path, source string) sideGraphs {
	needCFG := a.wants(KindCFG, KindPDG, KindCPG)
	needDFG := a.wants(KindDFG, KindPDG, KindCPG)
	needCalls := a.wants(KindCallGraph, KindCPG)

	var side sideGraphs
	mod, err := a.parser.Parse(ctx, []byte(source), path)
	if err != nil {
		slog.Debug("parse failed, degrading to error graphs",
			slog.String("file", path),
			slog.String("error", err.Error()),
		)
		if needCFG {
			side.cfg = builder.ErrorCFG(path, err)
		}
		if needDFG {
			side.dfg = builder.ErrorDFG(path, err)
		}
		if needCalls {
			side.cg = builder.ErrorCallGraph(path, err)
		}
		return side
	}
	defer mod.Close()

	if needCFG {
		side.cfg = buildCFG(mod, path)
	}
	if needDFG {
		side.dfg = a.buildDFG(mod, path)
	}
	if needCalls {
		side.cg = buildCallGraph(mod, path)
	}
	return side
}

func buildCFG(mod *ast.Module, path string) (c *graph.CFG) {
	defer func() {
		if r := recover(); r != nil {
			c = builder.ErrorCFG(path, fmt.Errorf("control flow construction panicked: %v", r))
		}
	}()
	c, err := builder.NewCFGBuilder().Build(mod, path)
	if err != nil {
		return builder.ErrorCFG(path, err)
	}
	return c
}

func (a *Analyzer) buildDFG(mod *ast.Module, path string) (d *graph.DFG) {
	defer func() {
		if r := recover(); r != nil {
			d = builder.ErrorDFG(path, fmt.Errorf("data flow construction panicked: %v", r))
		}
	}()
	var err error
	if a.ssa {
		d, err = builder.NewSSABuilder().Build(mod, path)
	} else {
		d, err = builder.NewDFGBuilder().Build(mod, path)
	}
	if err != nil {
		return builder.ErrorDFG(path, err)
	}
	return d
}

func buildCallGraph(mod *ast.Module, path string) (c *graph.CallGraph) {
	defer func() {
		if r := recover(); r != nil {
			c = builder.ErrorCallGraph(path, fmt.Errorf("call graph construction panicked: %v", r))
		}
	}()
	c, err := builder.NewCallGraphBuilder().Build(mod, path)
	if err != nil {
		return builder.ErrorCallGraph(path, err)
	}
	return c
}

// compareKind computes one kind's record. Panics inside the comparison
// are confined to this record.
func (a *Analyzer) compareKind(ctx context.Context, k Kind, before, after sideGraphs) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			slog.Error("comparison panicked",
				slog.String("kind", string(k)),
				slog.Any("panic", r),
				slog.String("stack", string(buf[:n])),
			)
			rec = failedRecord(k, fmt.Sprintf("panic: %v", r))
		}
	}()

	switch k {
	case KindCFG:
		rec = newRecord(k, a.strategy.Compute(ctx, &before.cfg.Graph, &after.cfg.Graph))
	case KindDFG:
		rec = newRecord(k, a.strategy.Compute(ctx, &before.dfg.Graph, &after.dfg.Graph))
		rec.DefUseChainsBefore = len(before.dfg.DefUseChains())
		rec.DefUseChainsAfter = len(after.dfg.DefUseChains())
	case KindCallGraph:
		rec = newRecord(k, a.strategy.Compute(ctx, &before.cg.Graph, &after.cg.Graph))
		rec.FunctionsBefore = before.cg.FunctionCount()
		rec.FunctionsAfter = after.cg.FunctionCount()
		rec.CallsBefore = before.cg.CallEdgeCount()
		rec.CallsAfter = after.cg.CallEdgeCount()
	case KindPDG:
		res, err := ged.ComparePDG(ctx, a.strategy, before.bundle(), after.bundle())
		if err != nil {
			rec = a.weightedFallback(ctx, k, before, after)
			rec.Error = err.Error()
			return rec
		}
		rec = newRecord(k, res)
	case KindCPG:
		res, err := ged.CompareCPG(ctx, a.strategy, before.bundle(), after.bundle())
		if err != nil {
			rec = a.weightedFallback(ctx, k, before, after)
			rec.Error = err.Error()
			return rec
		}
		rec = newRecord(k, res)
	default:
		rec = failedRecord(k, fmt.Sprintf("unknown graph kind %q", k))
	}
	return rec
}

// weightedFallback rebuilds a composite distance from per-graph results
// when the merged comparison fails. The record keeps the fallback method
// string so downstream consumers can tell the two apart.
func (a *Analyzer) weightedFallback(ctx context.Context, k Kind, before, after sideGraphs) Record {
	slog.Warn("merged comparison failed, using weighted approximation",
		slog.String("kind", string(k)),
	)
	cfgRes := a.strategy.Compute(ctx, &before.cfg.Graph, &after.cfg.Graph)
	dfgRes := a.strategy.Compute(ctx, &before.dfg.Graph, &after.dfg.Graph)

	var res ged.Result
	if k == KindCPG {
		cgRes := a.strategy.Compute(ctx, &before.cg.Graph, &after.cg.Graph)
		res = ged.WeightedCPG(cfgRes, dfgRes, cgRes)
	} else {
		res = ged.WeightedPDG(cfgRes, dfgRes)
	}
	res.Method = ged.MethodApproximationFallback
	return newRecord(k, res)
}
