// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ged approximates graph edit distance between program graphs.
//
// Three interchangeable strategies share one state-space model. A search
// state is a partial node mapping from the first graph into the second,
// the remaining unmapped nodes on each side, and the cost paid so far.
// Expansion always works on the lexicographically smallest unmapped node
// of the first graph: delete it, or substitute it against a remaining node
// of the second. When the first graph is exhausted, whatever remains of
// the second is charged as insertions.
//
//   - AStar: best-first search under an admissible remaining-size
//     heuristic. The strongest answers on small graphs.
//   - BeamSearch: keeps the k cheapest states per depth. Bounded,
//     predictable work; width 1 degenerates to pure greedy.
//   - Hybrid: picks a beam width from graph size, enforces a wall-clock
//     budget, and degrades to width 1 on overrun. The production default.
//
// # Thread Safety
//
// Strategy values carry configuration only. All search state, including
// the substitution-cost memo, is allocated per Compute call, so a single
// strategy value may serve concurrent comparisons.
package ged

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

// Method strings carried in Result.Method.
const (
	MethodAStar         = "a_star"
	MethodBeamSearch    = "beam_search"
	MethodFastHeuristic = "fast_heuristic"
	MethodTrivial       = "trivial"
	MethodMergedGraph   = "merged_graph_ged"
	MethodWeighted      = "weighted_approximation"

	// MethodApproximationFallback marks a composite distance rebuilt from
	// component sums after a merged comparison failed.
	MethodApproximationFallback = "approximation_fallback"
)

// Strategy is a graph comparison algorithm. Implementations never return
// errors: a comparison that cannot finish within its budget reports its
// best estimate and sets Timeout. Both graphs must be non-nil; empty
// graphs are fine.
type Strategy interface {
	Compute(ctx context.Context, before, after *graph.Graph) Result
}

var (
	_ Strategy = (*AStar)(nil)
	_ Strategy = (*BeamSearch)(nil)
	_ Strategy = (*Hybrid)(nil)
)

// Strategy names accepted by ParseStrategy.
const (
	StrategyHybrid = "hybrid"
	StrategyAStar  = "astar"
	StrategyBeam   = "beam"
)

// ParseStrategy constructs the named strategy, forwarding the options to
// its constructor.
func ParseStrategy(name string, opts ...Option) (Strategy, error) {
	switch name {
	case StrategyHybrid:
		return NewHybrid(opts...), nil
	case StrategyAStar:
		return NewAStar(opts...), nil
	case StrategyBeam:
		return NewBeamSearch(opts...), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// Costs are the node edit-operation constants. Type-only substitution
// matches are charged half of Substitute; full label+type matches are
// free.
type Costs struct {
	Insert     float64
	Delete     float64
	Substitute float64
}

// DefaultCosts returns unit costs for every operation.
func DefaultCosts() Costs {
	return Costs{Insert: 1, Delete: 1, Substitute: 1}
}

// Result is one comparison outcome. "Before" counts describe the first
// graph, "after" counts the second.
type Result struct {
	// Distance is the approximate edit distance.
	Distance float64

	// Normalized is Distance / max(node counts), 0 for two empty graphs.
	Normalized float64

	// Method names the algorithm that produced the number.
	Method string

	// BeamWidth is the width used, 0 when no beam was involved.
	BeamWidth int

	// Iterations is the expansion count for iteration-capped search.
	Iterations int

	// Timeout reports that a budget cut the search short and Distance is
	// the best estimate found, not a completed search result.
	Timeout bool

	// Elapsed is the wall-clock time of the comparison.
	Elapsed time.Duration

	// SizeClass is the hybrid selector's size bucket, empty elsewhere.
	SizeClass string

	NodesBefore int
	NodesAfter  int
	EdgesBefore int
	EdgesAfter  int
}

func (r *Result) setCounts(before, after *graph.Graph) {
	r.NodesBefore, r.EdgesBefore = before.Size()
	r.NodesAfter, r.EdgesAfter = after.Size()
}

// normalize scales a distance by the larger node count.
func normalize(dist float64, nodesBefore, nodesAfter int) float64 {
	if m := max(nodesBefore, nodesAfter); m > 0 {
		return dist / float64(m)
	}
	return 0
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
