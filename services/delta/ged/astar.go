// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ged

import (
	"container/heap"
	"context"
	"sort"
	"time"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

const (
	// defaultMaxIterations caps AStar expansions before it gives up and
	// reports its best estimate with Timeout set.
	defaultMaxIterations = 10000

	// aStarNodeLimit is the node count above which AStar skips search
	// entirely and uses the greedy matcher.
	aStarNodeLimit = 100

	// aStarBranching caps substitution candidates per expansion to keep
	// the open queue tractable.
	aStarBranching = 5
)

// AStar approximates edit distance with best-first search.
//
// Description:
//
//	Maintains a priority queue ordered by f = g + h, where h is an
//	admissible lower bound from the remaining unmapped set sizes: excess
//	nodes cost a full insert or delete, the overlap is assumed to match
//	at half substitution cost. Expansion stops on the first fully-mapped
//	state popped, or at the iteration cap with the best cost seen so far
//	and Timeout set. Oversized graphs go to the greedy matcher instead.
type AStar struct {
	costs         Costs
	maxIterations int
}

// NewAStar creates the search with default unit costs and iteration cap;
// WithCosts and WithMaxIterations override them.
func NewAStar(opts ...Option) *AStar {
	o := applyOptions(opts)
	return &AStar{costs: o.costs, maxIterations: o.maxIterations}
}

// aStarState is one open node of the search. The unmapped part of the
// first graph is always a suffix of its sorted ID list, so states carry
// just the suffix start index. The unmapped set of the second graph is
// never mutated after construction; unchanged sets are shared between
// parent and child.
type aStarState struct {
	f, g, h  float64
	next     int
	unmapped map[string]struct{}
}

type stateHeap []*aStarState

func (h stateHeap) Len() int            { return len(h) }
func (h stateHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h stateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stateHeap) Push(x interface{}) { *h = append(*h, x.(*aStarState)) }
func (h *stateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return s
}

// Compute returns the approximate distance between the two graphs.
func (a *AStar) Compute(ctx context.Context, before, after *graph.Graph) Result {
	start := time.Now()
	res := Result{Method: MethodAStar}
	res.setCounts(before, after)

	switch {
	case res.NodesBefore == 0 && res.NodesAfter == 0:
		res.Elapsed = time.Since(start)
		return res
	case res.NodesBefore == 0:
		res.Distance = float64(res.NodesAfter) * a.costs.Insert
		res.Normalized = normalize(res.Distance, res.NodesBefore, res.NodesAfter)
		res.Elapsed = time.Since(start)
		return res
	case res.NodesAfter == 0:
		res.Distance = float64(res.NodesBefore) * a.costs.Delete
		res.Normalized = normalize(res.Distance, res.NodesBefore, res.NodesAfter)
		res.Elapsed = time.Since(start)
		return res
	}

	cache := newCostCache(a.costs)
	if res.NodesBefore > aStarNodeLimit || res.NodesAfter > aStarNodeLimit {
		r := greedyMatch(cache, before, after)
		r.Elapsed = time.Since(start)
		return r
	}

	ids := before.NodeIDs()
	unmapped := idSet(after.NodeIDs())
	h0 := a.heuristic(len(ids), len(unmapped))
	open := &stateHeap{{
		f:        h0,
		h:        h0,
		unmapped: unmapped,
	}}
	heap.Init(open)

	// Starting from the full-rewrite cost keeps the estimate finite when
	// cancellation lands before the first expansion.
	best := float64(len(ids))*a.costs.Delete + float64(len(unmapped))*a.costs.Insert
	iterations := 0
	cancelled := false
	for open.Len() > 0 && iterations < a.maxIterations {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		iterations++

		cur := heap.Pop(open).(*aStarState)
		if cur.next >= len(ids) && len(cur.unmapped) == 0 {
			best = cur.g
			break
		}

		for _, succ := range a.successors(cur, ids, before, after, cache) {
			heap.Push(open, succ)
			if succ.g < best {
				best = succ.g
			}
		}
	}

	res.Iterations = iterations
	res.Timeout = cancelled || iterations >= a.maxIterations
	res.Distance = best
	res.Normalized = normalize(best, res.NodesBefore, res.NodesAfter)
	res.Elapsed = time.Since(start)
	return res
}

func (a *AStar) successors(cur *aStarState, ids []string, before, after *graph.Graph, cache *costCache) []*aStarState {
	if cur.next >= len(ids) {
		// First graph exhausted: one terminal state inserting the rest.
		g := cur.g + float64(len(cur.unmapped))*a.costs.Insert
		return []*aStarState{{f: g, g: g, next: cur.next}}
	}

	n1 := before.Node(ids[cur.next])
	rest := len(ids) - cur.next - 1
	succ := make([]*aStarState, 0, aStarBranching+1)

	hDel := a.heuristic(rest, len(cur.unmapped))
	gDel := cur.g + a.costs.Delete
	succ = append(succ, &aStarState{
		f:        gDel + hDel,
		g:        gDel,
		h:        hDel,
		next:     cur.next + 1,
		unmapped: cur.unmapped,
	})

	candidates := sortedSetIDs(cur.unmapped)
	if len(candidates) > aStarBranching {
		candidates = candidates[:aStarBranching]
	}
	for _, id2 := range candidates {
		n2 := after.Node(id2)
		gSub := cur.g + cache.substitution(n1, n2)

		remaining := cloneSet(cur.unmapped)
		delete(remaining, id2)

		hSub := a.heuristic(rest, len(remaining))
		succ = append(succ, &aStarState{
			f:        gSub + hSub,
			g:        gSub,
			h:        hSub,
			next:     cur.next + 1,
			unmapped: remaining,
		})
	}
	return succ
}

// heuristic lower-bounds the cost of finishing from (n1, n2) remaining
// nodes: the size difference must be inserted or deleted at full cost,
// the overlap is assumed to match at half substitution cost.
func (a *AStar) heuristic(n1, n2 int) float64 {
	if n1 == 0 && n2 == 0 {
		return 0
	}
	if n1 > n2 {
		return float64(n1-n2)*a.costs.Delete + float64(n2)*a.costs.Substitute*0.5
	}
	return float64(n2-n1)*a.costs.Insert + float64(n1)*a.costs.Substitute*0.5
}

func sortedSetIDs(s map[string]struct{}) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
