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
	"context"
	"sort"
	"time"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

const (
	// defaultBeamWidth balances accuracy and cost for mid-sized graphs.
	defaultBeamWidth = 10

	// beamNodeLimit is the node count above which BeamSearch hands off to
	// the greedy matcher.
	beamNodeLimit = 200
)

// BeamSearch approximates edit distance keeping the k cheapest partial
// mappings per depth.
//
// Description:
//
//	Same state model as AStar, but instead of a global priority queue
//	each depth expands every beam state and keeps only the beam-width
//	cheapest successors. Substitution candidates per expansion are also
//	capped at the beam width. Width 1 is pure greedy; larger widths
//	approach AStar quality with bounded, predictable work.
type BeamSearch struct {
	costs Costs
	width int
}

// NewBeamSearch creates the search with the default width of 10;
// WithBeamWidth and WithCosts override the defaults.
func NewBeamSearch(opts ...Option) *BeamSearch {
	o := applyOptions(opts)
	return &BeamSearch{costs: o.costs, width: o.beamWidth}
}

// beamState shares the suffix-index representation of aStarState: the
// unmapped part of the first graph is ids[next:], and unmapped sets are
// never mutated after construction so unchanged ones are shared.
type beamState struct {
	cost     float64
	next     int
	unmapped map[string]struct{}
}

// Compute returns the approximate distance between the two graphs. A
// cancelled context stops the search between depths; the result then
// charges everything still unmapped as deletions and insertions, so the
// reported figure stays an upper bound, and Timeout is set.
func (b *BeamSearch) Compute(ctx context.Context, before, after *graph.Graph) Result {
	start := time.Now()
	res := Result{Method: MethodBeamSearch, BeamWidth: b.width}
	res.setCounts(before, after)

	switch {
	case res.NodesBefore == 0 && res.NodesAfter == 0:
		res.Elapsed = time.Since(start)
		return res
	case res.NodesBefore == 0:
		res.Distance = float64(res.NodesAfter) * b.costs.Insert
		res.Normalized = normalize(res.Distance, res.NodesBefore, res.NodesAfter)
		res.Elapsed = time.Since(start)
		return res
	case res.NodesAfter == 0:
		res.Distance = float64(res.NodesBefore) * b.costs.Delete
		res.Normalized = normalize(res.Distance, res.NodesBefore, res.NodesAfter)
		res.Elapsed = time.Since(start)
		return res
	}

	cache := newCostCache(b.costs)
	if res.NodesBefore > beamNodeLimit || res.NodesAfter > beamNodeLimit {
		r := greedyMatch(cache, before, after)
		r.Elapsed = time.Since(start)
		return r
	}

	ids := before.NodeIDs()
	beam := []*beamState{{
		unmapped: idSet(after.NodeIDs()),
	}}

	truncated := false
	for beam[0].next < len(ids) {
		if ctx.Err() != nil {
			truncated = true
			break
		}

		next := make([]*beamState, 0, len(beam)*(b.width+1))
		for _, s := range beam {
			next = append(next, b.successors(s, ids, before, after, cache)...)
		}
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].cost < next[j].cost
		})
		if len(next) > b.width {
			next = next[:b.width]
		}
		beam = next
	}

	best := beam[0]
	dist := best.cost + float64(len(best.unmapped))*b.costs.Insert
	if truncated {
		dist += float64(len(ids)-best.next) * b.costs.Delete
	}

	res.Distance = dist
	res.Normalized = normalize(dist, res.NodesBefore, res.NodesAfter)
	res.Timeout = truncated
	res.Elapsed = time.Since(start)
	return res
}

func (b *BeamSearch) successors(cur *beamState, ids []string, before, after *graph.Graph, cache *costCache) []*beamState {
	if cur.next >= len(ids) {
		// Already complete; carries through until the beam head is done.
		return []*beamState{cur}
	}

	n1 := before.Node(ids[cur.next])
	succ := make([]*beamState, 0, b.width+1)

	succ = append(succ, &beamState{
		cost:     cur.cost + b.costs.Delete,
		next:     cur.next + 1,
		unmapped: cur.unmapped,
	})

	candidates := sortedSetIDs(cur.unmapped)
	if len(candidates) > b.width {
		candidates = candidates[:b.width]
	}
	for _, id2 := range candidates {
		n2 := after.Node(id2)

		remaining := cloneSet(cur.unmapped)
		delete(remaining, id2)

		succ = append(succ, &beamState{
			cost:     cur.cost + cache.substitution(n1, n2),
			next:     cur.next + 1,
			unmapped: remaining,
		})
	}
	return succ
}
