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
	"sort"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

// fastHeuristicWindow is how far past the alignment cursor the greedy
// matcher scans for a cheaper substitution candidate.
const fastHeuristicWindow = 10

// greedyMatch approximates the distance with a label-sorted bipartite
// matching. Both node sets are sorted by label; each node of the first
// graph takes the cheapest unmatched candidate inside a bounded lookahead
// window when that beats deletion, and leftover nodes of the second graph
// are charged as insertions. Linear-ish and label-locality dependent, so
// it is the fallback for graphs too large to search.
func greedyMatch(cache *costCache, before, after *graph.Graph) Result {
	res := Result{Method: MethodFastHeuristic}
	res.setCounts(before, after)

	sorted1 := nodesByLabel(before)
	sorted2 := nodesByLabel(after)

	matched := make(map[string]struct{}, len(sorted2))
	cost := 0.0
	cursor := 0
	for _, n1 := range sorted1 {
		var best *graph.Node
		bestCost := cache.costs.Delete

		limit := min(cursor+fastHeuristicWindow, len(sorted2))
		for k := cursor; k < limit; k++ {
			n2 := sorted2[k]
			if _, ok := matched[n2.ID]; ok {
				continue
			}
			if sub := cache.substitution(n1, n2); sub < bestCost {
				bestCost = sub
				best = n2
			}
		}

		cost += bestCost
		if best != nil {
			matched[best.ID] = struct{}{}
			cursor++
		}
	}
	cost += float64(len(sorted2)-len(matched)) * cache.costs.Insert

	res.Distance = cost
	res.Normalized = normalize(cost, res.NodesBefore, res.NodesAfter)
	return res
}

// nodesByLabel returns the graph's nodes ordered by label, with node ID
// breaking ties so the matching is deterministic.
func nodesByLabel(g *graph.Graph) []*graph.Node {
	nodes := make([]*graph.Node, 0, g.NodeCount())
	g.Nodes(func(n *graph.Node) bool {
		nodes = append(nodes, n)
		return true
	})
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Label != nodes[j].Label {
			return nodes[i].Label < nodes[j].Label
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}
