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

const (
	// weightedMinorShare discounts the smaller of the two distances:
	// changes visible in both graphs are mostly the same change.
	weightedMinorShare = 0.3

	// weightedOverlap is the share of data-flow nodes assumed to also
	// appear in the control-flow graph, folded into the node counts.
	weightedOverlap = 0.7
)

// WeightedPDG approximates a dependence-graph distance from already
// computed control-flow and data-flow results without building merged
// graphs: max of the two distances plus a discounted share of the
// smaller one. Degraded fallback for when merging fails; ComparePDG is
// the canonical path.
func WeightedPDG(cfg, dfg Result) Result {
	res := Result{
		Method:      MethodWeighted,
		Distance:    max(cfg.Distance, dfg.Distance) + weightedMinorShare*min(cfg.Distance, dfg.Distance),
		NodesBefore: cfg.NodesBefore + int(float64(dfg.NodesBefore)*weightedOverlap),
		NodesAfter:  cfg.NodesAfter + int(float64(dfg.NodesAfter)*weightedOverlap),
		EdgesBefore: cfg.EdgesBefore + dfg.EdgesBefore,
		EdgesAfter:  cfg.EdgesAfter + dfg.EdgesAfter,
	}
	res.Normalized = res.Distance / float64(max(res.NodesAfter, 1))
	return res
}

// WeightedCPG extends WeightedPDG with the call-graph distance and
// counts. Same caveats apply.
func WeightedCPG(cfg, dfg, callGraph Result) Result {
	res := WeightedPDG(cfg, dfg)
	res.Distance += callGraph.Distance
	res.NodesBefore += callGraph.NodesBefore
	res.NodesAfter += callGraph.NodesAfter
	res.EdgesBefore += callGraph.EdgesBefore
	res.EdgesAfter += callGraph.EdgesAfter
	res.Normalized = res.Distance / float64(max(res.NodesAfter, 1))
	return res
}
