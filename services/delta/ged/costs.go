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

import "github.com/AleutianAI/Deltascope/services/delta/graph"

// costCacheLimit bounds the substitution memo. Past the limit new pairs
// are computed but not stored, so memory stays flat on large graphs.
const costCacheLimit = 1024

// costCache memoizes pairwise substitution costs for one comparison. Keys
// are node IDs, which only identify nodes within a single graph pair, so
// a cache must never outlive the comparison it was created for.
type costCache struct {
	costs Costs
	memo  map[[2]string]float64
}

func newCostCache(c Costs) *costCache {
	return &costCache{costs: c, memo: make(map[[2]string]float64)}
}

// substitution returns the cost of replacing a with b: free on a full
// label and type match, half on a type-only match, full otherwise.
func (c *costCache) substitution(a, b *graph.Node) float64 {
	key := [2]string{a.ID, b.ID}
	if v, ok := c.memo[key]; ok {
		return v
	}

	var v float64
	switch {
	case a.Label == b.Label && a.Type == b.Type:
		v = 0
	case a.Type == b.Type:
		v = c.costs.Substitute * 0.5
	default:
		v = c.costs.Substitute
	}

	if len(c.memo) < costCacheLimit {
		c.memo[key] = v
	}
	return v
}
