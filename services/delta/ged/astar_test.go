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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

func TestAStarIdenticalGraphs(t *testing.T) {
	res := NewAStar().Compute(context.Background(), smallBefore(t), smallBefore(t))

	assert.Equal(t, MethodAStar, res.Method)
	assert.Equal(t, 0.0, res.Distance)
	assert.Equal(t, 0.0, res.Normalized)
	assert.False(t, res.Timeout)
	assert.Greater(t, res.Iterations, 0)
	assert.Equal(t, 3, res.NodesBefore)
	assert.Equal(t, 3, res.NodesAfter)
	assert.Equal(t, 2, res.EdgesBefore)
}

func TestAStarEmptyGraphs(t *testing.T) {
	empty := graph.NewGraph("empty")
	a := NewAStar()

	res := a.Compute(context.Background(), empty, graph.NewGraph("empty"))
	assert.Equal(t, 0.0, res.Distance)
	assert.Equal(t, 0.0, res.Normalized)

	res = a.Compute(context.Background(), empty, smallAfter(t))
	assert.Equal(t, 4.0, res.Distance)
	assert.Equal(t, 1.0, res.Normalized)

	res = a.Compute(context.Background(), smallBefore(t), empty)
	assert.Equal(t, 3.0, res.Distance)
	assert.Equal(t, 1.0, res.Normalized)
}

func TestAStarFindsCheapestEdit(t *testing.T) {
	res := NewAStar().Compute(context.Background(), smallBefore(t), smallAfter(t))

	assert.Equal(t, MethodAStar, res.Method)
	assert.InDelta(t, 1.5, res.Distance, 1e-9)
	assert.InDelta(t, 0.375, res.Normalized, 1e-9)
	assert.False(t, res.Timeout)
}

func TestAStarIterationCap(t *testing.T) {
	res := NewAStar(WithMaxIterations(1)).Compute(context.Background(), smallBefore(t), smallAfter(t))

	assert.True(t, res.Timeout)
	assert.Equal(t, 1, res.Iterations)
	assert.LessOrEqual(t, res.Distance, 1.5)
}

func TestAStarCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewAStar().Compute(ctx, smallBefore(t), smallAfter(t))
	assert.True(t, res.Timeout)
	assert.Equal(t, 0, res.Iterations)
	// Nothing was searched, so the estimate is the full-rewrite bound.
	assert.Equal(t, 7.0, res.Distance)
}

func TestAStarLargeGraphsUseGreedy(t *testing.T) {
	before := chainGraph(t, "before", 120)
	after := chainGraph(t, "after", 120)

	res := NewAStar().Compute(context.Background(), before, after)
	assert.Equal(t, MethodFastHeuristic, res.Method)
	assert.Equal(t, 0.0, res.Distance)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 120, res.NodesBefore)
}

func TestAStarCustomCosts(t *testing.T) {
	a := NewAStar(WithCosts(Costs{Insert: 2, Delete: 1, Substitute: 1}))

	res := a.Compute(context.Background(), graph.NewGraph("empty"), smallBefore(t))
	assert.Equal(t, 6.0, res.Distance)
	assert.Equal(t, 2.0, res.Normalized)
}
