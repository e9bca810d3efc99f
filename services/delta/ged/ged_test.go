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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

// smallBefore is entry -> "x = 1" -> exit.
func smallBefore(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph("before")
	nodes := []*graph.Node{
		{ID: "n0", Type: graph.NodeTypeEntry, Label: "entry"},
		{ID: "n1", Type: graph.NodeTypeStatement, Label: "x = 1", Line: 1},
		{ID: "n2", Type: graph.NodeTypeExit, Label: "exit"},
	}
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	require.NoError(t, g.AddEdge(&graph.Edge{From: "n0", To: "n1", Type: graph.EdgeTypeControlFlow}))
	require.NoError(t, g.AddEdge(&graph.Edge{From: "n1", To: "n2", Type: graph.EdgeTypeControlFlow}))
	return g
}

// smallAfter rewrites the assignment and adds a second statement. The
// cheapest edit from smallBefore is one half-cost substitution plus one
// insertion, 1.5 at unit costs.
func smallAfter(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph("after")
	nodes := []*graph.Node{
		{ID: "m0", Type: graph.NodeTypeEntry, Label: "entry"},
		{ID: "m1", Type: graph.NodeTypeStatement, Label: "x = 2", Line: 1},
		{ID: "m2", Type: graph.NodeTypeStatement, Label: "y = 3", Line: 2},
		{ID: "m3", Type: graph.NodeTypeExit, Label: "exit"},
	}
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	require.NoError(t, g.AddEdge(&graph.Edge{From: "m0", To: "m1", Type: graph.EdgeTypeControlFlow}))
	require.NoError(t, g.AddEdge(&graph.Edge{From: "m1", To: "m2", Type: graph.EdgeTypeControlFlow}))
	require.NoError(t, g.AddEdge(&graph.Edge{From: "m2", To: "m3", Type: graph.EdgeTypeControlFlow}))
	return g
}

// chainGraph is a linear graph of n statement nodes with distinct labels.
func chainGraph(t *testing.T, name string, n int) *graph.Graph {
	t.Helper()
	g := graph.NewGraph(name)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%04d", i)
		require.NoError(t, g.AddNode(&graph.Node{
			ID:    id,
			Type:  graph.NodeTypeStatement,
			Label: fmt.Sprintf("stmt %d", i),
			Line:  i + 1,
		}))
		if i > 0 {
			require.NoError(t, g.AddEdge(&graph.Edge{
				From: fmt.Sprintf("n%04d", i-1),
				To:   id,
				Type: graph.EdgeTypeControlFlow,
			}))
		}
	}
	return g
}

func TestOptionsOverrideDefaults(t *testing.T) {
	costs := Costs{Insert: 2, Delete: 3, Substitute: 4}

	a := NewAStar(WithCosts(costs), WithMaxIterations(50))
	assert.Equal(t, costs, a.costs)
	assert.Equal(t, 50, a.maxIterations)

	b := NewBeamSearch(WithBeamWidth(25))
	assert.Equal(t, 25, b.width)

	h := NewHybrid(WithBudget(5 * time.Second))
	assert.Equal(t, 5*time.Second, h.budget)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	a := NewAStar(WithMaxIterations(0))
	assert.Equal(t, defaultMaxIterations, a.maxIterations)

	b := NewBeamSearch(WithBeamWidth(-1))
	assert.Equal(t, defaultBeamWidth, b.width)

	h := NewHybrid(WithBudget(-time.Second))
	assert.Equal(t, defaultBudget, h.budget)
}

func TestNormalizeBounds(t *testing.T) {
	assert.Equal(t, 0.0, normalize(0, 0, 0))
	assert.Equal(t, 1.0, normalize(4, 0, 4))
	assert.Equal(t, 0.5, normalize(2, 4, 3))
}

func TestParseStrategy(t *testing.T) {
	h, err := ParseStrategy(StrategyHybrid)
	require.NoError(t, err)
	assert.IsType(t, &Hybrid{}, h)

	a, err := ParseStrategy(StrategyAStar, WithMaxIterations(10))
	require.NoError(t, err)
	require.IsType(t, &AStar{}, a)
	assert.Equal(t, 10, a.(*AStar).maxIterations)

	b, err := ParseStrategy(StrategyBeam, WithBeamWidth(3))
	require.NoError(t, err)
	require.IsType(t, &BeamSearch{}, b)
	assert.Equal(t, 3, b.(*BeamSearch).width)

	_, err = ParseStrategy("simulated_annealing")
	assert.ErrorContains(t, err, "unknown strategy")
}
