// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/ged"
)

const calleeSource = `def helper(n):
    total = n + 1
    return total

def main():
    value = helper(2)
    return value
`

const plainSource = `def main():
    x = 1
    return x
`

const modifiedSource = `def main():
    x = 2
    y = x + 1
    return y
`

func TestCompareIdenticalSources(t *testing.T) {
	a := NewAnalyzer()

	res := a.Compare(context.Background(), "mod.py", calleeSource, calleeSource)

	require.Len(t, res.Records, len(AllKinds()))
	for i, k := range AllKinds() {
		rec := res.Records[i]
		assert.Equal(t, k, rec.Kind)
		assert.Zero(t, rec.Distance, "kind %s", k)
		assert.Zero(t, rec.Normalized, "kind %s", k)
		assert.NotEmpty(t, rec.Method, "kind %s", k)
		assert.Empty(t, rec.Error, "kind %s", k)
		assert.False(t, rec.Timeout, "kind %s", k)
		assert.Equal(t, rec.NodesBefore, rec.NodesAfter, "kind %s", k)
	}
}

func TestCompareModifiedSource(t *testing.T) {
	a := NewAnalyzer()

	res := a.Compare(context.Background(), "mod.py", plainSource, modifiedSource)

	cfg := res.Record(KindCFG)
	require.NotNil(t, cfg)
	assert.Positive(t, cfg.Distance)
	assert.Positive(t, cfg.Normalized)
	assert.Greater(t, cfg.NodesAfter, cfg.NodesBefore)

	dfg := res.Record(KindDFG)
	require.NotNil(t, dfg)
	assert.Positive(t, dfg.Distance)

	// Both versions define the same lone function with no calls, so the
	// call graphs are identical even though the bodies differ.
	cg := res.Record(KindCallGraph)
	require.NotNil(t, cg)
	assert.Zero(t, cg.Distance)
	assert.Equal(t, 1, cg.FunctionsBefore)
	assert.Equal(t, 1, cg.FunctionsAfter)

	pdg := res.Record(KindPDG)
	require.NotNil(t, pdg)
	assert.Positive(t, pdg.Distance)

	cpg := res.Record(KindCPG)
	require.NotNil(t, cpg)
	assert.Positive(t, cpg.Distance)
}

func TestCompareBothSidesEmpty(t *testing.T) {
	a := NewAnalyzer()

	res := a.Compare(context.Background(), "gone.py", "", "")

	assert.Equal(t, "gone.py", res.Path)
	assert.Empty(t, res.Records)
}

func TestCompareNewFile(t *testing.T) {
	a := NewAnalyzer(WithKinds(KindCFG))

	res := a.Compare(context.Background(), "fresh.py", "", modifiedSource)

	cfg := res.Record(KindCFG)
	require.NotNil(t, cfg)
	assert.Positive(t, cfg.Distance)
	assert.Less(t, cfg.NodesBefore, cfg.NodesAfter)
	assert.Empty(t, cfg.Error)
}

func TestCompareSyntaxErrorDegrades(t *testing.T) {
	a := NewAnalyzer()

	res := a.Compare(context.Background(), "broken.py", "def broken(:\n", calleeSource)

	require.Len(t, res.Records, len(AllKinds()))
	cfg := res.Record(KindCFG)
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.NodesBefore)
	assert.Positive(t, cfg.Distance)
	assert.Empty(t, cfg.Error)

	// The error graph has a node but no registered functions.
	cg := res.Record(KindCallGraph)
	require.NotNil(t, cg)
	assert.Equal(t, 0, cg.FunctionsBefore)
	assert.Equal(t, 2, cg.FunctionsAfter)
}

func TestCompareKindRestriction(t *testing.T) {
	a := NewAnalyzer(WithKinds(KindDFG, KindCFG))

	res := a.Compare(context.Background(), "mod.py", plainSource, modifiedSource)

	require.Len(t, res.Records, 2)
	assert.Equal(t, KindDFG, res.Records[0].Kind)
	assert.Equal(t, KindCFG, res.Records[1].Kind)
	assert.Nil(t, res.Record(KindPDG))
}

func TestCompareDefUseChainCounts(t *testing.T) {
	a := NewAnalyzer()

	res := a.Compare(context.Background(), "mod.py", plainSource, modifiedSource)

	dfg := res.Record(KindDFG)
	require.NotNil(t, dfg)
	assert.Positive(t, dfg.DefUseChainsBefore)
	assert.Positive(t, dfg.DefUseChainsAfter)
}

func TestCompareCallGraphCounts(t *testing.T) {
	a := NewAnalyzer(WithKinds(KindCallGraph))

	res := a.Compare(context.Background(), "mod.py", plainSource, calleeSource)

	cg := res.Record(KindCallGraph)
	require.NotNil(t, cg)
	assert.Equal(t, 1, cg.FunctionsBefore)
	assert.Equal(t, 2, cg.FunctionsAfter)
	assert.Equal(t, 0, cg.CallsBefore)
	assert.Equal(t, 1, cg.CallsAfter)
	assert.Positive(t, cg.Distance)
}

func TestCompareMergedMethods(t *testing.T) {
	a := NewAnalyzer()

	res := a.Compare(context.Background(), "mod.py", plainSource, modifiedSource)

	pdg := res.Record(KindPDG)
	require.NotNil(t, pdg)
	assert.Equal(t, ged.MethodMergedGraph, pdg.Method)
	assert.Positive(t, pdg.NodesBefore)

	cpg := res.Record(KindCPG)
	require.NotNil(t, cpg)
	assert.Equal(t, ged.MethodMergedGraph, cpg.Method)
}

func TestComparePlainDataFlow(t *testing.T) {
	a := NewAnalyzer(WithKinds(KindDFG), WithSSA(false))

	res := a.Compare(context.Background(), "mod.py", plainSource, plainSource)

	dfg := res.Record(KindDFG)
	require.NotNil(t, dfg)
	assert.Zero(t, dfg.Distance)
	assert.Positive(t, dfg.NodesBefore)
}

func TestParseKind(t *testing.T) {
	for _, want := range AllKinds() {
		got, err := ParseKind(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("ast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown graph kind")
}
