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
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
	"github.com/AleutianAI/Deltascope/services/delta/merge"
)

// Graphs bundles the single-representation graphs built from one
// version of a source file. ComparePDG ignores CallGraph; CompareCPG
// requires it.
type Graphs struct {
	CFG       *graph.CFG
	DFG       *graph.DFG
	CallGraph *graph.CallGraph
}

// ComparePDG merges each side's control flow and data flow graphs into
// one dependence graph and runs a single comparison over the pair.
//
// Description:
//
//	The canonical dependence-graph distance: one edit distance over
//	merged graphs instead of an arithmetic blend of per-graph results.
//	Statement nodes shared between a side's CFG and DFG collapse during
//	the merge, so the distance reflects the combined structure rather
//	than double-counting shared statements.
//
// Inputs:
//   - ctx: Context for cancellation and tracing.
//   - s: Strategy to compare with. Nil selects beam search at the
//     default width.
//   - before, after: Graph bundles for the two versions. CFG and DFG
//     must be non-nil on both sides.
//
// Outputs:
//   - Result: Comparison over the merged pair, reported with the
//     merged-graph method string and merged node/edge counts.
//   - error: Non-nil when either side fails to merge.
func ComparePDG(ctx context.Context, s Strategy, before, after Graphs) (Result, error) {
	ctx, span := tracer.Start(ctx, "ged.ComparePDG")
	defer span.End()

	pdgBefore, err := merge.PDG(before.CFG, before.DFG, "before")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("merging before graphs: %w", err)
	}
	pdgAfter, err := merge.PDG(after.CFG, after.DFG, "after")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("merging after graphs: %w", err)
	}

	if s == nil {
		s = NewBeamSearch()
	}
	res := s.Compute(ctx, &pdgBefore.Graph, &pdgAfter.Graph)
	res.Method = MethodMergedGraph

	span.SetAttributes(
		attribute.Float64("ged.distance", res.Distance),
		attribute.Int("ged.nodes_before", res.NodesBefore),
		attribute.Int("ged.nodes_after", res.NodesAfter),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}

// CompareCPG merges each side's control flow, data flow, and call
// graphs into one property graph and runs a single comparison over the
// pair. All three graphs must be non-nil on both sides; a nil strategy
// selects beam search at the default width.
func CompareCPG(ctx context.Context, s Strategy, before, after Graphs) (Result, error) {
	ctx, span := tracer.Start(ctx, "ged.CompareCPG")
	defer span.End()

	cpgBefore, err := merge.CPG(before.CFG, before.DFG, before.CallGraph, "before")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("merging before graphs: %w", err)
	}
	cpgAfter, err := merge.CPG(after.CFG, after.DFG, after.CallGraph, "after")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("merging after graphs: %w", err)
	}

	if s == nil {
		s = NewBeamSearch()
	}
	res := s.Compute(ctx, &cpgBefore.Graph, &cpgAfter.Graph)
	res.Method = MethodMergedGraph

	span.SetAttributes(
		attribute.Float64("ged.distance", res.Distance),
		attribute.Int("ged.nodes_before", res.NodesBefore),
		attribute.Int("ged.nodes_after", res.NodesAfter),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}
