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
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

const (
	// defaultBudget bounds a single hybrid comparison end to end.
	defaultBudget = 120 * time.Second

	tinyNodeLimit   = 20
	smallNodeLimit  = 50
	mediumNodeLimit = 100
	largeNodeLimit  = 200

	tinyBeamWidth   = 100
	smallBeamWidth  = 50
	mediumBeamWidth = 20
	largeBeamWidth  = 10
)

// Hybrid picks a beam width from the graph sizes and falls back to the
// greedy matcher when a comparison overruns its budget or fails.
//
// Description:
//
//	The adaptive strategy for callers that compare graphs of unknown
//	size. Small graphs get wide beams for near-exact results, large
//	graphs get narrow ones, and anything past the large bucket goes
//	straight to the greedy matcher. The budget is enforced through the
//	context, so a slow search stops between depths instead of running
//	to completion first.
//
// Thread Safety:
//   - Hybrid carries configuration only; Compute is safe for
//     concurrent use on a shared instance.
type Hybrid struct {
	costs  Costs
	budget time.Duration
}

// NewHybrid creates the adaptive strategy with a 120s budget;
// WithBudget and WithCosts override the defaults.
func NewHybrid(opts ...Option) *Hybrid {
	o := applyOptions(opts)
	return &Hybrid{costs: o.costs, budget: o.budget}
}

// sizeBucket maps the larger node count to a beam width and size class.
// Width 0 means the graphs are past the large bucket.
func sizeBucket(n int) (int, string) {
	switch {
	case n < tinyNodeLimit:
		return tinyBeamWidth, "tiny"
	case n < smallNodeLimit:
		return smallBeamWidth, "small"
	case n < mediumNodeLimit:
		return mediumBeamWidth, "medium"
	case n < largeNodeLimit:
		return largeBeamWidth, "large"
	default:
		return 0, "huge"
	}
}

// Compute returns the approximate distance between the two graphs,
// recording which path produced it in Method and SizeClass. A budget
// overrun reruns the comparison through the greedy fallback and tags
// the size class with "_timeout"; a panic inside the search does the
// same with "_error".
func (h *Hybrid) Compute(ctx context.Context, before, after *graph.Graph) Result {
	start := time.Now()
	res := Result{Method: MethodTrivial}
	res.setCounts(before, after)

	ctx, span := tracer.Start(ctx, "Hybrid.Compute", trace.WithAttributes(
		attribute.Int("ged.nodes_before", res.NodesBefore),
		attribute.Int("ged.nodes_after", res.NodesAfter),
	))
	defer span.End()

	switch {
	case res.NodesBefore == 0 && res.NodesAfter == 0:
		res.SizeClass = "empty"
		return h.finish(ctx, span, res, start)
	case res.NodesBefore == 0:
		res.SizeClass = "trivial"
		res.Distance = float64(res.NodesAfter) * h.costs.Insert
		res.Normalized = normalize(res.Distance, res.NodesBefore, res.NodesAfter)
		return h.finish(ctx, span, res, start)
	case res.NodesAfter == 0:
		res.SizeClass = "trivial"
		res.Distance = float64(res.NodesBefore) * h.costs.Delete
		res.Normalized = normalize(res.Distance, res.NodesBefore, res.NodesAfter)
		return h.finish(ctx, span, res, start)
	}

	width, class := sizeBucket(max(res.NodesBefore, res.NodesAfter))
	if width == 0 {
		slog.Warn("graphs too large for beam search, using greedy matching",
			slog.Int("nodes_before", res.NodesBefore),
			slog.Int("nodes_after", res.NodesAfter))
		recordFallback(ctx, class)
		res = h.fallback(ctx, before, after)
		res.SizeClass = class
		return h.finish(ctx, span, res, start)
	}

	budgetCtx, cancel := context.WithTimeout(ctx, h.budget)
	defer cancel()

	beamRes, panicked := h.runBeam(budgetCtx, width, before, after)
	switch {
	case panicked:
		recordFallback(ctx, class+"_error")
		// The fallback runs on the parent context so it is not starved
		// by whatever remains of the budget.
		res = h.fallback(ctx, before, after)
		res.SizeClass = class + "_error"
	case beamRes.Timeout:
		slog.Warn("beam search exceeded budget, falling back to greedy matching",
			slog.Duration("budget", h.budget),
			slog.Int("beam_width", width),
			slog.Int("nodes_before", res.NodesBefore),
			slog.Int("nodes_after", res.NodesAfter))
		recordTimeout(ctx, MethodBeamSearch)
		recordFallback(ctx, class+"_timeout")
		res = h.fallback(ctx, before, after)
		res.SizeClass = class + "_timeout"
	default:
		res = beamRes
		res.SizeClass = class
	}
	return h.finish(ctx, span, res, start)
}

// runBeam runs one beam comparison and converts a panic inside the
// search into a reported failure instead of unwinding the caller.
func (h *Hybrid) runBeam(ctx context.Context, width int, before, after *graph.Graph) (res Result, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			slog.Error("beam search panicked",
				slog.Any("panic", r),
				slog.Int("beam_width", width),
				slog.String("stack", string(buf[:n])))
			panicked = true
		}
	}()
	bs := &BeamSearch{costs: h.costs, width: width}
	return bs.Compute(ctx, before, after), false
}

// fallback is the width-1 beam relabeled as the greedy heuristic.
func (h *Hybrid) fallback(ctx context.Context, before, after *graph.Graph) Result {
	bs := &BeamSearch{costs: h.costs, width: 1}
	res := bs.Compute(ctx, before, after)
	res.Method = MethodFastHeuristic
	res.BeamWidth = 1
	return res
}

func (h *Hybrid) finish(ctx context.Context, span trace.Span, res Result, start time.Time) Result {
	res.Elapsed = time.Since(start)
	span.SetAttributes(
		attribute.String("ged.method", res.Method),
		attribute.String("ged.size_class", res.SizeClass),
		attribute.Float64("ged.distance", res.Distance),
	)
	span.SetStatus(codes.Ok, "")
	recordCompare(ctx, res)
	return res
}
