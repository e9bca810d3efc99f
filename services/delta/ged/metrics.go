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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for edit distance operations.
var (
	tracer = otel.Tracer("aleutian.delta.ged")
	meter  = otel.Meter("aleutian.delta.ged")
)

// Metrics for edit distance operations.
var (
	compareLatency metric.Float64Histogram
	compareTotal   metric.Int64Counter
	compareNodes   metric.Int64Histogram
	fallbackTotal  metric.Int64Counter
	timeoutTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		compareLatency, err = meter.Float64Histogram(
			"ged_compare_duration_seconds",
			metric.WithDescription("Duration of graph comparison operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compareTotal, err = meter.Int64Counter(
			"ged_compare_total",
			metric.WithDescription("Total number of graph comparisons"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compareNodes, err = meter.Int64Histogram(
			"ged_compare_nodes",
			metric.WithDescription("Larger node count of the two graphs per comparison"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		fallbackTotal, err = meter.Int64Counter(
			"ged_fallback_total",
			metric.WithDescription("Total comparisons rerouted to the greedy fallback"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		timeoutTotal, err = meter.Int64Counter(
			"ged_timeout_total",
			metric.WithDescription("Total comparisons that exceeded their budget"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCompare records metrics for a finished comparison.
func recordCompare(ctx context.Context, res Result) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", res.Method),
		attribute.String("size_class", res.SizeClass),
	)

	compareLatency.Record(ctx, res.Elapsed.Seconds(), attrs)
	compareTotal.Add(ctx, 1, attrs)
	compareNodes.Record(ctx, int64(max(res.NodesBefore, res.NodesAfter)))
}

// recordFallback records a comparison rerouted to the greedy fallback.
func recordFallback(ctx context.Context, reason string) {
	if err := initMetrics(); err != nil {
		return
	}
	fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// recordTimeout records a comparison that exceeded its budget.
func recordTimeout(ctx context.Context, method string) {
	if err := initMetrics(); err != nil {
		return
	}
	timeoutTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
	))
}
