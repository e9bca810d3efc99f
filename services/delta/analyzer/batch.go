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
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Deltascope/services/delta/dataset"
)

// Batch worker configuration constants.
const (
	// maxBatchWorkers caps the number of goroutines regardless of CPU
	// count. Instance analysis holds a repository checkout for part of
	// its run, so parallelism is bounded by clone-cache contention
	// before CPU.
	maxBatchWorkers = 8

	// batchQueueSize bounds the buffered work channel.
	batchQueueSize = 256
)

// AnalyzeBatch runs a set of instances on a bounded worker pool.
//
// Description:
//
//	Results align with the input: results[i] is the envelope for
//	instances[i], and every slot is filled. A panic inside one
//	instance's analysis is recovered into that instance's envelope and
//	the worker moves on. Cancellation stops new work; instances not yet
//	started report the cancellation in their envelope.
//
// Inputs:
//   - ctx: Context for cancellation, checked before each instance
//     starts and between file comparisons inside each instance.
//   - instances: Dataset instances to analyze.
//   - workers: Worker count. Zero or negative selects
//     min(len(instances), NumCPU, 8).
//
// Outputs:
//   - []*InstanceAnalysis: One envelope per instance, input order.
//
// Thread Safety: Safe for concurrent use.
func (ia *InstanceAnalyzer) AnalyzeBatch(ctx context.Context, instances []dataset.Instance, workers int) []*InstanceAnalysis {
	ctx, span := tracer.Start(ctx, "analyzer.AnalyzeBatch")
	defer span.End()

	results := make([]*InstanceAnalysis, len(instances))
	if len(instances) == 0 {
		span.SetStatus(codes.Ok, "")
		return results
	}
	if workers <= 0 {
		workers = min(len(instances), min(runtime.NumCPU(), maxBatchWorkers))
	}
	span.SetAttributes(
		attribute.Int("instances", len(instances)),
		attribute.Int("workers", workers),
	)

	start := time.Now()
	slog.Info("starting batch analysis",
		slog.Int("instances", len(instances)),
		slog.Int("workers", workers),
	)

	jobs := make(chan int, min(len(instances), batchQueueSize))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// Drain remaining jobs after cancellation so every slot
				// still gets an envelope.
				if err := ctx.Err(); err != nil {
					results[idx] = cancelledEnvelope(instances[idx], err)
					continue
				}
				results[idx] = ia.analyzeSafe(ctx, instances[idx])
			}
		}()
	}

	for idx := range instances {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, res := range results {
		if len(res.Errors) > 0 {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
	span.SetStatus(codes.Ok, "")

	slog.Info("batch analysis complete",
		slog.Int("instances", len(instances)),
		slog.Int("failed", failed),
		slog.Duration("elapsed", time.Since(start)),
	)
	return results
}

// analyzeSafe confines a panic during one instance's analysis to that
// instance's envelope.
func (ia *InstanceAnalyzer) analyzeSafe(ctx context.Context, inst dataset.Instance) (res *InstanceAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			slog.Error("instance analysis panicked",
				slog.String("instance_id", inst.InstanceID),
				slog.Any("panic", r),
				slog.String("stack", string(buf[:n])),
			)
			res = &InstanceAnalysis{
				InstanceID: inst.InstanceID,
				BaseCommit: inst.BaseCommit,
				Errors:     []string{fmt.Sprintf("panic: %v", r)},
			}
		}
	}()
	return ia.Analyze(ctx, inst)
}

// cancelledEnvelope records a cancellation for an instance that never
// started.
func cancelledEnvelope(inst dataset.Instance, err error) *InstanceAnalysis {
	return &InstanceAnalysis{
		InstanceID: inst.InstanceID,
		BaseCommit: inst.BaseCommit,
		Errors:     []string{fmt.Sprintf("analysis cancelled: %v", err)},
	}
}
