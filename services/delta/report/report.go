// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
)

// InstanceReport pairs one instance's analysis envelope with its
// aggregated metrics.
type InstanceReport struct {
	*analyzer.InstanceAnalysis

	Metrics *Aggregate `json:"metrics,omitempty"`
}

// RunSettings echoes the analysis configuration a run was produced
// with, so a report is interpretable without the invocation that made
// it.
type RunSettings struct {
	Kinds    []string `json:"kinds,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
	Workers  int      `json:"workers,omitempty"`
}

// Run is the persisted envelope for one batch of instance analyses.
type Run struct {
	RunID         string            `json:"run_id"`
	Timestamp     time.Time         `json:"timestamp"`
	TotalAnalyzed int               `json:"total_analyzed"`
	TotalErrors   int               `json:"total_errors"`
	ElapsedMS     int64             `json:"elapsed_ms"`
	Settings      *RunSettings      `json:"settings,omitempty"`
	Results       []*InstanceReport `json:"results"`
}

// NewRun wraps batch results into a run envelope, aggregating each
// instance's file results.
func NewRun(results []*analyzer.InstanceAnalysis, elapsed time.Duration) *Run {
	run := &Run{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ElapsedMS: elapsed.Milliseconds(),
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		run.Results = append(run.Results, &InstanceReport{
			InstanceAnalysis: res,
			Metrics:          NewAggregate(res.Files),
		})
		run.TotalAnalyzed++
		if len(res.Errors) > 0 {
			run.TotalErrors++
		}
	}
	return run
}

// MergeRuns combines several runs into one, dropping duplicate
// instances. The first occurrence of an instance ID wins, so merging a
// rerun over an older run keeps the rerun's result by putting it first.
// Settings are not carried over; a merged run spans invocations.
func MergeRuns(runs ...*Run) *Run {
	merged := &Run{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
	seen := make(map[string]bool)
	for _, run := range runs {
		if run == nil {
			continue
		}
		merged.ElapsedMS += run.ElapsedMS
		for _, res := range run.Results {
			if res == nil || res.InstanceAnalysis == nil {
				continue
			}
			if seen[res.InstanceID] {
				continue
			}
			seen[res.InstanceID] = true
			merged.Results = append(merged.Results, res)
			merged.TotalAnalyzed++
			if len(res.Errors) > 0 {
				merged.TotalErrors++
			}
		}
	}
	return merged
}

// ReadRun decodes a run envelope written by WriteJSON.
func ReadRun(r io.Reader) (*Run, error) {
	var run Run
	if err := json.NewDecoder(r).Decode(&run); err != nil {
		return nil, fmt.Errorf("decoding run: %w", err)
	}
	return &run, nil
}
