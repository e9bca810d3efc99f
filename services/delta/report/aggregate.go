// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report aggregates analysis results and writes them out as
// JSON and CSV. Aggregation separates changed files from the module
// context around them, so a change's direct footprint and its ripple
// stay distinguishable in the summaries.
package report

import (
	"fmt"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
)

// Stats are the summary statistics over one metric's values.
type Stats struct {
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Count int     `json:"count"`
}

// GroupMetrics aggregates one group of file results: the raw values per
// metric and their summary statistics. Failed comparisons (negative
// sentinel distances) are excluded.
type GroupMetrics struct {
	AllValues map[string][]float64 `json:"all_values"`
	Summary   map[string]Stats     `json:"summary"`
}

// Aggregate summarizes the file results of one instance three ways:
// changed files only, context files only, and everything together.
type Aggregate struct {
	NumFilesAnalyzed int `json:"num_files_analyzed"`
	NumChangedFiles  int `json:"num_changed_files"`
	NumContextFiles  int `json:"num_context_files"`

	ChangedFiles *GroupMetrics `json:"changed_files_metrics,omitempty"`
	ContextFiles *GroupMetrics `json:"context_files_metrics,omitempty"`
	Overall      *GroupMetrics `json:"overall_metrics,omitempty"`
}

// MetricName returns the aggregation key for a comparison kind.
func MetricName(k analyzer.Kind) string {
	return fmt.Sprintf("%s_ged", k)
}

// NewAggregate aggregates one instance's file results.
//
// Files without records (nothing to compare on either side) still count
// toward the file totals but contribute no values. A nil return means
// there were no file results at all.
func NewAggregate(files []analyzer.FileResult) *Aggregate {
	if len(files) == 0 {
		return nil
	}

	var changed, context []analyzer.FileResult
	for _, f := range files {
		if f.Changed {
			changed = append(changed, f)
		} else {
			context = append(context, f)
		}
	}

	return &Aggregate{
		NumFilesAnalyzed: len(files),
		NumChangedFiles:  len(changed),
		NumContextFiles:  len(context),
		ChangedFiles:     groupMetrics(changed),
		ContextFiles:     groupMetrics(context),
		Overall:          groupMetrics(files),
	}
}

func groupMetrics(files []analyzer.FileResult) *GroupMetrics {
	if len(files) == 0 {
		return nil
	}

	values := make(map[string][]float64)
	for _, f := range files {
		for _, rec := range f.Records {
			if rec.Distance < 0 {
				continue
			}
			name := MetricName(rec.Kind)
			values[name] = append(values[name], rec.Distance)
		}
	}

	summary := make(map[string]Stats, len(values))
	for name, vals := range values {
		summary[name] = computeStats(vals)
	}
	return &GroupMetrics{AllValues: values, Summary: summary}
}

func computeStats(vals []float64) Stats {
	s := Stats{Count: len(vals), Max: vals[0], Min: vals[0]}
	for _, v := range vals {
		s.Sum += v
		if v > s.Max {
			s.Max = v
		}
		if v < s.Min {
			s.Min = v
		}
	}
	s.Avg = s.Sum / float64(len(vals))
	return s
}
