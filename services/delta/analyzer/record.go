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
	"fmt"

	"github.com/AleutianAI/Deltascope/services/delta/ged"
)

// Record is one comparison outcome for one graph kind of one file pair.
//
// A record either carries a completed comparison or a failure: failed
// comparisons report Distance -1 with Error set, and a failure in one
// kind never disturbs the records of its siblings.
type Record struct {
	Kind Kind `json:"kind"`

	// Distance is the approximate edit distance, -1 when the comparison
	// failed.
	Distance   float64 `json:"distance"`
	Normalized float64 `json:"normalized_distance"`

	// Method names the algorithm that produced the number.
	Method     string `json:"method,omitempty"`
	BeamWidth  int    `json:"beam_width,omitempty"`
	Iterations int    `json:"iterations,omitempty"`

	// Timeout reports that a budget cut the search short and Distance is
	// the best estimate found.
	Timeout   bool  `json:"timeout,omitempty"`
	ElapsedMS int64 `json:"elapsed_ms"`

	NodesBefore int `json:"nodes_before"`
	NodesAfter  int `json:"nodes_after"`
	EdgesBefore int `json:"edges_before"`
	EdgesAfter  int `json:"edges_after"`

	// Data flow records also carry def-use chain counts.
	DefUseChainsBefore int `json:"def_use_chains_before,omitempty"`
	DefUseChainsAfter  int `json:"def_use_chains_after,omitempty"`

	// Call graph records also carry function and call-site counts.
	FunctionsBefore int `json:"functions_before,omitempty"`
	FunctionsAfter  int `json:"functions_after,omitempty"`
	CallsBefore     int `json:"calls_before,omitempty"`
	CallsAfter      int `json:"calls_after,omitempty"`

	Error string `json:"error,omitempty"`
}

// newRecord maps a comparison result onto a record for the given kind.
func newRecord(k Kind, res ged.Result) Record {
	return Record{
		Kind:        k,
		Distance:    res.Distance,
		Normalized:  res.Normalized,
		Method:      res.Method,
		BeamWidth:   res.BeamWidth,
		Iterations:  res.Iterations,
		Timeout:     res.Timeout,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		NodesBefore: res.NodesBefore,
		NodesAfter:  res.NodesAfter,
		EdgesBefore: res.EdgesBefore,
		EdgesAfter:  res.EdgesAfter,
	}
}

// failedRecord builds the sentinel record for a comparison that did not
// produce a distance.
func failedRecord(k Kind, err string) Record {
	return Record{Kind: k, Distance: -1, Error: err}
}

// FileResult is the comparison outcome for one file pair, one record per
// requested kind.
type FileResult struct {
	Path string `json:"path"`

	// Changed marks files modified by the patch under analysis, as
	// opposed to module context pulled in by scope expansion.
	Changed   bool     `json:"is_changed"`
	Records   []Record `json:"records,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// Record returns the record for the given kind, or nil when the kind was
// not part of the comparison.
func (fr *FileResult) Record(k Kind) *Record {
	for i := range fr.Records {
		if fr.Records[i].Kind == k {
			return &fr.Records[i]
		}
	}
	return nil
}

// ScopeSummary reports which files the scope expansion selected for an
// instance.
type ScopeSummary struct {
	Primary       []string `json:"primary"`
	Secondary     []string `json:"secondary"`
	DirectImports []string `json:"direct_imports"`
	TotalSize     int      `json:"total_size"`
}

// InstanceAnalysis is the full analysis envelope for one benchmark
// instance. Failures never surface as Go errors: every failure mode, from
// a missing field to a clone that would not complete, lands in Errors so
// a batch run always yields one envelope per instance.
type InstanceAnalysis struct {
	InstanceID string `json:"instance_id"`

	// Repo is the owner/repo identifier, normalized from whatever form
	// the dataset carried.
	Repo       string `json:"repo,omitempty"`
	BaseCommit string `json:"base_commit,omitempty"`

	NumChangedFiles int      `json:"num_changed_files"`
	ChangedFiles    []string `json:"changed_files,omitempty"`

	Scope *ScopeSummary `json:"scope,omitempty"`

	Files []FileResult `json:"files,omitempty"`

	Errors    []string `json:"errors,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// failf appends a formatted failure to the envelope's error list.
func (ia *InstanceAnalysis) failf(format string, args ...any) {
	ia.Errors = append(ia.Errors, fmt.Sprintf(format, args...))
}
