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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
)

// WriteJSON writes the full run envelope, indented for diffing.
func WriteJSON(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	return nil
}

// WriteCSV writes one summary row per instance: identification, scope
// sizes, and per-kind sum/avg/max over the overall metrics. Instances
// without a statistic carry -1 in its place.
func WriteCSV(w io.Writer, run *Run) error {
	cw := csv.NewWriter(w)

	header := []string{
		"instance_id", "repo", "num_changed_files",
		"scope_size", "primary_files", "secondary_files", "direct_imports",
		"num_files_analyzed", "num_context_files",
	}
	for _, k := range analyzer.AllKinds() {
		name := MetricName(k)
		header = append(header, name+"_sum", name+"_avg", name+"_max")
	}
	header = append(header, "elapsed_ms", "has_errors")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, res := range run.Results {
		if res == nil || res.InstanceAnalysis == nil {
			continue
		}
		row := []string{
			res.InstanceID,
			res.Repo,
			strconv.Itoa(res.NumChangedFiles),
		}
		row = append(row, scopeColumns(res)...)
		row = append(row, fileCountColumns(res)...)
		for _, k := range analyzer.AllKinds() {
			row = append(row, statColumns(res, MetricName(k))...)
		}
		row = append(row,
			strconv.FormatInt(res.ElapsedMS, 10),
			strconv.FormatBool(len(res.Errors) > 0),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", res.InstanceID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func scopeColumns(res *InstanceReport) []string {
	if res.Scope == nil {
		return []string{"0", "0", "0", "0"}
	}
	return []string{
		strconv.Itoa(res.Scope.TotalSize),
		strconv.Itoa(len(res.Scope.Primary)),
		strconv.Itoa(len(res.Scope.Secondary)),
		strconv.Itoa(len(res.Scope.DirectImports)),
	}
}

func fileCountColumns(res *InstanceReport) []string {
	if res.Metrics == nil {
		return []string{"0", "0"}
	}
	return []string{
		strconv.Itoa(res.Metrics.NumFilesAnalyzed),
		strconv.Itoa(res.Metrics.NumContextFiles),
	}
}

func statColumns(res *InstanceReport, name string) []string {
	if res.Metrics == nil || res.Metrics.Overall == nil {
		return []string{"-1", "-1", "-1"}
	}
	stats, ok := res.Metrics.Overall.Summary[name]
	if !ok {
		return []string{"-1", "-1", "-1"}
	}
	return []string{
		formatFloat(stats.Sum),
		formatFloat(stats.Avg),
		formatFloat(stats.Max),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
