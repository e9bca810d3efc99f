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
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
)

func sampleEnvelope(id string) *analyzer.InstanceAnalysis {
	return &analyzer.InstanceAnalysis{
		InstanceID:      id,
		Repo:            "example/app",
		BaseCommit:      "abc123",
		NumChangedFiles: 1,
		ChangedFiles:    []string{"a.py"},
		Scope: &analyzer.ScopeSummary{
			Primary:   []string{"a.py", "b.py"},
			TotalSize: 2,
		},
		Files: []analyzer.FileResult{
			fileResult("a.py", true,
				analyzer.Record{Kind: analyzer.KindCFG, Distance: 4},
				analyzer.Record{Kind: analyzer.KindDFG, Distance: 6},
			),
			fileResult("b.py", false,
				analyzer.Record{Kind: analyzer.KindCFG, Distance: 2},
			),
		},
		ElapsedMS: 250,
	}
}

func TestNewRun(t *testing.T) {
	failed := &analyzer.InstanceAnalysis{
		InstanceID: "bad-1",
		Errors:     []string{"clone failed: no such repository"},
	}

	run := NewRun([]*analyzer.InstanceAnalysis{sampleEnvelope("ok-1"), failed, nil}, 1500*time.Millisecond)

	assert.Len(t, run.RunID, 36)
	assert.False(t, run.Timestamp.IsZero())
	assert.Equal(t, 2, run.TotalAnalyzed)
	assert.Equal(t, 1, run.TotalErrors)
	assert.Equal(t, int64(1500), run.ElapsedMS)

	require.Len(t, run.Results, 2)
	require.NotNil(t, run.Results[0].Metrics)
	assert.Equal(t, 2, run.Results[0].Metrics.NumFilesAnalyzed)
	assert.Nil(t, run.Results[1].Metrics)
}

func TestMergeRunsDedupes(t *testing.T) {
	runA := NewRun([]*analyzer.InstanceAnalysis{sampleEnvelope("i-1"), sampleEnvelope("i-2")}, time.Second)
	runB := NewRun([]*analyzer.InstanceAnalysis{sampleEnvelope("i-1"), sampleEnvelope("i-3")}, time.Second)

	merged := MergeRuns(runA, runB)

	assert.NotEqual(t, runA.RunID, merged.RunID)
	assert.Equal(t, 3, merged.TotalAnalyzed)
	assert.Equal(t, int64(2000), merged.ElapsedMS)

	var ids []string
	for _, res := range merged.Results {
		ids = append(ids, res.InstanceID)
	}
	assert.Equal(t, []string{"i-1", "i-2", "i-3"}, ids)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	run := NewRun([]*analyzer.InstanceAnalysis{sampleEnvelope("rt-1")}, time.Second)
	run.Settings = &RunSettings{Kinds: []string{"cfg", "dfg"}, Strategy: "hybrid", Workers: 4}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, run))

	got, err := ReadRun(&buf)
	require.NoError(t, err)

	assert.Equal(t, run.RunID, got.RunID)
	assert.True(t, run.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, run.TotalAnalyzed, got.TotalAnalyzed)
	require.NotNil(t, got.Settings)
	assert.Equal(t, run.Settings, got.Settings)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "rt-1", got.Results[0].InstanceID)
	require.NotNil(t, got.Results[0].Metrics)
	assert.Equal(t, Stats{Sum: 6, Avg: 3, Max: 4, Min: 2, Count: 2},
		got.Results[0].Metrics.Overall.Summary["cfg_ged"])
}

func TestWriteCSV(t *testing.T) {
	run := NewRun([]*analyzer.InstanceAnalysis{sampleEnvelope("csv-1")}, time.Second)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, run))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, "instance_id", header[0])
	assert.Equal(t, "cfg_ged_sum", header[9])
	assert.Equal(t, "dfg_ged_sum", header[12])
	assert.Equal(t, "has_errors", header[len(header)-1])

	row := rows[1]
	assert.Equal(t, "csv-1", row[0])
	assert.Equal(t, "example/app", row[1])
	assert.Equal(t, "1", row[2])
	assert.Equal(t, "2", row[3])

	// cfg stats: distances 4 and 2 across the two files.
	assert.Equal(t, "6", row[9])
	assert.Equal(t, "3", row[10])
	assert.Equal(t, "4", row[11])

	// No callgraph records were produced, so its columns are sentinels.
	assert.Equal(t, "-1", row[15])

	assert.Equal(t, "250", row[len(row)-2])
	assert.Equal(t, "false", row[len(row)-1])
}

func TestWriteCSVWithoutMetrics(t *testing.T) {
	failed := &analyzer.InstanceAnalysis{
		InstanceID: "bad-1",
		Errors:     []string{"clone failed"},
	}
	run := NewRun([]*analyzer.InstanceAnalysis{failed}, 0)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, run))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "bad-1", row[0])
	assert.Equal(t, "0", row[3])
	assert.Equal(t, "-1", row[9])
	assert.Equal(t, "true", row[len(row)-1])
}
