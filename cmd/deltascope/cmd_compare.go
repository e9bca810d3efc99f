// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Deltascope/pkg/ux"
	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
)

// compareReport is the output of one file-pair comparison.
type compareReport struct {
	BeforePath string            `json:"before_path"`
	AfterPath  string            `json:"after_path"`
	Records    []analyzer.Record `json:"records"`
	ElapsedMS  int64             `json:"elapsed_ms"`
}

func runCompare(cmd *cobra.Command, args []string) {
	settings, err := resolveAnalysis(cmd)
	if err != nil {
		fail("Invalid analysis settings", err)
	}

	rep, err := compareFiles(context.Background(), settings, args[0], args[1])
	if err != nil {
		fail("Comparison failed", err)
	}

	if outputFlag != "" {
		if err := writeJSONFile(outputFlag, rep); err != nil {
			fail("Failed to write report", err)
		}
		ux.Success(fmt.Sprintf("Report written to %s", outputFlag))
		return
	}
	if jsonFlag {
		printJSON(rep)
		return
	}
	printCompareSummary(rep)
}

// readSource loads one side of the comparison.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// compareFiles reads both versions and compares them across the
// requested graph kinds.
func compareFiles(ctx context.Context, settings analysisSettings, beforePath, afterPath string) (*compareReport, error) {
	before, err := readSource(beforePath)
	if err != nil {
		return nil, err
	}
	after, err := readSource(afterPath)
	if err != nil {
		return nil, err
	}

	a := analyzer.NewAnalyzer(
		analyzer.WithStrategy(settings.strategy),
		analyzer.WithKinds(settings.kinds...),
		analyzer.WithSSA(settings.ssa),
	)

	start := time.Now()
	fr := a.Compare(ctx, filepath.Base(afterPath), before, after)

	return &compareReport{
		BeforePath: beforePath,
		AfterPath:  afterPath,
		Records:    fr.Records,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}, nil
}

func printCompareSummary(rep *compareReport) {
	ux.Title(fmt.Sprintf("Graph delta: %s vs %s",
		filepath.Base(rep.BeforePath), filepath.Base(rep.AfterPath)))

	for _, r := range rep.Records {
		if r.Error != "" {
			ux.Warning(fmt.Sprintf("%s: %s", r.Kind, r.Error))
			continue
		}
		ux.KeyValue(string(r.Kind), fmt.Sprintf("distance %.1f  normalized %.3f  (%s)",
			r.Distance, r.Normalized, r.Method))
		ux.Muted(fmt.Sprintf("    nodes %d to %d, edges %d to %d",
			r.NodesBefore, r.NodesAfter, r.EdgesBefore, r.EdgesAfter))
	}
	ux.Muted(fmt.Sprintf("Completed in %dms", rep.ElapsedMS))
}
