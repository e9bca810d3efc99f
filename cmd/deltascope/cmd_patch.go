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
	"github.com/AleutianAI/Deltascope/services/delta/patch"
	"github.com/AleutianAI/Deltascope/services/delta/report"
)

// patchReport is the output of one unified-diff analysis.
type patchReport struct {
	Patch         string                `json:"patch"`
	FilesCompared int                   `json:"files_compared"`
	Files         []analyzer.FileResult `json:"files,omitempty"`
	Metrics       *report.Aggregate     `json:"metrics,omitempty"`
	ElapsedMS     int64                 `json:"elapsed_ms"`
}

func runPatch(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fail("Failed to read patch", err)
	}
	settings, err := resolveAnalysis(cmd)
	if err != nil {
		fail("Invalid analysis settings", err)
	}

	var rep *patchReport
	run := func() error {
		var runErr error
		rep, runErr = analyzePatch(context.Background(), settings, filepath.Base(args[0]), string(data))
		return runErr
	}
	if jsonFlag {
		// No spinner in JSON mode so stdout stays parseable.
		if err := run(); err != nil {
			fail("Patch analysis failed", err)
		}
	} else if err := ux.WithSpinner("Analyzing patch", run); err != nil {
		// The spinner already reported the failure.
		os.Exit(1)
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
	printPatchSummary(rep)
}

// analyzePatch splits a unified diff into file pairs and compares each
// Python pair across the requested graph kinds. watch mode reuses it
// for every patch file that arrives.
func analyzePatch(ctx context.Context, settings analysisSettings, label, patchText string) (*patchReport, error) {
	pairs, err := patch.ExtractFilePairs(patchText)
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	a := analyzer.NewAnalyzer(
		analyzer.WithStrategy(settings.strategy),
		analyzer.WithKinds(settings.kinds...),
		analyzer.WithSSA(settings.ssa),
	)

	start := time.Now()
	files := make([]analyzer.FileResult, 0, len(pairs))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr := a.Compare(ctx, pair.Path, pair.Before, pair.After)
		fr.Changed = true
		files = append(files, fr)
	}

	return &patchReport{
		Patch:         label,
		FilesCompared: len(files),
		Files:         files,
		Metrics:       report.NewAggregate(files),
		ElapsedMS:     time.Since(start).Milliseconds(),
	}, nil
}

func printPatchSummary(rep *patchReport) {
	ux.Title(fmt.Sprintf("Patch analysis: %s", rep.Patch))

	if rep.FilesCompared == 0 {
		ux.Info("No Python files in the patch")
		return
	}

	failed := 0
	for _, f := range rep.Files {
		if fileFailed(f) {
			failed++
			ux.Warning(fmt.Sprintf("%s: %s", f.Path, firstError(f)))
			continue
		}
		ux.KeyValue(f.Path, summarizeRecords(f.Records))
	}
	ux.Summary(rep.FilesCompared-failed, failed, rep.FilesCompared)
	ux.Muted(fmt.Sprintf("Completed in %dms", rep.ElapsedMS))
}

// fileFailed reports whether every comparison for the file failed.
// Partial results still carry usable distances, so only a total loss
// counts as a failure.
func fileFailed(f analyzer.FileResult) bool {
	if len(f.Records) == 0 {
		return false
	}
	for _, r := range f.Records {
		if r.Error == "" {
			return false
		}
	}
	return true
}

func firstError(f analyzer.FileResult) string {
	for _, r := range f.Records {
		if r.Error != "" {
			return r.Error
		}
	}
	return "no records"
}

// summarizeRecords renders one compact line of distances per kind.
func summarizeRecords(records []analyzer.Record) string {
	out := ""
	for i, r := range records {
		if i > 0 {
			out += "  "
		}
		if r.Error != "" {
			out += fmt.Sprintf("%s n/a", r.Kind)
			continue
		}
		out += fmt.Sprintf("%s %.1f", r.Kind, r.Distance)
	}
	return out
}
