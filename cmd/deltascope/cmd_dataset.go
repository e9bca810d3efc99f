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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Deltascope/pkg/ux"
	"github.com/AleutianAI/Deltascope/pkg/validation"
	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
	"github.com/AleutianAI/Deltascope/services/delta/dataset"
	"github.com/AleutianAI/Deltascope/services/delta/repomgr"
	"github.com/AleutianAI/Deltascope/services/delta/report"
	"github.com/AleutianAI/Deltascope/services/delta/store"
)

// runDatasetRun analyzes every instance of a local JSONL dataset file
// on a worker pool, then writes a run report.
func runDatasetRun(cmd *cobra.Command, args []string) {
	if err := validation.ValidateInstanceIDs(instanceIDsFlag); err != nil {
		fail("Invalid instance filter", err)
	}

	instances, err := dataset.LoadFile(args[0])
	if err != nil {
		fail("Failed to load dataset", err)
	}
	if len(instanceIDsFlag) > 0 {
		instances = dataset.Filter(instances, instanceIDsFlag...)
	}
	if limitFlag > 0 && len(instances) > limitFlag {
		instances = instances[:limitFlag]
	}
	if len(instances) == 0 {
		ux.Warning("No instances to analyze")
		return
	}

	settings, err := resolveAnalysis(cmd)
	if err != nil {
		fail("Invalid analysis settings", err)
	}

	ia, cleanup, err := newInstanceAnalyzer(cmd, settings)
	if err != nil {
		fail("Failed to set up analysis", err)
	}
	defer cleanup()

	// Ctrl-C cancels the batch; partial results are still reported.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	start := time.Now()
	spin := ux.NewSpinner(fmt.Sprintf("Analyzing %d instances", len(instances)))
	spin.Start()
	results := ia.AnalyzeBatch(ctx, instances, settings.workers)
	spin.Stop()

	if ctx.Err() != nil {
		logCancelled(ctx.Err())
	}

	run := report.NewRun(results, time.Since(start))
	run.Settings = runSettings(settings)

	defaultName := fmt.Sprintf("deltascope_run_%s.%s", start.Format("20060102_150405"), formatFlag)
	outputPath := resolveOutputPath(outputFlag, defaultName)
	if err := writeRun(outputPath, formatFlag, run); err != nil {
		fail("Failed to write report", err)
	}

	ux.KeyValue("Run ID", run.RunID)
	ux.KeyValue("Report", outputPath)
	ux.Summary(run.TotalAnalyzed-run.TotalErrors, run.TotalErrors, len(instances))
	ux.Muted(fmt.Sprintf("Completed in %s", time.Since(start).Round(time.Second)))
}

// newInstanceAnalyzer builds the instance pipeline: object cache,
// clone cache, and the analyzer on top. The returned cleanup closes
// whatever opened.
func newInstanceAnalyzer(cmd *cobra.Command, settings analysisSettings) (*analyzer.InstanceAnalyzer, func(), error) {
	cacheDir := resolveCacheDir(cmd)

	var mgrOpts []repomgr.Option
	cleanup := func() {}

	st, err := store.Open(store.DefaultConfig(filepath.Join(cacheDir, "cache")))
	if err != nil {
		// The cache only saves rework across runs; analysis works
		// without it.
		ux.Warning(fmt.Sprintf("Result cache unavailable: %v", err))
	} else {
		mgrOpts = append(mgrOpts, repomgr.WithStore(st))
		cleanup = func() {
			if closeErr := st.Close(); closeErr != nil {
				ux.Warning(fmt.Sprintf("Failed to close cache: %v", closeErr))
			}
		}
	}

	mgr, err := repomgr.NewManager(filepath.Join(cacheDir, "repos"), mgrOpts...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	a := analyzer.NewAnalyzer(
		analyzer.WithStrategy(settings.strategy),
		analyzer.WithKinds(settings.kinds...),
		analyzer.WithSSA(settings.ssa),
	)
	return analyzer.NewInstanceAnalyzer(a, mgr), cleanup, nil
}

// runSettings echoes the resolved analysis settings into the report.
func runSettings(s analysisSettings) *report.RunSettings {
	kinds := make([]string, len(s.kinds))
	for i, k := range s.kinds {
		kinds[i] = string(k)
	}
	return &report.RunSettings{
		Kinds:    kinds,
		Strategy: s.strategyName,
		Workers:  s.workers,
	}
}

// writeRun writes a run report in the requested format.
func writeRun(path, format string, run *report.Run) error {
	if format != "json" && format != "csv" {
		return fmt.Errorf("unknown format %q, want json or csv", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			ux.Warning(fmt.Sprintf("Failed to close report file: %v", closeErr))
		}
	}()

	if format == "csv" {
		return report.WriteCSV(f, run)
	}
	return report.WriteJSON(f, run)
}

// runDatasetFetch downloads benchmark instances and writes them as
// JSONL, one instance per line, ready for dataset run.
func runDatasetFetch(cmd *cobra.Command, _ []string) {
	name := datasetFlag
	if name == "" {
		name = config.Dataset.Name
	}
	split := splitFlag
	if split == "" {
		split = config.Dataset.Split
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	loader := dataset.NewLoader(dataset.WithDataset(name, split))

	var instances []dataset.Instance
	err := ux.WithSpinner(fmt.Sprintf("Fetching %s [%s]", name, split), func() error {
		var fetchErr error
		instances, fetchErr = loader.Fetch(ctx, limitFlag)
		return fetchErr
	})
	if err != nil {
		os.Exit(1)
	}

	if err := writeInstancesJSONL(fetchOutputFlag, instances); err != nil {
		fail("Failed to write instances", err)
	}
	ux.Success(fmt.Sprintf("Fetched %d instances to %s", len(instances), fetchOutputFlag))
}

// writeInstancesJSONL writes instances in the format LoadFile reads.
func writeInstancesJSONL(path string, instances []dataset.Instance) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(f)
	for _, in := range instances {
		if err := encoder.Encode(in); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}

// runDatasetMerge combines run reports. Listing a rerun before an
// older run keeps the rerun's result for instances in both.
func runDatasetMerge(cmd *cobra.Command, args []string) {
	merged, err := mergeRunFiles(args)
	if err != nil {
		fail("Merge failed", err)
	}

	outputPath := resolveOutputPath(outputFlag, "deltascope_merged."+formatFlag)
	if err := writeRun(outputPath, formatFlag, merged); err != nil {
		fail("Failed to write report", err)
	}

	ux.KeyValue("Runs merged", fmt.Sprintf("%d", len(args)))
	ux.KeyValue("Instances", fmt.Sprintf("%d", merged.TotalAnalyzed))
	ux.KeyValue("Report", outputPath)
	ux.Success("Merge complete")
}

// mergeRunFiles loads each run report and merges them in argument
// order.
func mergeRunFiles(paths []string) (*report.Run, error) {
	runs := make([]*report.Run, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		run, err := report.ReadRun(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		runs = append(runs, run)
	}
	return report.MergeRuns(runs...), nil
}
