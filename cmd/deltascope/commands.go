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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Deltascope/pkg/ux"
	"github.com/AleutianAI/Deltascope/services/delta/dataset"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
)

// --- Global Command Variables ---
var (
	configPathFlag   string
	personalityLevel string // UX personality level (standard/minimal/machine)

	// Analysis knobs shared by compare, patch, dataset run, and watch
	kindsFlag     []string
	strategyFlag  string
	beamWidthFlag int
	budgetFlag    time.Duration
	ssaFlag       bool

	// Per-command flags
	jsonFlag        bool
	outputFlag      string
	formatFlag      string
	workersFlag     int
	limitFlag       int
	instanceIDsFlag []string
	cacheDirFlag    string
	datasetFlag     string
	splitFlag       string
	fetchOutputFlag string
	settleFlag      time.Duration

	rootCmd = &cobra.Command{
		Use:   "deltascope",
		Short: "Measure structural change in Python code through program graphs",
		Long: `Deltascope builds control flow, data flow, and call graphs from
Python source and measures how far apart two versions sit in graph
edit distance. It works on single file pairs, unified diffs, and
whole benchmark datasets of real-world patches.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg, err := LoadConfig(configPathFlag)
			if err != nil {
				ux.Error(err.Error())
				os.Exit(1)
			}
			config = cfg

			if personalityLevel != "" {
				ux.SetLevel(ux.ParseLevel(personalityLevel))
			} else {
				ux.InitFromEnv()
			}
		},
	}

	// --- Comparison ---
	compareCmd = &cobra.Command{
		Use:   "compare <before.py> <after.py>",
		Short: "Compare two versions of a Python file",
		Args:  cobra.ExactArgs(2),
		Run:   runCompare, // Defined in cmd_compare.go
	}

	patchCmd = &cobra.Command{
		Use:   "patch <changes.diff>",
		Short: "Analyze every Python file touched by a unified diff",
		Args:  cobra.ExactArgs(1),
		Run:   runPatch, // Defined in cmd_patch.go
	}

	// --- Dataset Pipeline ---
	datasetCmd = &cobra.Command{
		Use:   "dataset",
		Short: "Analyze benchmark datasets of real-world patches",
	}
	datasetRunCmd = &cobra.Command{
		Use:   "run <instances.jsonl>",
		Short: "Analyze every instance in a JSONL dataset file",
		Args:  cobra.ExactArgs(1),
		Run:   runDatasetRun, // Defined in cmd_dataset.go
	}
	datasetFetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Download benchmark instances to a local JSONL file",
		Run:   runDatasetFetch, // Defined in cmd_dataset.go
	}
	datasetMergeCmd = &cobra.Command{
		Use:   "merge <run.json> [run.json...]",
		Short: "Merge run reports, keeping the first result per instance",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDatasetMerge, // Defined in cmd_dataset.go
	}

	// --- Watch Mode ---
	watchCmd = &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and analyze patch files as they arrive",
		Args:  cobra.ExactArgs(1),
		Run:   runWatch, // Defined in cmd_watch.go
	}
)

// init registers flags and wires the command tree.
func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "config.yaml",
		"Path to the optional configuration file")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: standard (default), minimal, or machine (scripting)")

	// Analysis flags apply to every command that builds graphs.
	rootCmd.PersistentFlags().StringSliceVar(&kindsFlag, "kinds", nil,
		"Graph kinds to compare: cfg, dfg, callgraph, pdg, cpg (default all)")
	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", ged.StrategyHybrid,
		"Distance strategy: hybrid, astar, or beam")
	rootCmd.PersistentFlags().IntVar(&beamWidthFlag, "beam-width", 0,
		"Beam width for the beam strategy (0 uses the strategy default)")
	rootCmd.PersistentFlags().DurationVar(&budgetFlag, "budget", 0,
		"Time budget per comparison, e.g. 2s (0 for no budget)")
	rootCmd.PersistentFlags().BoolVar(&ssaFlag, "ssa", true,
		"Version variables in data flow graphs so stale definitions drop out")

	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report as JSON to this path")
	compareCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the report as JSON instead of a summary")

	rootCmd.AddCommand(patchCmd)
	patchCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report as JSON to this path")
	patchCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the report as JSON instead of a summary")

	// Dataset pipeline
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetRunCmd)
	datasetRunCmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent instance analyses (0 for auto)")
	datasetRunCmd.Flags().IntVar(&limitFlag, "limit", 0, "Analyze at most this many instances (0 for all)")
	datasetRunCmd.Flags().StringSliceVar(&instanceIDsFlag, "instance", nil,
		"Analyze only these instance IDs (repeatable)")
	datasetRunCmd.Flags().StringVarP(&outputFlag, "output", "o", "",
		"Report path or directory (default deltascope_run_<timestamp>.<format>)")
	datasetRunCmd.Flags().StringVar(&formatFlag, "format", "json", "Report format: json or csv")
	datasetRunCmd.Flags().StringVar(&cacheDirFlag, "cache-dir", "",
		"Directory for cached clones and analysis results")

	datasetCmd.AddCommand(datasetFetchCmd)
	datasetFetchCmd.Flags().IntVar(&limitFlag, "limit", 0, "Fetch at most this many instances (0 for all)")
	datasetFetchCmd.Flags().StringVar(&datasetFlag, "dataset", "",
		"Dataset name (default "+dataset.DefaultDataset+")")
	datasetFetchCmd.Flags().StringVar(&splitFlag, "split", "",
		"Dataset split (default "+dataset.DefaultSplit+")")
	datasetFetchCmd.Flags().StringVarP(&fetchOutputFlag, "output", "o", "instances.jsonl",
		"Where to write the fetched instances")

	datasetCmd.AddCommand(datasetMergeCmd)
	datasetMergeCmd.Flags().StringVarP(&outputFlag, "output", "o", "",
		"Merged report path (default deltascope_merged.json)")
	datasetMergeCmd.Flags().StringVar(&formatFlag, "format", "json", "Report format: json or csv")

	// Watch mode
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&outputFlag, "output", "o", "",
		"Directory for reports (default next to each patch file)")
	watchCmd.Flags().DurationVar(&settleFlag, "settle", 500*time.Millisecond,
		"How long a file must be quiet before it is analyzed")
}

// fail prints the error and exits. Run handlers use it for anything
// that should stop the command.
func fail(msg string, err error) {
	ux.Error(fmt.Sprintf("%s: %v", msg, err))
	os.Exit(1)
}

// printJSON writes indented JSON to stdout for --json mode.
func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fail("Failed to encode JSON", err)
	}
}

// writeJSONFile writes indented JSON to a file, creating parent
// directories as needed.
func writeJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// resolveOutputPath turns the --output flag into a concrete file path.
// An empty flag selects defaultName in the working directory; a
// directory gets defaultName appended; anything else is used as given.
func resolveOutputPath(flagValue, defaultName string) string {
	if flagValue == "" {
		return defaultName
	}
	info, err := os.Stat(flagValue)
	if err == nil && info.IsDir() {
		return filepath.Join(flagValue, defaultName)
	}
	return flagValue
}

// logCancelled notes an interrupted run; partial results are still
// written.
func logCancelled(err error) {
	slog.Warn("run interrupted", slog.Any("reason", err))
	ux.Warning("Interrupted; partial results follow")
}
