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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
	"github.com/AleutianAI/Deltascope/services/delta/dataset"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, dataset.DefaultDataset, cfg.Dataset.Name)
	assert.Equal(t, dataset.DefaultSplit, cfg.Dataset.Split)
	assert.NotEmpty(t, cfg.Cache.Dir)
}

func TestLoadConfigFile(t *testing.T) {
	yaml := `analysis:
  kinds: [cfg, dfg]
  strategy: beam
  beam_width: 3
  budget: 2s
  workers: 4
dataset:
  name: princeton-nlp/SWE-bench_Lite
cache:
  dir: /tmp/deltascope-test
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"cfg", "dfg"}, cfg.Analysis.Kinds)
	assert.Equal(t, "beam", cfg.Analysis.Strategy)
	assert.Equal(t, 3, cfg.Analysis.BeamWidth)
	assert.Equal(t, "2s", cfg.Analysis.Budget)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, "princeton-nlp/SWE-bench_Lite", cfg.Dataset.Name)
	assert.Equal(t, "/tmp/deltascope-test", cfg.Cache.Dir)

	// Keys the file omits keep their defaults.
	assert.Equal(t, dataset.DefaultSplit, cfg.Dataset.Split)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis: ["), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown strategy", "analysis:\n  strategy: simulated_annealing\n"},
		{"unknown kind", "analysis:\n  kinds: [cfg, ast]\n"},
		{"negative beam width", "analysis:\n  beam_width: -1\n"},
		{"unparseable budget", "analysis:\n  budget: fast\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validating")
		})
	}
}

// newFlagTestCommand registers the analysis flags on a throwaway
// command. Registration also resets the shared flag variables to their
// defaults, which keeps tests independent.
func newFlagTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringSliceVar(&kindsFlag, "kinds", nil, "")
	cmd.Flags().StringVar(&strategyFlag, "strategy", ged.StrategyHybrid, "")
	cmd.Flags().IntVar(&beamWidthFlag, "beam-width", 0, "")
	cmd.Flags().DurationVar(&budgetFlag, "budget", 0, "")
	cmd.Flags().BoolVar(&ssaFlag, "ssa", true, "")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "")
	return cmd
}

func TestResolveAnalysisDefaults(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{}

	s, err := resolveAnalysis(newFlagTestCommand())
	require.NoError(t, err)

	assert.Equal(t, analyzer.AllKinds(), s.kinds)
	assert.IsType(t, &ged.Hybrid{}, s.strategy)
	assert.Equal(t, ged.StrategyHybrid, s.strategyName)
	assert.True(t, s.ssa)
	assert.Zero(t, s.workers)
}

func TestResolveAnalysisConfigFallback(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{Analysis: AnalysisConfig{
		Kinds:    []string{"cfg"},
		Strategy: "astar",
		Workers:  4,
	}}

	s, err := resolveAnalysis(newFlagTestCommand())
	require.NoError(t, err)

	assert.Equal(t, []analyzer.Kind{analyzer.KindCFG}, s.kinds)
	assert.IsType(t, &ged.AStar{}, s.strategy)
	assert.Equal(t, 4, s.workers)
}

func TestResolveAnalysisFlagWins(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{Analysis: AnalysisConfig{Strategy: "astar", Workers: 4}}

	cmd := newFlagTestCommand()
	require.NoError(t, cmd.Flags().Set("strategy", "beam"))
	require.NoError(t, cmd.Flags().Set("workers", "2"))

	s, err := resolveAnalysis(cmd)
	require.NoError(t, err)

	assert.IsType(t, &ged.BeamSearch{}, s.strategy)
	assert.Equal(t, ged.StrategyBeam, s.strategyName)
	assert.Equal(t, 2, s.workers)
}

func TestResolveAnalysisUnknownKind(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{}

	cmd := newFlagTestCommand()
	require.NoError(t, cmd.Flags().Set("kinds", "cfg,ast"))

	_, err := resolveAnalysis(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown graph kind")
}

func TestResolveAnalysisUnknownStrategy(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{}

	cmd := newFlagTestCommand()
	require.NoError(t, cmd.Flags().Set("strategy", "simulated_annealing"))

	_, err := resolveAnalysis(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestResolveAnalysisBadConfigBudget(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{Analysis: AnalysisConfig{Budget: "fast"}}

	_, err := resolveAnalysis(newFlagTestCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.budget")
}

func TestResolveAnalysisBudgetFromConfig(t *testing.T) {
	defer func(old Config) { config = old }(config)
	config = Config{Analysis: AnalysisConfig{Budget: "250ms"}}

	cmd := newFlagTestCommand()
	s, err := resolveAnalysis(cmd)
	require.NoError(t, err)
	require.NotNil(t, s.strategy)

	// The flag keeps its zero default, so the config budget applies.
	assert.Equal(t, time.Duration(0), budgetFlag)
}
