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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
	"github.com/AleutianAI/Deltascope/services/delta/dataset"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
)

// configValidate checks config.yaml values once after unmarshal. Flag
// values never pass through here; the flag parsers report their own
// errors.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("duration", validateDuration)
}

// validateDuration accepts any string time.ParseDuration accepts.
func validateDuration(fl validator.FieldLevel) bool {
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// Config holds the optional config.yaml settings. Command-line flags
// that were set explicitly always win over config values.
type Config struct {
	// Analysis: default comparison knobs
	Analysis AnalysisConfig `yaml:"analysis"`

	// Dataset: which benchmark the fetch command pulls
	Dataset DatasetConfig `yaml:"dataset"`

	// Cache: where clones and the object cache live
	Cache CacheConfig `yaml:"cache"`
}

type AnalysisConfig struct {
	Kinds     []string `yaml:"kinds" validate:"dive,oneof=cfg dfg callgraph pdg cpg"`
	Strategy  string   `yaml:"strategy" validate:"omitempty,oneof=hybrid astar beam"`
	BeamWidth int      `yaml:"beam_width" validate:"min=0"`          // beam search width, 0 for the default
	Budget    string   `yaml:"budget" validate:"omitempty,duration"` // per-comparison budget, e.g. "2s"
	Workers   int      `yaml:"workers" validate:"min=0"`             // dataset worker count, 0 for auto
}

type DatasetConfig struct {
	Name  string `yaml:"name"`  // e.g. princeton-nlp/SWE-bench_Verified
	Split string `yaml:"split"` // e.g. test
}

type CacheConfig struct {
	Dir string `yaml:"dir"` // e.g. ~/.deltascope
}

// DefaultConfig returns the configuration used when no config.yaml is
// present.
func DefaultConfig() Config {
	return Config{
		Dataset: DatasetConfig{
			Name:  dataset.DefaultDataset,
			Split: dataset.DefaultSplit,
		},
		Cache: CacheConfig{
			Dir: defaultCacheDir(),
		},
	}
}

// defaultCacheDir places the clone cache under the user's home
// directory, falling back to the working directory when home is not
// resolvable.
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deltascope"
	}
	return filepath.Join(home, ".deltascope")
}

// LoadConfig reads a config.yaml. A missing file is not an error: every
// setting has a flag, so the file is optional.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// analysisSettings carries the resolved comparison knobs for one
// command invocation. strategyName keeps the accepted name around for
// report echoes.
type analysisSettings struct {
	kinds        []analyzer.Kind
	strategy     ged.Strategy
	strategyName string
	ssa          bool
	workers      int
}

// resolveAnalysis merges flags and config into the settings a command
// runs with. Explicitly set flags win; config values fill the rest;
// built-in defaults cover whatever remains.
func resolveAnalysis(cmd *cobra.Command) (analysisSettings, error) {
	s := analysisSettings{ssa: ssaFlag}

	names := kindsFlag
	if !cmd.Flags().Changed("kinds") && len(config.Analysis.Kinds) > 0 {
		names = config.Analysis.Kinds
	}
	for _, n := range names {
		k, err := analyzer.ParseKind(n)
		if err != nil {
			return s, err
		}
		s.kinds = append(s.kinds, k)
	}
	if len(s.kinds) == 0 {
		s.kinds = analyzer.AllKinds()
	}

	name := strategyFlag
	if !cmd.Flags().Changed("strategy") && config.Analysis.Strategy != "" {
		name = config.Analysis.Strategy
	}
	width := beamWidthFlag
	if !cmd.Flags().Changed("beam-width") && config.Analysis.BeamWidth > 0 {
		width = config.Analysis.BeamWidth
	}
	budget := budgetFlag
	if !cmd.Flags().Changed("budget") && config.Analysis.Budget != "" {
		d, err := time.ParseDuration(config.Analysis.Budget)
		if err != nil {
			return s, fmt.Errorf("config analysis.budget: %w", err)
		}
		budget = d
	}

	var opts []ged.Option
	if width > 0 {
		opts = append(opts, ged.WithBeamWidth(width))
	}
	if budget > 0 {
		opts = append(opts, ged.WithBudget(budget))
	}
	strategy, err := ged.ParseStrategy(name, opts...)
	if err != nil {
		return s, err
	}
	s.strategy = strategy
	s.strategyName = name

	s.workers = workersFlag
	if !cmd.Flags().Changed("workers") && config.Analysis.Workers > 0 {
		s.workers = config.Analysis.Workers
	}
	return s, nil
}

// resolveCacheDir picks the cache directory for the dataset pipeline.
func resolveCacheDir(cmd *cobra.Command) string {
	if cmd.Flags().Changed("cache-dir") {
		return cacheDirFlag
	}
	if config.Cache.Dir != "" {
		return config.Cache.Dir
	}
	return defaultCacheDir()
}
