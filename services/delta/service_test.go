// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package delta

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
)

func TestNewService_UnknownStrategy(t *testing.T) {
	config := DefaultServiceConfig()
	config.Strategy = "simulated_annealing"

	_, err := NewService(config)
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if !strings.Contains(err.Error(), "unknown strategy") {
		t.Errorf("expected 'unknown strategy' in error, got %q", err.Error())
	}
}

func TestNewService_ZeroConfigDefaults(t *testing.T) {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	config := svc.Config()
	if config.Strategy != ged.StrategyHybrid {
		t.Errorf("expected empty strategy to default to hybrid, got %q", config.Strategy)
	}
	if len(config.Kinds) != 5 {
		t.Errorf("expected empty kinds to default to all 5, got %d", len(config.Kinds))
	}
}

func TestService_Compare_KindOrderFollowsRequest(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())

	resp, err := svc.Compare(context.Background(), CompareRequest{
		Before: beforeSource,
		After:  afterSource,
		Kinds:  []string{"dfg", "cfg"},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Records))
	}
	if resp.Records[0].Kind != analyzer.KindDFG {
		t.Errorf("expected first record dfg, got %s", resp.Records[0].Kind)
	}
	if resp.Records[1].Kind != analyzer.KindCFG {
		t.Errorf("expected second record cfg, got %s", resp.Records[1].Kind)
	}
}

func TestService_Compare_BeamStrategy(t *testing.T) {
	config := DefaultServiceConfig()
	config.Strategy = ged.StrategyBeam
	config.BeamWidth = 4
	svc := newTestService(t, config)

	resp, err := svc.Compare(context.Background(), CompareRequest{
		Before: beforeSource,
		After:  beforeSource,
		Kinds:  []string{"cfg"},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	rec := resp.Records[0]
	if rec.Method != ged.MethodBeamSearch {
		t.Errorf("expected method %q, got %q", ged.MethodBeamSearch, rec.Method)
	}
	if rec.BeamWidth != 4 {
		t.Errorf("expected beam width 4, got %d", rec.BeamWidth)
	}
	if rec.Distance != 0 {
		t.Errorf("expected distance 0 for identical sources, got %f", rec.Distance)
	}
}

func TestService_Compare_OneSidedPair(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())

	// A created file has no before side; distances count pure insertions.
	resp, err := svc.Compare(context.Background(), CompareRequest{
		After: beforeSource,
		Kinds: []string{"cfg"},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if resp.Records[0].Distance <= 0 {
		t.Errorf("expected positive distance for a created file, got %f", resp.Records[0].Distance)
	}
}

func TestService_Patch_MarksFilesChanged(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())

	resp, err := svc.Patch(context.Background(), PatchRequest{
		Patch: twoFilePatch,
		Kinds: []string{"cfg"},
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}

	if resp.FilesCompared != 2 {
		t.Fatalf("expected 2 files compared, got %d", resp.FilesCompared)
	}
	for _, file := range resp.Files {
		if !file.Changed {
			t.Errorf("file %s: expected is_changed=true", file.Path)
		}
	}
}

func TestService_Ready(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())

	if !svc.Ready(context.Background()) {
		t.Error("expected service to be ready")
	}

	// The outcome is cached.
	if !svc.Ready(context.Background()) {
		t.Error("expected cached ready=true")
	}
}

func TestResolveKinds(t *testing.T) {
	kinds, err := resolveKinds(nil)
	if err != nil {
		t.Fatalf("resolveKinds(nil): %v", err)
	}
	if kinds != nil {
		t.Errorf("expected nil kinds for empty input, got %v", kinds)
	}

	kinds, err = resolveKinds([]string{"cfg", "pdg"})
	if err != nil {
		t.Fatalf("resolveKinds: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != analyzer.KindCFG || kinds[1] != analyzer.KindPDG {
		t.Errorf("unexpected kinds %v", kinds)
	}

	_, err = resolveKinds([]string{"cfg", "bogus"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
