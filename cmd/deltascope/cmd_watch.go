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
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Deltascope/pkg/ux"
)

// runWatch analyzes patch files as they land in a directory. Each
// .diff or .patch file is left to settle, then analyzed, and its
// report written next to it (or into --output).
func runWatch(cmd *cobra.Command, args []string) {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		fail("Cannot watch directory", err)
	}
	if !info.IsDir() {
		fail("Cannot watch directory", fmt.Errorf("%s is not a directory", dir))
	}

	settings, err := resolveAnalysis(cmd)
	if err != nil {
		fail("Invalid analysis settings", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fail("Failed to create watcher", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			ux.Warning(fmt.Sprintf("Failed to close watcher: %v", closeErr))
		}
	}()
	if err := watcher.Add(dir); err != nil {
		fail("Failed to watch directory", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ux.Info(fmt.Sprintf("Watching %s for .diff and .patch files", dir))
	ux.Muted("Press Ctrl-C to stop")

	watchLoop(ctx, watcher, settings)
}

// watchLoop batches events per file and analyzes each file once its
// settle window expires, so a patch still being copied in is not read
// half-written.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, settings analysisSettings) {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, path := range sortedPaths(pending) {
			processPatchFile(ctx, settings, path)
		}
		clear(pending)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			// Files still settling are abandoned; analyzing against a
			// cancelled context would only report the cancellation.
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isPatchFile(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(settleFlag)
				timerC = timer.C
			} else {
				timer.Reset(settleFlag)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			ux.Warning(fmt.Sprintf("Watcher error: %v", err))

		case <-timerC:
			flush()
		}
	}
}

// isPatchFile accepts .diff and .patch files, skipping hidden files
// and editor temporaries.
func isPatchFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".diff", ".patch":
		return true
	}
	return false
}

// reportPath places the report next to the patch file, or inside the
// --output directory when one was given. changes.diff becomes
// changes.json either way.
func reportPath(patchPath, outputDir string) string {
	base := filepath.Base(patchPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(patchPath), name)
}

// processPatchFile analyzes one settled patch file and writes its
// report. Failures are reported and skipped; the watch keeps running.
func processPatchFile(ctx context.Context, settings analysisSettings, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		ux.Warning(fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return
	}

	rep, err := analyzePatch(ctx, settings, filepath.Base(path), string(data))
	if err != nil {
		ux.Warning(fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return
	}

	out := reportPath(path, outputFlag)
	if outputFlag != "" {
		if err := os.MkdirAll(outputFlag, 0o755); err != nil {
			ux.Warning(fmt.Sprintf("%s: %v", filepath.Base(path), err))
			return
		}
	}
	if err := writeJSONFile(out, rep); err != nil {
		ux.Warning(fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return
	}
	ux.Success(fmt.Sprintf("%s: compared %d files, report at %s",
		filepath.Base(path), rep.FilesCompared, out))
}

// sortedPaths drains the pending set in a stable order.
func sortedPaths(pending map[string]struct{}) []string {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
