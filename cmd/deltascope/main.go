// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command deltascope is the command-line interface for program-graph
// comparison of Python source.
//
// Usage:
//
//	deltascope compare old.py new.py
//	deltascope patch changes.diff --kinds cfg,dfg
//	deltascope dataset fetch --limit 50
//	deltascope dataset run instances.jsonl --workers 4 -o results.json
//	deltascope dataset merge run1.json run2.json
//	deltascope watch ./incoming --settle 1s
//
// Settings come from flags first, then an optional config.yaml, then
// built-in defaults.
package main

import "os"

// config holds the loaded configuration. PersistentPreRun fills it
// before any command body runs.
var config Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
