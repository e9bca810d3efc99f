// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Integration test for the batch analysis pipeline
//
// This test runs the full dataset workflow against a local git fixture:
// load instances from JSONL, clone and check out the base commit,
// analyze every file in scope, and round-trip the run report.

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
	"github.com/AleutianAI/Deltascope/services/delta/dataset"
	"github.com/AleutianAI/Deltascope/services/delta/repomgr"
	"github.com/AleutianAI/Deltascope/services/delta/report"
	"github.com/AleutianAI/Deltascope/services/delta/store"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{
		"-C", dir,
		"-c", "user.email=delta@test",
		"-c", "user.name=delta",
		"-c", "commit.gpgsign=false",
	}
	out, err := exec.Command("git", append(base, args...)...).CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

const flowPatch = `diff --git a/app/main.py b/app/main.py
--- a/app/main.py
+++ b/app/main.py
@@ -1,3 +1,4 @@
 def main():
-    x = 1
+    x = 2
+    y = 3
     return x
`

// fixtureRepo builds a one-commit repository with a small package.
func fixtureRepo(t *testing.T) (dir, commit string) {
	t.Helper()
	dir = t.TempDir()
	runGit(t, dir, "init", "-q")

	appDir := filepath.Join(dir, "app")
	require.NoError(t, os.MkdirAll(appDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "__init__.py"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "main.py"),
		[]byte("def main():\n    x = 1\n    return x\n"), 0o600))

	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir, runGit(t, dir, "rev-parse", "HEAD")
}

// writeInstancesFile lays the instances down as JSONL, the same format
// dataset fetch produces.
func writeInstancesFile(t *testing.T, dir string, instances []dataset.Instance) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, in := range instances {
		require.NoError(t, enc.Encode(in))
	}
	path := filepath.Join(dir, "instances.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

// TestBatchPipelineFlow exercises load, analyze, report, and reload as
// one sequence.
func TestBatchPipelineFlow(t *testing.T) {
	requireGit(t)
	src, commit := fixtureRepo(t)

	// Step 1: Load instances from JSONL
	t.Log("Loading instances...")
	path := writeInstancesFile(t, t.TempDir(), []dataset.Instance{
		{InstanceID: "flow-1", Repo: "example/app", BaseCommit: commit, Patch: flowPatch},
		{InstanceID: "flow-2", Repo: "example/app", BaseCommit: commit, Patch: flowPatch},
	})
	instances, err := dataset.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, instances, 2)

	// Step 2: Wire the pipeline with a snapshot cache
	st, err := store.Open(store.DefaultConfig(filepath.Join(t.TempDir(), "cache")))
	require.NoError(t, err)
	defer st.Close()

	mgr, err := repomgr.NewManager(t.TempDir(), repomgr.WithStore(st))
	require.NoError(t, err)

	resolve := func(dataset.Instance) (string, string) { return src, "example_app" }
	ia := analyzer.NewInstanceAnalyzer(analyzer.NewAnalyzer(), mgr, analyzer.WithRepoResolver(resolve))

	// Step 3: Run the batch
	t.Log("Analyzing batch...")
	start := time.Now()
	results := ia.AnalyzeBatch(context.Background(), instances, 2)
	require.Len(t, results, 2)

	// CRITICAL ASSERTIONS
	t.Run("Envelopes_Carry_Records", func(t *testing.T) {
		for _, env := range results {
			assert.Empty(t, env.Errors, env.InstanceID)
			assert.NotEmpty(t, env.Files, env.InstanceID)
		}
	})

	t.Run("Identical_Instances_Agree", func(t *testing.T) {
		// Both instances run the same patch on the same commit, so their
		// distances must match exactly.
		a, b := results[0], results[1]
		require.Equal(t, len(a.Files), len(b.Files))
		for i := range a.Files {
			require.Equal(t, len(a.Files[i].Records), len(b.Files[i].Records))
			for j := range a.Files[i].Records {
				assert.Equal(t, a.Files[i].Records[j].Distance, b.Files[i].Records[j].Distance)
			}
		}
	})

	// Step 4: Write the run report and read it back
	t.Log("Round-tripping the report...")
	run := report.NewRun(results, time.Since(start))

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, run))
	reloaded, err := report.ReadRun(&buf)
	require.NoError(t, err)

	t.Run("Report_Survives_Roundtrip", func(t *testing.T) {
		assert.Equal(t, run.RunID, reloaded.RunID)
		assert.Equal(t, 2, reloaded.TotalAnalyzed)
		assert.Equal(t, 0, reloaded.TotalErrors)
		require.Len(t, reloaded.Results, 2)
		assert.Equal(t, "flow-1", reloaded.Results[0].InstanceID)
	})
}
