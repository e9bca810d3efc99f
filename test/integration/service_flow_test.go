// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Integration test for the delta service HTTP surface
//
// This test drives the service through its public API the way deltad
// wires it, so route registration, handler plumbing, and the analysis
// engine are exercised together rather than package by package.

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delta "github.com/AleutianAI/Deltascope/services/delta"
)

func newDeltaRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := delta.NewService(delta.DefaultServiceConfig())
	require.NoError(t, err)

	router := gin.New()
	delta.RegisterRoutes(router.Group("/v1"), delta.NewHandlers(svc))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestCompareEndpointFlow runs one comparison through the full stack.
func TestCompareEndpointFlow(t *testing.T) {
	router := newDeltaRouter(t)

	t.Log("Posting a compare request...")
	w := postJSON(t, router, "/v1/delta/compare", delta.CompareRequest{
		Path:   "mod.py",
		Before: "def f(a):\n    return a\n",
		After:  "def f(a):\n    if a:\n        return a\n    return 0\n",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp delta.CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "mod.py", resp.Path)
	require.NotEmpty(t, resp.Records)

	// CRITICAL ASSERTIONS
	t.Run("Added_Branch_Moves_CFG", func(t *testing.T) {
		for _, r := range resp.Records {
			if r.Kind == "cfg" {
				assert.Positive(t, r.Distance)
				return
			}
		}
		t.Error("No cfg record in the response")
	})

	t.Run("Normalized_Within_Bounds", func(t *testing.T) {
		for _, r := range resp.Records {
			assert.GreaterOrEqual(t, r.Normalized, 0.0, r.Kind)
			assert.LessOrEqual(t, r.Normalized, 1.0, r.Kind)
		}
	})
}

// TestPatchEndpointFlow feeds a two-file diff through the service.
func TestPatchEndpointFlow(t *testing.T) {
	router := newDeltaRouter(t)

	patch := `diff --git a/a.py b/a.py
--- a/a.py
+++ b/a.py
@@ -1,2 +1,2 @@
 def f():
-    return 1
+    return 2
diff --git a/b.py b/b.py
--- a/b.py
+++ b/b.py
@@ -1,2 +1,3 @@
 def g():
+    x = 1
     return 0
`
	w := postJSON(t, router, "/v1/delta/patch", delta.PatchRequest{Patch: patch, Kinds: []string{"cfg", "dfg"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp delta.PatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.FilesCompared)
	require.Len(t, resp.Files, 2)
	for _, f := range resp.Files {
		assert.Len(t, f.Records, 2, f.Path)
	}
}

// TestHealthAndReadiness checks the probe endpoints the way a load
// balancer would.
func TestHealthAndReadiness(t *testing.T) {
	router := newDeltaRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/delta/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health delta.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/delta/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var ready delta.ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.True(t, ready.Ready)
}
