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
	"github.com/AleutianAI/Deltascope/services/delta/analyzer"
)

// CompareRequest is the request body for POST /v1/delta/compare.
type CompareRequest struct {
	// Path labels the file pair in graphs, logs, and the response.
	// Default: "source.py".
	Path string `json:"path"`

	// Before is the source text of the original version. Empty means the
	// file does not exist on that side.
	Before string `json:"before"`

	// After is the source text of the modified version. Empty means the
	// file does not exist on that side.
	After string `json:"after"`

	// Kinds restricts the comparison to the named graph kinds
	// (cfg, dfg, callgraph, pdg, cpg). Default: the service's configured
	// kinds.
	Kinds []string `json:"kinds"`
}

// CompareResponse is the response for POST /v1/delta/compare.
type CompareResponse struct {
	// Path is the file label the records were computed under.
	Path string `json:"path"`

	// Records holds one comparison record per kind, in request order.
	Records []analyzer.Record `json:"records"`

	// ElapsedMS is the total comparison time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// PatchRequest is the request body for POST /v1/delta/patch.
type PatchRequest struct {
	// Patch is a unified diff, possibly spanning multiple files. Required.
	Patch string `json:"patch" binding:"required"`

	// Kinds restricts the comparison to the named graph kinds.
	// Default: the service's configured kinds.
	Kinds []string `json:"kinds"`
}

// PatchResponse is the response for POST /v1/delta/patch.
type PatchResponse struct {
	// Files holds one comparison result per changed Python file, in
	// patch order. Empty when the patch touches no Python files.
	Files []analyzer.FileResult `json:"files"`

	// FilesCompared is the number of file pairs compared.
	FilesCompared int `json:"files_compared"`

	// ElapsedMS is the total analysis time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// HealthResponse is the response for GET /v1/delta/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/delta/ready.
type ReadyResponse struct {
	// Ready is true if the comparison pipeline passed its probe.
	Ready bool `json:"ready"`

	// Strategy is the configured comparison strategy.
	Strategy string `json:"strategy"`

	// Kinds are the comparison kinds applied when a request names none.
	Kinds []string `json:"kinds"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
