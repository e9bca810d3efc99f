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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServiceVersion is the delta service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the delta service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCompare handles POST /v1/delta/compare.
//
// Description:
//
//	Compares two versions of one source file across the requested graph
//	kinds and returns one distance record per kind.
//
// Request Body:
//
//	CompareRequest
//
// Response:
//
//	200 OK: CompareResponse
//	400 Bad Request: Validation error
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleCompare(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCompare")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Comparing sources",
		"path", req.Path,
		"before_len", len(req.Before),
		"after_len", len(req.After),
		"kinds", req.Kinds)

	resp, err := h.svc.Compare(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "COMPARE_FAILED"

		if errors.Is(err, ErrNoSources) {
			statusCode = http.StatusBadRequest
			errCode = "NO_SOURCES"
		} else if errors.Is(err, ErrSourceTooLarge) {
			statusCode = http.StatusBadRequest
			errCode = "SOURCE_TOO_LARGE"
		} else if errors.Is(err, ErrUnknownKind) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_KIND"
		}

		logger.Error("Compare failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Comparison complete",
		"path", resp.Path,
		"records", len(resp.Records),
		"elapsed_ms", resp.ElapsedMS)

	c.JSON(http.StatusOK, resp)
}

// HandlePatch handles POST /v1/delta/patch.
//
// Description:
//
//	Analyzes a unified diff: reconstructs both sides of every changed
//	Python file and compares each pair across the requested graph kinds.
//
// Request Body:
//
//	PatchRequest
//
// Response:
//
//	200 OK: PatchResponse
//	400 Bad Request: Validation error
//	504 Gateway Timeout: Analysis exceeded the service time limit
//	500 Internal Server Error: Processing error
func (h *Handlers) HandlePatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePatch")

	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Analyzing patch",
		"patch_len", len(req.Patch),
		"kinds", req.Kinds)

	resp, err := h.svc.Patch(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "PATCH_FAILED"

		if errors.Is(err, ErrPatchInvalid) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_PATCH"
		} else if errors.Is(err, ErrPatchTooLarge) {
			statusCode = http.StatusBadRequest
			errCode = "PATCH_TOO_LARGE"
		} else if errors.Is(err, ErrTooManyFiles) {
			statusCode = http.StatusBadRequest
			errCode = "TOO_MANY_FILES"
		} else if errors.Is(err, ErrUnknownKind) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_KIND"
		} else if errors.Is(err, ErrCompareTimeout) {
			statusCode = http.StatusGatewayTimeout
			errCode = "COMPARE_TIMEOUT"
		}

		logger.Error("Patch analysis failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Patch analyzed",
		"files_compared", resp.FilesCompared,
		"elapsed_ms", resp.ElapsedMS)

	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/delta/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if running.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/delta/ready.
//
// Description:
//
//	Returns the readiness status of the service. The first call probes
//	the parser runtime; 503 Service Unavailable means the pipeline could
//	not complete the probe yet.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true) - Service is fully ready
//	503 Service Unavailable: ReadyResponse (Ready=false) - Probe failed
func (h *Handlers) HandleReady(c *gin.Context) {
	config := h.svc.Config()
	kinds := make([]string, 0, len(config.Kinds))
	for _, k := range config.Kinds {
		kinds = append(kinds, string(k))
	}

	resp := ReadyResponse{
		Ready:    h.svc.Ready(c.Request.Context()),
		Strategy: config.Strategy,
		Kinds:    kinds,
	}

	if !resp.Ready {
		c.Header("Retry-After", "10")
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
