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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all delta routes with the router.
//
// Description:
//
//	Registers all /v1/delta/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/delta/compare - Compare two versions of one source file
//	POST /v1/delta/patch - Analyze every file pair a unified diff touches
//	GET  /v1/delta/health - Health check
//	GET  /v1/delta/ready - Readiness check
//
// Example:
//
//	service, err := delta.NewService(delta.DefaultServiceConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	handlers := delta.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	delta.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	delta := rg.Group("/delta")
	{
		// Comparison
		delta.POST("/compare", handlers.HandleCompare)
		delta.POST("/patch", handlers.HandlePatch)

		// Health checks
		delta.GET("/health", handlers.HandleHealth)
		delta.GET("/ready", handlers.HandleReady)
	}
}
