// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command deltad starts the Deltascope API server.
//
// Deltascope measures how far a code change moves a program's structure:
// it parses both versions of a Python source file, builds control flow,
// data flow, call graph, and merged dependence graphs, and approximates
// the graph edit distance between the two sides.
//
// Usage:
//
//	go run ./cmd/deltad
//	go run ./cmd/deltad -port 9090
//	go run ./cmd/deltad -strategy beam -beam-width 25
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/delta/health
//
//	# Compare two versions of one file
//	curl -X POST http://localhost:8080/v1/delta/compare \
//	  -H "Content-Type: application/json" \
//	  -d '{"before": "x = 1\n", "after": "x = 2\n", "kinds": ["cfg"]}'
//
//	# Analyze a unified diff
//	curl -X POST http://localhost:8080/v1/delta/patch \
//	  -H "Content-Type: application/json" \
//	  -d "{\"patch\": $(jq -Rs . < changes.diff)}"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/Deltascope/pkg/logging"
	"github.com/AleutianAI/Deltascope/services/delta"
	"github.com/AleutianAI/Deltascope/services/delta/ged"
	"github.com/AleutianAI/Deltascope/services/delta/telemetry"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	strategy := flag.String("strategy", ged.StrategyHybrid, "Comparison strategy (hybrid, astar, beam)")
	beamWidth := flag.Int("beam-width", 0, "Beam width override, 0 keeps the strategy default")
	budget := flag.Duration("budget", 0, "Per-comparison budget override, 0 keeps the strategy default")
	logDir := flag.String("log-dir", "", "Directory for JSON log files, empty disables file logging")
	noTelemetry := flag.Bool("no-telemetry", false, "Disable trace and metric exporters")
	flag.Parse()

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  *logDir,
		Service: "deltad",
	})
	slog.SetDefault(logger.Slog())

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	telemetryCfg := telemetry.DefaultConfig()
	if *noTelemetry {
		telemetryCfg.TraceExporter = "none"
		telemetryCfg.MetricExporter = "none"
	}
	telemetryShutdown, err := telemetry.Init(context.Background(), telemetryCfg)
	if err != nil {
		slog.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create service from flags
	cfg := delta.DefaultServiceConfig()
	cfg.Strategy = *strategy
	cfg.BeamWidth = *beamWidth
	cfg.Budget = *budget
	svc, err := delta.NewService(cfg)
	if err != nil {
		slog.Error("Failed to create service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create handlers
	handlers := delta.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("deltascope"))
	if *debug {
		router.Use(gin.Logger())
	}

	// Register routes
	v1 := router.Group("/v1")
	delta.RegisterRoutes(v1, handlers)

	// Prometheus scrape endpoint, present when the metric exporter is on
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// Print startup banner
	printBanner(*port)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Deltascope server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "log close failed: %v\n", err)
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Deltascope server",
		slog.String("address", addr),
		slog.String("strategy", *strategy))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                        DELTASCOPE SERVER                          ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Structural diff metrics for Python changes: CFG, DFG, call       ║
║  graph, PDG, and CPG edit distances over an HTTP API.             ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/delta/health                  │  ║
║  │                                                             │  ║
║  │ # Compare two versions of one file                          │  ║
║  │ curl -X POST http://localhost:%d/v1/delta/compare \       │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"before": "x = 1", "after": "x = 2"}'                │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/delta/compare   per-kind distance records           ║
║  ├── POST /v1/delta/patch     per-file reports for a diff         ║
║  ├── GET  /v1/delta/health    liveness                            ║
║  ├── GET  /v1/delta/ready     parser runtime probe                ║
║  └── GET  /metrics            prometheus scrape                   ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, port, port)
}
