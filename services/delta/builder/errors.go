// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package builder converts parsed Python modules into the program graphs
// the comparison engine consumes: control flow graphs, basic and SSA-style
// data flow graphs, and call graphs.
//
// Each builder is a pure function from a parsed module to one graph kind.
// Builders do not depend on each other's state, so the graphs for one
// source can be built in any order or concurrently (with one builder per
// goroutine).
//
// # Ownership Model
//
// Builders borrow the *ast.Module they are handed and never close it.
// Returned graphs are freshly allocated and owned by the caller.
//
// # Thread Safety
//
// A builder instance is NOT thread-safe: it carries a node counter and
// scope state that Build mutates. Use one builder per goroutine, or a
// fresh builder per call. Distinct builders share nothing.
//
// # Lifecycle
//
//	mod, err := parser.Parse(ctx, source, "before.py")
//	if err != nil {
//		cfg := builder.ErrorCFG("before", err)
//		// compare against the error graph; never fail the comparison
//	}
//	defer mod.Close()
//	cfg, err := builder.NewCFGBuilder().Build(mod, "before")
package builder

import "errors"

// Sentinel errors for builder misuse. Construction invariant violations
// (an edge referencing a missing node) surface as graph package errors
// wrapped by Build.
var (
	// ErrNilModule is returned when Build is called with a nil module.
	ErrNilModule = errors.New("module is nil")
)

// errorLabel renders the label carried by a one-node degraded graph.
func errorLabel(err error) string {
	if err == nil {
		return "SyntaxError: unknown"
	}
	return err.Error()
}
