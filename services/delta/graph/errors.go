// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph defines the typed program-representation graphs used by the
// delta service: the base Graph plus the CFG, DFG, PDG, CallGraph, and CPG
// specializations.
//
// # Ownership Model
//
// A graph is built once by a single builder, read by the comparison engine
// or a merger, then discarded. There is no persistent graph store and no
// concurrent mutation: the owning goroutine builds, downstream consumers
// only read.
//
// # Thread Safety
//
// Graphs are NOT safe for concurrent mutation. Concurrent reads after
// construction has finished are safe because no method mutates state after
// the builder hands the graph off.
//
// # Lifecycle
//
//	build (AddNode/AddEdge) -> read (Successors/Size/ToRecord) -> discard
package graph

import "errors"

// Sentinel errors for graph construction and merging.
//
// Construction errors indicate builder bugs, not bad input: a builder that
// references a node it never added is broken and must fail loudly.
var (
	// ErrInvalidNode indicates a nil node or a node with an empty ID.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge indicates a nil edge or an edge with an empty endpoint.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrNodeNotFound indicates an edge endpoint that is not in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNilGraph indicates a nil graph passed to a merge operation.
	ErrNilGraph = errors.New("graph is nil")
)
