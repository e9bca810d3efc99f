// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package merge combines single-representation program graphs into the
// composite representations the comparison engine scores: the program
// dependence graph (control flow + data flow) and the code property graph
// (dependence core + call graph).
//
// Merging is structural, not semantic. Nodes carry over as-is; the only
// rewriting is the statement dedup described on PDG and the edge retyping
// that partitions the result into control and data dependences.
//
// # Ownership Model
//
// Mergers borrow their input graphs and never mutate them: edges are
// cloned before retyping, and node values are shared read-only. The
// returned graph is freshly allocated and owned by the caller.
//
// # Thread Safety
//
// PDG and CPG are pure functions over their inputs. Concurrent merges of
// the same inputs are safe as long as no caller mutates the shared nodes.
package merge

import "errors"

// ErrNilGraph is returned when a merger is called with a nil input graph.
var ErrNilGraph = errors.New("input graph is nil")
