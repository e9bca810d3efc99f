// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package merge

import (
	"fmt"

	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

// PDG merges a control-flow graph and a data-flow graph for the same
// source into one program dependence graph.
//
// Description:
//
//	All nodes from both inputs carry over. A statement-typed data-flow
//	node whose label exactly matches an existing control-flow node is
//	merged into that node instead of being added, and data-flow edges
//	touching it are rewritten to the surviving ID. Control-flow edges
//	become control-dependence edges and data-flow edges become
//	data-dependence edges, so the result partitions cleanly by origin.
//
// Inputs:
//   - cfg: the control-flow graph. Must be non-nil.
//   - dfg: the data-flow graph. Must be non-nil.
//   - name: name for the merged graph.
//
// Outputs:
//   - *graph.PDG: the merged dependence graph. Input graphs are not
//     mutated; nodes are shared, edges are cloned before retyping.
//   - error: ErrNilGraph on a nil input, or a graph construction error.
func PDG(cfg *graph.CFG, dfg *graph.DFG, name string) (*graph.PDG, error) {
	if cfg == nil || dfg == nil {
		return nil, fmt.Errorf("merging pdg %q: %w", name, ErrNilGraph)
	}

	pdg := graph.NewPDG(name)
	remap, err := unionNodes(&pdg.Graph, cfg, dfg)
	if err != nil {
		return nil, fmt.Errorf("merging pdg %q: %w", name, err)
	}

	for _, e := range cfg.Edges() {
		if err := pdg.AddControlEdge(cloneEdge(e)); err != nil {
			return nil, fmt.Errorf("merging pdg %q: %w", name, err)
		}
	}
	for _, e := range dfg.Edges() {
		c := cloneEdge(e)
		if merged, ok := remap[c.From]; ok {
			c.From = merged
		}
		if merged, ok := remap[c.To]; ok {
			c.To = merged
		}
		if err := pdg.AddDataEdge(c); err != nil {
			return nil, fmt.Errorf("merging pdg %q: %w", name, err)
		}
	}
	return pdg, nil
}

// CPG merges a control-flow graph, a data-flow graph, and a call graph
// into one code property graph.
//
// Description:
//
//	The dependence core is built exactly as PDG builds it, then the call
//	graph's nodes and edges are unioned in. Call-graph nodes whose ID
//	already exists are skipped; call and inherit edges keep their types.
//
// Inputs:
//   - cfg: the control-flow graph. Must be non-nil.
//   - dfg: the data-flow graph. Must be non-nil.
//   - callGraph: the call graph. Must be non-nil.
//   - name: name for the merged graph.
//
// Outputs:
//   - *graph.CPG: the merged property graph. Input graphs are not mutated.
//   - error: ErrNilGraph on a nil input, or a graph construction error.
func CPG(cfg *graph.CFG, dfg *graph.DFG, callGraph *graph.CallGraph, name string) (*graph.CPG, error) {
	if cfg == nil || dfg == nil || callGraph == nil {
		return nil, fmt.Errorf("merging cpg %q: %w", name, ErrNilGraph)
	}

	pdg, err := PDG(cfg, dfg, name)
	if err != nil {
		return nil, err
	}

	cpg := graph.NewCPG(name)
	for _, id := range pdg.NodeIDs() {
		if err := cpg.AddNode(pdg.Node(id)); err != nil {
			return nil, fmt.Errorf("merging cpg %q: %w", name, err)
		}
	}
	for _, e := range pdg.Edges() {
		// The dependence core's edges are already clones owned by the
		// discarded intermediate, so they transfer without another copy.
		if err := cpg.AddEdge(e); err != nil {
			return nil, fmt.Errorf("merging cpg %q: %w", name, err)
		}
	}
	if err := cpg.Merge(nil, nil, callGraph); err != nil {
		return nil, fmt.Errorf("merging cpg %q: %w", name, err)
	}
	return cpg, nil
}

// unionNodes adds every cfg node and every dfg node to dst, merging
// statement-typed dfg nodes into cfg nodes that carry the same label. The
// returned map rewrites the dfg IDs that were merged away. When several
// cfg nodes share a label, the lexicographically smallest ID wins.
func unionNodes(dst *graph.Graph, cfg *graph.CFG, dfg *graph.DFG) (map[string]string, error) {
	byLabel := make(map[string]string, cfg.NodeCount())
	for _, id := range cfg.NodeIDs() {
		n := cfg.Node(id)
		if err := dst.AddNode(n); err != nil {
			return nil, err
		}
		if _, ok := byLabel[n.Label]; !ok {
			byLabel[n.Label] = id
		}
	}

	remap := make(map[string]string)
	for _, id := range dfg.NodeIDs() {
		n := dfg.Node(id)
		if n.Type == graph.NodeTypeStatement {
			if existing, ok := byLabel[n.Label]; ok {
				remap[id] = existing
				continue
			}
		}
		if err := dst.AddNode(n); err != nil {
			return nil, err
		}
	}
	return remap, nil
}

// cloneEdge copies an edge so retyping the merged copy leaves the source
// graph untouched. Attrs stays shared; merged graphs treat it read-only.
func cloneEdge(e *graph.Edge) *graph.Edge {
	return &graph.Edge{From: e.From, To: e.To, Type: e.Type, Label: e.Label, Attrs: e.Attrs}
}
