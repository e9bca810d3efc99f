// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// CPG is a code-property graph: the union of CFG, DFG, and call-graph
// structure over one deduplicated node set.
type CPG struct {
	Graph
}

// NewCPG creates an empty code-property graph.
func NewCPG(name string) *CPG {
	return &CPG{Graph: *NewGraph(name)}
}

// Merge unions the given graphs into the CPG. Nodes are deduplicated by ID;
// edges from the second and later graphs are deduplicated by (from, to,
// type). Any argument may be nil.
//
// This is identifier-level union only. Label-based statement dedup across
// representations is the merger package's job; Merge assumes the inputs
// either share IDs for shared nodes or are ID-disjoint.
func (c *CPG) Merge(cfg *CFG, dfg *DFG, callGraph *CallGraph) error {
	seen := make(map[EdgeKey]struct{}, c.EdgeCount())
	for _, e := range c.edges {
		seen[e.Key()] = struct{}{}
	}

	if cfg != nil {
		for _, n := range cfg.nodes {
			if err := c.AddNode(n); err != nil {
				return err
			}
		}
		for _, e := range cfg.edges {
			if err := c.addMergedEdge(e, seen); err != nil {
				return err
			}
		}
	}

	if dfg != nil {
		for _, n := range dfg.nodes {
			if c.HasNode(n.ID) {
				continue
			}
			if err := c.AddNode(n); err != nil {
				return err
			}
		}
		for _, e := range dfg.edges {
			if err := c.addMergedEdge(e, seen); err != nil {
				return err
			}
		}
	}

	if callGraph != nil {
		for _, n := range callGraph.nodes {
			if c.HasNode(n.ID) {
				continue
			}
			if err := c.AddNode(n); err != nil {
				return err
			}
		}
		for _, e := range callGraph.edges {
			if err := c.addMergedEdge(e, seen); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *CPG) addMergedEdge(e *Edge, seen map[EdgeKey]struct{}) error {
	key := e.Key()
	if _, ok := seen[key]; ok {
		return nil
	}
	if err := c.AddEdge(e); err != nil {
		return err
	}
	seen[key] = struct{}{}
	return nil
}
