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

import "sort"

// Chain is one definition-use pair for a single variable.
type Chain struct {
	DefID string
	UseID string
}

// DFG is a data-flow graph: the base graph plus per-variable registries of
// definition and use node IDs in creation order.
type DFG struct {
	Graph

	definitions map[string][]string
	uses        map[string][]string
}

// NewDFG creates an empty data-flow graph.
func NewDFG(name string) *DFG {
	return &DFG{
		Graph:       *NewGraph(name),
		definitions: make(map[string][]string),
		uses:        make(map[string][]string),
	}
}

// AddDefinition registers a definition node for a variable. The node itself
// must be added to the graph separately.
func (d *DFG) AddDefinition(varName, nodeID string) {
	d.definitions[varName] = append(d.definitions[varName], nodeID)
}

// AddUse registers a use node for a variable.
func (d *DFG) AddUse(varName, nodeID string) {
	d.uses[varName] = append(d.uses[varName], nodeID)
}

// DefinitionsOf returns the definition node IDs of a variable in creation
// order. The returned slice is a copy.
func (d *DFG) DefinitionsOf(varName string) []string {
	defs := d.definitions[varName]
	out := make([]string, len(defs))
	copy(out, defs)
	return out
}

// UsesOf returns the use node IDs of a variable in creation order. The
// returned slice is a copy.
func (d *DFG) UsesOf(varName string) []string {
	uses := d.uses[varName]
	out := make([]string, len(uses))
	copy(out, uses)
	return out
}

// Variables returns every variable with at least one definition or use,
// sorted for deterministic reporting.
func (d *DFG) Variables() []string {
	seen := make(map[string]struct{}, len(d.definitions)+len(d.uses))
	for v := range d.definitions {
		seen[v] = struct{}{}
	}
	for v := range d.uses {
		seen[v] = struct{}{}
	}
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// DefUseChains returns every (definition, use) pair sharing a variable,
// unfiltered. The builders decide which pairs become def_use edges; this
// registry view is the raw cartesian product used for reporting counts.
func (d *DFG) DefUseChains() []Chain {
	chains := make([]Chain, 0)
	for _, varName := range d.Variables() {
		defs, ok := d.definitions[varName]
		if !ok {
			continue
		}
		uses, ok := d.uses[varName]
		if !ok {
			continue
		}
		for _, defID := range defs {
			for _, useID := range uses {
				chains = append(chains, Chain{DefID: defID, UseID: useID})
			}
		}
	}
	return chains
}

// DefinitionCount returns the total number of registered definitions.
func (d *DFG) DefinitionCount() int {
	n := 0
	for _, defs := range d.definitions {
		n += len(defs)
	}
	return n
}

// UseCount returns the total number of registered uses.
func (d *DFG) UseCount() int {
	n := 0
	for _, uses := range d.uses {
		n += len(uses)
	}
	return n
}
