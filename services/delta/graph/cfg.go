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

// CFG is a control-flow graph: the base graph plus one entry node and a
// list of exit nodes.
type CFG struct {
	Graph

	entry string
	exits []string
}

// NewCFG creates an empty control-flow graph.
func NewCFG(name string) *CFG {
	return &CFG{
		Graph: *NewGraph(name),
		exits: make([]string, 0),
	}
}

// SetEntry records the entry node ID.
func (c *CFG) SetEntry(id string) {
	c.entry = id
}

// Entry returns the entry node ID, empty if never set.
func (c *CFG) Entry() string {
	return c.entry
}

// AddExit records an exit node ID. Duplicates are ignored so repeated
// wiring passes stay idempotent.
func (c *CFG) AddExit(id string) {
	for _, e := range c.exits {
		if e == id {
			return
		}
	}
	c.exits = append(c.exits, id)
}

// Exits returns the exit node IDs in registration order. The returned
// slice is a copy.
func (c *CFG) Exits() []string {
	out := make([]string, len(c.exits))
	copy(out, c.exits)
	return out
}
