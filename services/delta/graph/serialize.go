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

// NodeRecord is the serialization form of a Node.
type NodeRecord struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Label   string            `json:"label"`
	Line    int               `json:"line,omitempty"`
	Var     string            `json:"var,omitempty"`
	Version int               `json:"version,omitempty"`
	Scope   string            `json:"scope,omitempty"`
	Phi     bool              `json:"phi,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// EdgeRecord is the serialization form of an Edge.
type EdgeRecord struct {
	From  string            `json:"source"`
	To    string            `json:"target"`
	Type  string            `json:"type"`
	Label string            `json:"label,omitempty"`
	Attrs map[string]string `json:"attributes,omitempty"`
}

// Record is the structural serialization of a graph for downstream
// reporting: a plain name/nodes/edges triple with no behavior.
type Record struct {
	Name  string       `json:"name"`
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// ToRecord converts the graph to its serialization form. Nodes are emitted
// in lexicographic ID order, edges in insertion order.
func (g *Graph) ToRecord() Record {
	rec := Record{
		Name:  g.Name,
		Nodes: make([]NodeRecord, 0, len(g.nodes)),
		Edges: make([]EdgeRecord, 0, len(g.edges)),
	}
	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		rec.Nodes = append(rec.Nodes, NodeRecord{
			ID:      n.ID,
			Type:    n.Type.String(),
			Label:   n.Label,
			Line:    n.Line,
			Var:     n.Var,
			Version: n.Version,
			Scope:   n.Scope,
			Phi:     n.Phi,
			Extra:   n.Extra,
		})
	}
	for _, e := range g.edges {
		rec.Edges = append(rec.Edges, EdgeRecord{
			From:  e.From,
			To:    e.To,
			Type:  e.Type.String(),
			Label: e.Label,
			Attrs: e.Attrs,
		})
	}
	return rec
}
