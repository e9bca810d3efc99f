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

// PDG is a program-dependence graph: one node set with the edge list
// partitioned into control-dependence and data-dependence subsets.
type PDG struct {
	Graph

	controlEdges []*Edge
	dataEdges    []*Edge
}

// NewPDG creates an empty program-dependence graph.
func NewPDG(name string) *PDG {
	return &PDG{
		Graph:        *NewGraph(name),
		controlEdges: make([]*Edge, 0),
		dataEdges:    make([]*Edge, 0),
	}
}

// AddControlEdge retypes the edge to control_dependence and adds it.
func (p *PDG) AddControlEdge(e *Edge) error {
	e.Type = EdgeTypeControlDependence
	if err := p.AddEdge(e); err != nil {
		return err
	}
	p.controlEdges = append(p.controlEdges, e)
	return nil
}

// AddDataEdge retypes the edge to data_dependence and adds it.
func (p *PDG) AddDataEdge(e *Edge) error {
	e.Type = EdgeTypeDataDependence
	if err := p.AddEdge(e); err != nil {
		return err
	}
	p.dataEdges = append(p.dataEdges, e)
	return nil
}

// ControlEdgeCount returns the number of control-dependence edges.
func (p *PDG) ControlEdgeCount() int {
	return len(p.controlEdges)
}

// DataEdgeCount returns the number of data-dependence edges.
func (p *PDG) DataEdgeCount() int {
	return len(p.dataEdges)
}
