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

import (
	"fmt"
	"sort"
)

// NodeType classifies graph nodes. The set is closed: builders only ever
// produce these kinds, and the comparison cost model switches on them.
type NodeType int

const (
	// NodeTypeStatement is a plain statement in a control-flow graph.
	NodeTypeStatement NodeType = iota

	// NodeTypeEntry is the unique CFG entry node.
	NodeTypeEntry

	// NodeTypeExit is a CFG exit node.
	NodeTypeExit

	// NodeTypeBranch is a conditional branch (if) node.
	NodeTypeBranch

	// NodeTypeLoop is a loop header (while/for) node.
	NodeTypeLoop

	// NodeTypeVariable is a bare variable node in a data-flow graph.
	NodeTypeVariable

	// NodeTypeDefinition is a variable definition (write) node.
	NodeTypeDefinition

	// NodeTypeUse is a variable use (read) node.
	NodeTypeUse

	// NodeTypeFunction is a top-level function in a call graph.
	NodeTypeFunction

	// NodeTypeMethod is a class method in a call graph.
	NodeTypeMethod

	// NodeTypeClass is a class in a call graph.
	NodeTypeClass

	// NodeTypeASTNode is a raw syntax-tree node in a property graph.
	NodeTypeASTNode

	// NodeTypeType is a type annotation node in a property graph.
	NodeTypeType

	// NumNodeTypes is the number of node types. Keep last.
	NumNodeTypes
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeStatement:  "statement",
	NodeTypeEntry:      "entry",
	NodeTypeExit:       "exit",
	NodeTypeBranch:     "branch",
	NodeTypeLoop:       "loop",
	NodeTypeVariable:   "variable",
	NodeTypeDefinition: "definition",
	NodeTypeUse:        "use",
	NodeTypeFunction:   "function",
	NodeTypeMethod:     "method",
	NodeTypeClass:      "class",
	NodeTypeASTNode:    "ast_node",
	NodeTypeType:       "type",
}

// String returns the serialized name of the node type.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// EdgeType classifies graph edges. Parallel edges between the same node
// pair are distinct when their types differ.
type EdgeType int

const (
	// EdgeTypeControlFlow is ordinary sequential control flow.
	EdgeTypeControlFlow EdgeType = iota

	// EdgeTypeTrueBranch is the taken side of a conditional.
	EdgeTypeTrueBranch

	// EdgeTypeFalseBranch is the not-taken side of a conditional, and the
	// loop-exit edge out of a loop header.
	EdgeTypeFalseBranch

	// EdgeTypeDataFlow is generic data flow.
	EdgeTypeDataFlow

	// EdgeTypeDefUse connects a definition to a use it may reach.
	EdgeTypeDefUse

	// EdgeTypeCall connects a caller to a callee.
	EdgeTypeCall

	// EdgeTypeInherit is class-level containment/inheritance. The call
	// graph builder reuses it as the class-defines-method relation.
	EdgeTypeInherit

	// EdgeTypeControlDependence is a PDG control-dependence edge.
	EdgeTypeControlDependence

	// EdgeTypeDataDependence is a PDG data-dependence edge.
	EdgeTypeDataDependence

	// NumEdgeTypes is the number of edge types. Keep last.
	NumEdgeTypes
)

var edgeTypeNames = map[EdgeType]string{
	EdgeTypeControlFlow:       "control_flow",
	EdgeTypeTrueBranch:        "true_branch",
	EdgeTypeFalseBranch:       "false_branch",
	EdgeTypeDataFlow:          "data_flow",
	EdgeTypeDefUse:            "def_use",
	EdgeTypeCall:              "call",
	EdgeTypeInherit:           "inherit",
	EdgeTypeControlDependence: "control_dependence",
	EdgeTypeDataDependence:    "data_dependence",
}

// String returns the serialized name of the edge type.
func (t EdgeType) String() string {
	if name, ok := edgeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Node is a single graph node. Identity is the ID alone: two nodes with the
// same ID are the same node regardless of their other fields.
//
// The typed metadata fields (Line, Var, Version, Scope, Phi) are populated
// by the builders that need them and zero otherwise. Extra carries anything
// kind-specific beyond those; it is almost always nil.
type Node struct {
	ID    string
	Type  NodeType
	Label string

	// Line is the 1-based source line, 0 when unknown or synthetic.
	Line int

	// Var is the variable name on definition/use/variable nodes.
	Var string

	// Version is the SSA-style version on versioned definition/use nodes.
	Version int

	// Scope is the owning scope name on data-flow nodes.
	Scope string

	// Phi marks synthetic merge definitions.
	Phi bool

	// Extra holds rare kind-specific attributes.
	Extra map[string]string
}

// Edge is a directed, typed edge. Equality for dedup purposes is by
// (From, To, Type); see Key.
type Edge struct {
	From  string
	To    string
	Type  EdgeType
	Label string
	Attrs map[string]string
}

// EdgeKey is the comparable identity of an edge.
type EdgeKey struct {
	From string
	To   string
	Type EdgeType
}

// Key returns the edge's identity for dedup membership checks.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To, Type: e.Type}
}

// Graph is the base structure all specializations embed: a node map, an
// ordered edge list, and a derived successor adjacency.
type Graph struct {
	Name string

	nodes     map[string]*Node
	edges     []*Edge
	adjacency map[string][]string
}

// NewGraph creates an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:      name,
		nodes:     make(map[string]*Node),
		edges:     make([]*Edge, 0),
		adjacency: make(map[string][]string),
	}
}

// AddNode inserts a node, overwriting any existing node with the same ID.
// The overwrite keeps the existing adjacency: re-adding a node never drops
// edges already attached to its ID.
func (g *Graph) AddNode(n *Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: node must be non-nil with a non-empty ID", ErrInvalidNode)
	}
	g.nodes[n.ID] = n
	if _, ok := g.adjacency[n.ID]; !ok {
		g.adjacency[n.ID] = make([]string, 0)
	}
	return nil
}

// AddEdge appends an edge. Both endpoints must already exist; a missing
// endpoint is a construction bug and fails loudly rather than being
// silently dropped.
func (g *Graph) AddEdge(e *Edge) error {
	if e == nil || e.From == "" || e.To == "" {
		return fmt.Errorf("%w: edge must be non-nil with non-empty endpoints", ErrInvalidEdge)
	}
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("%w: edge source %q", ErrNodeNotFound, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("%w: edge target %q", ErrNodeNotFound, e.To)
	}
	g.edges = append(g.edges, e)
	g.adjacency[e.From] = append(g.adjacency[e.From], e.To)
	return nil
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Successors returns the successor IDs of a node in insertion order.
// The returned slice is a copy.
func (g *Graph) Successors(id string) []string {
	succ := g.adjacency[id]
	out := make([]string, len(succ))
	copy(out, succ)
	return out
}

// Predecessors returns the predecessor IDs of a node by scanning the edge
// list. Linear on purpose: graphs are bounded by function/file size, and
// the scan keeps the model free of a second adjacency to maintain.
func (g *Graph) Predecessors(id string) []string {
	preds := make([]string, 0)
	for _, e := range g.edges {
		if e.To == id {
			preds = append(preds, e.From)
		}
	}
	return preds
}

// Size returns (node count, edge count).
func (g *Graph) Size() (int, int) {
	return len(g.nodes), len(g.edges)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NodeIDs returns all node IDs in lexicographic order. The comparison
// engine depends on this ordering for deterministic expansion.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nodes calls fn for each node until fn returns false. Iteration order is
// unspecified; use NodeIDs when order matters.
func (g *Graph) Nodes(fn func(n *Node) bool) {
	for _, n := range g.nodes {
		if !fn(n) {
			return
		}
	}
}

// Edges returns the edge list in insertion order. The slice header is a
// copy; the edges themselves are shared.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}
