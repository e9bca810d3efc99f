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
	"errors"
	"testing"
)

func TestNodeType_String(t *testing.T) {
	tests := []struct {
		nodeType NodeType
		expected string
	}{
		{NodeTypeStatement, "statement"},
		{NodeTypeEntry, "entry"},
		{NodeTypeExit, "exit"},
		{NodeTypeBranch, "branch"},
		{NodeTypeLoop, "loop"},
		{NodeTypeVariable, "variable"},
		{NodeTypeDefinition, "definition"},
		{NodeTypeUse, "use"},
		{NodeTypeFunction, "function"},
		{NodeTypeMethod, "method"},
		{NodeTypeClass, "class"},
		{NodeTypeASTNode, "ast_node"},
		{NodeTypeType, "type"},
		{NodeType(99), "unknown"},
	}

	for _, tc := range tests {
		got := tc.nodeType.String()
		if got != tc.expected {
			t.Errorf("NodeType(%d).String() = %q, expected %q", tc.nodeType, got, tc.expected)
		}
	}
}

func TestEdgeType_String(t *testing.T) {
	tests := []struct {
		edgeType EdgeType
		expected string
	}{
		{EdgeTypeControlFlow, "control_flow"},
		{EdgeTypeTrueBranch, "true_branch"},
		{EdgeTypeFalseBranch, "false_branch"},
		{EdgeTypeDataFlow, "data_flow"},
		{EdgeTypeDefUse, "def_use"},
		{EdgeTypeCall, "call"},
		{EdgeTypeInherit, "inherit"},
		{EdgeTypeControlDependence, "control_dependence"},
		{EdgeTypeDataDependence, "data_dependence"},
		{EdgeType(99), "unknown"},
	}

	for _, tc := range tests {
		got := tc.edgeType.String()
		if got != tc.expected {
			t.Errorf("EdgeType(%d).String() = %q, expected %q", tc.edgeType, got, tc.expected)
		}
	}
}

func TestGraph_AddNode(t *testing.T) {
	t.Run("add and overwrite by id", func(t *testing.T) {
		g := NewGraph("test")

		if err := g.AddNode(&Node{ID: "n0", Type: NodeTypeStatement, Label: "x = 1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := g.AddNode(&Node{ID: "n0", Type: NodeTypeStatement, Label: "x = 2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if g.NodeCount() != 1 {
			t.Errorf("NodeCount = %d, expected 1", g.NodeCount())
		}
		if got := g.Node("n0").Label; got != "x = 2" {
			t.Errorf("Label = %q, expected overwrite to %q", got, "x = 2")
		}
	})

	t.Run("invalid node", func(t *testing.T) {
		g := NewGraph("test")

		if err := g.AddNode(nil); !errors.Is(err, ErrInvalidNode) {
			t.Errorf("AddNode(nil) error = %v, expected ErrInvalidNode", err)
		}
		if err := g.AddNode(&Node{Label: "no id"}); !errors.Is(err, ErrInvalidNode) {
			t.Errorf("AddNode(empty id) error = %v, expected ErrInvalidNode", err)
		}
	})

	t.Run("overwrite keeps adjacency", func(t *testing.T) {
		g := NewGraph("test")
		mustAddNode(t, g, &Node{ID: "a", Type: NodeTypeStatement})
		mustAddNode(t, g, &Node{ID: "b", Type: NodeTypeStatement})
		mustAddEdge(t, g, &Edge{From: "a", To: "b", Type: EdgeTypeControlFlow})

		mustAddNode(t, g, &Node{ID: "a", Type: NodeTypeBranch, Label: "if x"})

		succ := g.Successors("a")
		if len(succ) != 1 || succ[0] != "b" {
			t.Errorf("Successors(a) = %v, expected [b]", succ)
		}
	})
}

func TestGraph_AddEdge(t *testing.T) {
	t.Run("missing endpoints fail loudly", func(t *testing.T) {
		g := NewGraph("test")
		mustAddNode(t, g, &Node{ID: "a", Type: NodeTypeStatement})

		err := g.AddEdge(&Edge{From: "a", To: "ghost", Type: EdgeTypeControlFlow})
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("missing target error = %v, expected ErrNodeNotFound", err)
		}

		err = g.AddEdge(&Edge{From: "ghost", To: "a", Type: EdgeTypeControlFlow})
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("missing source error = %v, expected ErrNodeNotFound", err)
		}

		if g.EdgeCount() != 0 {
			t.Errorf("EdgeCount = %d, expected 0 after failed adds", g.EdgeCount())
		}
	})

	t.Run("parallel edges of different type are distinct", func(t *testing.T) {
		g := NewGraph("test")
		mustAddNode(t, g, &Node{ID: "a", Type: NodeTypeBranch})
		mustAddNode(t, g, &Node{ID: "b", Type: NodeTypeStatement})
		mustAddEdge(t, g, &Edge{From: "a", To: "b", Type: EdgeTypeTrueBranch})
		mustAddEdge(t, g, &Edge{From: "a", To: "b", Type: EdgeTypeFalseBranch})

		if g.EdgeCount() != 2 {
			t.Errorf("EdgeCount = %d, expected 2", g.EdgeCount())
		}
	})
}

func TestGraph_SuccessorsPredecessors(t *testing.T) {
	g := NewGraph("test")
	mustAddNode(t, g, &Node{ID: "a", Type: NodeTypeEntry})
	mustAddNode(t, g, &Node{ID: "b", Type: NodeTypeStatement})
	mustAddNode(t, g, &Node{ID: "c", Type: NodeTypeStatement})
	mustAddEdge(t, g, &Edge{From: "a", To: "b", Type: EdgeTypeControlFlow})
	mustAddEdge(t, g, &Edge{From: "a", To: "c", Type: EdgeTypeControlFlow})
	mustAddEdge(t, g, &Edge{From: "b", To: "c", Type: EdgeTypeControlFlow})

	succ := g.Successors("a")
	if len(succ) != 2 || succ[0] != "b" || succ[1] != "c" {
		t.Errorf("Successors(a) = %v, expected [b c]", succ)
	}

	preds := g.Predecessors("c")
	if len(preds) != 2 || preds[0] != "a" || preds[1] != "b" {
		t.Errorf("Predecessors(c) = %v, expected [a b]", preds)
	}

	if got := g.Predecessors("a"); len(got) != 0 {
		t.Errorf("Predecessors(a) = %v, expected empty", got)
	}
}

func TestGraph_Size(t *testing.T) {
	g := NewGraph("test")
	mustAddNode(t, g, &Node{ID: "a", Type: NodeTypeStatement})
	mustAddNode(t, g, &Node{ID: "b", Type: NodeTypeStatement})
	mustAddEdge(t, g, &Edge{From: "a", To: "b", Type: EdgeTypeControlFlow})

	nodes, edges := g.Size()
	if nodes != 2 || edges != 1 {
		t.Errorf("Size() = (%d, %d), expected (2, 1)", nodes, edges)
	}
}

func TestGraph_NodeIDs_Sorted(t *testing.T) {
	g := NewGraph("test")
	for _, id := range []string{"n2", "n0", "n10", "n1"} {
		mustAddNode(t, g, &Node{ID: id, Type: NodeTypeStatement})
	}

	ids := g.NodeIDs()
	expected := []string{"n0", "n1", "n10", "n2"}
	if len(ids) != len(expected) {
		t.Fatalf("NodeIDs length = %d, expected %d", len(ids), len(expected))
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("NodeIDs[%d] = %q, expected %q", i, ids[i], expected[i])
		}
	}
}

func mustAddNode(t *testing.T, g *Graph, n *Node) {
	t.Helper()
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode(%q): %v", n.ID, err)
	}
}

func mustAddEdge(t *testing.T, g *Graph, e *Edge) {
	t.Helper()
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("AddEdge(%s -> %s): %v", e.From, e.To, err)
	}
}
