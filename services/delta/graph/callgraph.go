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

// CallGraph is the base graph plus a registry mapping qualified
// function/method names to their nodes.
type CallGraph struct {
	Graph

	functions map[string]*Node
}

// NewCallGraph creates an empty call graph.
func NewCallGraph(name string) *CallGraph {
	return &CallGraph{
		Graph:     *NewGraph(name),
		functions: make(map[string]*Node),
	}
}

// AddFunction adds the node to the graph and registers it under the given
// qualified name.
func (c *CallGraph) AddFunction(qualifiedName string, n *Node) error {
	if err := c.AddNode(n); err != nil {
		return err
	}
	c.functions[qualifiedName] = n
	return nil
}

// Function returns the node registered under the qualified name, or nil.
func (c *CallGraph) Function(qualifiedName string) *Node {
	return c.functions[qualifiedName]
}

// FunctionNames returns the registered qualified names, sorted.
func (c *CallGraph) FunctionNames() []string {
	names := make([]string, 0, len(c.functions))
	for name := range c.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionCount returns the number of registered callables.
func (c *CallGraph) FunctionCount() int {
	return len(c.functions)
}

// AddCallEdge adds a call edge between two registered node IDs.
func (c *CallGraph) AddCallEdge(callerID, calleeID string) error {
	edge := &Edge{
		From:  callerID,
		To:    calleeID,
		Type:  EdgeTypeCall,
		Label: "calls",
	}
	if err := c.AddEdge(edge); err != nil {
		return fmt.Errorf("call edge %s -> %s: %w", callerID, calleeID, err)
	}
	return nil
}

// CallEdgeCount returns the number of call-typed edges.
func (c *CallGraph) CallEdgeCount() int {
	n := 0
	for _, e := range c.edges {
		if e.Type == EdgeTypeCall {
			n++
		}
	}
	return n
}
