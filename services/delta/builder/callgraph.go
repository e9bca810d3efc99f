// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builder

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/Deltascope/services/delta/ast"
	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

// CallGraphBuilder builds call graphs in two passes: pass one registers
// every function, class, and method definition; pass two walks the tree
// tracking the innermost enclosing function and resolves each call
// expression against the registry.
//
// Resolution is name-based, not type-resolved. A call resolves by, in
// order: plain name; "Name.attr" for an attribute call on a plain name;
// bare attribute name for any other attribute call. Unresolved calls are
// dropped silently, a documented source of false negatives. Methods are
// registered under both their qualified and bare names so instance
// method calls can resolve; a later registration of the same name wins.
type CallGraphBuilder struct {
	mod     *ast.Module
	cg      *graph.CallGraph
	names   map[string]string // registered name -> node id
	current string            // innermost enclosing function, bare name
	err     error
}

// NewCallGraphBuilder returns a builder ready for Build. The builder is
// reusable; each Build call starts from a fresh graph.
func NewCallGraphBuilder() *CallGraphBuilder {
	return &CallGraphBuilder{}
}

// Build converts one module into a call graph.
func (b *CallGraphBuilder) Build(mod *ast.Module, name string) (*graph.CallGraph, error) {
	if mod == nil {
		return nil, ErrNilModule
	}
	b.reset(name)

	b.mod = mod
	b.collectFunctions(mod.Root())
	b.current = ""
	b.findCalls(mod.Root())

	if b.err != nil {
		return nil, fmt.Errorf("building call graph %q: %w", name, b.err)
	}
	return b.cg, nil
}

// BuildModules builds one call graph spanning several modules, so calls
// into context files resolve. Definitions from every module register
// before any call resolves.
func (b *CallGraphBuilder) BuildModules(mods []*ast.Module, name string) (*graph.CallGraph, error) {
	b.reset(name)

	for _, mod := range mods {
		if mod == nil {
			continue
		}
		b.mod = mod
		b.collectFunctions(mod.Root())
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		b.mod = mod
		b.current = ""
		b.findCalls(mod.Root())
	}

	if b.err != nil {
		return nil, fmt.Errorf("building call graph %q: %w", name, b.err)
	}
	return b.cg, nil
}

// ErrorCallGraph builds the one-node graph standing in for source that
// failed to parse.
func ErrorCallGraph(name string, err error) *graph.CallGraph {
	cg := graph.NewCallGraph(name)
	_ = cg.AddNode(&graph.Node{
		ID:    "error",
		Type:  graph.NodeTypeFunction,
		Label: errorLabel(err),
	})
	return cg
}

func (b *CallGraphBuilder) reset(name string) {
	b.cg = graph.NewCallGraph(name)
	b.names = make(map[string]string)
	b.current = ""
	b.err = nil
}

// collectFunctions is pass one.
func (b *CallGraphBuilder) collectFunctions(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		b.registerFunction(n)
		if body := ast.Field(n, "body"); body != nil {
			b.collectFunctions(body)
		}

	case "decorated_definition":
		if inner := ast.Field(n, "definition"); inner != nil {
			b.collectFunctions(inner)
		}

	case "class_definition":
		b.registerClass(n)

	default:
		for _, child := range ast.NamedChildren(n) {
			b.collectFunctions(child)
		}
	}
}

func (b *CallGraphBuilder) registerFunction(n *sitter.Node) {
	name := b.mod.Text(ast.Field(n, "name"))
	node := &graph.Node{
		ID:    "func_" + name,
		Type:  graph.NodeTypeFunction,
		Label: name,
		Line:  ast.Line(n),
	}
	if err := b.cg.AddFunction(name, node); err != nil && b.err == nil {
		b.err = err
	}
	b.names[name] = node.ID
}

func (b *CallGraphBuilder) registerClass(n *sitter.Node) {
	className := b.mod.Text(ast.Field(n, "name"))
	classNode := &graph.Node{
		ID:    "class_" + className,
		Type:  graph.NodeTypeClass,
		Label: className,
		Line:  ast.Line(n),
	}
	if err := b.cg.AddNode(classNode); err != nil && b.err == nil {
		b.err = err
	}

	for _, stmt := range ast.BlockStatements(ast.Field(n, "body")) {
		def := stmt
		if def.Type() == "decorated_definition" {
			if inner := ast.Field(def, "definition"); inner != nil {
				def = inner
			}
		}
		if def.Type() != "function_definition" {
			b.collectFunctions(stmt)
			continue
		}
		b.registerMethod(classNode, className, def)
	}
}

func (b *CallGraphBuilder) registerMethod(classNode *graph.Node, className string, def *sitter.Node) {
	bare := b.mod.Text(ast.Field(def, "name"))
	qualified := className + "." + bare
	methodNode := &graph.Node{
		ID:    "method_" + qualified,
		Type:  graph.NodeTypeMethod,
		Label: qualified,
		Line:  ast.Line(def),
		Extra: map[string]string{"class": className},
	}
	if err := b.cg.AddFunction(qualified, methodNode); err != nil && b.err == nil {
		b.err = err
	}
	if err := b.cg.AddFunction(bare, methodNode); err != nil && b.err == nil {
		b.err = err
	}
	b.names[qualified] = methodNode.ID
	b.names[bare] = methodNode.ID

	e := &graph.Edge{
		From:  classNode.ID,
		To:    methodNode.ID,
		Type:  graph.EdgeTypeInherit,
		Label: "defines",
	}
	if err := b.cg.AddEdge(e); err != nil && b.err == nil {
		b.err = err
	}

	// Nested definitions inside the method body.
	if body := ast.Field(def, "body"); body != nil {
		b.collectFunctions(body)
	}
}

// findCalls is pass two.
func (b *CallGraphBuilder) findCalls(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		old := b.current
		b.current = b.mod.Text(ast.Field(n, "name"))
		for _, child := range ast.NamedChildren(n) {
			b.findCalls(child)
		}
		b.current = old

	case "call":
		b.resolveCall(n)
		// Nested calls live in the arguments and the callee expression.
		for _, child := range ast.NamedChildren(n) {
			b.findCalls(child)
		}

	default:
		for _, child := range ast.NamedChildren(n) {
			b.findCalls(child)
		}
	}
}

func (b *CallGraphBuilder) resolveCall(n *sitter.Node) {
	fn := ast.Field(n, "function")
	if fn == nil {
		return
	}

	var callee string
	switch fn.Type() {
	case "identifier":
		callee = b.mod.Text(fn)
	case "attribute":
		obj := ast.Field(fn, "object")
		attr := ast.Field(fn, "attribute")
		if attr == nil {
			return
		}
		if obj != nil && obj.Type() == "identifier" {
			callee = b.mod.Text(obj) + "." + b.mod.Text(attr)
		} else {
			callee = b.mod.Text(attr)
		}
	default:
		return
	}

	calleeID, ok := b.names[callee]
	if !ok {
		return
	}
	if b.current == "" {
		return
	}
	callerID, ok := b.names[b.current]
	if !ok {
		return
	}
	if err := b.cg.AddCallEdge(callerID, calleeID); err != nil && b.err == nil {
		b.err = err
	}
}
