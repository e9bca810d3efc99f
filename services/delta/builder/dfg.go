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

// DFGBuilder builds basic data flow graphs: one definition node per
// assignment target, one use node per read in a tracked position, and a
// def-use edge for every (definition, use) pair the reach predicate
// admits. The predicate is line-and-scope based and deliberately
// imprecise when a variable is reassigned; SSABuilder is the versioned
// variant that disambiguates.
type DFGBuilder struct {
	mod     *ast.Module
	dfg     *graph.DFG
	counter int
	scopes  *scopeStack
	err     error
}

// NewDFGBuilder returns a builder ready for Build. The builder is
// reusable; each Build call starts from a fresh graph.
func NewDFGBuilder() *DFGBuilder {
	return &DFGBuilder{}
}

// Build converts the module body into a basic data flow graph.
func (b *DFGBuilder) Build(mod *ast.Module, name string) (*graph.DFG, error) {
	if mod == nil {
		return nil, ErrNilModule
	}
	b.mod = mod
	b.dfg = graph.NewDFG(name)
	b.counter = 0
	b.scopes = newScopeStack()
	b.err = nil

	for _, stmt := range ast.NamedChildren(mod.Root()) {
		b.walk(stmt)
	}
	b.buildDefUseEdges()

	if b.err != nil {
		return nil, fmt.Errorf("building dfg %q: %w", name, b.err)
	}
	return b.dfg, nil
}

// ErrorDFG builds the one-node graph standing in for source that failed
// to parse.
func ErrorDFG(name string, err error) *graph.DFG {
	dfg := graph.NewDFG(name)
	_ = dfg.AddNode(&graph.Node{
		ID:    "d0",
		Type:  graph.NodeTypeVariable,
		Label: errorLabel(err),
	})
	return dfg
}

// walk dispatches one node. Handled constructs consume their children
// explicitly; everything else recurses, so each node is visited once.
func (b *DFGBuilder) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		b.processFunction(n)
	case "decorated_definition":
		// Decorator expressions contribute no defs or uses.
		if inner := ast.Field(n, "definition"); inner != nil {
			b.walk(inner)
		}
	case "assignment":
		b.processAssignment(n)
	case "augmented_assignment":
		b.processAugAssignment(n)
	case "for_statement":
		b.processFor(n)
	case "call":
		b.processCall(n)
	case "return_statement":
		b.processReturn(n)
	default:
		for _, child := range ast.NamedChildren(n) {
			b.walk(child)
		}
	}
}

// processFunction defines the parameters at the function's line and
// walks the body in the function's scope. Defaults and decorators are
// not evaluated here and contribute nothing.
func (b *DFGBuilder) processFunction(n *sitter.Node) {
	name := b.mod.Text(ast.Field(n, "name"))
	b.scopes.push(funcScope(name))

	line := ast.Line(n)
	for _, param := range paramNames(b.mod, ast.Field(n, "parameters")) {
		b.addDefinition(param, line, true)
	}
	for _, stmt := range ast.BlockStatements(ast.Field(n, "body")) {
		b.walk(stmt)
	}

	b.scopes.pop()
}

// processAssignment handles plain and annotated assignments, including
// chained targets (a = b = rhs) which share a single right-hand side.
// Uses come first so reads see pre-assignment state.
func (b *DFGBuilder) processAssignment(n *sitter.Node) {
	line := ast.Line(n)

	targets := []*sitter.Node{ast.Field(n, "left")}
	right := ast.Field(n, "right")
	for right != nil && right.Type() == "assignment" {
		targets = append(targets, ast.Field(right, "left"))
		right = ast.Field(right, "right")
	}

	if right != nil {
		b.extractUses(right, line)
	}
	for _, target := range targets {
		b.defineTargets(target, line)
	}
}

func (b *DFGBuilder) processAugAssignment(n *sitter.Node) {
	left := ast.Field(n, "left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	line := ast.Line(n)
	name := b.mod.Text(left)

	b.addUse(name, line)
	if right := ast.Field(n, "right"); right != nil {
		b.extractUses(right, line)
	}
	b.addDefinition(name, line, false)
}

// processFor records the iterable's uses and a definition for a simple
// loop target, then walks the body and any else clause.
func (b *DFGBuilder) processFor(n *sitter.Node) {
	line := ast.Line(n)
	if right := ast.Field(n, "right"); right != nil {
		b.extractUses(right, line)
	}
	if left := ast.Field(n, "left"); left != nil && left.Type() == "identifier" {
		b.addDefinition(b.mod.Text(left), line, false)
	}
	for _, stmt := range ast.BlockStatements(ast.Field(n, "body")) {
		b.walk(stmt)
	}
	if alt := ast.Field(n, "alternative"); alt != nil {
		b.walk(alt)
	}
}

func (b *DFGBuilder) processCall(n *sitter.Node) {
	callUses(b.mod, n, b.addUse, b.processCall)
}

func (b *DFGBuilder) processReturn(n *sitter.Node) {
	line := ast.Line(n)
	for _, child := range ast.NamedChildren(n) {
		b.extractUses(child, line)
	}
}

func (b *DFGBuilder) extractUses(n *sitter.Node, line int) {
	exprUses(b.mod, n, line, b.addUse, b.processCall)
}

// defineTargets adds a definition per simple name in an assignment
// target. Attribute and subscript targets define nothing.
func (b *DFGBuilder) defineTargets(target *sitter.Node, line int) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "identifier":
		b.addDefinition(b.mod.Text(target), line, false)
	case "pattern_list", "tuple_pattern", "list_pattern":
		for _, c := range ast.NamedChildren(target) {
			if c.Type() == "identifier" {
				b.addDefinition(b.mod.Text(c), line, false)
			}
		}
	}
}

func (b *DFGBuilder) addDefinition(varName string, line int, isParam bool) {
	label := fmt.Sprintf("def %s@%d", varName, line)
	if isParam {
		label += " (param)"
	}
	n := &graph.Node{
		ID:    fmt.Sprintf("d%d", b.counter),
		Type:  graph.NodeTypeDefinition,
		Label: label,
		Line:  line,
		Var:   varName,
		Scope: b.scopes.name(),
	}
	b.counter++
	if err := b.dfg.AddNode(n); err != nil && b.err == nil {
		b.err = err
	}
	b.dfg.AddDefinition(varName, n.ID)
}

func (b *DFGBuilder) addUse(varName string, line int) {
	n := &graph.Node{
		ID:    fmt.Sprintf("d%d", b.counter),
		Type:  graph.NodeTypeUse,
		Label: fmt.Sprintf("use %s@%d", varName, line),
		Line:  line,
		Var:   varName,
		Scope: b.scopes.name(),
	}
	b.counter++
	if err := b.dfg.AddNode(n); err != nil && b.err == nil {
		b.err = err
	}
	b.dfg.AddUse(varName, n.ID)
}

// buildDefUseEdges connects every definition to every use the reach
// predicate admits. Variables iterate sorted so edge order is stable
// across runs.
func (b *DFGBuilder) buildDefUseEdges() {
	for _, varName := range b.dfg.Variables() {
		defs := b.dfg.DefinitionsOf(varName)
		uses := b.dfg.UsesOf(varName)
		for _, defID := range defs {
			for _, useID := range uses {
				if b.canReach(defID, useID) {
					b.dfgEdge(defID, useID, varName)
				}
			}
		}
	}
}

// canReach says whether a definition may flow to a use: within one scope
// the definition must precede the use; module-scope definitions reach
// every scope; anything else does not reach.
func (b *DFGBuilder) canReach(defID, useID string) bool {
	def := b.dfg.Node(defID)
	use := b.dfg.Node(useID)
	if def == nil || use == nil {
		return false
	}
	if def.Scope == use.Scope {
		return def.Line < use.Line
	}
	return def.Scope == moduleScope
}

func (b *DFGBuilder) dfgEdge(defID, useID, varName string) {
	e := &graph.Edge{
		From:  defID,
		To:    useID,
		Type:  graph.EdgeTypeDataFlow,
		Label: varName,
	}
	if err := b.dfg.AddEdge(e); err != nil && b.err == nil {
		b.err = err
	}
}

// paramNames lists the plain positional parameter names of a function.
// Splat parameters and keyword-only parameters are not tracked.
func paramNames(mod *ast.Module, params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var names []string
	for _, p := range ast.NamedChildren(params) {
		switch p.Type() {
		case "identifier":
			names = append(names, mod.Text(p))
		case "typed_parameter":
			if c := p.NamedChild(0); c != nil && c.Type() == "identifier" {
				names = append(names, mod.Text(c))
			}
		case "default_parameter", "typed_default_parameter":
			if nameNode := ast.Field(p, "name"); nameNode != nil && nameNode.Type() == "identifier" {
				names = append(names, mod.Text(nameNode))
			}
		case "keyword_separator":
			return names
		}
	}
	return names
}

// exprUses reports the variable reads of an expression in evaluation
// order. Reads are attributed to the enclosing statement's line; calls
// re-anchor to their own line via the call callback. Expression kinds
// outside the cases here (comprehensions, lambdas, f-strings, boolean
// operators) contribute no uses.
func exprUses(mod *ast.Module, n *sitter.Node, line int, use func(name string, line int), call func(n *sitter.Node)) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		use(mod.Text(n), line)

	case "binary_operator":
		exprUses(mod, ast.Field(n, "left"), line, use, call)
		exprUses(mod, ast.Field(n, "right"), line, use, call)

	case "unary_operator", "not_operator":
		exprUses(mod, ast.Field(n, "argument"), line, use, call)

	case "comparison_operator":
		for _, c := range ast.NamedChildren(n) {
			exprUses(mod, c, line, use, call)
		}

	case "call":
		call(n)

	case "subscript":
		// Named children are the value followed by each index expression.
		for _, c := range ast.NamedChildren(n) {
			exprUses(mod, c, line, use, call)
		}

	case "attribute":
		exprUses(mod, ast.Field(n, "object"), line, use, call)

	case "list", "tuple", "set":
		for _, c := range ast.NamedChildren(n) {
			exprUses(mod, c, line, use, call)
		}

	case "dictionary":
		for _, c := range ast.NamedChildren(n) {
			switch c.Type() {
			case "pair":
				exprUses(mod, ast.Field(c, "key"), line, use, call)
				exprUses(mod, ast.Field(c, "value"), line, use, call)
			case "dictionary_splat":
				if v := c.NamedChild(0); v != nil {
					exprUses(mod, v, line, use, call)
				}
			}
		}

	case "parenthesized_expression":
		if inner := n.NamedChild(0); inner != nil {
			exprUses(mod, inner, line, use, call)
		}
	}
}

// callUses records a call's reads: the callee when it is a plain name,
// then every argument. Attribute callees are not reads of the method
// name; their receiver shows up only when it appears as an argument.
func callUses(mod *ast.Module, n *sitter.Node, use func(name string, line int), call func(n *sitter.Node)) {
	line := ast.Line(n)
	if fn := ast.Field(n, "function"); fn != nil && fn.Type() == "identifier" {
		use(mod.Text(fn), line)
	}
	args := ast.Field(n, "arguments")
	if args == nil {
		return
	}
	for _, arg := range ast.NamedChildren(args) {
		if arg.Type() == "keyword_argument" {
			if v := ast.Field(arg, "value"); v != nil {
				exprUses(mod, v, line, use, call)
			}
			continue
		}
		exprUses(mod, arg, line, use, call)
	}
}
