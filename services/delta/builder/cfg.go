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

// CFGBuilder builds control flow graphs from parsed Python modules.
//
// Statement handling is deliberately coarse: function bodies are not
// expanded into the enclosing graph, return/break/continue are plain
// nodes with no propagation to loop or function boundaries, and the
// loop-body-never-executes path is not modeled separately. The goal is a
// stable structural fingerprint for graph comparison, not an execution
// model.
type CFGBuilder struct {
	mod     *ast.Module
	cfg     *graph.CFG
	counter int
	err     error
}

// NewCFGBuilder returns a builder ready for Build. The builder is
// reusable; each Build call starts from a fresh graph.
func NewCFGBuilder() *CFGBuilder {
	return &CFGBuilder{}
}

// Build converts the module body into a control flow graph.
//
// Description:
//
//	Creates an entry node, lowers every top-level statement through
//	per-statement rules that thread an "exit set" of continuation
//	points, then wires all final exits into one synthetic exit node.
//	The returned graph always has exactly one entry and one exit.
//
// Inputs:
//   - mod: parsed module. The builder borrows it; the caller closes it.
//   - name: graph name, carried through to reports.
//
// Outputs:
//   - *graph.CFG: the control flow graph.
//   - error: ErrNilModule, or a wrapped construction error when an edge
//     references a missing node (a builder bug, never bad input).
func (b *CFGBuilder) Build(mod *ast.Module, name string) (*graph.CFG, error) {
	if mod == nil {
		return nil, ErrNilModule
	}
	b.mod = mod
	b.cfg = graph.NewCFG(name)
	b.counter = 0
	b.err = nil

	entry := b.node(graph.NodeTypeEntry, "entry", 0)
	b.cfg.SetEntry(entry.ID)

	exits := b.processStatements(ast.NamedChildren(mod.Root()), entry.ID)

	exit := b.node(graph.NodeTypeExit, "exit", 0)
	for _, id := range exits {
		b.edge(id, exit.ID, graph.EdgeTypeControlFlow)
	}
	b.cfg.AddExit(exit.ID)

	if b.err != nil {
		return nil, fmt.Errorf("building cfg %q: %w", name, b.err)
	}
	return b.cfg, nil
}

// ErrorCFG builds the one-node graph standing in for source that failed
// to parse. Comparing against it yields a large structural distance
// instead of failing the comparison. The graph has no entry or exits.
func ErrorCFG(name string, err error) *graph.CFG {
	cfg := graph.NewCFG(name)
	_ = cfg.AddNode(&graph.Node{
		ID:    "n0",
		Type:  graph.NodeTypeStatement,
		Label: errorLabel(err),
	})
	return cfg
}

func (b *CFGBuilder) node(t graph.NodeType, label string, line int) *graph.Node {
	n := &graph.Node{
		ID:    fmt.Sprintf("n%d", b.counter),
		Type:  t,
		Label: label,
		Line:  line,
	}
	b.counter++
	if err := b.cfg.AddNode(n); err != nil && b.err == nil {
		b.err = err
	}
	return n
}

func (b *CFGBuilder) edge(from, to string, t graph.EdgeType) {
	if err := b.cfg.AddEdge(&graph.Edge{From: from, To: to, Type: t}); err != nil && b.err == nil {
		b.err = err
	}
}

// processStatements wires a statement sequence, chaining each statement
// from the first exit of the one before it, and returns the last
// statement's full exit set.
func (b *CFGBuilder) processStatements(stmts []*sitter.Node, entryID string) []string {
	exits := []string{entryID}
	for _, stmt := range stmts {
		if next := b.processStatement(stmt, exits[0]); len(next) > 0 {
			exits = next
		}
	}
	return exits
}

// processStatement lowers one statement and returns its exit set.
func (b *CFGBuilder) processStatement(stmt *sitter.Node, entryID string) []string {
	switch stmt.Type() {
	case "if_statement":
		return b.processIf(stmt, entryID)

	case "while_statement":
		cond := ast.Oneline(b.mod.Text(ast.Field(stmt, "condition")))
		return b.processLoop(stmt, "while "+cond, entryID)

	case "for_statement":
		target := ast.Oneline(b.mod.Text(ast.Field(stmt, "left")))
		return b.processLoop(stmt, "for "+target, entryID)

	case "try_statement":
		return b.processTry(stmt, entryID)

	case "function_definition":
		return b.processFunctionDef(stmt, entryID)

	case "decorated_definition":
		inner := ast.Field(stmt, "definition")
		if inner != nil && inner.Type() == "function_definition" {
			return b.processFunctionDef(inner, entryID)
		}
		// Decorated classes render like any other statement.
		return b.simple(stmt, entryID)

	case "return_statement":
		label := "return"
		if kids := ast.NamedChildren(stmt); len(kids) > 0 {
			label = "return " + ast.Oneline(b.mod.Text(kids[0]))
		}
		n := b.node(graph.NodeTypeStatement, label, ast.Line(stmt))
		b.edge(entryID, n.ID, graph.EdgeTypeControlFlow)
		return []string{n.ID}

	case "break_statement":
		n := b.node(graph.NodeTypeStatement, "break", ast.Line(stmt))
		b.edge(entryID, n.ID, graph.EdgeTypeControlFlow)
		return []string{n.ID}

	case "continue_statement":
		n := b.node(graph.NodeTypeStatement, "continue", ast.Line(stmt))
		b.edge(entryID, n.ID, graph.EdgeTypeControlFlow)
		return []string{n.ID}

	default:
		return b.simple(stmt, entryID)
	}
}

// processIf lowers an if/elif/else chain. Each elif opens a branch of its
// own with its own merge node, nested under the previous branch's false
// side, which keeps the shape identical however the chain is spelled.
func (b *CFGBuilder) processIf(stmt *sitter.Node, entryID string) []string {
	var clauses []*sitter.Node
	for _, child := range ast.NamedChildren(stmt) {
		if t := child.Type(); t == "elif_clause" || t == "else_clause" {
			clauses = append(clauses, child)
		}
	}
	cond := ast.Field(stmt, "condition")
	consequence := ast.Field(stmt, "consequence")
	return b.processBranch(cond, consequence, clauses, ast.Line(stmt), entryID)
}

func (b *CFGBuilder) processBranch(cond, consequence *sitter.Node, rest []*sitter.Node, line int, entryID string) []string {
	branch := b.node(graph.NodeTypeBranch, "if "+ast.Oneline(b.mod.Text(cond)), line)
	b.edge(entryID, branch.ID, graph.EdgeTypeControlFlow)

	thenExits := b.processStatements(ast.BlockStatements(consequence), branch.ID)

	// Without an else, the branch node itself is the fall-through exit.
	elseExits := []string{branch.ID}
	if len(rest) > 0 {
		switch first := rest[0]; first.Type() {
		case "elif_clause":
			elseExits = b.processBranch(
				ast.Field(first, "condition"),
				ast.Field(first, "consequence"),
				rest[1:],
				ast.Line(first),
				branch.ID,
			)
		case "else_clause":
			elseExits = b.processStatements(ast.BlockStatements(ast.Field(first, "body")), branch.ID)
		}
	}

	merge := b.node(graph.NodeTypeStatement, "merge", 0)
	for _, id := range thenExits {
		b.edge(id, merge.ID, graph.EdgeTypeControlFlow)
	}
	for _, id := range elseExits {
		b.edge(id, merge.ID, graph.EdgeTypeControlFlow)
	}
	return []string{merge.ID}
}

// processLoop lowers while and for statements. Body exits loop back to
// the header; the after-loop node hangs off the header's false branch and
// is the sole exit.
func (b *CFGBuilder) processLoop(stmt *sitter.Node, label string, entryID string) []string {
	loop := b.node(graph.NodeTypeLoop, label, ast.Line(stmt))
	b.edge(entryID, loop.ID, graph.EdgeTypeControlFlow)

	bodyExits := b.processStatements(ast.BlockStatements(ast.Field(stmt, "body")), loop.ID)
	for _, id := range bodyExits {
		b.edge(id, loop.ID, graph.EdgeTypeControlFlow)
	}

	after := b.node(graph.NodeTypeStatement, "after_loop", 0)
	b.edge(loop.ID, after.ID, graph.EdgeTypeFalseBranch)
	return []string{after.ID}
}

// processTry runs the try body and every handler body from the same
// entry. Handlers are successors of the try entry only, not of arbitrary
// points inside the try. A finally body receives every try and handler
// exit and its own exits become the statement's.
func (b *CFGBuilder) processTry(stmt *sitter.Node, entryID string) []string {
	exits := b.processStatements(ast.BlockStatements(ast.Field(stmt, "body")), entryID)

	var finallyClause *sitter.Node
	for _, child := range ast.NamedChildren(stmt) {
		switch child.Type() {
		case "except_clause", "except_group_clause":
			body := ast.BlockStatements(childBlock(child))
			exits = append(exits, b.processStatements(body, entryID)...)
		case "finally_clause":
			finallyClause = child
		}
	}
	if finallyClause == nil {
		return exits
	}

	// Node ids are sequential, so the first node the finally body creates
	// is "n<before>"; the remaining try/handler exits wire into it.
	before := b.counter
	finalExits := b.processStatements(ast.BlockStatements(childBlock(finallyClause)), exits[0])
	if b.counter == before {
		return exits
	}
	first := fmt.Sprintf("n%d", before)
	for _, id := range exits[1:] {
		b.edge(id, first, graph.EdgeTypeControlFlow)
	}
	return finalExits
}

// processFunctionDef adds one opaque node per function definition. The
// body is not expanded here; each function gets its own graph when built
// for that scope.
func (b *CFGBuilder) processFunctionDef(stmt *sitter.Node, entryID string) []string {
	name := b.mod.Text(ast.Field(stmt, "name"))
	n := b.node(graph.NodeTypeStatement, "def "+name, ast.Line(stmt))
	b.edge(entryID, n.ID, graph.EdgeTypeControlFlow)
	return []string{n.ID}
}

func (b *CFGBuilder) simple(stmt *sitter.Node, entryID string) []string {
	n := b.node(graph.NodeTypeStatement, ast.TruncateLabel(b.mod.Text(stmt)), ast.Line(stmt))
	b.edge(entryID, n.ID, graph.EdgeTypeControlFlow)
	return []string{n.ID}
}

// childBlock finds the body block of a clause whose grammar does not
// expose it as a field (except and finally clauses).
func childBlock(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "block" {
			return c
		}
	}
	return nil
}
