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
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/Deltascope/services/delta/ast"
	"github.com/AleutianAI/Deltascope/services/delta/graph"
)

// SSABuilder builds data flow graphs with SSA-style version tracking.
// Every definition bumps a per-scope version counter and uses record the
// version current at the read, so a use matches exactly one reaching
// definition. Control flow merges install phi definitions:
//
//   - if/else: both branches run from a snapshot of the version state;
//     any variable either branch redefined gets one phi whose version
//     jumps past both branch versions.
//   - for: the loop variable gets a phi before the body (loop-entry
//     merge) and one after (loop-exit merge).
//
// This is a heuristic merge rule, not minimal dominance-based phi
// placement: while loops install no phi, and a for-loop variable that the
// body never reassigns still gets the pair.
type SSABuilder struct {
	mod     *ast.Module
	dfg     *graph.DFG
	counter int
	scopes  *scopeStack
	err     error
}

// NewSSABuilder returns a builder ready for Build. The builder is
// reusable; each Build call starts from a fresh graph.
func NewSSABuilder() *SSABuilder {
	return &SSABuilder{}
}

// Build converts the module body into a versioned data flow graph.
func (b *SSABuilder) Build(mod *ast.Module, name string) (*graph.DFG, error) {
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
		return nil, fmt.Errorf("building ssa dfg %q: %w", name, b.err)
	}
	return b.dfg, nil
}

func (b *SSABuilder) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		b.processFunction(n)
	case "decorated_definition":
		if inner := ast.Field(n, "definition"); inner != nil {
			b.walk(inner)
		}
	case "assignment":
		b.processAssignment(n)
	case "augmented_assignment":
		b.processAugAssignment(n)
	case "for_statement":
		b.processFor(n)
	case "while_statement":
		b.processWhile(n)
	case "if_statement":
		b.processIf(n)
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

// processFunction opens a fresh scope frame, so version counters restart
// at zero inside the function and the caller's counters are untouched.
func (b *SSABuilder) processFunction(n *sitter.Node) {
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

func (b *SSABuilder) processAssignment(n *sitter.Node) {
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

func (b *SSABuilder) processAugAssignment(n *sitter.Node) {
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

// processFor installs the loop-variable phi pair around the body: one at
// the header for the entry merge of pre-loop and back-edge values, one
// after the body for the exit merge. Uses of the loop variable inside
// the body resolve to the entry phi.
func (b *SSABuilder) processFor(n *sitter.Node) {
	line := ast.Line(n)
	if right := ast.Field(n, "right"); right != nil {
		b.extractUses(right, line)
	}

	loopVar := ""
	if left := ast.Field(n, "left"); left != nil && left.Type() == "identifier" {
		loopVar = b.mod.Text(left)
		b.addPhi(loopVar, line, "for_loop")
	}
	for _, stmt := range ast.BlockStatements(ast.Field(n, "body")) {
		b.walk(stmt)
	}
	if loopVar != "" {
		b.addPhi(loopVar, line, "for_exit")
	}
}

// processWhile records condition reads and walks the body. No phi is
// installed for while loops.
func (b *SSABuilder) processWhile(n *sitter.Node) {
	line := ast.Line(n)
	if cond := ast.Field(n, "condition"); cond != nil {
		b.extractUses(cond, line)
	}
	for _, stmt := range ast.BlockStatements(ast.Field(n, "body")) {
		b.walk(stmt)
	}
}

func (b *SSABuilder) processIf(n *sitter.Node) {
	var clauses []*sitter.Node
	for _, child := range ast.NamedChildren(n) {
		if t := child.Type(); t == "elif_clause" || t == "else_clause" {
			clauses = append(clauses, child)
		}
	}
	b.processBranch(ast.Field(n, "condition"), ast.Field(n, "consequence"), clauses, ast.Line(n))
}

// processBranch explores both sides of a branch from the same version
// snapshot, then merges. An elif chain nests: each elif is the false
// side of the branch before it, so its phis feed the outer merge.
func (b *SSABuilder) processBranch(cond, consequence *sitter.Node, rest []*sitter.Node, line int) {
	if cond != nil {
		b.extractUses(cond, line)
	}

	pre := b.scopes.snapshot()

	for _, stmt := range ast.BlockStatements(consequence) {
		b.walk(stmt)
	}
	thenV := b.scopes.snapshot()

	b.scopes.restore(cloneVersions(pre))
	if len(rest) > 0 {
		switch first := rest[0]; first.Type() {
		case "elif_clause":
			b.processBranch(
				ast.Field(first, "condition"),
				ast.Field(first, "consequence"),
				rest[1:],
				ast.Line(first),
			)
		case "else_clause":
			for _, stmt := range ast.BlockStatements(ast.Field(first, "body")) {
				b.walk(stmt)
			}
		}
	}
	elseV := b.scopes.snapshot()

	// One phi per redefined variable. The merged version jumps past both
	// branch versions, so a use after the merge resolves to the phi and
	// not to either branch's raw definition.
	for _, varName := range modifiedVars(pre, thenV, elseV) {
		b.scopes.set(varName, maxInt(thenV[varName], elseV[varName]))
		b.addPhi(varName, line, "if_merge")
	}
}

func (b *SSABuilder) processCall(n *sitter.Node) {
	callUses(b.mod, n, b.addUse, b.processCall)
}

func (b *SSABuilder) processReturn(n *sitter.Node) {
	line := ast.Line(n)
	for _, child := range ast.NamedChildren(n) {
		b.extractUses(child, line)
	}
}

func (b *SSABuilder) extractUses(n *sitter.Node, line int) {
	exprUses(b.mod, n, line, b.addUse, b.processCall)
}

func (b *SSABuilder) defineTargets(target *sitter.Node, line int) {
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

func (b *SSABuilder) addDefinition(varName string, line int, isParam bool) {
	version := b.scopes.bump(varName)
	label := fmt.Sprintf("def %s_%d@%d", varName, version, line)
	if isParam {
		label += " (param)"
	}
	n := &graph.Node{
		ID:      fmt.Sprintf("d%d", b.counter),
		Type:    graph.NodeTypeDefinition,
		Label:   label,
		Line:    line,
		Var:     varName,
		Version: version,
		Scope:   b.scopes.name(),
	}
	b.counter++
	if err := b.dfg.AddNode(n); err != nil && b.err == nil {
		b.err = err
	}
	b.dfg.AddDefinition(varName, n.ID)
}

func (b *SSABuilder) addUse(varName string, line int) {
	version := b.scopes.version(varName)
	n := &graph.Node{
		ID:      fmt.Sprintf("d%d", b.counter),
		Type:    graph.NodeTypeUse,
		Label:   fmt.Sprintf("use %s_%d@%d", varName, version, line),
		Line:    line,
		Var:     varName,
		Version: version,
		Scope:   b.scopes.name(),
	}
	b.counter++
	if err := b.dfg.AddNode(n); err != nil && b.err == nil {
		b.err = err
	}
	b.dfg.AddUse(varName, n.ID)
}

func (b *SSABuilder) addPhi(varName string, line int, context string) {
	version := b.scopes.bump(varName)
	n := &graph.Node{
		ID:      fmt.Sprintf("d%d", b.counter),
		Type:    graph.NodeTypeDefinition,
		Label:   fmt.Sprintf("φ %s_%d@%d (%s)", varName, version, line, context),
		Line:    line,
		Var:     varName,
		Version: version,
		Scope:   b.scopes.name(),
		Phi:     true,
	}
	b.counter++
	if err := b.dfg.AddNode(n); err != nil && b.err == nil {
		b.err = err
	}
	b.dfg.AddDefinition(varName, n.ID)
}

// buildDefUseEdges matches each use to the same-version definition in
// its scope whose line precedes it. The version tag makes the reaching
// definition unambiguous; that is the point of versioning.
func (b *SSABuilder) buildDefUseEdges() {
	for _, varName := range b.dfg.Variables() {
		defs := b.dfg.DefinitionsOf(varName)
		if len(defs) == 0 {
			continue
		}
		for _, useID := range b.dfg.UsesOf(varName) {
			use := b.dfg.Node(useID)
			if use == nil {
				continue
			}
			for _, defID := range defs {
				def := b.dfg.Node(defID)
				if def == nil {
					continue
				}
				if def.Scope == use.Scope && def.Version == use.Version && def.Line < use.Line {
					b.dfgEdge(defID, useID, varName)
					break
				}
			}
		}
	}
}

func (b *SSABuilder) dfgEdge(defID, useID, varName string) {
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

// modifiedVars lists, sorted, every variable whose version in either
// branch moved off the pre-branch snapshot.
func modifiedVars(pre, thenV, elseV map[string]int) []string {
	seen := make(map[string]struct{}, len(thenV)+len(elseV))
	for v := range thenV {
		seen[v] = struct{}{}
	}
	for v := range elseV {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		if thenV[v] != pre[v] || elseV[v] != pre[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
