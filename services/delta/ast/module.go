package ast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// MaxLabelLen is the longest label a builder renders for a statement;
// longer statements are truncated with an ellipsis.
const MaxLabelLen = 50

// Module is a parsed Python source with its tree-sitter tree.
//
// # Ownership Model
//
// The Module owns the underlying C tree. Callers must Close it when every
// builder consuming it has finished; builders never close a Module they
// were handed.
type Module struct {
	Name   string
	Source []byte

	tree *sitter.Tree
	root *sitter.Node
}

// Root returns the module root node.
func (m *Module) Root() *sitter.Node {
	return m.root
}

// Close releases the parse tree. Safe to call more than once.
func (m *Module) Close() {
	if m.tree != nil {
		m.tree.Close()
		m.tree = nil
		m.root = nil
	}
}

// Text returns the source text of a node.
func (m *Module) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(m.Source[n.StartByte():n.EndByte()])
}

// Line returns the 1-based start line of a node.
func Line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

// NamedChildren returns the named children of a node in order. Comment
// nodes are skipped: they never contribute graph structure.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	children := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		children = append(children, child)
	}
	return children
}

// Field returns the child for a tree-sitter field name, or nil.
func Field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}

// BlockStatements returns the statements of a block node. When the node is
// not a block (single-statement suite), the node itself is the body.
func BlockStatements(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "block" {
		return NamedChildren(n)
	}
	return []*sitter.Node{n}
}

// Oneline collapses whitespace runs to single spaces so multi-line
// source renders as a one-line label.
func Oneline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateLabel shortens a statement rendering to MaxLabelLen runes,
// replacing the tail with "..." after collapsing it to one line.
func TruncateLabel(s string) string {
	s = Oneline(s)
	runes := []rune(s)
	if len(runes) <= MaxLabelLen {
		return s
	}
	return string(runes[:MaxLabelLen-3]) + "..."
}
