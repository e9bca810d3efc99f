package ast

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithMaxSourceSize sets the maximum source size the parser will accept.
func WithMaxSourceSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxSourceSize = bytes
		}
	}
}

// PythonParser parses Python source into a Module.
//
// Thread Safety:
//
//	PythonParser instances are safe for concurrent use. Each Parse call
//	creates its own tree-sitter parser instance internally.
type PythonParser struct {
	maxSourceSize int64
}

// NewPythonParser creates a parser with the given options.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxSourceSize: DefaultMaxSourceSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses Python source into a Module.
//
// Description:
//
//	Validates size and encoding, parses with tree-sitter, and rejects
//	sources whose tree contains syntax errors: unlike symbol extraction,
//	graph construction over a broken tree produces structurally
//	meaningless graphs, so a syntax error is surfaced as ErrSyntax and the
//	caller degrades to a one-node error graph.
//
// Inputs:
//
//	ctx - Checked before and after parsing; tree-sitter itself cannot be
//	      interrupted mid-parse.
//	source - Raw Python source bytes. Must be valid UTF-8.
//	name - Identifier for logs and error messages (file path or snippet tag).
//
// Outputs:
//
//	*Module - Owns the parse tree. The caller must Close it.
//	error - ErrSourceTooLarge, ErrInvalidContent, ErrSyntax, or a context
//	        error.
//
// Thread Safety: Safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, source []byte, name string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(source)) > p.maxSourceSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrSourceTooLarge, len(source), p.maxSourceSize)
	}

	if len(source) > WarnSourceSize {
		slog.Warn("parsing large source",
			slog.String("name", name),
			slog.Int("size_bytes", len(source)))
	}

	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	start := time.Now()
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node", ErrSyntax)
	}

	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		if line > 0 {
			return nil, fmt.Errorf("%w: invalid syntax (line %d)", ErrSyntax, line)
		}
		return nil, fmt.Errorf("%w: invalid syntax", ErrSyntax)
	}

	slog.Debug("parsed python source",
		slog.String("name", name),
		slog.Int("size_bytes", len(source)),
		slog.Duration("duration", time.Since(start)))

	return &Module{
		Name:   name,
		Source: source,
		tree:   tree,
		root:   root,
	}, nil
}

// firstErrorLine returns the 1-based line of the first ERROR or missing
// node in the tree, or 0 if none is found.
func firstErrorLine(root *sitter.Node) int {
	var walk func(n *sitter.Node) int
	walk = func(n *sitter.Node) int {
		if n.Type() == "ERROR" || n.IsMissing() {
			return int(n.StartPoint().Row) + 1
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if line := walk(n.Child(i)); line > 0 {
				return line
			}
		}
		return 0
	}
	return walk(root)
}
