// Package ast wraps tree-sitter parsing of Python source into the module
// handle the graph builders walk.
//
// The package deliberately does not build a typed syntax tree of its own:
// builders switch on tree-sitter grammar node names directly, and this
// package supplies the parse entry point plus the small set of helpers
// (text extraction, line numbers, field access, label truncation) that all
// builders share.
package ast

import "errors"

// Default parser limits.
const (
	// DefaultMaxSourceSize is the maximum source size accepted (10MB).
	DefaultMaxSourceSize = 10 * 1024 * 1024

	// WarnSourceSize triggers a warning log for unusually large inputs (1MB).
	WarnSourceSize = 1 * 1024 * 1024
)

// Sentinel errors for parsing.
var (
	// ErrSourceTooLarge indicates input beyond the configured size limit.
	ErrSourceTooLarge = errors.New("source too large")

	// ErrInvalidContent indicates input that is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrSyntax indicates the source does not parse as Python. Callers
	// degrade to a one-node error graph rather than failing a comparison.
	ErrSyntax = errors.New("SyntaxError")
)
