// Package mdforge is the public facade over the decode/encode pipeline:
// pkg/mdblock turns Markdown text into an AST, pkg/mdhtml turns an AST into
// HTML5, and pkg/mdtransform offers a visitor and a TOC builder for working
// with the tree in between. Grounded on pkg/parsley/parsley's own "public
// API over internal packages" shape — a thin facade re-exporting the
// pieces a caller needs without importing pkg/mdblock or pkg/mdhtml
// directly. cmd/mdforge, pkg/mdserve, and pkg/mdrepl reach the pipeline
// only through this package (plus pkg/mderr for error details), the way
// cmd/pars and server/ depend only on pkg/parsley/parsley rather than
// reaching into its evaluator and lexer packages.
package mdforge

import (
	"github.com/sambeau/mdforge/pkg/mdast"
	"github.com/sambeau/mdforge/pkg/mdblock"
	"github.com/sambeau/mdforge/pkg/mdhtml"
	"github.com/sambeau/mdforge/pkg/mdtransform"
)

// EncodeOption is an alias for mdhtml.Option.
type EncodeOption = mdhtml.Option

// WithIndent sets the starting indentation column (default 0).
func WithIndent(level int) EncodeOption {
	return mdhtml.WithIndent(level)
}

// Decode parses markdown into an AST root, or returns the first fatal
// syntax violation encountered.
func Decode(markdown string) (*mdast.Node, error) {
	return mdblock.Parse(markdown)
}

// Encode serializes root to indented HTML5.
func Encode(root *mdast.Node, opts ...EncodeOption) (string, error) {
	return mdhtml.Encode(root, opts...)
}

// Format is the convenience composition decode-then-encode.
func Format(markdown string, opts ...EncodeOption) (string, error) {
	root, err := Decode(markdown)
	if err != nil {
		return "", err
	}
	return Encode(root, opts...)
}

// Traverse is an alias for mdtransform.Traverse.
func Traverse(root *mdast.Node, hooks mdtransform.Hooks) *mdast.Node {
	return mdtransform.Traverse(root, hooks)
}

// ToTOC is an alias for mdtransform.ToTOC.
func ToTOC(headings []*mdast.Node, kind mdast.ListKind) *mdast.Node {
	return mdtransform.ToTOC(headings, kind)
}
