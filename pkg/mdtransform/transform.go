// Package mdtransform provides the tree-rewriting utilities layered on top
// of pkg/mdast: a pre/post-order visitor for plugin-style AST rewrites, and
// a heading-sequence-to-nested-list reconstructor for tables of contents.
// Grounded on the enter/recurse/return shape of pkg/parsley/evaluator's Eval
// dispatch and the recursive walk in pkg/parsley/format/ast_format.go,
// generalized here from a single interpreter pass to the two independent
// operations the decoder's output needs downstream.
package mdtransform

import "github.com/sambeau/mdforge/pkg/mdast"

// Hooks holds the pre-order Enter and post-order Leave callbacks passed to
// Traverse. Either may be nil, in which case that stage is the identity.
type Hooks struct {
	Enter func(*mdast.Node) *mdast.Node
	Leave func(*mdast.Node) *mdast.Node
}

// Traverse recursively visits n and every descendant, replacing each with
// Leave(recurse(Enter(child))). Enter runs before a node's children are
// visited; Leave runs after. Both hooks, when set, must return a node —
// returning the same node is the identity rewrite.
func Traverse(n *mdast.Node, hooks Hooks) *mdast.Node {
	if n == nil {
		return nil
	}
	if hooks.Enter != nil {
		n = hooks.Enter(n)
	}
	for i, child := range n.Children {
		n.Children[i] = Traverse(child, hooks)
		n.Children[i].Parent = n
	}
	if hooks.Leave != nil {
		n = hooks.Leave(n)
	}
	return n
}

// ToTOC reconstructs a nested list tree from a flat sequence of heading
// nodes, mirroring their Level field: a level increase by exactly one opens
// a fresh nested list under the current last li; an equal level appends a
// sibling li; a lower level rises back out through the ancestor chain
// before the heading is placed (re-attempting at each level on the way up).
// The heading's own inline children (its already-parsed text run) become
// the new li's children directly, not a clone — ToTOC consumes headings
// already detached from the document tree it was derived from.
func ToTOC(headings []*mdast.Node, kind mdast.ListKind) *mdast.Node {
	root := mdast.New(kind.NodeName(), mdast.Block).WithLevel(0)
	if len(headings) == 0 {
		return root
	}

	cursor := root
	depth := headings[0].Level
	if depth < 1 {
		depth = 1
	}

	for _, h := range headings {
		level := h.Level
		if level < 1 {
			level = 1
		}

		for {
			switch {
			case level == depth:
				appendHeadingLI(cursor, h, kind)
			case level > depth:
				// one nesting step per iteration: a multi-level jump takes
				// several re-attempts, each descending into a fresh list
				// under the cursor's last li.
				last := cursor.LastChild()
				if last == nil {
					// nothing to nest under yet: flatten onto the current list
					depth = level
					continue
				}
				nested := mdast.New(kind.NodeName(), mdast.Block).WithLevel(depth + 1)
				last.AppendChild(nested)
				cursor = nested
				depth++
				continue
			default: // level < depth: rise and re-attempt
				if cursor.Parent == nil || cursor.Parent.Parent == nil {
					cursor = root
					depth = level
					continue
				}
				cursor = cursor.Parent.Parent // li -> enclosing list
				depth--
				continue
			}
			break
		}
	}

	return root
}

func appendHeadingLI(list *mdast.Node, h *mdast.Node, kind mdast.ListKind) *mdast.Node {
	li := mdast.New(mdast.LI, mdast.Block).WithLevel(list.Level)
	li.AppendChildren(h.Children)
	list.AppendChild(li)
	return li
}
