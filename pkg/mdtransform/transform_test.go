package mdtransform

import (
	"testing"

	"github.com/sambeau/mdforge/pkg/mdast"
)

func heading(level int, text string) *mdast.Node {
	h := mdast.New(mdast.Heading, mdast.Block).WithLevel(level)
	h.AddText(text)
	return h
}

func TestTraverseIdentityOnEmptyHooks(t *testing.T) {
	root := mdast.NewRoot()
	p := mdast.New(mdast.P, mdast.Block)
	p.AddText("hello")
	root.AppendChild(p)

	out := Traverse(root, Hooks{})
	if out != root {
		t.Fatalf("expected identity traversal to return the same root")
	}
	if len(out.Children) != 1 || out.Children[0].Children[0].Text != "hello" {
		t.Fatalf("traversal mutated the tree unexpectedly: %+v", out)
	}
}

func TestTraverseVisitsPreOrderThenPostOrder(t *testing.T) {
	root := mdast.NewRoot()
	p := mdast.New(mdast.P, mdast.Block)
	p.AddText("x")
	root.AppendChild(p)

	var order []string
	hooks := Hooks{
		Enter: func(n *mdast.Node) *mdast.Node {
			order = append(order, "enter:"+string(n.Name))
			return n
		},
		Leave: func(n *mdast.Node) *mdast.Node {
			order = append(order, "leave:"+string(n.Name))
			return n
		},
	}
	Traverse(root, hooks)

	want := []string{"enter:root", "enter:p", "enter:text", "leave:text", "leave:p", "leave:root"}
	if len(order) != len(want) {
		t.Fatalf("got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("at %d: want %q got %q (full: %v)", i, want[i], order[i], order)
		}
	}
}

func TestTraverseCanRewriteNodes(t *testing.T) {
	root := mdast.NewRoot()
	root.AppendChild(mdast.New(mdast.Em, mdast.Inline))

	out := Traverse(root, Hooks{
		Enter: func(n *mdast.Node) *mdast.Node {
			if n.Name == mdast.Em {
				return mdast.New(mdast.Strong, mdast.Inline)
			}
			return n
		},
	})
	if out.Children[0].Name != mdast.Strong {
		t.Fatalf("expected em rewritten to strong, got %+v", out.Children[0])
	}
}

func TestToTOCFlatLevelsAppendSiblings(t *testing.T) {
	headings := []*mdast.Node{heading(1, "A"), heading(1, "B")}
	toc := ToTOC(headings, mdast.ListUnordered)
	if toc.Name != mdast.UL || len(toc.Children) != 2 {
		t.Fatalf("expected flat ul with 2 li, got %+v", toc)
	}
	if toc.Children[0].Children[0].Text != "A" || toc.Children[1].Children[0].Text != "B" {
		t.Fatalf("expected headings in order, got %+v", toc.Children)
	}
}

func TestToTOCNestsOnLevelIncrease(t *testing.T) {
	headings := []*mdast.Node{heading(1, "A"), heading(2, "A.1"), heading(1, "B")}
	toc := ToTOC(headings, mdast.ListOrdered)
	if len(toc.Children) != 2 {
		t.Fatalf("expected 2 top-level li (A, B), got %+v", toc.Children)
	}
	liA := toc.Children[0]
	var nested *mdast.Node
	for _, c := range liA.Children {
		if c.Name == mdast.OL {
			nested = c
		}
	}
	if nested == nil || len(nested.Children) != 1 {
		t.Fatalf("expected nested ol with one li under A, got %+v", liA.Children)
	}
	if nested.Children[0].Children[0].Text != "A.1" {
		t.Fatalf("expected nested heading text A.1, got %+v", nested.Children[0])
	}
}

func TestToTOCRisesOnLevelDecrease(t *testing.T) {
	headings := []*mdast.Node{
		heading(1, "A"), heading(2, "A.1"), heading(3, "A.1.a"), heading(1, "B"),
	}
	toc := ToTOC(headings, mdast.ListUnordered)
	if len(toc.Children) != 2 {
		t.Fatalf("expected B to rise back to top level, got %+v", toc.Children)
	}
	if toc.Children[1].Children[0].Text != "B" {
		t.Fatalf("expected second top-level li to be B, got %+v", toc.Children[1])
	}
}

func TestToTOCEmptyInput(t *testing.T) {
	toc := ToTOC(nil, mdast.ListUnordered)
	if toc.Name != mdast.UL || len(toc.Children) != 0 {
		t.Fatalf("expected empty ul, got %+v", toc)
	}
}
