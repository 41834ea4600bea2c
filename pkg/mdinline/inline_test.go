package mdinline

import (
	"testing"

	"github.com/sambeau/mdforge/pkg/mdast"
)

func parseFull(t *testing.T, line string) []*mdast.Node {
	t.Helper()
	nodes, end, err := Parse(line, 1, 0)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", line, err)
	}
	if end != len([]rune(line)) {
		t.Fatalf("Parse(%q) stopped at %d, expected full line %d", line, end, len([]rune(line)))
	}
	return nodes
}

func TestPlainText(t *testing.T) {
	nodes := parseFull(t, "hello world")
	if len(nodes) != 1 || nodes[0].Name != mdast.Text || nodes[0].Text != "hello world" {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
}

func TestStrongAndEm(t *testing.T) {
	nodes := parseFull(t, "a **bold** b *em* c")
	if len(nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %d: %+v", len(nodes), nodes)
	}
	if nodes[1].Name != mdast.Strong || nodes[1].Children[0].Text != "bold" {
		t.Fatalf("expected strong(bold), got %+v", nodes[1])
	}
	if nodes[3].Name != mdast.Em || nodes[3].Children[0].Text != "em" {
		t.Fatalf("expected em(em), got %+v", nodes[3])
	}
}

func TestCodeNestsInStrongNotEm(t *testing.T) {
	nodes := parseFull(t, "**`x`**")
	if len(nodes) != 1 || nodes[0].Name != mdast.Strong {
		t.Fatalf("expected single strong node, got %+v", nodes)
	}
	inner := nodes[0].Children
	if len(inner) != 1 || inner[0].Name != mdast.Code {
		t.Fatalf("expected code to nest in strong, got %+v", inner)
	}
}

func TestUnmatchedEmphasisIsFatal(t *testing.T) {
	_, _, err := Parse("*unterminated", 1, 0)
	if err == nil {
		t.Fatalf("expected error for unmatched *")
	}
}

func TestLink(t *testing.T) {
	nodes := parseFull(t, "see [docs](http://example.com/a)")
	link := nodes[len(nodes)-1]
	if link.Name != mdast.A {
		t.Fatalf("expected trailing link node, got %+v", nodes)
	}
	href, _, _ := link.Attr.Get("href")
	if href != "http://example.com/a" {
		t.Fatalf("expected href, got %q", href)
	}
	if link.Children[0].Text != "docs" {
		t.Fatalf("expected link text 'docs', got %+v", link.Children)
	}
}

func TestLinkWithBalancedParenInURL(t *testing.T) {
	nodes := parseFull(t, "[wiki](http://en.wikipedia.org/Example_(disambiguation))")
	link := nodes[0]
	href, _, _ := link.Attr.Get("href")
	unescaped := UnescapeURL(href)
	if unescaped != "http://en.wikipedia.org/Example_(disambiguation)" {
		t.Fatalf("got %q", unescaped)
	}
}

func TestLinkFallsBackToLiteralText(t *testing.T) {
	nodes := parseFull(t, "[not a link] trailing")
	if len(nodes) != 1 || nodes[0].Name != mdast.Text {
		t.Fatalf("expected one text node, got %+v", nodes)
	}
	if nodes[0].Text != "[not a link] trailing" {
		t.Fatalf("got %q", nodes[0].Text)
	}
}

func TestAngleAutolink(t *testing.T) {
	nodes := parseFull(t, "<http://example.com>")
	if len(nodes) != 1 || nodes[0].Name != mdast.A {
		t.Fatalf("expected autolink node, got %+v", nodes)
	}
	href, _, _ := nodes[0].Attr.Get("href")
	if href != "http://example.com" || nodes[0].Children[0].Text != "http://example.com" {
		t.Fatalf("got %+v", nodes[0])
	}
}

func TestBareAutolinkBoundedBySpace(t *testing.T) {
	nodes := parseFull(t, "go to http://example.com/x now")
	var found *mdast.Node
	for _, n := range nodes {
		if n.Name == mdast.A {
			found = n
		}
	}
	if found == nil {
		t.Fatalf("expected autolink among nodes: %+v", nodes)
	}
	href, _, _ := found.Attr.Get("href")
	if href != "http://example.com/x" {
		t.Fatalf("got %q", href)
	}
}

func TestImageWithTitle(t *testing.T) {
	nodes := parseFull(t, `![alt text](/img.png "a title")`)
	img := nodes[0]
	if img.Name != mdast.Img {
		t.Fatalf("expected img node, got %+v", nodes)
	}
	src, _, _ := img.Attr.Get("src")
	alt, _, _ := img.Attr.Get("alt")
	title, _, _ := img.Attr.Get("title")
	loading, _, _ := img.Attr.Get("loading")
	if src != "/img.png" || alt != "alt text" || title != "a title" || loading != "lazy" {
		t.Fatalf("got %+v", img)
	}
}

func TestBackslashEscapeResidueStripped(t *testing.T) {
	nodes := parseFull(t, `\*not bold\*`)
	if len(nodes) != 1 || nodes[0].Name != mdast.Text || nodes[0].Text != "*not bold*" {
		t.Fatalf("got %+v", nodes)
	}
}

func TestDoubleSpaceBeforeConstructIsFatal(t *testing.T) {
	_, _, err := Parse("a  *em*", 1, 0)
	if err == nil {
		t.Fatalf("expected whitespace violation")
	}
}

func TestDoubleSpaceBeforeLinkCloseIsFatal(t *testing.T) {
	_, _, err := Parse("[a](b  )", 1, 0)
	if err == nil {
		t.Fatalf("expected whitespace violation")
	}
}

func TestDoubleSpaceBeforeImageCloseIsFatal(t *testing.T) {
	_, _, err := Parse("![a](b  )", 1, 0)
	if err == nil {
		t.Fatalf("expected whitespace violation")
	}
}

func TestInlineBlockquoteCitation(t *testing.T) {
	nodes := parseFull(t, "quoted text > [src](http://x)")
	var bq *mdast.Node
	for _, n := range nodes {
		if n.Name == mdast.Blockquote {
			bq = n
		}
	}
	if bq == nil {
		t.Fatalf("expected nested blockquote, got %+v", nodes)
	}
	p := bq.Children[0]
	if p.Name != mdast.P {
		t.Fatalf("expected p inside blockquote, got %+v", p)
	}
}

func TestCoalesceText(t *testing.T) {
	nodes := []*mdast.Node{
		mdast.New(mdast.Text, mdast.Inline).WithText("a"),
		mdast.New(mdast.Text, mdast.Inline).WithText("b"),
		mdast.New(mdast.Em, mdast.Inline),
	}
	merged := CoalesceText(nodes)
	if len(merged) != 2 || merged[0].Text != "ab" {
		t.Fatalf("got %+v", merged)
	}
}
