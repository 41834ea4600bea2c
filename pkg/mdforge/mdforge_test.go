package mdforge

import (
	"strings"
	"testing"

	"github.com/sambeau/mdforge/pkg/mdast"
	"github.com/sambeau/mdforge/pkg/mdtransform"
)

func TestFormatTitleHeading(t *testing.T) {
	out, err := Format("# Title")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if out != "<article>\n  <h1>Title</h1>\n</article>\n" {
		t.Fatalf("got %q", out)
	}
}

func TestFormatFlatList(t *testing.T) {
	out, err := Format("- a\n- b")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if out != "<ul>\n  <li>a\n  <li>b\n</ul>\n" {
		t.Fatalf("got %q", out)
	}
}

func TestFormatNestedList(t *testing.T) {
	out, err := Format("- a\n  - b")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	want := "<ul>\n  <li>a\n    <ul>\n      <li>b\n    </ul>\n</ul>\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestFormatCodeFence(t *testing.T) {
	out, err := Format("```js\nx=1\n```")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	want := "<pre class=js data-code=js><code translate=no class=language-js>x=1</code></pre>\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestFormatTableWithCaptionAndAlignment(t *testing.T) {
	out, err := Format("Caption: T\n|a|b|\n|:-|-:|\n|1|2|")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if !strings.Contains(out, "<figcaption>T</figcaption>") {
		t.Fatalf("expected figcaption, got %q", out)
	}
	if !strings.Contains(out, `<th class=align-left>a</th>`) || !strings.Contains(out, `<th class=align-right>b</th>`) {
		t.Fatalf("expected header alignment classes, got %q", out)
	}
	if !strings.Contains(out, `<td class=align-left>1</td>`) || !strings.Contains(out, `<td class=align-right>2</td>`) {
		t.Fatalf("expected body cells to inherit header alignment, got %q", out)
	}
}

func TestFormatBlockquoteCitation(t *testing.T) {
	out, err := Format("> quoted\n> --- [src](http://x)")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if !strings.Contains(out, `<blockquote cite="http://x">`) {
		t.Fatalf("expected cite attribute on blockquote, got %q", out)
	}
	if !strings.Contains(out, `--- <cite><a href="http://x">src</a></cite>`) {
		t.Fatalf("expected mdash citation content, got %q", out)
	}
}

func TestFormatHeadingLevelSkipIsFatal(t *testing.T) {
	if _, err := Format("# H1\n### H3"); err == nil {
		t.Fatalf("expected fatal error for heading level skip")
	}
}

func TestFormatDoubleSpaceIsFatal(t *testing.T) {
	if _, err := Format("-  double space"); err == nil {
		t.Fatalf("expected fatal error for double-space whitespace violation")
	}
}

func TestDecodeThenEncodeRoundTripsThroughTraverse(t *testing.T) {
	root, err := Decode("# A\nhello *world*")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	out := Traverse(root, mdtransform.Hooks{})
	html, err := Encode(out)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !strings.Contains(html, "<em>world</em>") {
		t.Fatalf("identity traverse should preserve content, got %q", html)
	}
}

func TestToTOCFromDecodedHeadings(t *testing.T) {
	root, err := Decode("# One\n## Two\n# Three")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	var headings []*mdast.Node
	Traverse(root, mdtransform.Hooks{
		Enter: func(n *mdast.Node) *mdast.Node {
			if n.Name == mdast.Heading {
				headings = append(headings, n)
			}
			return n
		},
	})
	if len(headings) != 3 {
		t.Fatalf("expected 3 headings, got %d", len(headings))
	}
	toc := ToTOC(headings, mdast.ListUnordered)
	out, err := Encode(toc)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !strings.Contains(out, "One") || !strings.Contains(out, "Two") || !strings.Contains(out, "Three") {
		t.Fatalf("expected all heading text in TOC, got %q", out)
	}
}

func TestEncodeWithIndentOption(t *testing.T) {
	root, err := Decode("hello")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	out, err := Encode(root, WithIndent(2))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !strings.HasPrefix(out, "    <p>") {
		t.Fatalf("expected indent level 2 (4 spaces) applied, got %q", out)
	}
}
