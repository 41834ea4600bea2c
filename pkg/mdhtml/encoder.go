// Package mdhtml walks the AST built by mdblock/mdinline and serializes
// it to indented HTML5, one rule per node name (spec.md 4.D). Grounded
// on pkg/parsley/format/printer.go + ast_format.go — an indent-tracked
// recursive printer with a per-node-kind case dispatch — repurposed here
// from re-emitting Parsley source to emitting HTML.
package mdhtml

import (
	"fmt"
	"strings"

	"github.com/sambeau/mdforge/pkg/mdast"
	"github.com/sambeau/mdforge/pkg/mderr"
	"github.com/sambeau/mdforge/pkg/mdinline"
)

// IndentString is repeated per indent level, matching the teacher
// printer's IndentWidth-driven writeIndent.
const IndentString = "  "

// Option configures a single Encode call.
type Option func(*options)

type options struct {
	indent int
}

// WithIndent sets the starting indentation column (default 0).
func WithIndent(level int) Option {
	return func(o *options) { o.indent = level }
}

type encoder struct {
	indent int
}

// Encode serializes root to indented HTML5.
func Encode(root *mdast.Node, opts ...Option) (string, error) {
	cfg := options{}
	for _, o := range opts {
		o(&cfg)
	}
	e := &encoder{indent: cfg.indent}
	return e.emitChildren(root)
}

func (e *encoder) indentStr() string {
	return strings.Repeat(IndentString, e.indent)
}

// knownNames is every name spec.md 3 recognizes. A node reaching emit
// with any other name is a parser/transform bug, not a document error,
// and is a fatal encoder error per spec.md 4.D.
var knownNames = map[mdast.NodeName]bool{
	mdast.Root: true, mdast.Section: true, mdast.Heading: true, mdast.P: true,
	mdast.UL: true, mdast.OL: true, mdast.LI: true, mdast.DL: true, mdast.Div: true,
	mdast.DT: true, mdast.DD: true, mdast.Blockquote: true, mdast.Cite: true,
	mdast.Pre: true, mdast.Code: true, mdast.Table: true, mdast.Thead: true,
	mdast.Tbody: true, mdast.TR: true, mdast.TH: true, mdast.TD: true,
	mdast.Figure: true, mdast.Figcaption: true, mdast.Details: true, mdast.Summary: true,
	mdast.HTML: true, mdast.A: true, mdast.Img: true, mdast.Em: true, mdast.Strong: true,
	mdast.Text: true, mdast.Raw: true, mdast.Empty: true,
}

// emit dispatches by node name, then falls back to type-based defaults,
// per spec.md 4.D.
func (e *encoder) emit(n *mdast.Node) (string, error) {
	if !knownNames[n.Name] {
		return "", mderr.Dispatch("ENC-0001", string(n.Name), "encoder reached an unrecognized node shape")
	}
	switch n.Name {
	case mdast.Root, mdast.Empty:
		return e.emitChildren(n)

	case mdast.Text:
		return escapeText(n.Text), nil

	case mdast.Raw:
		return e.indentStr() + n.Text + "\n", nil

	case mdast.Section:
		return e.emitSection(n)

	case mdast.Heading:
		return e.emitSingleLine(headingTag(n), n)

	case mdast.P, mdast.DT, mdast.DD:
		return e.emitMixedInline(n)

	case mdast.LI:
		return e.emitListItem(n)

	case mdast.TH, mdast.TD, mdast.Summary:
		return e.emitSingleLine(string(n.Name), n)

	case mdast.Figcaption:
		return e.indentStr() + "<figcaption>" + n.Text + "</figcaption>\n", nil

	case mdast.A:
		return e.emitInlineTag(n, true)

	case mdast.Img:
		return "<img" + renderAttrs(n.Attr) + ">", nil

	case mdast.Em, mdast.Strong, mdast.Code, mdast.Cite:
		return e.emitInlineTag(n, false)

	case mdast.Pre:
		return e.emitPre(n)

	case mdast.Details:
		return e.emitDetails(n)

	case mdast.HTML:
		return e.emitChildren(n)

	case mdast.Blockquote, mdast.UL, mdast.OL, mdast.DL, mdast.Div,
		mdast.Table, mdast.Thead, mdast.Tbody, mdast.TR, mdast.Figure:
		return e.emitBlock(string(n.Name), n)

	default:
		if n.IsLeaf() {
			if n.Kind == mdast.Inline {
				return "<" + string(n.Name) + renderAttrs(n.Attr) + ">", nil
			}
			return e.indentStr() + "<" + string(n.Name) + renderAttrs(n.Attr) + ">\n", nil
		}
		if n.Kind == mdast.Inline {
			return e.emitInlineTag(n, false)
		}
		return e.emitBlock(string(n.Name), n)
	}
}

// emitChildren concatenates each child's own rendering with no wrapping
// tag — used for root, the empty pseudo-container, and html (whose
// actual per-line tags live on its raw children).
func (e *encoder) emitChildren(n *mdast.Node) (string, error) {
	var b strings.Builder
	for _, c := range n.Children {
		s, err := e.emit(c)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func headingTag(n *mdast.Node) string {
	lvl := n.Level
	if lvl < 1 {
		lvl = 1
	}
	if lvl > 6 {
		lvl = 6
	}
	return fmt.Sprintf("h%d", lvl)
}

// emitSection renders level==1 as <article>, deeper levels as <section>.
func (e *encoder) emitSection(n *mdast.Node) (string, error) {
	tag := "section"
	if n.Level == 1 {
		tag = "article"
	}
	return e.emitBlock(tag, n)
}

// emitBlock is the generic block-container rule: open tag, indented
// children, close tag.
func (e *encoder) emitBlock(tag string, n *mdast.Node) (string, error) {
	var b strings.Builder
	b.WriteString(e.indentStr() + "<" + tag + renderAttrs(n.Attr) + ">\n")
	e.indent++
	inner, err := e.emitChildren(n)
	e.indent--
	if err != nil {
		return "", err
	}
	b.WriteString(inner)
	b.WriteString(e.indentStr() + "</" + tag + ">\n")
	return b.String(), nil
}

// emitSingleLine renders a node whose children are always inline as one
// closed line: heading, th/td, summary.
func (e *encoder) emitSingleLine(tag string, n *mdast.Node) (string, error) {
	inner, err := e.emitChildren(n)
	if err != nil {
		return "", err
	}
	return e.indentStr() + "<" + tag + renderAttrs(n.Attr) + ">" + inner + "</" + tag + ">\n", nil
}

// emitInlineTag renders an inline container with no surrounding
// indentation or newline: em, strong, code, cite, a.
func (e *encoder) emitInlineTag(n *mdast.Node, isLink bool) (string, error) {
	tag := string(n.Name)
	attr := n.Attr
	if isLink {
		attr = n.Attr.Clone()
		if href, _, ok := attr.Get("href"); ok {
			attr.Set("href", mdinline.UnescapeURL(href))
		}
	}
	inner, err := e.emitChildren(n)
	if err != nil {
		return "", err
	}
	return "<" + tag + renderAttrs(attr) + ">" + inner + "</" + tag + ">", nil
}

// emitMixedInline implements the p/dt/dd rule (li has its own
// emitListItem): consecutive inline children group onto one indented
// line; block children stand alone. A node made up entirely of inline
// children emits open-only, relying on HTML5's optional closing tag for
// p/dt/dd.
func (e *encoder) emitMixedInline(n *mdast.Node) (string, error) {
	tag := string(n.Name)
	if allInline(n.Children) {
		inner, err := e.emitChildren(n)
		if err != nil {
			return "", err
		}
		return e.indentStr() + "<" + tag + renderAttrs(n.Attr) + ">" + inner + "\n", nil
	}

	var b strings.Builder
	b.WriteString(e.indentStr() + "<" + tag + renderAttrs(n.Attr) + ">\n")
	e.indent++

	groupStart := -1
	flushGroup := func(end int) error {
		if groupStart < 0 {
			return nil
		}
		var line strings.Builder
		for _, c := range n.Children[groupStart:end] {
			s, err := e.emit(c)
			if err != nil {
				return err
			}
			line.WriteString(s)
		}
		b.WriteString(e.indentStr() + line.String() + "\n")
		groupStart = -1
		return nil
	}

	var err error
	for i, c := range n.Children {
		if c.Kind == mdast.Inline {
			if groupStart < 0 {
				groupStart = i
			}
			continue
		}
		if err = flushGroup(i); err != nil {
			break
		}
		var s string
		if s, err = e.emit(c); err != nil {
			break
		}
		b.WriteString(s)
	}
	if err == nil {
		err = flushGroup(len(n.Children))
	}
	e.indent--
	if err != nil {
		return "", err
	}
	b.WriteString(e.indentStr() + "</" + tag + ">\n")
	return b.String(), nil
}

// emitListItem renders li: always open-only, never a closing tag,
// regardless of whether it holds a nested list. A leading inline run sits
// on the opening line; any block child (most commonly a nested ul/ol
// placed inside the last li, per the list-nesting rule) renders as its
// own indented block one level deeper, the same shape a flat <li> gets
// from HTML5's optional closing tag.
func (e *encoder) emitListItem(n *mdast.Node) (string, error) {
	tag := string(n.Name)
	head := e.indentStr() + "<" + tag + renderAttrs(n.Attr) + ">"
	e.indent++

	var body strings.Builder
	wroteHeadInline := false
	i := 0
	var err error
	for i < len(n.Children) && err == nil {
		c := n.Children[i]
		if c.Kind != mdast.Inline {
			var s string
			if s, err = e.emit(c); err != nil {
				break
			}
			body.WriteString(s)
			i++
			continue
		}
		j := i
		var line strings.Builder
		for j < len(n.Children) && n.Children[j].Kind == mdast.Inline {
			var s string
			if s, err = e.emit(n.Children[j]); err != nil {
				break
			}
			line.WriteString(s)
			j++
		}
		if err != nil {
			break
		}
		if !wroteHeadInline {
			head += line.String()
			wroteHeadInline = true
		} else {
			body.WriteString(e.indentStr() + line.String() + "\n")
		}
		i = j
	}
	e.indent--
	if err != nil {
		return "", err
	}
	return head + "\n" + body.String(), nil
}

func allInline(children []*mdast.Node) bool {
	for _, c := range children {
		if c.Kind != mdast.Inline {
			return false
		}
	}
	return true
}

// emitPre joins pre's verbatim text children with \n, mapping lang to
// class+data-code and path to data-path on the pre tag, and
// class=language-<lang> plus translate=no on the inner code tag.
func (e *encoder) emitPre(n *mdast.Node) (string, error) {
	lang, _, hasLang := n.Attr.Get("lang")
	path, _, hasPath := n.Attr.Get("path")

	preAttr := mdast.NewAttrs()
	if hasLang {
		preAttr.Set("class", lang)
		preAttr.Set("data-code", lang)
	}
	if hasPath {
		preAttr.Set("data-path", path)
	}

	codeAttr := mdast.NewAttrs().Set("translate", "no")
	if hasLang {
		codeAttr.Set("class", "language-"+lang)
	}

	lines := make([]string, len(n.Children))
	for i, c := range n.Children {
		lines[i] = c.Text
	}

	return e.indentStr() + "<pre" + renderAttrs(preAttr) + "><code" + renderAttrs(codeAttr) + ">" +
		strings.Join(lines, "\n") + "</code></pre>\n", nil
}

// emitDetails discards the class attribute the parser used internally
// to distinguish details/message/alert before emission.
func (e *encoder) emitDetails(n *mdast.Node) (string, error) {
	attr := n.Attr.Clone()
	attr.Delete("class")

	var b strings.Builder
	b.WriteString(e.indentStr() + "<details" + renderAttrs(attr) + ">\n")
	e.indent++
	inner, err := e.emitChildren(n)
	e.indent--
	if err != nil {
		return "", err
	}
	b.WriteString(inner)
	b.WriteString(e.indentStr() + "</details>\n")
	return b.String(), nil
}

// escapeText applies the fixed five-character escape table, plus the
// bespoke whole-line "--- " -> "&mdash; " rule produced by the
// blockquote citation rule's leading text node.
func escapeText(s string) string {
	if s == "--- " {
		return "&mdash; "
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// alwaysQuoted lists the attribute keys that are double-quoted
// regardless of content.
var alwaysQuoted = map[string]bool{
	"title": true, "alt": true, "cite": true, "href": true, "id": true,
}

// renderAttrs serializes attr in insertion order: keys starting with
// "_" are suppressed, "align" is rewritten to class=align-<value>, null
// values emit a bare key, and other values are quoted only when they
// contain a space or one of the HTML attribute-unsafe characters " ' ` = < >.
func renderAttrs(attr *mdast.Attrs) string {
	if attr.Len() == 0 {
		return ""
	}
	var b strings.Builder
	attr.Each(func(p mdast.Pair) {
		if strings.HasPrefix(p.Key, "_") {
			return
		}
		key, value := p.Key, p.Value
		if key == "align" {
			key, value = "class", "align-"+value
		}
		b.WriteByte(' ')
		b.WriteString(key)
		if p.IsNull && key != "class" {
			return
		}
		b.WriteByte('=')
		if mustQuote(key, value) {
			b.WriteByte('"')
			b.WriteString(value)
			b.WriteByte('"')
		} else {
			b.WriteString(value)
		}
	})
	return b.String()
}

func mustQuote(key, value string) bool {
	if alwaysQuoted[key] {
		return true
	}
	return strings.ContainsAny(value, " \"'`=<>")
}
