// Package mdblock implements the line-oriented block parser (spec.md
// 4.C): a cursor walks an ordered line stream, matching each line against
// a fixed sequence of recognizers that build and reparent the tree,
// delegating trailing text to mdinline. Grounded on the teacher's
// pkg/parsley/parser/parser.go, a cursor-based recursive-descent parser
// over a token stream, generalized here to a line stream with a tree
// cursor instead of a flat statement list. The loop is iterative (a plain
// for over line index), per spec.md 5's note to avoid tail-recursion
// stack blowup on deep documents.
package mdblock

import (
	"regexp"
	"strings"

	"github.com/sambeau/mdforge/pkg/mdast"
	"github.com/sambeau/mdforge/pkg/mderr"
	"github.com/sambeau/mdforge/pkg/mdinline"
)

var (
	fenceRe         = regexp.MustCompile("^```([A-Za-z0-9_+-]*)(?::(.+))?$")
	customBlockRe   = regexp.MustCompile(`^:::(\S+)?(?:\s+(.+))?$`)
	rawHTMLRe       = regexp.MustCompile(`^\s*</?(?:iframe|div|span|p|pre|code|!--).*$`)
	headingRe       = regexp.MustCompile(`^(#+) +(.+)$`)
	orderedListRe   = regexp.MustCompile(`^( *)(\d+)\. +(.+)$`)
	unorderedListRe = regexp.MustCompile(`^( *)- +(.+)$`)
	ddRe            = regexp.MustCompile(`^: +(.+)$`)
	blockquoteRe    = regexp.MustCompile(`^> +(.+)$`)
	captionRe       = regexp.MustCompile(`^Caption: (.+)$`)
	tableRowRe      = regexp.MustCompile(`^\|(.*)\|$`)
	alignCellRe     = regexp.MustCompile(`^:?-+:?$`)
)

type parser struct {
	lines  []string
	idx    int
	cursor *mdast.Node
	root   *mdast.Node
}

// Parse consumes markdown, split on '\n', and returns the document root.
func Parse(markdown string) (*mdast.Node, error) {
	p := &parser{lines: strings.Split(markdown, "\n")}
	p.root = mdast.NewRoot()
	p.cursor = p.root
	for p.idx < len(p.lines) {
		if err := p.step(); err != nil {
			return nil, err
		}
		p.idx++
	}
	return p.root, nil
}

func (p *parser) line() string {
	return p.lines[p.idx]
}

func (p *parser) lineNo() int {
	return p.idx + 1
}

// step matches the current line against the ordered recognizers of
// spec.md 4.C and dispatches to a handler; the caller advances p.idx.
func (p *parser) step() error {
	line := p.line()
	switch {
	case fenceRe.MatchString(line):
		return p.handleFence(line)
	case p.cursor.Name == mdast.Pre:
		p.cursor.AppendChild(mdast.New(mdast.Text, mdast.Block).WithText(line))
		return nil
	case customBlockRe.MatchString(line):
		return p.handleCustomBlock(line)
	case rawHTMLRe.MatchString(line):
		return p.handleRawHTML(line)
	case line == "":
		return p.handleBlank()
	case headingRe.MatchString(line):
		return p.handleHeading(line)
	case orderedListRe.MatchString(line):
		return p.handleListItem(mdast.ListOrdered, line)
	case unorderedListRe.MatchString(line):
		return p.handleListItem(mdast.ListUnordered, line)
	case ddRe.MatchString(line):
		return p.handleDD(line)
	case blockquoteRe.MatchString(line):
		return p.handleBlockquote(line)
	case captionRe.MatchString(line):
		return p.handleCaption(line)
	case tableRowRe.MatchString(line):
		return p.handleTableRow(line)
	case strings.TrimSpace(line) == "":
		return mderr.Whitespace("WS-0010", p.lineNo(), line, "space-only line")
	default:
		return p.handleParagraph(line)
	}
}

// --- 1/2: code fence & pre interior ---

func (p *parser) handleFence(line string) error {
	if p.cursor.Name == mdast.Pre {
		if p.cursor.Parent == nil {
			p.cursor = p.root
		} else {
			p.cursor = p.cursor.Parent
		}
		return nil
	}
	m := fenceRe.FindStringSubmatch(line)
	lang, path := m[1], m[2]
	pre := mdast.New(mdast.Pre, mdast.Block)
	if lang != "" || path != "" {
		attr := mdast.NewAttrs()
		if lang != "" {
			attr.Set("lang", lang)
		}
		if path != "" {
			attr.Set("path", path)
		}
		pre.Attr = attr
	}
	p.cursor.AppendChild(pre)
	p.cursor = pre
	return nil
}

// --- 3: custom block marker ---

func (p *parser) handleCustomBlock(line string) error {
	m := customBlockRe.FindStringSubmatch(line)
	name, text := m[1], m[2]

	if name == "" {
		det := p.cursor.NearestAncestor(mdast.Details)
		if det == nil {
			return mderr.Structure("STRUCT-0030", p.lineNo(), line, "'::: ' close marker without an open details block")
		}
		if det.Parent == nil {
			p.cursor = p.root
		} else {
			p.cursor = det.Parent
		}
		return nil
	}

	var class, summary string
	switch {
	case name == "details":
		class, summary = "details", text
	case name == "message" && text == "alert":
		class, summary = "alert", "alert"
	case name == "message":
		class, summary = "message", "message"
	default:
		class = name
		if text != "" {
			summary = text
		} else {
			summary = name
		}
	}

	det := mdast.New(mdast.Details, mdast.Block).WithAttr(mdast.NewAttrs().Set("class", class))
	sum := mdast.New(mdast.Summary, mdast.Inline)
	sum.AddText(summary)
	det.AppendChild(sum)

	sec := mdast.New(mdast.Section, mdast.Block).WithLevel(sectionLevel(p.currentSection()))
	det.AppendChild(sec)

	p.cursor.AppendChild(det)
	p.cursor = sec
	return nil
}

// --- 4: raw HTML ---

// handleRawHTML accumulates consecutive raw-HTML lines into one html node.
// Only the fixed tag whitelist in rawHTMLRe (iframe, div, span, p, pre,
// code, !--) is recognized; a line opening with any other tag falls
// through to the paragraph rule.
func (p *parser) handleRawHTML(line string) error {
	if last := p.cursor.LastChild(); last != nil && last.Name == mdast.HTML {
		last.AppendChild(mdast.New(mdast.Raw, mdast.Block).WithText(line))
		return nil
	}
	html := mdast.New(mdast.HTML, mdast.Block)
	html.AppendChild(mdast.New(mdast.Raw, mdast.Block).WithText(line))
	p.cursor.AppendChild(html)
	return nil
}

// --- 5: blank line ---

func (p *parser) handleBlank() error {
	if sec := p.cursor.NearestAncestor(mdast.Section); sec != nil {
		p.cursor = sec
		return nil
	}
	p.cursor = p.root
	return nil
}

// --- 6: heading & sectioning rule ---

func (p *parser) currentSection() *mdast.Node {
	if sec := p.cursor.NearestAncestor(mdast.Section); sec != nil {
		return sec
	}
	return p.root
}

func sectionLevel(n *mdast.Node) int {
	if n.Name == mdast.Section {
		return n.Level
	}
	return 0
}

// placeNewSection implements the sectioning rule: given a heading of
// level L and the cursor's enclosing section of level C, find (or
// create) the section L should be appended under.
func (p *parser) placeNewSection(level int) (*mdast.Node, error) {
	cur := p.currentSection()
	c := sectionLevel(cur)
	switch {
	case c < level:
		if level != c+1 {
			return nil, mderr.Sectioning("SECT-0001", p.lineNo(), p.line(),
				"invalid sectioning: heading level %d follows section level %d", level, c)
		}
		sec := mdast.New(mdast.Section, mdast.Block).WithLevel(level)
		cur.AppendChild(sec)
		return sec, nil
	case c == level:
		parent := cur.Parent
		if parent == nil {
			parent = p.root
		}
		sec := mdast.New(mdast.Section, mdast.Block).WithLevel(level)
		parent.AppendChild(sec)
		return sec, nil
	default:
		anc := cur
		for anc != nil && sectionLevel(anc) != level-1 {
			anc = anc.Parent
		}
		if anc == nil {
			anc = p.root
		}
		sec := mdast.New(mdast.Section, mdast.Block).WithLevel(level)
		anc.AppendChild(sec)
		return sec, nil
	}
}

func (p *parser) handleHeading(line string) error {
	m := headingRe.FindStringSubmatch(line)
	level := len(m[1])
	sec, err := p.placeNewSection(level)
	if err != nil {
		return err
	}
	heading := mdast.New(mdast.Heading, mdast.Block).WithLevel(level)
	nodes, _, err := mdinline.Parse(m[2], p.lineNo(), 0)
	if err != nil {
		return err
	}
	heading.AppendChildren(mdinline.CoalesceText(nodes))
	sec.AppendChild(heading)
	p.cursor = sec
	return nil
}

// --- 7/8: list items & list nesting rule ---

func isList(n *mdast.Node) bool {
	return n.Name == mdast.UL || n.Name == mdast.OL
}

// resolveList implements the list nesting rule, returning the list node
// the new li belongs under and updating the cursor accordingly.
func (p *parser) resolveList(kind mdast.ListKind, depth int) *mdast.Node {
	cur := p.cursor
	if !isList(cur) {
		list := mdast.New(kind.NodeName(), mdast.Block).WithLevel(depth)
		cur.AppendChild(list)
		return list
	}
	if cur.Level == depth {
		return siblingListAt(cur, kind, depth)
	}
	if cur.Level == depth-1 {
		last := cur.LastChild()
		nested := mdast.New(kind.NodeName(), mdast.Block).WithLevel(depth)
		last.AppendChild(nested)
		return nested
	}
	// cur.Level > depth: rise through the li/list chain to the ancestor
	// list at the matching depth.
	anc := cur.Parent
	for anc != nil && !(isList(anc) && anc.Level == depth) {
		anc = anc.Parent
	}
	if anc == nil {
		list := mdast.New(kind.NodeName(), mdast.Block).WithLevel(depth)
		p.root.AppendChild(list)
		return list
	}
	return siblingListAt(anc, kind, depth)
}

// siblingListAt appends a sibling list of kind next to list when the
// marker kind differs from an existing list at the same depth —
// "lists of differing markers at the same depth are allowed; kinds
// coexist" (spec.md 4.C).
func siblingListAt(list *mdast.Node, kind mdast.ListKind, depth int) *mdast.Node {
	if list.Name == kind.NodeName() {
		return list
	}
	sibling := mdast.New(kind.NodeName(), mdast.Block).WithLevel(depth)
	list.Parent.AppendChild(sibling)
	return sibling
}

func (p *parser) handleListItem(kind mdast.ListKind, line string) error {
	var m []string
	if kind == mdast.ListOrdered {
		m = orderedListRe.FindStringSubmatch(line)
	} else {
		m = unorderedListRe.FindStringSubmatch(line)
	}
	indent := len(m[1])
	if indent%2 != 0 {
		return mderr.Indent("IND-0001", p.lineNo(), line, "odd-numbered list indentation (%d spaces)", indent)
	}
	marker := "-"
	if kind == mdast.ListOrdered {
		marker = m[2] + "."
	}
	if strings.HasPrefix(line[indent+len(marker):], "  ") {
		return mderr.Whitespace("WS-0011", p.lineNo(), line, "list marker followed by more than one space")
	}
	depth := indent / 2
	var text string
	if kind == mdast.ListOrdered {
		text = m[3]
	} else {
		text = m[2]
	}

	list := p.resolveList(kind, depth)
	li := mdast.New(mdast.LI, mdast.Block).WithLevel(depth)
	nodes, _, err := mdinline.Parse(text, p.lineNo(), 0)
	if err != nil {
		return err
	}
	li.AppendChildren(mdinline.CoalesceText(nodes))
	list.AppendChild(li)
	p.cursor = list
	return nil
}

// --- 9: definition dd & definition-list rule ---

func (p *parser) handleDD(line string) error {
	m := ddRe.FindStringSubmatch(line)
	text := m[1]
	container := p.cursor
	last := container.LastChild()

	nodes, _, err := mdinline.Parse(text, p.lineNo(), 0)
	if err != nil {
		return err
	}
	ddChildren := mdinline.CoalesceText(nodes)

	if last != nil && last.Name == mdast.DL {
		div := last.LastChild()
		if div == nil {
			return mderr.Structure("STRUCT-0011", p.lineNo(), line, "dl with no div to extend")
		}
		dd := mdast.New(mdast.DD, mdast.Block)
		dd.AppendChildren(ddChildren)
		div.AppendChild(dd)
		return nil
	}

	if last == nil || last.Name != mdast.P {
		return mderr.Structure("STRUCT-0010", p.lineNo(), line, "dd without a preceding p or dl")
	}

	container.RemoveLastChild()
	dt := mdast.New(mdast.DT, mdast.Block)
	for _, c := range last.Children {
		dt.AppendChild(c.Clone())
	}
	dd := mdast.New(mdast.DD, mdast.Block)
	dd.AppendChildren(ddChildren)

	div := mdast.New(mdast.Div, mdast.Block)
	div.AppendChild(dt)
	div.AppendChild(dd)
	dl := mdast.New(mdast.DL, mdast.Block)
	dl.AppendChild(div)
	container.AppendChild(dl)
	return nil
}

// --- 10: blockquote line & blockquote citation rule ---

func (p *parser) handleBlockquote(line string) error {
	m := blockquoteRe.FindStringSubmatch(line)
	text := m[1]

	var bq *mdast.Node
	if last := p.cursor.LastChild(); last != nil && last.Name == mdast.Blockquote {
		bq = last
	} else {
		bq = mdast.New(mdast.Blockquote, mdast.Block)
		p.cursor.AppendChild(bq)
	}

	para := mdast.New(mdast.P, mdast.Block)
	if strings.HasPrefix(text, "--- ") {
		remainder := text[len("--- "):]
		nodes, _, err := mdinline.Parse(remainder, p.lineNo(), 0)
		if err != nil {
			return err
		}
		nodes = mdinline.CoalesceText(nodes)

		var href string
		for _, n := range nodes {
			if n.Name == mdast.A {
				if v, _, ok := n.Attr.Get("href"); ok {
					href = v
				}
				break
			}
		}
		if href != "" {
			bq.Attr = mdast.NewAttrs().Set("cite", href)
		}

		lead := mdast.New(mdast.Text, mdast.Inline).WithText("--- ")
		cite := mdast.New(mdast.Cite, mdast.Inline)
		cite.AppendChildren(nodes)
		para.AppendChild(lead)
		para.AppendChild(cite)
	} else {
		nodes, _, err := mdinline.Parse(text, p.lineNo(), 0)
		if err != nil {
			return err
		}
		para.AppendChildren(mdinline.CoalesceText(nodes))
	}

	bq.AppendChild(para)
	return nil
}

// --- 11/12: table caption & table rows ---

func (p *parser) handleCaption(line string) error {
	m := captionRe.FindStringSubmatch(line)
	fig := mdast.New(mdast.Figure, mdast.Block)
	fig.AppendChild(mdast.New(mdast.Figcaption, mdast.Block).WithText(m[1]))

	table := mdast.New(mdast.Table, mdast.Block)
	thead := mdast.New(mdast.Thead, mdast.Block)
	table.AppendChild(thead)
	fig.AppendChild(table)

	p.cursor.AppendChild(fig)
	p.cursor = thead
	return nil
}

func splitCells(inner string) []string {
	parts := strings.Split(inner, "|")
	cells := make([]string, len(parts))
	for i, s := range parts {
		cells[i] = strings.TrimSpace(s)
	}
	return cells
}

func isAlignmentRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !alignCellRe.MatchString(c) {
			return false
		}
	}
	return true
}

// deriveAligns follows spec.md 4.C literally: ":x" is left, "x:" is
// right, and both ":x:" and a plain "x" (no colons) are center.
func deriveAligns(cells []string) []mdast.Align {
	aligns := make([]mdast.Align, len(cells))
	for i, c := range cells {
		left := strings.HasPrefix(c, ":")
		right := strings.HasSuffix(c, ":")
		switch {
		case left && !right:
			aligns[i] = mdast.AlignLeft
		case right && !left:
			aligns[i] = mdast.AlignRight
		default:
			aligns[i] = mdast.AlignCenter
		}
	}
	return aligns
}

func (p *parser) handleTableRow(line string) error {
	m := tableRowRe.FindStringSubmatch(line)
	cells := splitCells(m[1])

	switch p.cursor.Name {
	case mdast.Thead:
		if isAlignmentRow(cells) {
			aligns := deriveAligns(cells)
			if headerRow := p.cursor.LastChild(); headerRow != nil {
				for i, th := range headerRow.Children {
					if i < len(aligns) {
						if th.Attr == nil {
							th.Attr = mdast.NewAttrs()
						}
						th.Attr.Set("align", string(aligns[i]))
					}
				}
			}
			tbody := mdast.New(mdast.Tbody, mdast.Block)
			tbody.Aligns = aligns
			p.cursor.Parent.AppendChild(tbody)
			p.cursor = tbody
			return nil
		}
		tr := mdast.New(mdast.TR, mdast.Block)
		for _, cellText := range cells {
			th := mdast.New(mdast.TH, mdast.Inline)
			nodes, _, err := mdinline.Parse(cellText, p.lineNo(), 0)
			if err != nil {
				return err
			}
			th.AppendChildren(mdinline.CoalesceText(nodes))
			tr.AppendChild(th)
		}
		p.cursor.AppendChild(tr)
		return nil
	case mdast.Tbody:
		tr := mdast.New(mdast.TR, mdast.Block)
		for i, cellText := range cells {
			td := mdast.New(mdast.TD, mdast.Inline)
			if i < len(p.cursor.Aligns) {
				td.Attr = mdast.NewAttrs().Set("align", string(p.cursor.Aligns[i]))
			}
			nodes, _, err := mdinline.Parse(cellText, p.lineNo(), 0)
			if err != nil {
				return err
			}
			td.AppendChildren(mdinline.CoalesceText(nodes))
			tr.AppendChild(td)
		}
		p.cursor.AppendChild(tr)
		return nil
	default:
		return mderr.Structure("STRUCT-0020", p.lineNo(), line, "table row requires a preceding caption")
	}
}

// --- 14: fallthrough paragraph ---

func (p *parser) handleParagraph(line string) error {
	para := mdast.New(mdast.P, mdast.Block)
	nodes, _, err := mdinline.Parse(line, p.lineNo(), 0)
	if err != nil {
		return err
	}
	para.AppendChildren(mdinline.CoalesceText(nodes))
	p.cursor.AppendChild(para)
	return nil
}
