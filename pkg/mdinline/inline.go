// Package mdinline implements the character-by-character inline parser
// (spec.md 4.B). It is hand-written rather than regex-based, per spec.md
// 9's explicit note that the inline layer "should remain so" — the same
// style the teacher's own lexer.Lexer uses for its rune-by-rune scan
// (ch/readPosition/readChar/peekChar), reshaped here into recursive
// production functions that build a node tree instead of a flat token
// stream.
package mdinline

import (
	"strings"

	"github.com/sambeau/mdforge/pkg/mdast"
	"github.com/sambeau/mdforge/pkg/mderr"
)

// Private-use markers the encoder's `a` rule strips back out to literal
// parentheses. The inline parser escapes ( and ) found inside a link
// URL so a balanced paren inside the URL (e.g. a Wikipedia
// "(disambiguation)" link) never gets mistaken for the closing delimiter
// once that value is stored flat in an attribute. Image src values are
// not escaped.
const (
	EscOpenParen  = ""
	EscCloseParen = ""
)

// UnescapeURL reverses the marker substitution above; mdhtml's `a` rule
// calls this right before emitting href.
func UnescapeURL(s string) string {
	s = strings.ReplaceAll(s, EscOpenParen, "(")
	s = strings.ReplaceAll(s, EscCloseParen, ")")
	return s
}

// ctx restricts which productions the scanner tries, used to implement
// spec.md 4.B's nesting rules ("code may nest inside [em/strong]; em may
// not [nest inside strong]").
type ctx struct {
	em, strong, code, link, autolink, image, blockquote bool
}

func topCtx() ctx {
	return ctx{em: true, strong: true, code: true, link: true, autolink: true, image: true, blockquote: true}
}

// insideStrong: code may nest, em may not (spec.md 4.B).
func (c ctx) insideStrong() ctx {
	c.em = false
	c.strong = false
	return c
}

// insideEm: code may nest; further em/strong does not.
func (c ctx) insideEm() ctx {
	c.em = false
	c.strong = false
	return c
}

// insideCode: no nesting of any kind — code content is raw text.
func (c ctx) insideCode() ctx {
	return ctx{}
}

// insideLinkText: code may nest in link text (spec.md 4.B); links don't
// nest inside their own label, nor do bare autolinks/images.
func (c ctx) insideLinkText() ctx {
	c.link = false
	c.autolink = false
	c.image = false
	return c
}

type scanner struct {
	runes  []rune
	line   string
	lineNo int
	pos    int
}

// Parse parses a single line of text starting at rune index start,
// returning the inline nodes consumed and the final rune index. It is
// the entry point invoked by the block parser with a full line.
func Parse(line string, lineNo int, start int) ([]*mdast.Node, int, error) {
	s := &scanner{runes: []rune(line), line: line, lineNo: lineNo, pos: start}
	nodes, err := s.run(topCtx(), len(s.runes))
	if err != nil {
		return nil, s.pos, err
	}
	return nodes, s.pos, nil
}

func (s *scanner) peek(offset int) rune {
	i := s.pos + offset
	if i < 0 || i >= len(s.runes) {
		return 0
	}
	return s.runes[i]
}

func (s *scanner) at(i int) rune {
	if i < 0 || i >= len(s.runes) {
		return 0
	}
	return s.runes[i]
}

func (s *scanner) whitespaceErr(code string, format string, args ...any) error {
	return mderr.Whitespace(code, s.lineNo, s.line, format, args...)
}

// checkOpenSpacing enforces "not preceded by two spaces" and "not
// immediately followed by a space" for a production opening at s.pos
// whose delimiter is delimLen runes wide.
func (s *scanner) checkOpenSpacing(delimLen int) error {
	if s.at(s.pos-1) == ' ' && s.at(s.pos-2) == ' ' {
		return s.whitespaceErr("WS-0001", "construct preceded by two spaces")
	}
	if s.at(s.pos+delimLen) == ' ' {
		return s.whitespaceErr("WS-0002", "construct immediately followed by a space")
	}
	return nil
}

// checkCloseSpacing enforces "not followed by two trailing spaces" by
// checking the two runes immediately before the closing delimiter at
// closePos.
func (s *scanner) checkCloseSpacing(closePos int) error {
	if s.at(closePos-1) == ' ' && s.at(closePos-2) == ' ' {
		return s.whitespaceErr("WS-0003", "construct followed by two trailing spaces")
	}
	return nil
}

func isEscapable(r rune) bool {
	switch r {
	case '*', '\\', '`', '!', '[', ']', '<', '>', '(', ')':
		return true
	}
	return false
}

// run scans runes [s.pos, end) under ctx c, returning the inline nodes
// produced. It is the workhorse shared by the top-level Parse call and
// every recursive production (strong/em text, link text, blockquote body).
func (s *scanner) run(c ctx, end int) ([]*mdast.Node, error) {
	var nodes []*mdast.Node
	var pending strings.Builder

	flush := func() {
		if pending.Len() > 0 {
			text := pending.String()
			pending.Reset()
			leaf := mdast.New(mdast.Text, mdast.Inline).WithText(mdast.Unescape(text))
			nodes = append(nodes, leaf)
		}
	}

	for s.pos < end {
		ch := s.runes[s.pos]

		switch {
		case ch == '\\' && s.pos+1 < end && isEscapable(s.runes[s.pos+1]):
			pending.WriteRune(ch)
			pending.WriteRune(s.runes[s.pos+1])
			s.pos += 2

		case ch == '*' && c.strong && s.peek(1) == '*':
			flush()
			node, err := s.parseStrong(c, end)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		case ch == '*' && c.em:
			flush()
			node, err := s.parseEm(c, end)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		case ch == '`' && c.code:
			flush()
			node, err := s.parseCode(end)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		case ch == '!' && c.image && s.peek(1) == '[':
			flush()
			node, literal, err := s.parseImage(c, end)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			} else {
				pending.WriteString(literal)
			}

		case ch == '[' && c.link:
			flush()
			node, literal, err := s.parseLink(c, end)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			} else {
				pending.WriteString(literal)
			}

		case ch == '<' && c.autolink:
			flush()
			node, literal, err := s.parseAngleAutolink(end)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			} else {
				pending.WriteString(literal)
			}

		case c.autolink && (hasSchemeAt(s.runes, s.pos, "http://") || hasSchemeAt(s.runes, s.pos, "https://")):
			flush()
			node, err := s.parseBareAutolink(end)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		case ch == '>' && c.blockquote && s.peek(1) == ' ' && (s.pos == 0 || s.at(s.pos-1) == ' '):
			flush()
			node, err := s.parseInlineBlockquote(end)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			s.pos = end

		default:
			pending.WriteRune(ch)
			s.pos++
		}
	}
	flush()
	return nodes, nil
}

func hasSchemeAt(runes []rune, pos int, scheme string) bool {
	if pos+len(scheme) > len(runes) {
		return false
	}
	for i, r := range scheme {
		if runes[pos+i] != r {
			return false
		}
	}
	return true
}

// parseStrong consumes "**...**"; code may nest, em may not.
func (s *scanner) parseStrong(c ctx, end int) (*mdast.Node, error) {
	if err := s.checkOpenSpacing(2); err != nil {
		return nil, err
	}
	s.pos += 2
	closeAt := -1
	for i := s.pos; i+1 < end; i++ {
		if s.runes[i] == '*' && s.runes[i+1] == '*' {
			closeAt = i
			break
		}
	}
	if closeAt == -1 {
		return nil, mderr.Structure("STRUCT-0001", s.lineNo, s.line, "unmatched ** in %q", s.line)
	}
	if err := s.checkCloseSpacing(closeAt); err != nil {
		return nil, err
	}
	node := mdast.New(mdast.Strong, mdast.Inline)
	inner := &scanner{runes: s.runes, line: s.line, lineNo: s.lineNo, pos: s.pos}
	children, err := inner.run(c.insideStrong(), closeAt)
	if err != nil {
		return nil, err
	}
	node.AppendChildren(children)
	s.pos = closeAt + 2
	return node, nil
}

// parseEm consumes "*...*"; code may nest.
func (s *scanner) parseEm(c ctx, end int) (*mdast.Node, error) {
	if err := s.checkOpenSpacing(1); err != nil {
		return nil, err
	}
	s.pos++
	closeAt := -1
	for i := s.pos; i < end; i++ {
		if s.runes[i] == '*' {
			closeAt = i
			break
		}
	}
	if closeAt == -1 {
		return nil, mderr.Structure("STRUCT-0002", s.lineNo, s.line, "unmatched * in %q", s.line)
	}
	if err := s.checkCloseSpacing(closeAt); err != nil {
		return nil, err
	}
	node := mdast.New(mdast.Em, mdast.Inline)
	inner := &scanner{runes: s.runes, line: s.line, lineNo: s.lineNo, pos: s.pos}
	children, err := inner.run(c.insideEm(), closeAt)
	if err != nil {
		return nil, err
	}
	node.AppendChildren(children)
	s.pos = closeAt + 1
	return node, nil
}

// parseCode consumes "`...`"; no nesting, content is raw text.
func (s *scanner) parseCode(end int) (*mdast.Node, error) {
	if err := s.checkOpenSpacing(1); err != nil {
		return nil, err
	}
	s.pos++
	start := s.pos
	closeAt := -1
	for i := s.pos; i < end; i++ {
		if s.runes[i] == '`' {
			closeAt = i
			break
		}
	}
	if closeAt == -1 {
		return nil, mderr.Structure("STRUCT-0003", s.lineNo, s.line, "unmatched ` in %q", s.line)
	}
	if err := s.checkCloseSpacing(closeAt); err != nil {
		return nil, err
	}
	text := string(s.runes[start:closeAt])
	node := mdast.New(mdast.Code, mdast.Inline).WithAttr(mdast.NewAttrs().Set("translate", "no"))
	node.AppendChild(mdast.New(mdast.Text, mdast.Inline).WithText(text))
	s.pos = closeAt + 1
	return node, nil
}

// findBracketClose finds the ']' matching the '[' at s.pos, allowing the
// content to balance one additional nested [...] pair (spec.md 4.B:
// "brackets may be balanced once inside text"). Returns -1 if none found
// before end.
func (s *scanner) findBracketClose(openAt, end int) int {
	depth := 0
	for i := openAt + 1; i < end; i++ {
		switch s.runes[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// parseLink consumes "[text](url)". If no "](" is found before line end,
// it returns a nil node and the literal "[...]" span as text, per spec.md
// 4.B ("if no ](is found before line end, the […] is emitted as literal
// text"). When no "]" closes the "[", only the "[" is returned as literal
// text and scanning resumes after it.
func (s *scanner) parseLink(c ctx, end int) (*mdast.Node, string, error) {
	if err := s.checkOpenSpacing(1); err != nil {
		return nil, "", err
	}
	openAt := s.pos
	closeBracket := s.findBracketClose(openAt, end)
	if closeBracket == -1 {
		// No "]" before line end: "[" is literal, rest rescanned normally.
		s.pos++
		return nil, "[", nil
	}
	if s.at(closeBracket+1) != '(' {
		// "]" not followed by "(": the whole "[...]" span is literal.
		s.pos = closeBracket + 1
		return nil, string(s.runes[openAt : closeBracket+1]), nil
	}
	parenOpen := closeBracket + 1
	url, closeParen, err := s.scanParenURL(parenOpen, end)
	if err != nil {
		return nil, "", err
	}
	if err := s.checkCloseSpacing(closeParen); err != nil {
		return nil, "", err
	}
	node := mdast.New(mdast.A, mdast.Inline).WithAttr(mdast.NewAttrs().Set("href", url))
	inner := &scanner{runes: s.runes, line: s.line, lineNo: s.lineNo, pos: openAt + 1}
	children, err := inner.run(c.insideLinkText(), closeBracket)
	if err != nil {
		return nil, "", err
	}
	node.AppendChildren(children)
	s.pos = closeParen + 1
	return node, "", nil
}

// scanParenURL scans a "(url)" span starting at parenOpen (the index of
// the opening paren), balancing nested parens by escaping every inner
// paren with the private-use markers so a literal "(disambiguation)"
// style paren inside a URL never looks like the closing delimiter once
// stored flat in an href attribute. Returns the escaped URL text and the
// index of the matching closing paren.
func (s *scanner) scanParenURL(parenOpen, end int) (string, int, error) {
	depth := 1
	var buf strings.Builder
	for i := parenOpen + 1; i < end; i++ {
		switch s.runes[i] {
		case '(':
			depth++
			buf.WriteString(EscOpenParen)
		case ')':
			depth--
			if depth == 0 {
				return buf.String(), i, nil
			}
			buf.WriteString(EscCloseParen)
		default:
			buf.WriteRune(s.runes[i])
		}
	}
	return "", -1, mderr.Structure("STRUCT-0004", s.lineNo, s.line, "unmatched ( in %q", s.line)
}

// parseImage consumes "![alt](src)" or "![alt](src \"title\")". Falls
// back to literal text the same way parseLink does when no "](" is found.
func (s *scanner) parseImage(c ctx, end int) (*mdast.Node, string, error) {
	if err := s.checkOpenSpacing(2); err != nil {
		return nil, "", err
	}
	openAt := s.pos + 1
	closeBracket := s.findBracketClose(openAt, end)
	if closeBracket == -1 || s.at(closeBracket+1) != '(' {
		s.pos++
		return nil, "!", nil
	}
	alt := string(s.runes[openAt+1 : closeBracket])
	parenOpen := closeBracket + 1

	// Scan src [whitespace "title"]? up to the matching close paren.
	i := parenOpen + 1
	srcStart := i
	for i < end && s.runes[i] != ' ' && s.runes[i] != ')' {
		i++
	}
	src := string(s.runes[srcStart:i])

	var title string
	hasTitle := false
	for i < end && s.runes[i] == ' ' {
		i++
	}
	if i < end && (s.runes[i] == '\'' || s.runes[i] == '"') {
		quote := s.runes[i]
		i++
		titleStart := i
		for i < end && s.runes[i] != quote {
			i++
		}
		if i >= end {
			return nil, "", mderr.Structure("STRUCT-0005", s.lineNo, s.line, "unterminated image title in %q", s.line)
		}
		title = string(s.runes[titleStart:i])
		hasTitle = true
		i++ // consume closing quote
		for i < end && s.runes[i] == ' ' {
			i++
		}
	}
	if i >= end || s.runes[i] != ')' {
		return nil, "", mderr.Structure("STRUCT-0006", s.lineNo, s.line, "malformed image target in %q", s.line)
	}
	closeParen := i
	if err := s.checkCloseSpacing(closeParen); err != nil {
		return nil, "", err
	}

	attr := mdast.NewAttrs()
	attr.Set("loading", "lazy")
	attr.Set("decoding", "async")
	attr.Set("src", src)
	attr.Set("alt", alt)
	if hasTitle {
		attr.Set("title", title)
	}
	node := mdast.New(mdast.Img, mdast.Inline).WithAttr(attr)
	s.pos = closeParen + 1
	return node, "", nil
}

// parseAngleAutolink consumes "<url>". If no ">" is found, "<" is emitted
// as literal text and scanning continues normally after it.
func (s *scanner) parseAngleAutolink(end int) (*mdast.Node, string, error) {
	if err := s.checkOpenSpacing(1); err != nil {
		return nil, "", err
	}
	start := s.pos + 1
	closeAt := -1
	for i := start; i < end; i++ {
		if s.runes[i] == '>' {
			closeAt = i
			break
		}
	}
	if closeAt == -1 {
		s.pos++
		return nil, "<", nil
	}
	if err := s.checkCloseSpacing(closeAt); err != nil {
		return nil, "", err
	}
	url := string(s.runes[start:closeAt])
	node := mdast.New(mdast.A, mdast.Inline).WithAttr(mdast.NewAttrs().Set("href", url))
	node.AddText(url)
	s.pos = closeAt + 1
	return node, "", nil
}

// parseBareAutolink consumes a scheme-prefixed "http://…"/"https://…" run,
// bounded by a space or ")" (spec.md 4.B).
func (s *scanner) parseBareAutolink(end int) (*mdast.Node, error) {
	if err := s.checkOpenSpacing(0); err != nil {
		return nil, err
	}
	start := s.pos
	schemeLen := 7 // "http://"
	if hasSchemeAt(s.runes, start, "https://") {
		schemeLen = 8
	}
	i := start
	for i < end && s.runes[i] != ' ' && s.runes[i] != ')' {
		i++
	}
	if i <= start+schemeLen {
		return nil, s.whitespaceErr("WS-0004", "autolink immediately followed by a space")
	}
	url := string(s.runes[start:i])
	node := mdast.New(mdast.A, mdast.Inline).WithAttr(mdast.NewAttrs().Set("href", url))
	node.AddText(url)
	s.pos = i
	return node, nil
}

// parseInlineBlockquote consumes "> " (at start of line or after a space)
// through end of line as a nested blockquote containing a single
// paragraph, recursing through the inline parser for its content.
func (s *scanner) parseInlineBlockquote(end int) (*mdast.Node, error) {
	s.pos += 2
	bq := mdast.New(mdast.Blockquote, mdast.Block)
	p := mdast.New(mdast.P, mdast.Inline)
	inner := &scanner{runes: s.runes, line: s.line, lineNo: s.lineNo, pos: s.pos}
	children, err := inner.run(topCtx(), end)
	if err != nil {
		return nil, err
	}
	p.AppendChildren(children)
	bq.AppendChild(p)
	return bq, nil
}

// CoalesceText merges consecutive text nodes in nodes into one, matching
// the heading-merge pass described in spec.md 4.B.
func CoalesceText(nodes []*mdast.Node) []*mdast.Node {
	if len(nodes) < 2 {
		return nodes
	}
	out := make([]*mdast.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Name == mdast.Text && len(out) > 0 && out[len(out)-1].Name == mdast.Text {
			prev := out[len(out)-1]
			prev.Text += n.Text
			continue
		}
		out = append(out, n)
	}
	return out
}
