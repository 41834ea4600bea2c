// Package mdast defines the single AST node type shared by the decoder,
// encoder, and transform packages, plus its insertion-ordered attribute
// map. The source this spec was drawn from uses one class with a name
// discriminator rather than a tagged union, and this port keeps that
// shape deliberately (see DESIGN.md) instead of splitting Node into a
// Go sum type per kind.
package mdast

// NodeName identifies a node's semantic role.
type NodeName string

const (
	Root        NodeName = "root"
	Section     NodeName = "section"
	Heading     NodeName = "heading"
	P           NodeName = "p"
	UL          NodeName = "ul"
	OL          NodeName = "ol"
	LI          NodeName = "li"
	DL          NodeName = "dl"
	Div         NodeName = "div"
	DT          NodeName = "dt"
	DD          NodeName = "dd"
	Blockquote  NodeName = "blockquote"
	Cite        NodeName = "cite"
	Pre         NodeName = "pre"
	Code        NodeName = "code"
	Table       NodeName = "table"
	Thead       NodeName = "thead"
	Tbody       NodeName = "tbody"
	TR          NodeName = "tr"
	TH          NodeName = "th"
	TD          NodeName = "td"
	Figure      NodeName = "figure"
	Figcaption  NodeName = "figcaption"
	Details     NodeName = "details"
	Summary     NodeName = "summary"
	HTML        NodeName = "html"
	A           NodeName = "a"
	Img         NodeName = "img"
	Em          NodeName = "em"
	Strong      NodeName = "strong"
	Text        NodeName = "text"
	Raw         NodeName = "raw"
	Empty       NodeName = "empty"
)

// Kind governs indentation and line-break behavior in the encoder.
type Kind int

const (
	Block Kind = iota
	Inline
)

// Align is a table column's derived alignment.
type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ListKind distinguishes ordered from unordered lists, also used by ToTOC.
type ListKind int

const (
	ListUnordered ListKind = iota
	ListOrdered
)

func (k ListKind) NodeName() NodeName {
	if k == ListOrdered {
		return OL
	}
	return UL
}

// Node is the single AST entity: headings, paragraphs, lists, tables,
// inline runs, and plain text are all this same struct distinguished by
// Name.
type Node struct {
	Name     NodeName
	Kind     Kind
	Parent   *Node
	Children []*Node
	Level    int
	Text     string // only meaningful on text, raw, figcaption, html
	Attr     *Attrs
	Aligns   []Align // side-channel on tbody nodes
}

// New creates a detached node of the given name/kind.
func New(name NodeName, kind Kind) *Node {
	return &Node{Name: name, Kind: kind}
}

// NewRoot creates the synthetic document root: a block node with Level 0
// and no parent, the block parser's initial cursor.
func NewRoot() *Node {
	return New(Root, Block)
}

// WithLevel sets Level and returns the node for chaining during construction.
func (n *Node) WithLevel(level int) *Node {
	n.Level = level
	return n
}

// WithText sets Text (for text/raw/figcaption/html leaves) and returns the node.
func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

// WithAttr attaches an attribute map and returns the node.
func (n *Node) WithAttr(attr *Attrs) *Node {
	n.Attr = attr
	return n
}

// AppendChild attaches child to n, updating child's parent back-reference.
func (n *Node) AppendChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return n
}

// AppendChildren attaches each of children in order.
func (n *Node) AppendChildren(children []*Node) *Node {
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// LastChild returns n's final child, or nil if n has none.
func (n *Node) LastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// RemoveLastChild detaches and returns n's final child, or nil if n has none.
func (n *Node) RemoveLastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	last := n.Children[len(n.Children)-1]
	n.Children = n.Children[:len(n.Children)-1]
	last.Parent = nil
	return last
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// unescapeTable is the backslash-escape set recognized by AddText and the
// inline parser's literal-backslash production: a backslash before any of
// these runes is removed and the rune kept literal.
const unescapeTable = "*`!\\[]<>()"

// AddText appends a new text leaf built from s after running the
// backslash-unescape pass (spec.md 4.A): a backslash preceding any of
// * \ ` ! [ ] < > ( ) is dropped from the stored text.
func (n *Node) AddText(s string) *Node {
	child := New(Text, Inline).WithText(Unescape(s))
	n.AppendChild(child)
	return child
}

// Unescape removes a backslash preceding any rune in the unescape table,
// leaving the following rune as a literal character. A backslash not
// followed by one of those runes is kept as-is.
func Unescape(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) && isUnescapable(runes[i+1]) {
			continue
		}
		out = append(out, runes[i])
	}
	return string(out)
}

func isUnescapable(r rune) bool {
	for _, u := range unescapeTable {
		if u == r {
			return true
		}
	}
	return false
}

// Ancestors walks n's parent chain, including n itself, stopping at root.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

// NearestAncestor returns the nearest ancestor of n (inclusive) whose Name
// matches one of names, or nil if none is found before root.
func (n *Node) NearestAncestor(names ...NodeName) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		for _, want := range names {
			if cur.Name == want {
				return cur
			}
		}
	}
	return nil
}

// Clone deep-copies n and its subtree, detached from any parent. Used by
// the definition-list rule, which retroactively turns a paragraph into a
// dt by cloning its children rather than moving the original node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Name:  n.Name,
		Kind:  n.Kind,
		Level: n.Level,
		Text:  n.Text,
		Attr:  n.Attr.Clone(),
	}
	if len(n.Aligns) > 0 {
		out.Aligns = append([]Align(nil), n.Aligns...)
	}
	for _, c := range n.Children {
		out.AppendChild(c.Clone())
	}
	return out
}
