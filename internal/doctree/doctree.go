package doctree

import "strings"

// Node kinds produced by the parsers. The vocabulary is open-ended: parsers
// may emit kinds not listed here and the pipeline treats them as opaque.
const (
	KindDocument        = "document"
	KindSection         = "section"
	KindTitle           = "title"
	KindParagraph       = "paragraph"
	KindText            = "text"
	KindEmphasis        = "emphasis"
	KindStrong          = "strong"
	KindLiteral         = "literal"
	KindInterpretedText = "interpreted_text"
	KindReference       = "reference"
	KindBulletList      = "bullet_list"
	KindEnumeratedList  = "enumerated_list"
	KindListItem        = "list_item"
	KindBlockQuote      = "block_quote"
	KindDirective       = "directive"
	KindLiteralBlock    = "literal_block"
	KindComment         = "comment"
	KindTransition      = "transition"
	KindRaw             = "raw"
	KindTable           = "table"
	KindRow             = "row"
	KindCell            = "cell"
	KindPage            = "page"
)

// Node is one element of a parsed document tree.
//
// Only Value is written after parsing. Children is never reordered, grown or
// shrunk once the parser returns.
type Node struct {
	Kind      string            `json:"type"`
	Depth     int               `json:"depth,omitempty"`     // Section / heading level
	Directive string            `json:"directive,omitempty"` // Directive name, e.g. "toctree"
	Args      string            `json:"args,omitempty"`      // Directive arguments, code language, page number
	Options   map[string]string `json:"options,omitempty"`   // Directive options, reference targets
	Role      string            `json:"role,omitempty"`      // Interpreted text role, or a marker like "header" or "doctest"
	Value     string            `json:"value,omitempty"`     // Text payload on leaves
	Children  []*Node           `json:"children,omitempty"`
}

// NewText returns a text leaf.
func NewText(value string) *Node {
	return &Node{Kind: KindText, Value: value}
}

// New returns a container node of the given kind.
func New(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Append adds children to n. Parsers only; never call during traversal.
func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// SetValue overwrites the text payload. Each node has a single writer per run.
func (n *Node) SetValue(v string) {
	n.Value = v
}

// Walk visits n and its descendants depth-first, pre-order. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Options != nil {
		out.Options = make(map[string]string, len(n.Options))
		for k, v := range n.Options {
			out.Options[k] = v
		}
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// Text joins every text leaf under n with newlines.
func (n *Node) Text() string {
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Kind == KindText && c.Value != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(c.Value)
		}
		return true
	})
	return sb.String()
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
