package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/doctran/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var blocks []*doctree.Node
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if b := markdownBlock(n, src); b != nil {
			blocks = append(blocks, b)
		}
	}

	return doctree.New(doctree.KindDocument, sectionize(blocks)...), nil
}

func markdownBlock(n ast.Node, src []byte) *doctree.Node {
	switch node := n.(type) {
	case *ast.Heading:
		return &doctree.Node{Kind: doctree.KindTitle, Depth: node.Level, Children: markdownInlines(node, src)}
	case *ast.Paragraph, *ast.TextBlock:
		return doctree.New(doctree.KindParagraph, markdownInlines(n, src)...)
	case *ast.FencedCodeBlock:
		out := doctree.New(doctree.KindLiteralBlock, doctree.NewText(blockLines(n, src)))
		if lang := node.Language(src); lang != nil {
			out.Args = string(lang)
		}
		return out
	case *ast.CodeBlock:
		return doctree.New(doctree.KindLiteralBlock, doctree.NewText(blockLines(n, src)))
	case *ast.HTMLBlock:
		return &doctree.Node{Kind: doctree.KindRaw, Value: blockLines(n, src)}
	case *ast.ThematicBreak:
		return doctree.New(doctree.KindTransition)
	case *ast.List:
		kind := doctree.KindBulletList
		if node.IsOrdered() {
			kind = doctree.KindEnumeratedList
		}
		return doctree.New(kind, markdownChildren(n, src)...)
	case *ast.ListItem:
		return doctree.New(doctree.KindListItem, markdownChildren(n, src)...)
	case *ast.Blockquote:
		return doctree.New(doctree.KindBlockQuote, markdownChildren(n, src)...)
	}
	return doctree.New(strings.ToLower(n.Kind().String()), markdownChildren(n, src)...)
}

func markdownChildren(n ast.Node, src []byte) []*doctree.Node {
	var out []*doctree.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if b := markdownBlock(c, src); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// markdownInlines converts inline children. Adjacent text segments, which
// goldmark splits at line breaks, are merged into one text leaf.
func markdownInlines(parent ast.Node, src []byte) []*doctree.Node {
	var out []*doctree.Node
	var pending strings.Builder

	flush := func() {
		if pending.Len() > 0 {
			out = append(out, doctree.NewText(pending.String()))
			pending.Reset()
		}
	}

	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			pending.Write(node.Segment.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				pending.WriteByte('\n')
			}
		case *ast.String:
			pending.Write(node.Value)
		case *ast.CodeSpan:
			flush()
			out = append(out, &doctree.Node{Kind: doctree.KindLiteral, Value: inlineText(node, src)})
		case *ast.Emphasis:
			flush()
			kind := doctree.KindEmphasis
			if node.Level >= 2 {
				kind = doctree.KindStrong
			}
			out = append(out, doctree.New(kind, markdownInlines(node, src)...))
		case *ast.Link:
			flush()
			ref := doctree.New(doctree.KindReference, markdownInlines(node, src)...)
			ref.Options = map[string]string{"refuri": string(node.Destination)}
			out = append(out, ref)
		case *ast.AutoLink:
			flush()
			out = append(out, &doctree.Node{
				Kind:    doctree.KindReference,
				Options: map[string]string{"refuri": string(node.URL(src))},
				Value:   string(node.Label(src)),
			})
		case *ast.RawHTML:
			flush()
			var buf bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				buf.Write(seg.Value(src))
			}
			out = append(out, &doctree.Node{Kind: doctree.KindRaw, Value: buf.String()})
		default:
			// Recurse for nested inlines.
			flush()
			out = append(out, markdownInlines(c, src)...)
		}
	}
	flush()
	return out
}

// inlineText concatenates the text segments under n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
	}
	return buf.String()
}

// blockLines joins the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
