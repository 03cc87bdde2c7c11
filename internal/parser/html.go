package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/doctran/internal/doctree"
)

// HTMLParser handles HTML files. Headings open sections; block elements map
// onto the matching node kinds and unknown containers are transparent.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader) (*doctree.Node, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []*doctree.Node
	if title := findElement(root, "title"); title != nil {
		if t := collapseSpace(textContent(title)); t != "" {
			blocks = append(blocks, doctree.New(doctree.KindTitle, doctree.NewText(t)))
		}
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	blocks = append(blocks, htmlBlocks(body)...)

	return doctree.New(doctree.KindDocument, sectionize(blocks)...), nil
}

// skipped elements carry no translatable content.
var skipped = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "noscript": true, "template": true, "head": true,
}

var (
	whitespace     = regexp.MustCompile(`[ \t\r\n\f]+`)
	spaces         = regexp.MustCompile(` {2,}`)
	lineBreakSpace = regexp.MustCompile(` ?\n ?`)
)

// htmlBlocks converts the children of n to block nodes. Runs of inline
// content between block elements become paragraphs.
func htmlBlocks(n *html.Node) []*doctree.Node {
	var out []*doctree.Node
	var inline []*html.Node

	flush := func() {
		if len(inline) == 0 {
			return
		}
		if children := htmlInlines(inline); len(children) > 0 {
			out = append(out, doctree.New(doctree.KindParagraph, children...))
		}
		inline = inline[:0]
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipped[c.Data] {
			continue
		}
		if c.Type == html.CommentNode {
			continue
		}
		if c.Type == html.TextNode || (c.Type == html.ElementNode && !isBlock(c.Data)) {
			inline = append(inline, c)
			continue
		}
		flush()
		out = append(out, htmlBlock(c)...)
	}
	flush()
	return out
}

func htmlBlock(n *html.Node) []*doctree.Node {
	if level := headingLevel(n.Data); level > 0 {
		children := htmlInlines(childNodes(n))
		if len(children) == 0 {
			return nil
		}
		return []*doctree.Node{{Kind: doctree.KindTitle, Depth: level, Children: children}}
	}

	switch n.Data {
	case "p":
		children := htmlInlines(childNodes(n))
		if len(children) == 0 {
			return nil
		}
		return []*doctree.Node{doctree.New(doctree.KindParagraph, children...)}
	case "pre":
		text := strings.Trim(textContent(n), "\n")
		if text == "" {
			return nil
		}
		return []*doctree.Node{doctree.New(doctree.KindLiteralBlock, doctree.NewText(text))}
	case "ul":
		return []*doctree.Node{doctree.New(doctree.KindBulletList, htmlBlocks(n)...)}
	case "ol":
		return []*doctree.Node{doctree.New(doctree.KindEnumeratedList, htmlBlocks(n)...)}
	case "li":
		return []*doctree.Node{doctree.New(doctree.KindListItem, htmlBlocks(n)...)}
	case "blockquote":
		return []*doctree.Node{doctree.New(doctree.KindBlockQuote, htmlBlocks(n)...)}
	case "hr":
		return []*doctree.Node{doctree.New(doctree.KindTransition)}
	case "table":
		return []*doctree.Node{htmlTable(n)}
	}
	// Transparent container (div, section, article, main, ...).
	return htmlBlocks(n)
}

func htmlTable(n *html.Node) *doctree.Node {
	table := doctree.New(doctree.KindTable)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				row := doctree.New(doctree.KindRow)
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
						continue
					}
					if td.Data == "th" {
						row.Role = "header"
					}
					row.Append(doctree.New(doctree.KindCell, htmlBlocks(td)...))
				}
				table.Append(row)
			case "thead", "tbody", "tfoot":
				walk(c)
			}
		}
	}
	walk(n)
	return table
}

// htmlInlines converts a run of inline nodes, collapsing whitespace the way
// a browser would and merging adjacent text.
func htmlInlines(nodes []*html.Node) []*doctree.Node {
	var out []*doctree.Node
	var pending strings.Builder

	flush := func() {
		if pending.Len() > 0 {
			out = append(out, doctree.NewText(pending.String()))
			pending.Reset()
		}
	}

	var add func(n *html.Node)
	add = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			pending.WriteString(whitespace.ReplaceAllString(n.Data, " "))
			return
		case html.ElementNode:
		default:
			return
		}
		if skipped[n.Data] {
			return
		}

		var kind string
		switch n.Data {
		case "em", "i":
			kind = doctree.KindEmphasis
		case "strong", "b":
			kind = doctree.KindStrong
		case "code", "kbd", "samp", "tt":
			flush()
			out = append(out, &doctree.Node{Kind: doctree.KindLiteral, Value: textContent(n)})
			return
		case "a":
			kind = doctree.KindReference
		case "br":
			pending.WriteString("\n")
			return
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				add(c)
			}
			return
		}

		flush()
		node := doctree.New(kind, htmlInlines(childNodes(n))...)
		if kind == doctree.KindReference {
			if href := attr(n, "href"); href != "" {
				node.Options = map[string]string{"refuri": href}
			}
		}
		out = append(out, node)
	}

	for _, n := range nodes {
		add(n)
	}
	flush()

	// Collapse whitespace inside text leaves, then trim the run's edges.
	for _, n := range out {
		if n.Kind == doctree.KindText {
			n.Value = lineBreakSpace.ReplaceAllString(spaces.ReplaceAllString(n.Value, " "), "\n")
		}
	}
	if len(out) > 0 && out[0].Kind == doctree.KindText {
		out[0].Value = strings.TrimLeft(out[0].Value, " ")
	}
	if last := len(out) - 1; last >= 0 && out[last].Kind == doctree.KindText {
		out[last].Value = strings.TrimRight(out[last].Value, " ")
	}

	var result []*doctree.Node
	for _, n := range out {
		if n.Kind == doctree.KindText && n.Value == "" {
			continue
		}
		if n.Kind != doctree.KindText && n.Kind != doctree.KindLiteral && len(n.Children) == 0 {
			continue
		}
		result = append(result, n)
	}
	return result
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBlock(tag string) bool {
	if headingLevel(tag) > 0 {
		return true
	}
	switch tag {
	case "p", "div", "pre", "ul", "ol", "li", "blockquote", "hr", "table",
		"section", "article", "main", "aside", "figure", "dl", "form", "body", "html":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
