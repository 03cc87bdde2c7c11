package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/doctran/internal/doctree"
)

const sampleHTML = `<html>
<head><title>My  Page</title><style>p { color: red }</style></head>
<body>
<nav>Skip me</nav>
<h1>Intro</h1>
<p>Hello
   <b>bold</b> and <a href="/x">a link</a>.</p>
<div>
  <h2>Details</h2>
  <ul><li>one</li><li>two</li></ul>
  <pre>
line 1
line 2</pre>
</div>
<table><tr><th>Name</th></tr><tr><td>Alice</td></tr></table>
<script>alert(1)</script>
</body>
</html>`

func TestHTMLParser_Structure(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(sampleHTML))
	require.NoError(t, err)

	// <title> then the h1 section.
	require.Len(t, doc.Children, 2)
	assert.Equal(t, doctree.KindTitle, doc.Children[0].Kind)
	assert.Equal(t, "My Page", doc.Children[0].Text())

	intro := doc.Children[1]
	require.Equal(t, doctree.KindSection, intro.Kind)
	assert.Equal(t, 1, intro.Depth)
	assert.Equal(t, "Intro", intro.Children[0].Text())

	// title, paragraph, Details section
	require.Len(t, intro.Children, 3)
	details := intro.Children[2]
	assert.Equal(t, 2, details.Depth)

	// title, list, pre, table
	require.Len(t, details.Children, 4)
	assert.Equal(t, doctree.KindBulletList, details.Children[1].Kind)
	assert.Len(t, details.Children[1].Children, 2)
	assert.Equal(t, doctree.KindLiteralBlock, details.Children[2].Kind)
	assert.Equal(t, "line 1\nline 2", details.Children[2].Children[0].Value)

	table := details.Children[3]
	require.Equal(t, doctree.KindTable, table.Kind)
	require.Len(t, table.Children, 2)
	assert.Equal(t, "header", table.Children[0].Role)
	assert.Equal(t, "Alice", table.Children[1].Text())
}

func TestHTMLParser_InlineWhitespace(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(sampleHTML))
	require.NoError(t, err)

	para := doc.Children[1].Children[1]
	require.Equal(t, doctree.KindParagraph, para.Kind)

	var kinds []string
	for _, c := range para.Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []string{
		doctree.KindText, doctree.KindStrong, doctree.KindText, doctree.KindReference, doctree.KindText,
	}, kinds)
	assert.Equal(t, "Hello ", para.Children[0].Value)
	assert.Equal(t, " and ", para.Children[2].Value)
	assert.Equal(t, "/x", para.Children[3].Options["refuri"])
	assert.Equal(t, ".", para.Children[4].Value)
}

func TestHTMLParser_SkipsNonContent(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(sampleHTML))
	require.NoError(t, err)

	text := doc.Text()
	assert.NotContains(t, text, "Skip me")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color")
}

func TestCSVParser_Table(t *testing.T) {
	input := "name,role\nAlice,admin\nBob,\n"
	doc, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, doc.Children, 1)
	table := doc.Children[0]
	require.Equal(t, doctree.KindTable, table.Kind)
	require.Len(t, table.Children, 3)
	assert.Equal(t, "header", table.Children[0].Role)
	assert.Empty(t, table.Children[1].Role)

	bob := table.Children[2]
	require.Len(t, bob.Children, 2)
	assert.Equal(t, "Bob", bob.Children[0].Children[0].Value)
	assert.Empty(t, bob.Children[1].Children)
}

func TestCSVParser_Empty(t *testing.T) {
	doc, err := (&CSVParser{}).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Children)
}

func TestPagesToTree(t *testing.T) {
	doc := pagesToTree("First para\nstill first\n\nSecond para\f\f  \nPage three")

	require.Len(t, doc.Children, 2)
	first := doc.Children[0]
	assert.Equal(t, doctree.KindPage, first.Kind)
	assert.Equal(t, "1", first.Args)
	require.Len(t, first.Children, 2)
	assert.Equal(t, "First para\nstill first", first.Children[0].Children[0].Value)

	assert.Equal(t, "3", doc.Children[1].Args)
	assert.Equal(t, "Page three", doc.Children[1].Text())
}

func TestSectionize(t *testing.T) {
	title := func(s string, depth int) *doctree.Node {
		return &doctree.Node{Kind: doctree.KindTitle, Depth: depth, Children: []*doctree.Node{doctree.NewText(s)}}
	}
	out := sectionize([]*doctree.Node{
		paragraph("preamble"),
		title("A", 2),
		paragraph("a body"),
		title("B", 3),
		title("C", 1),
	})

	require.Len(t, out, 3)
	assert.Equal(t, doctree.KindParagraph, out[0].Kind)
	a := out[1]
	assert.Equal(t, 2, a.Depth)
	require.Len(t, a.Children, 3)
	assert.Equal(t, 3, a.Children[2].Depth)
	assert.Equal(t, 1, out[2].Depth)
	assert.Equal(t, 0, out[2].Children[0].Depth)
}
