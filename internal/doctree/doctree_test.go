package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Node {
	return New(KindSection,
		New(KindTitle, NewText("Intro")),
		New(KindParagraph, NewText("Hello"), New(KindLiteral, NewText("x := 1"))),
		&Node{Kind: KindDirective, Directive: "toctree", Options: map[string]string{"maxdepth": "2"}},
	)
}

func TestWalk_PreOrder(t *testing.T) {
	var kinds []string
	sample().Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	assert.Equal(t, []string{
		KindSection, KindTitle, KindText, KindParagraph, KindText, KindLiteral, KindText, KindDirective,
	}, kinds)
}

func TestWalk_SkipChildren(t *testing.T) {
	var values []string
	sample().Walk(func(n *Node) bool {
		if n.Kind == KindText {
			values = append(values, n.Value)
		}
		return n.Kind != KindParagraph
	})
	assert.Equal(t, []string{"Intro"}, values)
}

func TestClone_IsDeep(t *testing.T) {
	orig := sample()
	cp := orig.Clone()

	cp.Children[0].Children[0].SetValue("changed")
	cp.Children[2].Options["maxdepth"] = "9"

	assert.Equal(t, "Intro", orig.Children[0].Children[0].Value)
	assert.Equal(t, "2", orig.Children[2].Options["maxdepth"])
	require.Equal(t, orig.Count(), cp.Count())
}

func TestText_JoinsLeaves(t *testing.T) {
	assert.Equal(t, "Intro\nHello\nx := 1", sample().Text())
}

func TestIsLeaf(t *testing.T) {
	assert.True(t, NewText("a").IsLeaf())
	assert.False(t, sample().IsLeaf())
}
