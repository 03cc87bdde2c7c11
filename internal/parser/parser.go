package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/doctran/internal/doctree"
)

// Parser converts raw document bytes into a node tree rooted at a document node.
type Parser interface {
	Parse(r io.Reader) (*doctree.Node, error)
}

// Func adapts a plain function to Parser.
type Func func(r io.Reader) (*doctree.Node, error)

func (f Func) Parse(r io.Reader) (*doctree.Node, error) { return f(r) }

// extensions maps file extensions to parse variant names.
var extensions = map[string]string{
	".rst":      "rst",
	".rest":     "rst",
	".txt":      "text",
	".md":       "markdown",
	".markdown": "markdown",
	".csv":      "csv",
	".html":     "html",
	".htm":      "html",
	".pdf":      "pdf",
	".docx":     "docx",
}

// ForFile returns the parse variant name for a filename.
func ForFile(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if name, ok := extensions[ext]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unsupported file extension: %q", ext)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, err := ForFile(filename)
	return err == nil
}

// paragraph wraps text in a paragraph node.
func paragraph(text string) *doctree.Node {
	return doctree.New(doctree.KindParagraph, doctree.NewText(text))
}

// sectionize nests a flat block sequence under heading titles. A title with
// Depth > 0 opens a section that collects every following block until a
// title of the same or a shallower depth.
func sectionize(blocks []*doctree.Node) []*doctree.Node {
	type stackEntry struct {
		node  *doctree.Node
		level int
	}
	root := &doctree.Node{}
	stack := []stackEntry{{node: root, level: 0}}

	for _, n := range blocks {
		if n.Kind != doctree.KindTitle || n.Depth == 0 {
			stack[len(stack)-1].node.Append(n)
			continue
		}
		level := n.Depth
		n.Depth = 0
		sec := &doctree.Node{Kind: doctree.KindSection, Depth: level, Children: []*doctree.Node{n}}

		// Pop stack until we find a parent with lower level.
		for len(stack) > 1 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack[len(stack)-1].node.Append(sec)
		stack = append(stack, stackEntry{node: sec, level: level})
	}
	return root.Children
}
