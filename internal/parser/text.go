package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/doctran/internal/doctree"
)

// TextParser handles plain text: blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader) (*doctree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := doctree.New(doctree.KindDocument)
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			doc.Append(paragraph(current.String()))
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return doc, nil
}
