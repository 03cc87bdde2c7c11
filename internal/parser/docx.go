package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/doctran/internal/doctree"
)

// DOCXParser handles .docx files. Heading styles become section titles;
// every other non-empty paragraph becomes a paragraph node.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader) (*doctree.Node, error) {
	// go-docx needs a ReaderAt+size, so spool to a temp file.
	tmp, size, err := spool(r, "doctran-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	d, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []*doctree.Node
	for _, item := range d.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if text == "" {
				continue
			}
			if level := docxHeadingLevel(it); level > 0 {
				blocks = append(blocks, &doctree.Node{
					Kind:     doctree.KindTitle,
					Depth:    level,
					Children: []*doctree.Node{doctree.NewText(text)},
				})
				continue
			}
			blocks = append(blocks, paragraph(text))
		case *docx.Table:
			blocks = append(blocks, docxTable(it))
		}
	}

	return doctree.New(doctree.KindDocument, sectionize(blocks)...), nil
}

func docxTable(t *docx.Table) *doctree.Node {
	table := doctree.New(doctree.KindTable)
	for _, tr := range t.TableRows {
		row := doctree.New(doctree.KindRow)
		for _, tc := range tr.TableCells {
			cell := doctree.New(doctree.KindCell)
			for _, para := range tc.Paragraphs {
				if text := docxParagraphText(para); text != "" {
					cell.Append(paragraph(text))
				}
			}
			row.Append(cell)
		}
		table.Append(row)
	}
	return table
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	var level int
	if _, err := fmt.Sscanf(strings.TrimPrefix(style, "heading"), "%d", &level); err != nil {
		return 0
	}
	if level < 1 || level > 9 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// spool copies r into a temp file positioned at the start. The caller
// closes and removes the file.
func spool(r io.Reader, pattern string) (*os.File, int64, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("create temp file: %w", err)
	}
	size, err := io.Copy(tmp, r)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, 0, fmt.Errorf("write temp file: %w", err)
	}
	return tmp, size, nil
}
