package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/doctran/internal/doctree"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Kind != doctree.KindDocument {
		t.Errorf("expected root kind %q, got %q", doctree.KindDocument, doc.Kind)
	}
	if len(doc.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(doc.Children))
	}

	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		para := doc.Children[i]
		if para.Kind != doctree.KindParagraph {
			t.Errorf("child[%d]: expected paragraph, got %q", i, para.Kind)
		}
		if got := para.Children[0].Value; got != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, got)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(doc.Children))
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	input := "Para one.\n\n\n\nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(doc.Children))
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(doc.Children))
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"index.rst", "rst", false},
		{"README.md", "markdown", false},
		{"notes.markdown", "markdown", false},
		{"page.HTM", "html", false},
		{"data.csv", "csv", false},
		{"report.pdf", "pdf", false},
		{"memo.docx", "docx", false},
		{"archive.zip", "", true},
	}
	for _, tt := range tests {
		got, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q): unexpected error state: %v", tt.filename, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ForFile(%q): expected %q, got %q", tt.filename, tt.want, got)
		}
	}
}
