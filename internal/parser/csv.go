package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/doctran/internal/doctree"
)

// CSVParser handles CSV files. The whole file becomes one table; the first
// record is marked as the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader) (*doctree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := doctree.New(doctree.KindDocument)
	if len(records) == 0 {
		return doc, nil
	}

	table := doctree.New(doctree.KindTable)
	for i, record := range records {
		row := doctree.New(doctree.KindRow)
		if i == 0 {
			row.Role = "header"
		}
		for _, field := range record {
			cell := doctree.New(doctree.KindCell)
			if field != "" {
				cell.Append(doctree.NewText(field))
			}
			row.Append(cell)
		}
		table.Append(row)
	}
	doc.Append(table)
	return doc, nil
}
