package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser handles CSV files. Rows become pipe-delimited table lines
// so downstream section classification sees them as tabular content.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*SourceDoc, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &SourceDoc{Title: titleFromFilename(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	// Batch rows so no single region overwhelms the analysis prompt.
	const batchSize = 20
	headers := records[0]
	dataRows := records[1:]

	var w flatWriter
	for i := 0; i < len(dataRows); i += batchSize {
		end := min(i+batchSize, len(dataRows))

		var text strings.Builder
		text.WriteString(pipeRow(headers))
		text.WriteString("\n")
		for _, row := range dataRows[i:end] {
			text.WriteString(pipeRow(row))
			text.WriteString("\n")
		}

		w.heading(2, fmt.Sprintf("Rows %d-%d", i+2, end+1)) // 1-indexed, skip header
		w.paragraph(text.String())
	}

	doc.Text = w.String()
	return doc, nil
}

func pipeRow(cells []string) string {
	cleaned := make([]string, len(cells))
	for i, c := range cells {
		cleaned[i] = strings.ReplaceAll(strings.TrimSpace(c), "|", "/")
	}
	return "| " + strings.Join(cleaned, " | ") + " |"
}
