package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders documents into CSV bytes. Sections are concatenated
// with their titles as single-cell separator rows.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the document.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	for _, entry := range doc.Meta {
		if err := writer.Write([]string{entry.Key, entry.Value}); err != nil {
			return nil, fmt.Errorf("write csv meta: %w", err)
		}
	}

	for _, section := range doc.Sections {
		if len(section.Data.Headers) == 0 {
			return nil, fmt.Errorf("section %q requires at least one header", section.Title)
		}
		if err := writer.Write([]string{}); err != nil {
			return nil, fmt.Errorf("write csv separator: %w", err)
		}
		if section.Title != "" {
			if err := writer.Write([]string{section.Title}); err != nil {
				return nil, fmt.Errorf("write csv section title: %w", err)
			}
		}
		if err := writer.Write(section.Data.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range section.Data.Rows {
			record := make([]string, len(section.Data.Headers))
			for i, header := range section.Data.Headers {
				record[i] = row[header]
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
