package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders documents into a sectioned tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the PDF bytes for a document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	if len(doc.Meta) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, entry := range doc.Meta {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(50, 6, entry.Key, "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 6, entry.Value, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	for _, section := range doc.Sections {
		if err := renderSection(pdf, section); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderSection(pdf *gofpdf.Fpdf, section Section) error {
	if len(section.Data.Headers) == 0 {
		return fmt.Errorf("section %q requires at least one header", section.Title)
	}

	if section.Title != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, section.Title, "", 1, "", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 9)
	colWidth := 190.0 / float64(len(section.Data.Headers))
	for _, header := range section.Data.Headers {
		pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range section.Data.Rows {
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 6, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
	return nil
}
