package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 277.0
	pdfLineHeight = 5.0
)

// PDFExporter renders datasets as a landscape table. Long cells wrap.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType implements Renderer.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension implements Renderer.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render lays out the title, a header row and one wrapped row per record.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(data)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		lines := 1
		for i, cell := range row {
			if n := len(pdf.SplitLines([]byte(tr(cell)), widths[i]-2)); n > lines {
				lines = n
			}
		}
		height := float64(lines) * pdfLineHeight
		_, pageHeight := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+height > pageHeight-bottom {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i, cell := range row {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.MultiCell(widths[i], pdfLineHeight, tr(cell), "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(10, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths gives the widest column to the longest average content.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for i, header := range data.Headers {
		weight := float64(len(header))
		for _, row := range data.Rows {
			weight += float64(len(row[i])) / float64(len(data.Rows))
		}
		if weight < 6 {
			weight = 6
		}
		if weight > 80 {
			weight = 80
		}
		weights[i] = weight
		total += weight
	}
	widths := make([]float64, len(weights))
	for i, weight := range weights {
		widths[i] = pdfPageWidth * weight / total
	}
	return widths
}
