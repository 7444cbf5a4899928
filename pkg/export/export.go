package export

import "fmt"

// Format names a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Dataset is a titled table. Each row must have one cell per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Renderer encodes a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat picks the renderer for format.
func ForFormat(format Format) (Renderer, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func validate(data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(data.Headers))
		}
	}
	return nil
}
