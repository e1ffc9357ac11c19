package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVExporter renders a Dataset as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType is the MIME type of rendered output.
func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// Extension is the file extension of rendered output.
func (e *CSVExporter) Extension() string { return "csv" }

// Render produces CSV bytes. Cells starting with a formula trigger are
// prefixed with a quote so spreadsheets show them as text.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.headers()); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i, cell := range row {
			record[i] = neutralizeFormula(cell)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralizeFormula(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
