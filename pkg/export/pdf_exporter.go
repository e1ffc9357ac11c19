package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins
	pdfRowHeight = 7.0
)

// PDFExporter renders a Dataset as a landscape table with a repeated header
// row and page numbers.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// ContentType is the MIME type of rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the file extension of rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates the PDF document.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	generated := e.now().UTC().Format("2006-01-02 15:04 UTC")

	widths := columnWidths(data.Columns)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, column := range data.Columns {
			pdf.CellFormat(widths[i], pdfRowHeight+1, tr(column.Header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if data.Title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 9, tr(data.Title), "", 1, "L", false, 0, "")
		}
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  |  page %d/{nb}", generated, pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	for _, row := range data.Rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, tr(cell), widths[i]-2), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		pdf.CellFormat(0, pdfRowHeight, "no rows", "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns []Column) []float64 {
	total := 0.0
	for _, column := range columns {
		total += weight(column)
	}
	widths := make([]float64, len(columns))
	for i, column := range columns {
		widths[i] = pdfPageWidth * weight(column) / total
	}
	return widths
}

func weight(column Column) float64 {
	if column.Width <= 0 {
		return 1
	}
	return column.Width
}

// fit shortens text with an ellipsis until it fits into width millimetres.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
