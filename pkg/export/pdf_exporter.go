package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth    = 190.0
	bottomMargin = 15.0
	minColWidth  = 14.0
	cellPadding  = 4.0
)

// PDFExporter renders datasets into a paginated tabular PDF. Column widths follow the
// widest value in each column and the header row is repeated on every page.
type PDFExporter struct {
	Author string
	now    func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Author: "CCRM", now: time.Now}
}

// Render creates a PDF document with an optional title, optional summary lines and a table body.
func (e *PDFExporter) Render(data Dataset, title string, summary ...string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(e.Author, true)

	generated := e.clock().Format("2006-01-02 15:04")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, tr("Generated "+generated), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	if len(summary) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, line := range summary {
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	widths := columnWidths(pdf, tr, data)
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-2*bottomMargin {
			pdf.AddPage()
			header()
		}
		for i, h := range data.Headers {
			value := row[h]
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, alignFor(value), false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

// columnWidths sizes each column to its widest cell and scales the set to fill the page.
func columnWidths(pdf *gofpdf.Fpdf, tr func(string) string, data Dataset) []float64 {
	widths := make([]float64, len(data.Headers))
	total := 0.0
	for i, h := range data.Headers {
		pdf.SetFont("Arial", "B", 10)
		w := pdf.GetStringWidth(tr(h))
		pdf.SetFont("Arial", "", 9)
		for _, row := range data.Rows {
			if cw := pdf.GetStringWidth(tr(row[h])); cw > w {
				w = cw
			}
		}
		w += cellPadding
		if w < minColWidth {
			w = minColWidth
		}
		widths[i] = w
		total += w
	}
	scale := pageWidth / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

func alignFor(value string) string {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return "R"
	}
	return "L"
}
