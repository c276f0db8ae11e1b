package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDF renders the table as a landscape A4 document with a title line and a
// bordered grid. Columns share the printable width evenly.
func PDF(t Table) ([]byte, error) {
	rows, err := t.normalized()
	if err != nil {
		return nil, err
	}

	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(12, 14, 12)
	doc.AddPage()

	if t.Title != "" {
		doc.SetFont("Helvetica", "B", 13)
		doc.CellFormat(0, 9, t.Title, "", 1, "L", false, 0, "")
		doc.Ln(3)
	}

	pageWidth, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(t.Columns))

	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(235, 238, 242)
	for _, name := range t.Columns {
		doc.CellFormat(colWidth, 7, name, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for _, cell := range row {
			doc.CellFormat(colWidth, 6.5, cell, "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("emit pdf: %w", err)
	}
	return buf.Bytes(), nil
}
