package app

import (
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/pollsnap/pollsnap/internal/artifact"
)

// writeSnapshotPDF renders the published artifact as a single landscape PDF:
// run metadata, the polling table, and the notes list. Intentionally simple;
// wide tables get their cells truncated rather than wrapped.
func writeSnapshotPDF(a artifact.Artifact, outPath string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Polling snapshot", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Fetched: "+a.FetchedAt, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Source: "+a.SourceURL, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	if len(a.Table.Columns) > 0 {
		pageW, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		colW := (pageW - left - right) / float64(len(a.Table.Columns))

		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range a.Table.Columns {
			pdf.CellFormat(colW, 6, fit(pdf, col, colW), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 8)
		for _, row := range a.Table.Rows {
			for _, col := range a.Table.Columns {
				pdf.CellFormat(colW, 5, fit(pdf, row[col], colW), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	} else {
		pdf.CellFormat(0, 5, "No polling table in this snapshot.", "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, n := range a.Notes {
		pdf.MultiCell(0, 5, "- "+n, "", "L", false)
	}

	return pdf.OutputFileAndClose(outPath)
}

// fit truncates text to the given cell width, appending an ellipsis.
func fit(pdf *gofpdf.Fpdf, s string, w float64) string {
	const pad = 2.0
	if pdf.GetStringWidth(s) <= w-pad {
		return s
	}
	r := []rune(s)
	for len(r) > 1 && pdf.GetStringWidth(string(r)+"...") > w-pad {
		r = r[:len(r)-1]
	}
	return strings.TrimSpace(string(r)) + "..."
}
