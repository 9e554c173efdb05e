package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/healthmate/backend/internal/storage/models"
)

// ExportPDF renders the snapshot as a paginated PDF with the same sections
// as the HTML export. fpdf inserts page breaks automatically, so long mood
// tables flow onto subsequent pages.
func ExportPDF(r *models.HealthReport) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(reportTitle(r.ReportType), true)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, reportTitle(r.ReportType), "", 1, "L", false, 0, "")

	subtitle := "Generated " + r.GeneratedAt.Format("January 2, 2006 15:04 MST")
	if rng := rangeLabel(r.Data); rng != "" {
		subtitle += ", covering " + rng
	}
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(90, 90, 90)
	doc.CellFormat(0, 7, subtitle, "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)

	sections := buildSections(r.Data)
	if len(sections) == 0 {
		doc.Ln(4)
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 8, "No data recorded for this period.", "", 1, "L", false, 0, "")
	}

	for _, section := range sections {
		doc.Ln(4)
		doc.SetFont("Helvetica", "B", 13)
		doc.CellFormat(0, 9, section.Heading, "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)

		if len(section.Rows) > 0 {
			for _, row := range section.Rows {
				doc.CellFormat(70, 7, row.Label, "1", 0, "L", false, 0, "")
				doc.CellFormat(0, 7, row.Value, "1", 1, "L", false, 0, "")
			}
		} else {
			doc.MultiCell(0, 6, section.Body, "", "L", false)
		}
	}

	doc.Ln(8)
	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(120, 120, 120)
	doc.MultiCell(0, 4, exportDisclaimer, "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}
	return buf.Bytes(), nil
}
