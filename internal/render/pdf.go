// Package render turns a report transcript into the downloadable PDF
// artifact.
package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/creditlens/creditlens/internal/domain"
)

const reportTitle = "Credit Analysis Report"

// PDFRenderer renders report transcripts with a title page followed by one
// Question/Answer block per transcript entry.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render produces the PDF bytes for a transcript. The layout is a centered
// title page with company name and report date, then the transcript in bank
// order with a page-number footer.
func (r *PDFRenderer) Render(companyName string, transcript domain.Transcript, reportDate time.Time) ([]byte, error) {
	if companyName == "" {
		return nil, domain.ErrMissingCompanyName
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s - %d", reportTitle, pdf.PageNo()),
			"", 0, "L", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, reportTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Company Name: %s", companyName), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.CellFormat(0, 8, fmt.Sprintf("Report Date: %s", reportDate.Format("2006-01-02")), "", 1, "L", false, 0, "")

	pdf.AddPage()
	for _, entry := range transcript {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, fmt.Sprintf("Question: %s", entry.Question), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("Answer: %s", entry.Answer), "", "L", false)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report pdf: %w", err)
	}

	return buf.Bytes(), nil
}
