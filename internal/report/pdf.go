package report

import (
	"fmt"
	"io"

	gofpdf "github.com/go-pdf/fpdf"
)

// WritePDF renders doc as a fixed-layout A4 PDF.
func WritePDF(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("haintsec", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("{nb}")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, tr(doc.Subtitle), "", "L", false)
	pdf.Ln(4)

	for _, s := range doc.Sections {
		addSection(pdf, tr, s)
	}

	if pdf.Err() {
		return fmt.Errorf("render pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func addSection(pdf *gofpdf.Fpdf, tr func(string) string, s Section) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 9, tr(s.Heading), "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	if s.Empty() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, tr(s.EmptyLine), "", "L", false)
		if s.Insight != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(128, 128, 128)
			pdf.MultiCell(0, 5, tr(s.Insight), "", "L", false)
		}
		pdf.Ln(4)
		return
	}

	for _, p := range s.Paragraphs {
		for i, line := range p.Lines {
			style := ""
			if i == 0 && len(p.Lines) > 1 {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
		pdf.Ln(2)
	}
	pdf.Ln(2)
}
