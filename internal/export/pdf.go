package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Page layout in millimetres on US Letter portrait.
const (
	pageWidth   = 215.9
	marginLeft  = 15.0
	marginRight = 15.0
	marginTop   = 15.0
	contentW    = pageWidth - marginLeft - marginRight
	rowHeight   = 6.0
	qrSize      = 28.0
)

var (
	pdfColumns = []float64{78, 30, 20, 28, contentW - 78 - 30 - 20 - 28}
	pdfHeaders = []string{"Description", "Unit", "Qty", "Unit Price", "Total"}
)

// PDF renders the statement with a header block, one table section per
// category, the closing totals and a QR code referencing the statement.
func PDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(contentW, 4, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if err := renderHeader(pdf, tr, doc); err != nil {
		return err
	}
	renderTable(pdf, tr, doc)
	renderSummary(pdf, doc)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func renderHeader(pdf *fpdf.Fpdf, tr func(string) string, doc Document) error {
	ref, err := json.Marshal(doc.reference())
	if err != nil {
		return fmt.Errorf("failed to marshal statement reference: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(ref), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	pdf.RegisterImageOptionsReader("statement_ref", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("statement_ref", pageWidth-marginRight-qrSize, marginTop, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textW := contentW - qrSize - 4
	pdf.SetXY(marginLeft, marginTop)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(textW, 8, tr(doc.Company), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 12)
	heading := "Fee Statement"
	if doc.View == ViewCustomer {
		heading = "Proposal"
	}
	pdf.CellFormat(textW, 7, tr(heading+": "+doc.title()), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range headerLines(doc) {
		pdf.CellFormat(textW, 5, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.SetY(max(pdf.GetY(), marginTop+qrSize) + 4)
	return nil
}

func headerLines(doc Document) []string {
	var lines []string
	if doc.Details.ClientName != "" {
		lines = append(lines, "Client: "+doc.Details.ClientName)
	}
	if doc.Details.Address != "" {
		lines = append(lines, "Address: "+doc.Details.Address)
	}
	lines = append(lines, fmt.Sprintf("Project type: %s", doc.Details.ProjectType))
	if doc.Details.Sqft > 0 {
		lines = append(lines, fmt.Sprintf("Area: %s sq ft", quantity(doc.Details.Sqft)))
	}
	if doc.VersionID != 0 {
		lines = append(lines, fmt.Sprintf("Version: %d", doc.VersionID))
	}
	return append(lines, "Date: "+doc.date())
}

func renderTable(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(51, 51, 51)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range pdfHeaders {
			pdf.CellFormat(pdfColumns[i], rowHeight, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}
	tableHeader()

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, sec := range doc.sections() {
		if pdf.GetY()+2*rowHeight > pageH-bottom {
			pdf.AddPage()
			tableHeader()
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(231, 230, 230)
		pdf.CellFormat(contentW-pdfColumns[4], rowHeight, tr(sec.Category), "1", 0, "L", true, 0, "")
		pdf.CellFormat(pdfColumns[4], rowHeight, money(sec.Total), "1", 1, "R", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for _, l := range sec.Lines {
			if pdf.GetY()+rowHeight > pageH-bottom {
				pdf.AddPage()
				tableHeader()
				pdf.SetFont("Helvetica", "", 9)
			}
			pdf.CellFormat(pdfColumns[0], rowHeight, tr(truncate(pdf, l.Description, pdfColumns[0]-2)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(pdfColumns[1], rowHeight, tr(l.Unit), "1", 0, "C", false, 0, "")
			pdf.CellFormat(pdfColumns[2], rowHeight, quantity(l.Quantity), "1", 0, "R", false, 0, "")
			pdf.CellFormat(pdfColumns[3], rowHeight, money(l.UnitPrice), "1", 0, "R", false, 0, "")
			pdf.CellFormat(pdfColumns[4], rowHeight, money(l.Total), "1", 1, "R", false, 0, "")
		}
	}
}

func renderSummary(pdf *fpdf.Fpdf, doc Document) {
	pdf.Ln(4)
	labelW := contentW - pdfColumns[4]
	for _, s := range doc.summary() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelW, rowHeight+1, s.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[4], rowHeight+1, money(s.value), "T", 1, "R", false, 0, "")
	}
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
