// Package render produces the invoice PDF and the HTML email bodies. Every
// number shown comes from the snapshot; nothing here recomputes totals.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
)

const (
	pageMargin   = 15.0
	contentWidth = 180.0 // A4 width minus both margins

	colDescription = 90.0
	colQuantity    = 25.0
	colUnitPrice   = 30.0
	colAmount      = 35.0
)

// PDFRenderer renders invoice documents. The zero value is ready to use.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

// RenderInvoicePDF lays out the invoice: header with number and dates, the
// billed-from/billed-to block, the line item table, totals, and the signature
// block. Money columns carry the snapshot's currency label because the core
// fonts cannot draw arbitrary currency glyphs.
func (r *PDFRenderer) RenderInvoicePDF(snap billing.InvoiceSnapshot) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	currency := snap.CurrencyLabel()

	r.header(pdf, snap)
	r.parties(pdf, snap)
	r.itemsTable(pdf, snap, currency)
	r.totals(pdf, snap, currency)
	r.footer(pdf, snap)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "write invoice pdf")
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) header(pdf *fpdf.Fpdf, snap billing.InvoiceSnapshot) {
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(contentWidth/2, 12, "INVOICE", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentWidth/2, 12, snap.Number, "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(contentWidth/2, 5, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 5, "Issued: "+snap.IssuedAt.Format("Jan 2, 2006"), "", 1, "R", false, 0, "")
	if snap.DueAt != nil {
		pdf.CellFormat(contentWidth/2, 5, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth/2, 5, "Due: "+snap.DueAt.Format("Jan 2, 2006"), "", 1, "R", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)
}

func (r *PDFRenderer) parties(pdf *fpdf.Fpdf, snap billing.InvoiceSnapshot) {
	half := contentWidth / 2

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, 6, "From", "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 6, "Billed To", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	fromLines := partyLines(snap.BilledFrom)
	toLines := partyLines(snap.BilledTo)
	for i := 0; i < len(fromLines) || i < len(toLines); i++ {
		pdf.CellFormat(half, 5, lineAt(fromLines, i), "", 0, "L", false, 0, "")
		pdf.CellFormat(half, 5, lineAt(toLines, i), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func (r *PDFRenderer) itemsTable(pdf *fpdf.Fpdf, snap billing.InvoiceSnapshot, currency string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(colDescription, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQuantity, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colUnitPrice, 7, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colAmount, 7, "Amount ("+currency+")", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range snap.Items {
		pdf.CellFormat(colDescription, 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colQuantity, 6, trimZeros(item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colUnitPrice, 6, money(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 6, money(item.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *PDFRenderer) totals(pdf *fpdf.Fpdf, snap billing.InvoiceSnapshot, currency string) {
	labelWidth := colDescription + colQuantity
	valueWidth := colUnitPrice + colAmount

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(labelWidth, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(colUnitPrice, 6, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(colAmount, 6, currency+" "+money(snap.Subtotal), "", 1, "R", false, 0, "")

	if tax, ok := snap.TaxAmount(); ok {
		pdf.CellFormat(labelWidth, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(colUnitPrice, 6, "Tax", "", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 6, currency+" "+money(tax), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelWidth, 8, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueWidth, 8, "Total  "+currency+" "+money(snap.Total), "T", 1, "R", false, 0, "")
	pdf.Ln(10)
}

func (r *PDFRenderer) footer(pdf *fpdf.Fpdf, snap billing.InvoiceSnapshot) {
	if snap.Notes != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentWidth, 5, snap.Notes, "", "L", false)
		pdf.Ln(6)
	}
	if snap.SignerName != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(60, 5, strings.Repeat("_", 30), "", 1, "L", false, 0, "")
		pdf.CellFormat(60, 5, snap.SignerName, "", 1, "L", false, 0, "")
	}

	pdf.SetY(-25)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(130, 130, 130)
	pdf.CellFormat(contentWidth, 5, "Thank you for your business.", "", 1, "C", false, 0, "")
}

func partyLines(p billing.Party) []string {
	lines := make([]string, 0, 4)
	for _, v := range []string{p.Name, p.Address, p.Email, p.Phone} {
		if strings.TrimSpace(v) != "" {
			lines = append(lines, v)
		}
	}
	return lines
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// trimZeros formats quantities without trailing decimal noise (2 not 2.00,
// but 2.5 stays 2.5).
func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
