package billing

// Package billing contains domain types for invoices and the derived values
// (currency code, tax line) shared by the PDF and email renderers. The
// snapshot is the single source of truth for every number that appears in an
// outbound notification; renderers must not recompute totals independently.

import (
	"strings"
	"time"
)

// InvoiceStatus tracks the lifecycle of an invoice record.
type InvoiceStatus string

const (
	InvoiceStatusDraft        InvoiceStatus = "draft"
	InvoiceStatusSent         InvoiceStatus = "sent"
	InvoiceStatusReminderSent InvoiceStatus = "reminder_sent"
	InvoiceStatusPaid         InvoiceStatus = "paid"
)

// LineItem is a single billed row on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// Party identifies one side of the billed-to / billed-from block.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// InvoiceSnapshot is the immutable view of an invoice captured at dispatch
// time. Rendering and email building both read from it so the PDF and the
// HTML body always agree.
type InvoiceSnapshot struct {
	InvoiceID      string     `json:"invoice_id"`
	Number         string     `json:"number"`
	IssuedAt       time.Time  `json:"issued_at"`
	DueAt          *time.Time `json:"due_at"`
	BilledTo       Party      `json:"billed_to"`
	BilledFrom     Party      `json:"billed_from"`
	Items          []LineItem `json:"items"`
	Subtotal       float64    `json:"subtotal"`
	Tax            *float64   `json:"tax"`
	Total          float64    `json:"total"`
	CurrencyCode   string     `json:"currency_code"`
	CurrencySymbol string     `json:"currency_symbol"`
	LogoURL        string     `json:"logo_url"`
	SignerName     string     `json:"signer_name"`
	SignatureURL   string     `json:"signature_url"`
	Notes          string     `json:"notes"`
}

// symbolCodes maps common currency symbols to ISO 4217 codes. The PDF
// engine's core fonts cannot draw arbitrary Unicode glyphs, so documents
// always render a 3-letter code.
var symbolCodes = map[string]string{
	"$":  "USD",
	"€":  "EUR",
	"£":  "GBP",
	"¥":  "JPY",
	"₵":  "GHS",
	"₦":  "NGN",
	"₹":  "INR",
	"R$": "BRL",
	"₩":  "KRW",
	"₺":  "TRY",
}

// DefaultCurrencyCode is used when neither a code nor a recognizable symbol
// is present on the snapshot.
const DefaultCurrencyCode = "USD"

// CurrencyLabel resolves the label used for money columns: explicit code
// first, then the symbol-to-code map, then the literal symbol when it is
// plain ASCII, and finally the USD default.
func (s InvoiceSnapshot) CurrencyLabel() string {
	if code := strings.ToUpper(strings.TrimSpace(s.CurrencyCode)); code != "" {
		return code
	}
	sym := strings.TrimSpace(s.CurrencySymbol)
	if sym == "" {
		return DefaultCurrencyCode
	}
	if code, ok := symbolCodes[sym]; ok {
		return code
	}
	if isASCII(sym) {
		return sym
	}
	return DefaultCurrencyCode
}

// TaxAmount returns the tax line value and whether the line should be shown.
// An explicit tax value wins; otherwise the difference between total and
// subtotal is used, and the line is suppressed unless positive.
func (s InvoiceSnapshot) TaxAmount() (float64, bool) {
	if s.Tax != nil {
		return *s.Tax, *s.Tax > 0
	}
	derived := s.Total - s.Subtotal
	if derived > 0 {
		return derived, true
	}
	return 0, false
}

func isASCII(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] > 127 {
			return false
		}
	}
	return true
}
