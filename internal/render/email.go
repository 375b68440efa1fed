package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
)

// Composer builds the HTML bodies for outbound notifications. Invoice bodies
// read every amount from the snapshot so the email always matches the
// attached PDF.
type Composer struct {
	// SenderName appears in subjects and sign-offs; defaults to the
	// billed-from party's name per message.
	SenderName string
}

// NewComposer constructs a Composer.
func NewComposer(senderName string) *Composer {
	return &Composer{SenderName: senderName}
}

// ComposeInvoice returns the subject and HTML body for an invoice dispatch.
func (c *Composer) ComposeInvoice(kind billing.DispatchKind, snap billing.InvoiceSnapshot) (string, string, error) {
	sender := c.senderFor(snap)
	currency := snap.CurrencyLabel()

	var subject, lead string
	switch kind {
	case billing.DispatchKindInvoiceCreated:
		subject = fmt.Sprintf("Invoice %s from %s", snap.Number, sender)
		lead = fmt.Sprintf("Please find attached invoice %s for %s %s.",
			html.EscapeString(snap.Number), currency, money(snap.Total))
	case billing.DispatchKindInvoiceReminder:
		subject = fmt.Sprintf("Reminder: invoice %s is due", snap.Number)
		lead = fmt.Sprintf("This is a friendly reminder that invoice %s for %s %s is awaiting payment.",
			html.EscapeString(snap.Number), currency, money(snap.Total))
	default:
		return "", "", apperrors.Newf(apperrors.ErrCodeValidation, "kind %q is not an invoice notification", kind)
	}

	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Helvetica,Arial,sans-serif;color:#333\">")
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(firstNameOf(snap.BilledTo.Name)))
	fmt.Fprintf(&b, "<p>%s</p>", lead)

	b.WriteString("<table style=\"border-collapse:collapse;margin:16px 0\">")
	writeRow(&b, "Invoice", snap.Number)
	writeRow(&b, "Issued", snap.IssuedAt.Format("Jan 2, 2006"))
	if snap.DueAt != nil {
		writeRow(&b, "Due", snap.DueAt.Format("Jan 2, 2006"))
	}
	writeRow(&b, "Subtotal", currency+" "+money(snap.Subtotal))
	if tax, ok := snap.TaxAmount(); ok {
		writeRow(&b, "Tax", currency+" "+money(tax))
	}
	writeRow(&b, "Total", currency+" "+money(snap.Total))
	b.WriteString("</table>")

	if snap.DueAt != nil && snap.DueAt.Before(time.Now()) && kind == billing.DispatchKindInvoiceReminder {
		b.WriteString("<p>If you have already made this payment, please disregard this message.</p>")
	}
	fmt.Fprintf(&b, "<p>Kind regards,<br>%s</p>", html.EscapeString(sender))
	b.WriteString("</body></html>")

	return subject, b.String(), nil
}

// ComposeWelcome returns the subject and HTML body for a client welcome.
func (c *Composer) ComposeWelcome(recipient string) (string, string, error) {
	if recipient == "" {
		return "", "", apperrors.New(apperrors.ErrCodeValidation, "recipient is required")
	}
	sender := c.SenderName
	if sender == "" {
		sender = "the team"
	}
	subject := "Welcome aboard"

	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Helvetica,Arial,sans-serif;color:#333\">")
	b.WriteString("<p>Hello,</p>")
	fmt.Fprintf(&b, "<p>An account has been created for %s. You can now sign in to view your invoices and account details.</p>",
		html.EscapeString(recipient))
	fmt.Fprintf(&b, "<p>Kind regards,<br>%s</p>", html.EscapeString(sender))
	b.WriteString("</body></html>")

	return subject, b.String(), nil
}

// ComposePasswordReset returns the subject and HTML body for the notice sent
// after an account's password has been reset.
func (c *Composer) ComposePasswordReset(recipient string) (string, string, error) {
	if recipient == "" {
		return "", "", apperrors.New(apperrors.ErrCodeValidation, "recipient is required")
	}
	sender := c.SenderName
	if sender == "" {
		sender = "the team"
	}
	subject := "Your password has been reset"

	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Helvetica,Arial,sans-serif;color:#333\">")
	b.WriteString("<p>Hello,</p>")
	fmt.Fprintf(&b, "<p>The password for %s has just been reset. You can sign in with your new password right away.</p>",
		html.EscapeString(recipient))
	b.WriteString("<p>If you did not request this change, contact your administrator immediately.</p>")
	fmt.Fprintf(&b, "<p>Kind regards,<br>%s</p>", html.EscapeString(sender))
	b.WriteString("</body></html>")

	return subject, b.String(), nil
}

func (c *Composer) senderFor(snap billing.InvoiceSnapshot) string {
	if c.SenderName != "" {
		return c.SenderName
	}
	if snap.BilledFrom.Name != "" {
		return snap.BilledFrom.Name
	}
	return "Accounts"
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b,
		"<tr><td style=\"padding:2px 12px 2px 0;color:#777\">%s</td><td style=\"padding:2px 0\">%s</td></tr>",
		html.EscapeString(label), html.EscapeString(value))
}

func firstNameOf(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "customer"
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}
