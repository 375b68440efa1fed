package mailrelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

func TestNewSMTPSenderValidation(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{FromAddress: "billing@arkline.example"})
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	assert.True(t, apperrors.IsConfiguration(err))

	sender, err := NewSMTPSender(SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "relay",
		Password:    "secret",
		FromAddress: "billing@arkline.example",
		FromName:    "Arkline Billing",
	})
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestBuildMessage(t *testing.T) {
	sender, err := NewSMTPSender(SMTPConfig{
		Host:              "smtp.example.com",
		FromAddress:       "billing@arkline.example",
		FromName:          "Arkline Billing",
		UnsubscribeMailto: "unsubscribe@arkline.example",
	})
	require.NoError(t, err)

	msg, err := sender.buildMessage(ports.EmailMessage{
		To:      "ama@example.com",
		Subject: "Invoice INV-1",
		HTML:    "<p>hello</p>",
		Attachments: []ports.Attachment{
			ports.NewPDFAttachment("invoice-INV-1.pdf", []byte("%PDF-1.4")),
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.GetMessageID())
	attachments := msg.GetAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "invoice-INV-1.pdf", attachments[0].Name)
}

func TestBuildMessageRejectsBadInput(t *testing.T) {
	sender, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", FromAddress: "billing@arkline.example"})
	require.NoError(t, err)

	_, err = sender.buildMessage(ports.EmailMessage{To: "not-an-address", Subject: "s", HTML: "<p>x</p>"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = sender.buildMessage(ports.EmailMessage{
		To: "ama@example.com", Subject: "s", HTML: "<p>x</p>",
		Attachments: []ports.Attachment{{Filename: "f.bin", Content: "!!!", Encoding: "base64"}},
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = sender.buildMessage(ports.EmailMessage{
		To: "ama@example.com", Subject: "s", HTML: "<p>x</p>",
		Attachments: []ports.Attachment{{Filename: "f.bin", Content: "aGk=", Encoding: "uuencode"}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
	<p>Dear Ama,</p>
	<p>Please find attached invoice INV-1.</p>
	<table><tr><td>Total</td><td>USD 100.00</td></tr></table>
	<script>alert("nope")</script>
	<p>Kind regards,<br>Arkline Ltd</p>
	</body></html>`

	text := HTMLToText(html)

	assert.Contains(t, text, "Dear Ama,")
	assert.Contains(t, text, "Total USD 100.00")
	assert.Contains(t, text, "Kind regards,\nArkline Ltd")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<")
}
