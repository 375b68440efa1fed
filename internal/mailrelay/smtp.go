// Package mailrelay is the stateless SMTP relay microservice: it accepts
// fully rendered messages over HTTP and forwards them to the configured SMTP
// upstream. It holds no queue and no database; callers own retry policy.
package mailrelay

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/wneessen/go-mail"
	"golang.org/x/net/html"

	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// SMTPConfig groups the SMTP upstream settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// FromAddress is the envelope sender; FromName the display name.
	FromAddress string
	FromName    string

	// UnsubscribeMailto, when set, is advertised in a List-Unsubscribe
	// header on every message.
	UnsubscribeMailto string
}

// SMTPSender forwards messages to the SMTP upstream. One client is shared
// across sends; go-mail dials per DialAndSend call.
type SMTPSender struct {
	cfg    SMTPConfig
	client *mail.Client
}

// NewSMTPSender validates the config and constructs the sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfiguration, "SMTP host is required")
	}
	if cfg.FromAddress == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfiguration, "SMTP from address is required")
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "configure SMTP client")
	}
	return &SMTPSender{cfg: cfg, client: client}, nil
}

// Send forwards one message and returns its Message-ID.
func (s *SMTPSender) Send(ctx context.Context, in ports.EmailMessage) (string, error) {
	msg, err := s.buildMessage(in)
	if err != nil {
		return "", err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeDeliveryTimeout, "SMTP send timed out")
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeDeliveryTransport, "SMTP send failed")
	}
	return msg.GetMessageID(), nil
}

func (s *SMTPSender) buildMessage(in ports.EmailMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "invalid from address")
	}
	if err := msg.To(in.To); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "invalid recipient %q", in.To)
	}

	msg.Subject(in.Subject)
	msg.SetMessageID()
	msg.SetUserAgent("arkline-mailrelay")
	if s.cfg.UnsubscribeMailto != "" {
		msg.SetGenHeader(mail.HeaderListUnsubscribe, "<mailto:"+s.cfg.UnsubscribeMailto+">")
	}

	// Plaintext alternative first so HTML-capable clients prefer the HTML part.
	msg.SetBodyString(mail.TypeTextPlain, HTMLToText(in.HTML))
	msg.AddAlternativeString(mail.TypeTextHTML, in.HTML)

	for _, att := range in.Attachments {
		content, decodeErr := decodeAttachment(att)
		if decodeErr != nil {
			return nil, decodeErr
		}
		opts := []mail.FileOption{}
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := msg.AttachReader(att.Filename, bytes.NewReader(content), opts...); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "attach %q", att.Filename)
		}
	}
	return msg, nil
}

func decodeAttachment(att ports.Attachment) ([]byte, error) {
	if att.Encoding != "" && att.Encoding != "base64" {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "unsupported attachment encoding %q", att.Encoding)
	}
	content, err := base64.StdEncoding.DecodeString(att.Content)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "decode attachment %q", att.Filename)
	}
	return content, nil
}

// HTMLToText derives the plaintext alternative from the HTML body: tags are
// stripped, block elements become line breaks, scripts and styles drop out.
func HTMLToText(source string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(source))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "table":
				b.WriteByte('\n')
			case "td":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "table":
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(string(tokenizer.Text()))
			}
		}
	}
}

func collapseBlankLines(v string) string {
	lines := strings.Split(v, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
