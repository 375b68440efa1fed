package mailrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/arkline/erp-api/internal/errors"
	httpx "github.com/arkline/erp-api/internal/http"
	"github.com/arkline/erp-api/internal/ports"
)

// maxSendBytes bounds the request body; attachments arrive base64-encoded.
const maxSendBytes = 10 << 20

// EmailSender is the send surface the HTTP layer needs.
type EmailSender interface {
	Send(ctx context.Context, msg ports.EmailMessage) (string, error)
}

// SenderFactory builds a sender for a per-request SMTP override.
type SenderFactory func(cfg SMTPConfig) (EmailSender, error)

// ServerOptions groups dependencies for the relay HTTP handler.
type ServerOptions struct {
	Sender EmailSender

	// SMTP is echoed (password redacted) on the health endpoint so operators
	// can confirm which upstream the relay points at. It is also the base
	// configuration that per-request smtpConfig overrides are merged onto.
	SMTP SMTPConfig

	// SenderFor builds the sender for a request carrying an smtpConfig
	// override; nil uses NewSMTPSender.
	SenderFor SenderFactory

	// JWTSecret, when set, requires a valid HS256 bearer token on send.
	JWTSecret string

	Logger *slog.Logger
}

// Server is the relay's HTTP surface: one send endpoint and a health check.
type Server struct {
	sender    EmailSender
	senderFor SenderFactory
	smtp      SMTPConfig
	jwtSecret string
	logger    *slog.Logger
}

// NewServer constructs the Server.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	senderFor := opts.SenderFor
	if senderFor == nil {
		senderFor = func(cfg SMTPConfig) (EmailSender, error) { return NewSMTPSender(cfg) }
	}
	return &Server{
		sender:    opts.Sender,
		senderFor: senderFor,
		smtp:      opts.SMTP,
		jwtSecret: opts.JWTSecret,
		logger:    logger.With("component", "mailrelay"),
	}
}

// Handler builds the routed handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /send-email", s.requireToken(http.HandlerFunc(s.handleSend)))
	mux.Handle("GET /health", http.HandlerFunc(s.handleHealth))

	handler := httpx.Recover(s.logger)(mux)
	return httpx.Logging(s.logger)(handler)
}

// sendRequest is the wire shape of POST /send-email. SMTPConfig, when
// present, overrides the configured upstream for this one message.
type sendRequest struct {
	ports.EmailMessage
	SMTPConfig *SMTPOverride `json:"smtpConfig,omitempty"`
}

// SMTPOverride carries per-request SMTP settings. Zero-valued fields keep the
// relay's configured value.
type SMTPOverride struct {
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Username    string `json:"user,omitempty"`
	Password    string `json:"pass,omitempty"`
	FromAddress string `json:"fromAddress,omitempty"`
	FromName    string `json:"fromName,omitempty"`
}

func (o *SMTPOverride) apply(base SMTPConfig) SMTPConfig {
	if o.Host != "" {
		base.Host = o.Host
	}
	if o.Port > 0 {
		base.Port = o.Port
	}
	if o.Username != "" {
		base.Username = o.Username
	}
	if o.Password != "" {
		base.Password = o.Password
	}
	if o.FromAddress != "" {
		base.FromAddress = o.FromAddress
	}
	if o.FromName != "" {
		base.FromName = o.FromName
	}
	return base
}

// sendResponse is the wire shape of every send-email reply: success with an
// optional message id, or failure with the upstream error passed through.
type sendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSendBytes)).Decode(&req); err != nil {
		s.writeFailure(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if err := validateMessage(req.EmailMessage); err != nil {
		s.writeFailure(w, http.StatusBadRequest, err)
		return
	}

	sender := s.sender
	if req.SMTPConfig != nil {
		override, err := s.senderFor(req.SMTPConfig.apply(s.smtp))
		if err != nil {
			s.writeFailure(w, http.StatusBadRequest, err)
			return
		}
		sender = override
	}

	messageID, err := sender.Send(r.Context(), req.EmailMessage)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "send failed", "to", req.To, "err", err)
		status := http.StatusBadGateway
		if apperrors.IsDeliveryTimeout(err) {
			status = http.StatusGatewayTimeout
		} else if apperrors.IsValidation(err) {
			status = http.StatusBadRequest
		}
		s.writeFailure(w, status, err)
		return
	}

	s.logger.InfoContext(r.Context(), "message relayed", "to", req.To, "message_id", messageID)
	httpx.WriteJSON(w, http.StatusOK, sendResponse{
		Success:   true,
		Message:   "message sent",
		MessageID: messageID,
	})
}

// writeFailure emits the relay's failure shape with the error message passed
// through verbatim.
func (s *Server) writeFailure(w http.ResponseWriter, status int, err error) {
	httpx.WriteJSON(w, status, sendResponse{Success: false, Error: err.Error()})
}

type smtpEcho struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	PasswordSet bool   `json:"passwordSet"`
}

type healthResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	SMTP    smtpEcho `json:"smtp"`
}

// handleHealth reports liveness plus the redacted SMTP upstream settings.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Success: true,
		Message: "mail relay ready",
		SMTP: smtpEcho{
			Host:        s.smtp.Host,
			Port:        s.smtp.Port,
			User:        s.smtp.Username,
			PasswordSet: s.smtp.Password != "",
		},
	})
}

// requireToken enforces the HS256 bearer guard when a secret is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.jwtSecret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			s.writeFailure(w, http.StatusUnauthorized, errors.New("bearer token required"))
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(s.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			s.writeFailure(w, http.StatusUnauthorized, fmt.Errorf("invalid bearer token: %w", err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validateMessage(msg ports.EmailMessage) error {
	switch {
	case strings.TrimSpace(msg.To) == "":
		return errors.New("recipient is required")
	case strings.TrimSpace(msg.Subject) == "":
		return errors.New("subject is required")
	case strings.TrimSpace(msg.HTML) == "":
		return errors.New("html body is required")
	}
	return nil
}
