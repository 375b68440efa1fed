package config

import "time"

// MailerConfig contains the mail relay client settings used by the API
// process's dispatch worker.
type MailerConfig struct {
	// RelayURL is the mail relay service root.
	RelayURL string `env:"MAILER_RELAY_URL" envDefault:"http://localhost:8190"`

	// RelayToken, when set, is presented as a bearer credential on sends.
	RelayToken string `env:"MAILER_RELAY_TOKEN"`

	// SenderName appears in email subjects and sign-offs.
	SenderName string `env:"MAILER_SENDER_NAME"`

	// PollInterval controls how often the dispatch worker polls an empty
	// queue.
	PollInterval time.Duration `env:"MAILER_POLL_INTERVAL" envDefault:"2s"`
}

// ReminderConfig controls the overdue-invoice reminder sweep.
type ReminderConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string `env:"REMINDER_SCHEDULE" envDefault:"0 8 * * *"`

	// BatchLimit caps how many invoices one sweep queues.
	BatchLimit int `env:"REMINDER_BATCH_LIMIT" envDefault:"50"`
}

// Sanitize applies guardrails to reminder configuration values.
func (r *ReminderConfig) Sanitize() {
	if r.BatchLimit <= 0 {
		r.BatchLimit = 50
	}
}

// RelayConfig is the standalone mail relay service configuration, loaded by
// the mailrelay binary.
type RelayConfig struct {
	// Addr is the address the relay binds to.
	Addr string `env:"RELAY_HTTP_ADDR" envDefault:":8190"`

	// JWTSecret, when set, requires a valid HS256 bearer token on sends.
	JWTSecret string `env:"RELAY_JWT_SECRET"`

	SMTP RelaySMTPConfig `envPrefix:"SMTP_"`
}

// RelaySMTPConfig contains the SMTP upstream settings.
type RelaySMTPConfig struct {
	Host     string `env:"HOST,required"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USER"`
	Password string `env:"PASSWORD"`

	FromAddress string `env:"FROM_ADDRESS,required"`
	FromName    string `env:"FROM_NAME" envDefault:"Arkline Billing"`

	// UnsubscribeMailto, when set, is advertised in a List-Unsubscribe
	// header on every message.
	UnsubscribeMailto string `env:"UNSUBSCRIBE_MAILTO"`
}
