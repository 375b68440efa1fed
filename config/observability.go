package config

import (
	"strings"
	"time"
)

// ObservabilityConfig groups configuration for ops failure fan-out.
type ObservabilityConfig struct {
	Notifications NotificationsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Notifications.Sanitize()
}

// NotificationsConfig controls outbound dispatch-failure notifications.
type NotificationsConfig struct {
	Enabled    bool          `env:"NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration `env:"NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int           `env:"NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`

	// WebhookURLs is a semicolon-delimited list of endpoints that receive
	// the dispatch-failure payload.
	WebhookURLs []string `env:"NOTIFICATIONS_WEBHOOK_URLS" envSeparator:";"`
}

// Sanitize normalises notification configuration values.
func (c *NotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}

	urls := c.WebhookURLs[:0]
	for _, u := range c.WebhookURLs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	c.WebhookURLs = urls
	if len(c.WebhookURLs) == 0 {
		c.Enabled = false
	}
}

// IsEnabled returns true when failure fan-out is active after sanitisation.
func (c *NotificationsConfig) IsEnabled() bool {
	return c.Enabled && len(c.WebhookURLs) > 0
}
