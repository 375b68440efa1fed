// Package config holds environment-driven configuration for the ERP API and
// the mail relay. Values load through github.com/caarlos0/env; Sanitize
// applies guardrails after parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration, composed from the
// domain-specific files in this package:
//   - auth.go: identity provider and session configuration
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
//   - mailer.go: mail relay client, reminder sweep, and SMTP upstream
//   - observability.go: ops failure notifications
type AppConfig struct {
	// IsDev controls development behavior (dev auth provider, relaxed
	// cookies). Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Mailer   MailerConfig
	Reminder ReminderConfig

	Observability ObservabilityConfig

	// Services is the comma-delimited list of services this process runs.
	Services string `env:"SERVICES" envDefault:"http,dispatcher,reminder"`
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Reminder.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks NODE_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatcher runs the notification queue worker.
	ServiceModeDispatcher ServiceMode = "dispatcher"
	// ServiceModeReminder runs the overdue-invoice reminder scheduler.
	ServiceModeReminder ServiceMode = "reminder"
)

// ParseServices parses a comma-delimited string of service names, validating
// each against the known modes.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)
	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		mode := ServiceMode(name)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatcher, ServiceModeReminder:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, dispatcher, reminder)", name)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the API server is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

// IsDispatcherEnabled returns true if the queue worker is enabled.
func (c *AppConfig) IsDispatcherEnabled() bool { return c.serviceEnabled(ServiceModeDispatcher) }

// IsReminderEnabled returns true if the reminder scheduler is enabled.
func (c *AppConfig) IsReminderEnabled() bool { return c.serviceEnabled(ServiceModeReminder) }
