package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider backing the application.
type AuthMode string

const (
	// AuthModeGoTrue uses the hosted GoTrue-compatible auth service.
	AuthModeGoTrue AuthMode = "gotrue"
	// AuthModeDev uses the in-memory dev provider (development only).
	AuthModeDev AuthMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "gotrue", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: gotrue, dev)", v)
	}
}

// ProviderConfig contains the hosted auth service connection settings.
type ProviderConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:9999"`

	// APIKey is the public (anon) key sent on unprivileged calls.
	APIKey string `env:"API_KEY"`

	// ServiceKey is the privileged credential for admin calls (confirm,
	// create-user, lookups). Leave empty to disable the privileged channel;
	// login-time repairs then fail with a configuration error.
	ServiceKey string `env:"SERVICE_KEY"`

	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"gotrue"`

	Provider ProviderConfig `envPrefix:"AUTH_PROVIDER_"`

	// AdminEmail is the address granted the admin role when its staff
	// profile is auto-provisioned at first login.
	AdminEmail string `env:"ADMIN_EMAIL"`

	// SessionTTL bounds how long a login session lives.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`
}
