package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, AuthModeGoTrue, cfg.Auth.Mode)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "0 8 * * *", cfg.Reminder.Schedule)
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsDispatcherEnabled())
	assert.True(t, cfg.IsReminderEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("AUTH_PROVIDER_BASE_URL", "http://auth.internal:9999")
	t.Setenv("AUTH_PROVIDER_SERVICE_KEY", "svc-key")
	t.Setenv("ADMIN_EMAIL", "admin@arkline.test")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVICES", "http,dispatcher")
	t.Setenv("NOTIFICATIONS_ENABLED", "true")
	t.Setenv("NOTIFICATIONS_WEBHOOK_URLS", "https://hooks.example.com/a; https://hooks.example.com/b")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, AuthModeDev, cfg.Auth.Mode)
	assert.Equal(t, "http://auth.internal:9999", cfg.Auth.Provider.BaseURL)
	assert.Equal(t, "svc-key", cfg.Auth.Provider.ServiceKey)
	assert.Equal(t, "admin@arkline.test", cfg.Auth.AdminEmail)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.False(t, cfg.IsReminderEnabled())
	assert.True(t, cfg.Observability.Notifications.IsEnabled())
	assert.Equal(t, []string{"https://hooks.example.com/a", "https://hooks.example.com/b"},
		cfg.Observability.Notifications.WebhookURLs)
}

func TestInvalidAuthMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "ldap")
	var cfg AppConfig
	assert.Error(t, env.Parse(&cfg))
}

func TestParseServices(t *testing.T) {
	services, err := ParseServices("http, dispatcher")
	require.NoError(t, err)
	assert.True(t, services[ServiceModeHTTP])
	assert.True(t, services[ServiceModeDispatcher])
	assert.False(t, services[ServiceModeReminder])

	_, err = ParseServices("")
	assert.Error(t, err)

	_, err = ParseServices("http,bogus")
	assert.Error(t, err)
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestNotificationsSanitize(t *testing.T) {
	c := NotificationsConfig{Enabled: true, Timeout: -1, RetryLimit: -5, WebhookURLs: []string{" ", ""}}
	c.Sanitize()
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Zero(t, c.RetryLimit)
	assert.False(t, c.IsEnabled())
}
