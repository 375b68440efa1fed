package bootstrap

import (
	"log/slog"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/config"
)

func testAppConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	var cfg config.AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	cfg.Auth.Mode = config.AuthModeDev
	return &cfg
}

func TestNewServicesWiresContainer(t *testing.T) {
	cfg := testAppConfig(t)

	services, err := NewServices(&ServiceDeps{
		Config: cfg,
		Logger: slog.Default(),
	})
	require.NoError(t, err)

	assert.NotNil(t, services.Auth)
	assert.NotNil(t, services.Checker)
	assert.NotNil(t, services.Invoices)
	assert.NotNil(t, services.Clients)
	assert.NotNil(t, services.Dispatcher)
	assert.NotNil(t, services.Reminder)
}

func TestNewServicesRejectsBadReminderSchedule(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Reminder.Schedule = "not-a-cron-expression"

	_, err := NewServices(&ServiceDeps{Config: cfg})
	assert.Error(t, err)
}

func TestNewServicesRequiresRelayURL(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Mailer.RelayURL = ""

	_, err := NewServices(&ServiceDeps{Config: cfg})
	assert.Error(t, err)
}

func TestNewServicesRequiresConfig(t *testing.T) {
	_, err := NewServices(nil)
	assert.Error(t, err)

	_, err = NewServices(&ServiceDeps{})
	assert.Error(t, err)
}

func TestGetEnabledServicesNames(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Services = "http,reminder"

	names := GetEnabledServices(cfg)
	assert.ElementsMatch(t, []string{"http", "reminder"}, names)

	cfg.Services = "bogus"
	assert.Empty(t, GetEnabledServices(cfg))

	require.Error(t, ValidateServiceConfig(cfg))
}

func TestBuildFailureSinks(t *testing.T) {
	logger := slog.Default()

	sinks := buildFailureSinks(config.NotificationsConfig{}, logger)
	assert.Empty(t, sinks)

	sinks = buildFailureSinks(config.NotificationsConfig{
		Enabled:     true,
		WebhookURLs: []string{"https://hooks.example.com/ops", "https://hooks.example.com/billing"},
	}, logger)
	assert.Len(t, sinks, 2)
}
