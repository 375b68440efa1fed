package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/arkline/erp-api/config"
	"github.com/arkline/erp-api/internal/adapters/delivery"
	redisadapters "github.com/arkline/erp-api/internal/adapters/redis"
	"github.com/arkline/erp-api/internal/adapters/scheduler"
	"github.com/arkline/erp-api/internal/data"
	"github.com/arkline/erp-api/internal/observability/notify"
	"github.com/arkline/erp-api/internal/observability/notify/webhook"
	"github.com/arkline/erp-api/internal/ports"
	"github.com/arkline/erp-api/internal/render"
	"github.com/arkline/erp-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth       *service.Reconciler
	Checker    *service.AuthChecker
	Invoices   *service.InvoiceService
	Clients    *service.ClientService
	Dispatcher *service.Dispatcher
	Reminder   *scheduler.Reminder

	// Identity and the raw directories are retained for dev seeding, which
	// must write through the same provider instance the services hold.
	Identity        IdentityBundle
	Companies       ports.CompanyDirectory
	ClientDirectory ports.ClientDirectory
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Staff      *data.StaffRepo
	Clients    *data.ClientRepo
	Companies  *data.CompanyRepo
	Invoices   *data.InvoiceRepo
	Dispatches *data.DispatchRepo

	Sessions   *redisadapters.SessionStore
	CheckCache *redisadapters.CheckCache
}

func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	return &serviceRepositories{
		Staff:      data.NewStaffRepo(db),
		Clients:    data.NewClientRepo(db),
		Companies:  data.NewCompanyRepo(db),
		Invoices:   data.NewInvoiceRepo(db),
		Dispatches: data.NewDispatchRepo(db),
		Sessions:   redisadapters.NewSessionStore(redisClient),
		CheckCache: redisadapters.NewCheckCache(redisClient),
	}
}

// buildFailureSinks constructs the ops webhook sinks for dispatch failures.
func buildFailureSinks(cfg config.NotificationsConfig, logger *slog.Logger) []notify.Sink {
	if !cfg.IsEnabled() {
		return nil
	}

	sinks := make([]notify.Sink, 0, len(cfg.WebhookURLs))
	for _, url := range cfg.WebhookURLs {
		client, err := webhook.NewClient(webhook.Config{
			URL:        url,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise failure webhook", "url", url, "error", err)
			continue
		}
		sinks = append(sinks, client)
	}
	return sinks
}

// NewServices wires repositories, adapters, and domain services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, fmt.Errorf("service deps and config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	identity, err := BuildIdentity(cfg.Auth, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	repos := buildRepositories(deps.DB, deps.RedisClient)

	relay, err := delivery.NewClient(delivery.Config{
		BaseURL: cfg.Mailer.RelayURL,
		Token:   cfg.Mailer.RelayToken,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build mail relay client: %w", err)
	}

	dispatcher := service.NewDispatcher(service.DispatcherOptions{
		Store:        repos.Dispatches,
		Invoices:     repos.Invoices,
		Delivery:     relay,
		Renderer:     render.NewPDFRenderer(),
		Composer:     render.NewComposer(cfg.Mailer.SenderName),
		Sinks:        buildFailureSinks(cfg.Observability.Notifications, logger),
		PollInterval: cfg.Mailer.PollInterval,
		Logger:       logger,
	})

	reconciler := service.NewReconciler(service.ReconcilerOptions{
		Provider:   identity.Provider,
		Admin:      identity.Admin,
		Staff:      repos.Staff,
		Clients:    repos.Clients,
		Companies:  repos.Companies,
		Sessions:   repos.Sessions,
		Dispatch:   dispatcher,
		AdminEmail: cfg.Auth.AdminEmail,
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	})

	checker := service.NewAuthChecker(service.AuthCheckerOptions{
		Sessions: repos.Sessions,
		Cache:    repos.CheckCache,
		Provider: identity.Provider,
		Admin:    identity.Admin,
		Staff:    repos.Staff,
		Clients:  repos.Clients,
		Logger:   logger,
	})

	invoices := service.NewInvoiceService(service.InvoiceServiceOptions{
		Store:    repos.Invoices,
		Dispatch: dispatcher,
		Logger:   logger,
	})

	clients := service.NewClientService(service.ClientServiceOptions{
		Clients:   repos.Clients,
		Companies: repos.Companies,
		Admin:     identity.Admin,
		Dispatch:  dispatcher,
		Logger:    logger,
	})

	reminder, err := scheduler.NewReminder(scheduler.ReminderOptions{
		Invoices:   repos.Invoices,
		Queue:      dispatcher,
		Schedule:   cfg.Reminder.Schedule,
		BatchLimit: cfg.Reminder.BatchLimit,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build reminder scheduler: %w", err)
	}

	return ServiceContainer{
		Auth:            reconciler,
		Checker:         checker,
		Invoices:        invoices,
		Clients:         clients,
		Dispatcher:      dispatcher,
		Reminder:        reminder,
		Identity:        identity,
		Companies:       repos.Companies,
		ClientDirectory: repos.Clients,
	}, nil
}
