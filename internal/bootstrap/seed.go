package bootstrap

import (
	"context"
	"log/slog"

	"github.com/arkline/erp-api/config"
	"github.com/arkline/erp-api/internal/devseed"
)

// SeedDevData populates demo records in dev mode. Failures are reported but
// should not stop the server from starting.
func SeedDevData(ctx context.Context, cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) error {
	return devseed.Run(ctx, devseed.Options{
		Admin:      services.Identity.Admin,
		Companies:  services.Companies,
		Directory:  services.ClientDirectory,
		Clients:    services.Clients,
		Invoices:   services.Invoices,
		AdminEmail: cfg.Auth.AdminEmail,
		Logger:     logger,
	})
}
