// Package devseed populates a development environment with a sign-in-able
// admin, a demo company, a demo client, and a sample invoice. Seeding is
// idempotent: records that already exist are left alone.
package devseed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
	"github.com/arkline/erp-api/internal/service"
)

// DefaultPassword is the well-known password for every seeded login.
const DefaultPassword = "devpassword"

// Options groups the dependencies devseed writes through. Everything goes via
// the same services the API uses, so seeding exercises the real validation
// paths.
type Options struct {
	Admin     ports.IdentityAdmin
	Companies ports.CompanyDirectory
	Directory ports.ClientDirectory
	Clients   *service.ClientService
	Invoices  *service.InvoiceService

	// AdminEmail receives a confirmed principal so the configured admin can
	// log straight in.
	AdminEmail string

	Logger *slog.Logger
}

// Run executes the development seeding workflow.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devseed")

	failures := 0
	failures += seedAdminPrincipal(ctx, opts, logger)
	failures += seedCompany(ctx, opts, logger)

	client := seedClient(ctx, opts, logger)
	if client == nil {
		failures++
	} else {
		failures += seedInvoice(ctx, opts, client.ID, client.CompanyID, logger)
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedAdminPrincipal(ctx context.Context, opts Options, logger *slog.Logger) int {
	if opts.Admin == nil || opts.AdminEmail == "" {
		logger.InfoContext(ctx, "skipping admin principal seed", "reason", "no admin surface or email configured")
		return 0
	}

	_, err := opts.Admin.CreateUser(ctx, ports.CreateUserInput{
		Email:     opts.AdminEmail,
		Password:  DefaultPassword,
		Confirmed: true,
	})
	if err != nil {
		if ports.ProviderErrorIs(err, ports.KindAlreadyExists) {
			logger.InfoContext(ctx, "admin principal already exists", "email", opts.AdminEmail)
			return 0
		}
		logger.ErrorContext(ctx, "failed to seed admin principal", "email", opts.AdminEmail, "error", err)
		return 1
	}
	logger.InfoContext(ctx, "created admin principal", "email", opts.AdminEmail)
	return 0
}

func seedCompany(ctx context.Context, opts Options, logger *slog.Logger) int {
	if _, err := opts.Companies.FirstActive(ctx); err == nil {
		logger.InfoContext(ctx, "company already exists")
		return 0
	} else if !apperrors.IsNotFound(err) {
		logger.ErrorContext(ctx, "failed to look up company", "error", err)
		return 1
	}

	if _, err := opts.Companies.Insert(ctx, "Arkline Demo Ltd"); err != nil {
		logger.ErrorContext(ctx, "failed to seed company", "error", err)
		return 1
	}
	logger.InfoContext(ctx, "created company", "name", "Arkline Demo Ltd")
	return 0
}

func seedClient(ctx context.Context, opts Options, logger *slog.Logger) *identityClient {
	const email = "ama@example.com"

	created, err := opts.Clients.Create(ctx, service.CreateClientInput{
		Name:     "Ama Mensah",
		Email:    email,
		Password: DefaultPassword,
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			logger.InfoContext(ctx, "demo client already exists", "email", email)
			return lookupClient(ctx, opts, email, logger)
		}
		logger.ErrorContext(ctx, "failed to seed demo client", "email", email, "error", err)
		return nil
	}
	logger.InfoContext(ctx, "created demo client", "email", email)
	return &identityClient{ID: created.ID, CompanyID: created.CompanyID}
}

type identityClient struct {
	ID        string
	CompanyID string
}

func lookupClient(ctx context.Context, opts Options, email string, logger *slog.Logger) *identityClient {
	existing, err := opts.Directory.GetActiveByEmail(ctx, email)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load existing demo client", "email", email, "error", err)
		return nil
	}
	return &identityClient{ID: existing.ID, CompanyID: existing.CompanyID}
}

func seedInvoice(ctx context.Context, opts Options, clientID, companyID string, logger *slog.Logger) int {
	due := time.Now().AddDate(0, 0, 14)
	result, err := opts.Invoices.Create(ctx, service.CreateInvoiceInput{
		ClientID:  clientID,
		CompanyID: companyID,
		DueAt:     &due,
		Snapshot: billing.InvoiceSnapshot{
			Number:   "INV-DEV-0001",
			IssuedAt: time.Now(),
			DueAt:    &due,
			BilledTo: billing.Party{
				Name:  "Ama Mensah",
				Email: "ama@example.com",
			},
			BilledFrom: billing.Party{
				Name:  "Arkline Demo Ltd",
				Email: "billing@arkline.test",
			},
			Items: []billing.LineItem{
				{Description: "Consulting", Quantity: 2, UnitPrice: 50, Amount: 100},
			},
			Subtotal:     100,
			Total:        100,
			CurrencyCode: "USD",
			Notes:        "Seeded for local development.",
		},
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			logger.InfoContext(ctx, "demo invoice already exists", "number", "INV-DEV-0001")
			return 0
		}
		logger.ErrorContext(ctx, "failed to seed demo invoice", "error", err)
		return 1
	}
	logger.InfoContext(ctx, "created demo invoice", "id", result.Invoice.ID, "number", result.Invoice.Number)
	return 0
}
