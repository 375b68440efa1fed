package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// ClientServiceOptions groups dependencies for ClientService.
type ClientServiceOptions struct {
	Clients   ports.ClientDirectory
	Companies ports.CompanyDirectory
	Admin     ports.IdentityAdmin // nil when no privileged credential is configured
	Dispatch  *Dispatcher
	Logger    *slog.Logger
}

// ClientService creates client profiles on behalf of staff. A client may
// exist without login access; a principal is created only when a password is
// supplied.
type ClientService struct {
	clients   ports.ClientDirectory
	companies ports.CompanyDirectory
	admin     ports.IdentityAdmin
	dispatch  *Dispatcher
	logger    *slog.Logger
}

// NewClientService constructs a ClientService.
func NewClientService(opts ClientServiceOptions) *ClientService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientService{
		clients:   opts.Clients,
		companies: opts.Companies,
		admin:     opts.Admin,
		dispatch:  opts.Dispatch,
		logger:    logger.With("component", "clients"),
	}
}

// CreateClientInput groups parameters for creating a client profile.
type CreateClientInput struct {
	Name      string
	Email     string
	Phone     *string
	Address   *string
	CompanyID *string
	// Password, when set, creates a pre-confirmed principal so the client
	// can sign in immediately.
	Password string
}

// Create inserts the client profile, optionally pairs it with a principal,
// and queues a welcome notification. The principal link is set only after the
// auth side has been verifiably created.
func (s *ClientService) Create(ctx context.Context, in CreateClientInput) (*identity.ClientProfile, error) {
	email := identity.NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "a valid email address is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "client name is required")
	}

	companyID := in.CompanyID
	if companyID == nil {
		company, err := s.companies.FirstActive(ctx)
		if err != nil {
			if !apperrors.IsNotFound(err) {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "company lookup")
			}
			created, insertErr := s.companies.Insert(ctx, placeholderCompanyName)
			if insertErr != nil {
				return nil, apperrors.Wrap(insertErr, apperrors.ErrCodeInternal, "create placeholder company")
			}
			companyID = &created.ID
		} else {
			companyID = &company.ID
		}
	}

	var principalID *string
	if in.Password != "" {
		if s.admin == nil {
			return nil, apperrors.
				New(apperrors.ErrCodeConfiguration, "client login requires the privileged provider credential").
				WithRemediation("set the provider service key, or create the client without a password")
		}
		principal, err := s.admin.CreateUser(ctx, ports.CreateUserInput{
			Email:     email,
			Password:  in.Password,
			Confirmed: true,
		})
		if err != nil {
			if ports.ProviderErrorIs(err, ports.KindAlreadyExists) {
				return nil, apperrors.New(apperrors.ErrCodeConflict, "an account with this email already exists")
			}
			return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthProvider, "create client credential")
		}
		principalID = &principal.ID
	}

	profile, err := s.clients.Insert(ctx, &identity.ClientProfile{
		PrincipalID: principalID,
		CompanyID:   *companyID,
		Email:       email,
		Name:        strings.TrimSpace(in.Name),
		Phone:       in.Phone,
		Address:     in.Address,
		IsActive:    true,
	})
	if err != nil {
		if principalID != nil {
			// Orphaned principal; surfaced with the values needed for
			// manual repair, not rolled back.
			return nil, apperrors.
				Wrap(err, apperrors.ErrCodeProvisioning, "client insert failed after credential creation").
				WithRemediation("insert a client row manually: principal_id=%s email=%s", *principalID, email)
		}
		return nil, err
	}

	if s.dispatch != nil {
		if _, dispatchErr := s.dispatch.EnqueueWelcome(ctx, profile.Email); dispatchErr != nil {
			s.logger.WarnContext(ctx, "welcome dispatch enqueue failed",
				"client_id", profile.ID, "err", dispatchErr)
		}
	}

	s.logger.InfoContext(ctx, "created client profile",
		"client_id", profile.ID, "email", email, "has_login", principalID != nil)
	return profile, nil
}
