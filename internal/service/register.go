package service

import (
	"context"
	"strings"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// RegisterInput groups parameters for creating a staff/admin account.
type RegisterInput struct {
	Email     string
	Password  string
	Role      identity.Role
	FirstName string
	LastName  string
	JobTitle  *string
	CompanyID *string
}

// Register creates a principal with provider-side confirmation deferred, then
// inserts the staff profile keyed to the new principal's id. If the profile
// insert fails the principal is not rolled back; the error carries the values
// an operator needs to repair the orphan by hand.
func (r *Reconciler) Register(ctx context.Context, in RegisterInput) (*identity.StaffProfile, error) {
	email := identity.NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "a valid email address is required")
	}
	if in.Password == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "password is required")
	}
	role := in.Role
	if role == "" {
		role = identity.RoleStaff
	}
	if role != identity.RoleStaff && role != identity.RoleAdmin {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "role %q cannot be registered here", role)
	}

	principal, err := r.provider.SignUp(ctx, ports.SignUpInput{
		Email:     email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		if ports.ProviderErrorIs(err, ports.KindAlreadyExists) {
			return nil, apperrors.New(apperrors.ErrCodeConflict, "an account with this email already exists")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthProvider, "create credential")
	}

	companyID := in.CompanyID
	if companyID == nil {
		companyID = r.attachCompany(ctx)
	}

	principalID := principal.ID
	profile, insertErr := r.staff.Insert(ctx, &identity.StaffProfile{
		ID:          principalID,
		PrincipalID: &principalID,
		Email:       email,
		Role:        role,
		CompanyID:   companyID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		JobTitle:    in.JobTitle,
	})
	if insertErr != nil {
		// Orphaned principal: credential exists without a profile row.
		return nil, apperrors.
			Wrap(insertErr, apperrors.ErrCodeProvisioning, "profile insert failed after credential creation").
			WithRemediation("insert a staff row manually: id=%s email=%s role=%s", principalID, email, role)
	}

	r.logger.InfoContext(ctx, "registered staff account",
		"staff_id", profile.ID, "email", email, "role", role)
	return profile, nil
}

// attachCompany finds any active company, creating a placeholder when none
// exists. Company assignment is optional at the data level, so every failure
// here degrades to a nil company id.
func (r *Reconciler) attachCompany(ctx context.Context) *string {
	company, err := r.companies.FirstActive(ctx)
	if err == nil {
		return &company.ID
	}
	if !apperrors.IsNotFound(err) {
		r.logger.WarnContext(ctx, "company lookup failed; registering without company", "err", err)
		return nil
	}

	created, insertErr := r.companies.Insert(ctx, placeholderCompanyName)
	if insertErr != nil {
		r.logger.WarnContext(ctx, "placeholder company creation failed; registering without company", "err", insertErr)
		return nil
	}
	r.logger.InfoContext(ctx, "created placeholder company", "company_id", created.ID)
	return &created.ID
}
