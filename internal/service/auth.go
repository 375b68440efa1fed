package service

// Package service contains the orchestration layer: identity reconciliation,
// auth checks, and the notification dispatch pipeline.

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

const (
	// signInAttempts is the total attempt budget for the provider sign-in
	// call: one initial attempt plus two retries on transient failures.
	signInAttempts = 3

	// retryBackoffUnit is multiplied by the attempt number between retries.
	retryBackoffUnit = 500 * time.Millisecond

	defaultSessionTTL = 8 * time.Hour

	placeholderCompanyName = "My Company"
)

// ReconcilerOptions groups dependencies for Reconciler.
type ReconcilerOptions struct {
	Provider  ports.IdentityProvider
	Admin     ports.IdentityAdmin // nil when no privileged credential is configured
	Staff     ports.StaffDirectory
	Clients   ports.ClientDirectory
	Companies ports.CompanyDirectory
	Sessions  ports.SessionStore

	// Dispatch, when set, queues the notice sent after a password reset.
	Dispatch *Dispatcher

	// AdminEmail is the configured administrator address used for role
	// inference during auto-provisioning.
	AdminEmail string

	SessionTTL time.Duration
	Logger     *slog.Logger

	// BackoffUnit overrides the retry backoff unit; tests shorten it.
	BackoffUnit time.Duration
}

// Reconciler maps verified principals to exactly one profile, repairing
// inconsistencies (missing links, mismatched ids, unconfirmed credentials) as
// a side effect of login. Repairs are sequential and non-transactional;
// partial repair is a reportable failure mode, not a rolled-back one.
type Reconciler struct {
	provider   ports.IdentityProvider
	admin      ports.IdentityAdmin
	staff      ports.StaffDirectory
	clients    ports.ClientDirectory
	companies  ports.CompanyDirectory
	sessions   ports.SessionStore
	dispatch   *Dispatcher
	adminEmail string
	sessionTTL time.Duration
	backoff    time.Duration
	logger     *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	backoff := opts.BackoffUnit
	if backoff <= 0 {
		backoff = retryBackoffUnit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		provider:   opts.Provider,
		admin:      opts.Admin,
		staff:      opts.Staff,
		clients:    opts.Clients,
		companies:  opts.Companies,
		sessions:   opts.Sessions,
		dispatch:   opts.Dispatch,
		adminEmail: identity.NormalizeEmail(opts.AdminEmail),
		sessionTTL: ttl,
		backoff:    backoff,
		logger:     logger.With("component", "reconciler"),
	}
}

// AuthenticateResult is the outcome of a successful login.
type AuthenticateResult struct {
	Identity identity.ReconciledIdentity
	Session  identity.Session
}

// Authenticate verifies credentials against the identity provider and
// resolves the authenticated principal to exactly one profile. Calling it
// twice with the same valid credentials yields an equivalent profile; repairs
// converge rather than diverge.
func (r *Reconciler) Authenticate(ctx context.Context, email, password string) (*AuthenticateResult, error) {
	normalized := identity.NormalizeEmail(email)
	if !strings.Contains(normalized, "@") {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "a valid email address is required")
	}
	if password == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "password is required")
	}

	principal, err := r.verifyCredentials(ctx, normalized, password)
	if err != nil {
		return nil, err
	}

	reconciled, err := r.resolveProfile(ctx, principal, normalized)
	if err != nil {
		return nil, err
	}

	sess := identity.Session{
		ID:        uuid.NewString(),
		UserID:    reconciled.ProfileID,
		Email:     reconciled.Email,
		Role:      reconciled.Role,
		FirstName: reconciled.FirstName,
		LastName:  reconciled.LastName,
		ExpiresAt: time.Now().Add(r.sessionTTL),
	}
	if saveErr := r.sessions.Save(ctx, sess); saveErr != nil {
		return nil, apperrors.Wrap(saveErr, apperrors.ErrCodeInternal, "save session")
	}

	return &AuthenticateResult{Identity: reconciled, Session: sess}, nil
}

// verifyCredentials runs the provider sign-in with the retry budget, then the
// repair ladder for unconfirmed credentials and missing principals.
func (r *Reconciler) verifyCredentials(ctx context.Context, email, password string) (identity.Principal, error) {
	principal, err := r.signInWithRetry(ctx, email, password)
	if err == nil {
		return principal, nil
	}

	switch {
	case ports.ProviderErrorIs(err, ports.KindEmailNotConfirmed):
		return r.repairUnconfirmed(ctx, email, password)

	case ports.ProviderErrorIs(err, ports.KindInvalidCredentials):
		return r.repairMissingPrincipal(ctx, email, password)

	case ports.ProviderErrorIs(err, ports.KindTransient):
		return identity.Principal{}, apperrors.
			Wrap(err, apperrors.ErrCodeAuthProvider, "identity provider unreachable").
			WithRemediation("the provider did not respond after %d attempts; check connectivity and retry", signInAttempts)

	default:
		return identity.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeAuthProvider, "sign-in failed")
	}
}

// signInWithRetry attempts the provider sign-in up to signInAttempts times,
// retrying only transient failures with linear backoff (attempt x unit).
func (r *Reconciler) signInWithRetry(ctx context.Context, email, password string) (identity.Principal, error) {
	var lastErr error
	for attempt := 1; attempt <= signInAttempts; attempt++ {
		principal, err := r.provider.SignIn(ctx, email, password)
		if err == nil {
			return principal, nil
		}
		lastErr = err

		if !ports.ProviderErrorIs(err, ports.KindTransient) || attempt == signInAttempts {
			break
		}

		r.logger.WarnContext(ctx, "transient sign-in failure, retrying",
			"attempt", attempt, "err", err)
		select {
		case <-time.After(time.Duration(attempt) * r.backoff):
		case <-ctx.Done():
			return identity.Principal{}, ctx.Err()
		}
	}
	return identity.Principal{}, lastErr
}

// repairUnconfirmed force-confirms the credential through the privileged
// channel and retries the sign-in once.
func (r *Reconciler) repairUnconfirmed(ctx context.Context, email, password string) (identity.Principal, error) {
	if r.admin == nil {
		return identity.Principal{}, apperrors.
			New(apperrors.ErrCodeConfiguration, "credential is unconfirmed and no privileged credential is configured").
			WithRemediation("set the provider service key so unconfirmed accounts can be repaired at login")
	}

	principal, err := r.admin.FindByEmail(ctx, email)
	if err != nil {
		return identity.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeAuthProvider, "locate unconfirmed principal")
	}
	if confirmErr := r.admin.Confirm(ctx, principal.ID); confirmErr != nil {
		return identity.Principal{}, apperrors.Wrap(confirmErr, apperrors.ErrCodeAuthProvider, "confirm credential")
	}
	r.logger.InfoContext(ctx, "force-confirmed unconfirmed credential", "principal_id", principal.ID)

	repaired, retryErr := r.provider.SignIn(ctx, email, password)
	if retryErr != nil {
		return identity.Principal{}, r.mapSignInError(retryErr)
	}
	return repaired, nil
}

// repairMissingPrincipal handles "invalid credentials" when a staff profile
// already exists for the email (imported data without an auth side): it
// creates the principal pre-confirmed with the presented password and retries
// once. A provider-side "already exists" means the password is simply wrong.
func (r *Reconciler) repairMissingPrincipal(ctx context.Context, email, password string) (identity.Principal, error) {
	invalid := apperrors.New(apperrors.ErrCodeInvalidCredentials, "invalid email or password")

	profile, lookupErr := r.staff.GetByEmail(ctx, email)
	if lookupErr != nil {
		if apperrors.IsNotFound(lookupErr) {
			return identity.Principal{}, invalid
		}
		return identity.Principal{}, apperrors.Wrap(lookupErr, apperrors.ErrCodeInternal, "staff lookup during repair")
	}

	if r.admin == nil {
		return identity.Principal{}, apperrors.
			New(apperrors.ErrCodeConfiguration, "profile exists without a credential and no privileged credential is configured").
			WithRemediation("set the provider service key so missing principals can be created at login")
	}

	_, createErr := r.admin.CreateUser(ctx, ports.CreateUserInput{
		Email:     email,
		Password:  password,
		Confirmed: true,
	})
	if createErr != nil {
		if ports.ProviderErrorIs(createErr, ports.KindAlreadyExists) {
			return identity.Principal{}, invalid
		}
		return identity.Principal{}, apperrors.Wrap(createErr, apperrors.ErrCodeAuthProvider, "create principal during repair")
	}
	r.logger.InfoContext(ctx, "created missing principal for existing profile",
		"email", email, "staff_id", profile.ID)

	repaired, retryErr := r.provider.SignIn(ctx, email, password)
	if retryErr != nil {
		return identity.Principal{}, r.mapSignInError(retryErr)
	}
	return repaired, nil
}

func (r *Reconciler) mapSignInError(err error) error {
	if ports.ProviderErrorIs(err, ports.KindInvalidCredentials) {
		return apperrors.New(apperrors.ErrCodeInvalidCredentials, "invalid email or password")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeAuthProvider, "sign-in failed after repair")
}

// resolveProfile maps the principal to its authoritative profile. Client
// lookup runs first and wins; staff resolution tolerates id mismatches; no
// profile at all triggers auto-provisioning.
func (r *Reconciler) resolveProfile(ctx context.Context, principal identity.Principal, email string) (identity.ReconciledIdentity, error) {
	if reconciled, found, err := r.resolveClient(ctx, principal, email); err != nil || found {
		return reconciled, err
	}
	if reconciled, found, err := r.resolveStaff(ctx, principal, email); err != nil || found {
		return reconciled, err
	}
	return r.provisionStaff(ctx, principal, email)
}

func (r *Reconciler) resolveClient(ctx context.Context, principal identity.Principal, email string) (identity.ReconciledIdentity, bool, error) {
	client, err := r.clients.GetActiveByPrincipalID(ctx, principal.ID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return identity.ReconciledIdentity{}, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "client lookup")
		}
		client, err = r.clients.GetActiveByEmail(ctx, email)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return identity.ReconciledIdentity{}, false, nil
			}
			return identity.ReconciledIdentity{}, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "client lookup")
		}
	}

	// Backfill the principal link when missing. Best effort: a failure is
	// logged and does not fail the login.
	if client.PrincipalID == nil || *client.PrincipalID == "" {
		if backfillErr := r.clients.SetPrincipalID(ctx, client.ID, principal.ID); backfillErr != nil {
			r.logger.WarnContext(ctx, "principal backfill failed",
				"client_id", client.ID, "principal_id", principal.ID, "err", backfillErr)
		} else {
			r.logger.InfoContext(ctx, "backfilled client principal link",
				"client_id", client.ID, "principal_id", principal.ID)
		}
	}

	first, last := splitName(client.Name)
	return identity.ReconciledIdentity{
		ProfileID:   client.ID,
		StoredID:    client.ID,
		PrincipalID: principal.ID,
		Email:       client.Email,
		Role:        identity.RoleClient,
		CompanyID:   &client.CompanyID,
		FirstName:   first,
		LastName:    last,
	}, true, nil
}

func (r *Reconciler) resolveStaff(ctx context.Context, principal identity.Principal, email string) (identity.ReconciledIdentity, bool, error) {
	// Email is the primary key for this phase; it survives id/principal
	// mismatches. The id lookup is the fallback.
	profile, err := r.staff.GetByEmail(ctx, email)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return identity.ReconciledIdentity{}, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "staff lookup")
		}
		profile, err = r.staff.GetByID(ctx, principal.ID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return identity.ReconciledIdentity{}, false, nil
			}
			return identity.ReconciledIdentity{}, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "staff lookup")
		}
	}

	if profile.Role == identity.RoleStaff && profile.IsBanned {
		// Force sign-out so the banned principal holds no provider session.
		if signOutErr := r.provider.SignOut(ctx, principal.ID); signOutErr != nil {
			r.logger.WarnContext(ctx, "forced sign-out failed", "principal_id", principal.ID, "err", signOutErr)
		}
		return identity.ReconciledIdentity{}, false, apperrors.
			New(apperrors.ErrCodeAccountBanned, "this account has been suspended").
			WithRemediation("contact an administrator to restore access")
	}

	reconciled := identity.ReconciledIdentity{
		ProfileID:   principal.ID,
		StoredID:    profile.ID,
		PrincipalID: principal.ID,
		Email:       profile.Email,
		Role:        profile.Role,
		CompanyID:   profile.CompanyID,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
	}
	if reconciled.IDRelabeled() {
		// Deliberately never written back: primary keys stay untouched and
		// the mismatch remains visible on the value type.
		r.logger.WarnContext(ctx, "staff id differs from principal id; relabeling in-memory only",
			"staff_id", profile.ID, "principal_id", principal.ID)
	}
	return reconciled, true, nil
}

// provisionStaff auto-creates a staff profile for a principal with no
// matching profile. Role is Admin when the email matches the configured
// administrator address.
func (r *Reconciler) provisionStaff(ctx context.Context, principal identity.Principal, email string) (identity.ReconciledIdentity, error) {
	role := identity.RoleStaff
	if r.adminEmail != "" && email == r.adminEmail {
		role = identity.RoleAdmin
	}

	principalID := principal.ID
	created, err := r.staff.Insert(ctx, &identity.StaffProfile{
		ID:          principalID,
		PrincipalID: &principalID,
		Email:       email,
		Role:        role,
		FirstName:   principal.FirstName,
		LastName:    principal.LastName,
	})
	if err != nil {
		return identity.ReconciledIdentity{}, apperrors.
			Wrap(err, apperrors.ErrCodeProvisioning, "auto-provision staff profile").
			WithRemediation("insert a staff row manually: id=%s email=%s role=%s", principalID, email, role)
	}
	r.logger.InfoContext(ctx, "auto-provisioned staff profile",
		"staff_id", created.ID, "email", email, "role", role)

	return identity.ReconciledIdentity{
		ProfileID:   principal.ID,
		StoredID:    created.ID,
		PrincipalID: principal.ID,
		Email:       created.Email,
		Role:        created.Role,
		CompanyID:   created.CompanyID,
		FirstName:   created.FirstName,
		LastName:    created.LastName,
	}, nil
}

// splitName breaks a display name into first/last on the first space.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
