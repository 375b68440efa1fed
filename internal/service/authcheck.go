package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// ErrUnauthenticated is returned by CheckAuth when no valid session exists.
var ErrUnauthenticated = apperrors.New(apperrors.ErrCodeInvalidCredentials, "not authenticated")

// AuthCheckerOptions groups dependencies for AuthChecker.
type AuthCheckerOptions struct {
	Sessions ports.SessionStore
	Cache    ports.CheckCache
	Provider ports.IdentityProvider
	Admin    ports.IdentityAdmin // nil skips principal verification
	Staff    ports.StaffDirectory
	Clients  ports.ClientDirectory
	Logger   *slog.Logger
}

// AuthChecker answers "is this session still valid" on every navigation. A
// short-TTL cache short-circuits the provider round-trip; the cache is an
// optimization only, never a source of truth.
type AuthChecker struct {
	sessions ports.SessionStore
	cache    ports.CheckCache
	provider ports.IdentityProvider
	admin    ports.IdentityAdmin
	staff    ports.StaffDirectory
	clients  ports.ClientDirectory
	logger   *slog.Logger
}

// NewAuthChecker constructs an AuthChecker.
func NewAuthChecker(opts AuthCheckerOptions) *AuthChecker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthChecker{
		sessions: opts.Sessions,
		cache:    opts.Cache,
		provider: opts.Provider,
		admin:    opts.Admin,
		staff:    opts.Staff,
		clients:  opts.Clients,
		logger:   logger.With("component", "authcheck"),
	}
}

// CheckResult is the outcome of an auth check. Degraded means the principal
// was verified but the fresh profile fetch failed, so the session's own data
// is being served as a stale fallback.
type CheckResult struct {
	Session  identity.Session
	Profile  *identity.ReconciledIdentity
	Degraded bool
}

// CheckAuth validates the session. On a cache hit the session is trusted
// outright. On a miss, one consolidated provider lookup verifies the
// principal still exists; a missing principal invalidates session and cache
// together.
func (c *AuthChecker) CheckAuth(ctx context.Context, sessionID string) (*CheckResult, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "session lookup")
	}

	if hit, cacheErr := c.cache.Matches(ctx, sess.UserID); cacheErr == nil && hit {
		return &CheckResult{Session: sess}, nil
	} else if cacheErr != nil {
		c.logger.WarnContext(ctx, "check cache read failed", "err", cacheErr)
	}

	if verifyErr := c.verifyPrincipal(ctx, sess); verifyErr != nil {
		return nil, verifyErr
	}

	result := &CheckResult{Session: sess}
	profile, profileErr := c.freshProfile(ctx, sess)
	switch {
	case profileErr == nil:
		result.Profile = profile
	case apperrors.IsAccountBanned(profileErr):
		c.invalidate(ctx, sess)
		return nil, profileErr
	default:
		// Stale session data serves as the degraded-mode fallback.
		c.logger.WarnContext(ctx, "fresh profile fetch failed; serving stale session data",
			"user_id", sess.UserID, "err", profileErr)
		result.Degraded = true
	}

	if rememberErr := c.cache.Remember(ctx, sess.UserID); rememberErr != nil {
		c.logger.WarnContext(ctx, "check cache write failed", "err", rememberErr)
	}
	return result, nil
}

// verifyPrincipal performs the consolidated provider lookup. A definitively
// missing principal clears session and cache; provider trouble is tolerated.
func (c *AuthChecker) verifyPrincipal(ctx context.Context, sess identity.Session) error {
	if c.admin == nil {
		return nil
	}
	_, err := c.admin.FindByEmail(ctx, sess.Email)
	if err == nil {
		return nil
	}
	if ports.ProviderErrorIs(err, ports.KindNotFound) {
		c.invalidate(ctx, sess)
		return ErrUnauthenticated
	}
	c.logger.WarnContext(ctx, "principal verification failed; keeping session",
		"user_id", sess.UserID, "err", err)
	return nil
}

// freshProfile re-resolves the profile behind the session, client first.
func (c *AuthChecker) freshProfile(ctx context.Context, sess identity.Session) (*identity.ReconciledIdentity, error) {
	client, err := c.clients.GetActiveByEmail(ctx, sess.Email)
	if err == nil {
		first, last := splitName(client.Name)
		return &identity.ReconciledIdentity{
			ProfileID:   client.ID,
			StoredID:    client.ID,
			PrincipalID: sess.UserID,
			Email:       client.Email,
			Role:        identity.RoleClient,
			CompanyID:   &client.CompanyID,
			FirstName:   first,
			LastName:    last,
		}, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	staff, err := c.staff.GetByEmail(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if staff.Role == identity.RoleStaff && staff.IsBanned {
		if signOutErr := c.provider.SignOut(ctx, sess.UserID); signOutErr != nil {
			c.logger.WarnContext(ctx, "forced sign-out failed", "user_id", sess.UserID, "err", signOutErr)
		}
		return nil, apperrors.New(apperrors.ErrCodeAccountBanned, "this account has been suspended")
	}
	return &identity.ReconciledIdentity{
		ProfileID:   sess.UserID,
		StoredID:    staff.ID,
		PrincipalID: sess.UserID,
		Email:       staff.Email,
		Role:        staff.Role,
		CompanyID:   staff.CompanyID,
		FirstName:   staff.FirstName,
		LastName:    staff.LastName,
	}, nil
}

// Logout invalidates the session and check cache together and revokes the
// provider session best-effort.
func (c *AuthChecker) Logout(ctx context.Context, sess identity.Session) error {
	c.invalidate(ctx, sess)
	if err := c.provider.SignOut(ctx, sess.UserID); err != nil {
		c.logger.WarnContext(ctx, "provider sign-out failed", "user_id", sess.UserID, "err", err)
	}
	return nil
}

func (c *AuthChecker) invalidate(ctx context.Context, sess identity.Session) {
	if err := c.sessions.Delete(ctx, sess.ID); err != nil {
		c.logger.WarnContext(ctx, "session delete failed", "session_id", sess.ID, "err", err)
	}
	if err := c.cache.Forget(ctx, sess.UserID); err != nil {
		c.logger.WarnContext(ctx, "check cache forget failed", "user_id", sess.UserID, "err", err)
	}
}
