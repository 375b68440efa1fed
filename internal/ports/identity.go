package ports

// Package ports defines interfaces (hexagonal ports) for identity and
// delivery behavior. Implementations live in internal/adapters; orchestration
// in internal/service.

import (
	"context"
	"errors"
	"fmt"

	"github.com/arkline/erp-api/internal/domain/identity"
)

// ProviderErrorKind classifies identity provider failures. Adapters assign a
// kind exactly once at the boundary; nothing above the adapter inspects
// provider message strings.
type ProviderErrorKind string

const (
	// KindInvalidCredentials means the provider rejected the email/password pair.
	KindInvalidCredentials ProviderErrorKind = "invalid_credentials"
	// KindEmailNotConfirmed means the credential exists but is unconfirmed.
	KindEmailNotConfirmed ProviderErrorKind = "email_not_confirmed"
	// KindAlreadyExists means a principal with that email already exists.
	KindAlreadyExists ProviderErrorKind = "already_exists"
	// KindNotFound means no principal matched the lookup.
	KindNotFound ProviderErrorKind = "not_found"
	// KindTransient means a network/timeout class failure worth retrying.
	KindTransient ProviderErrorKind = "transient"
	// KindUnknown is any provider failure the adapter could not classify.
	KindUnknown ProviderErrorKind = "unknown"
)

// ProviderError is the typed error returned by identity provider adapters.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("identity provider: %s: %v", e.Message, e.Cause)
	}
	return "identity provider: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ProviderErrorIs reports whether err is a ProviderError of the given kind.
func ProviderErrorIs(err error, kind ProviderErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

// SignUpInput groups parameters for creating a credential at the provider.
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// CreateUserInput groups parameters for the privileged create-user operation.
// Confirmed principals can sign in immediately without an email round-trip.
type CreateUserInput struct {
	Email     string
	Password  string
	Confirmed bool
}

// IdentityProvider is the unprivileged surface of the hosted auth service.
type IdentityProvider interface {
	// SignIn verifies an email/password pair and returns the principal.
	SignIn(ctx context.Context, email, password string) (identity.Principal, error)

	// SignUp creates a credential with provider-side email confirmation
	// disabled; confirmation is this system's responsibility.
	SignUp(ctx context.Context, in SignUpInput) (identity.Principal, error)

	// SignOut revokes the principal's active sessions at the provider.
	SignOut(ctx context.Context, principalID string) error
}

// IdentityAdmin is the privileged surface of the hosted auth service, gated
// behind a service credential that may be absent in some deployments. Callers
// must treat a nil IdentityAdmin as "privileged channel not configured" and
// surface a configuration error rather than panic.
type IdentityAdmin interface {
	// FindByEmail locates a principal by normalized email via the
	// administrative listing call.
	FindByEmail(ctx context.Context, email string) (identity.Principal, error)

	// CreateUser creates a principal, optionally pre-confirmed.
	CreateUser(ctx context.Context, in CreateUserInput) (identity.Principal, error)

	// UpdatePassword sets a principal's password.
	UpdatePassword(ctx context.Context, principalID, password string) error

	// Confirm force-confirms a principal's credential.
	Confirm(ctx context.Context, principalID string) error
}

// SessionStore persists and retrieves server-side sessions.
type SessionStore interface {
	Save(ctx context.Context, sess identity.Session) error
	Get(ctx context.Context, id string) (identity.Session, error)
	Delete(ctx context.Context, id string) error
}

// ErrSessionNotFound is returned by SessionStore implementations when no
// session exists for the given id.
var ErrSessionNotFound = errors.New("session not found")

// CheckCache is the short-TTL "is this principal still valid" cache consulted
// by CheckAuth before any provider round-trip. It is an optimization only and
// never a source of truth.
type CheckCache interface {
	// Remember records the user id as recently verified.
	Remember(ctx context.Context, userID string) error

	// Matches reports whether the cache holds a fresh entry for the user id.
	Matches(ctx context.Context, userID string) (bool, error)

	// Forget drops the cached entry.
	Forget(ctx context.Context, userID string) error
}
