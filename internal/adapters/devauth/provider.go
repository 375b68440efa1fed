package devauth

// Package devauth provides an in-memory IdentityProvider for local
// development and tests. Passwords are bcrypt-hashed so the sign-in path
// exercises real credential verification, but nothing is persisted.

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/ports"
)

type record struct {
	principal identity.Principal
	hash      []byte
}

// Provider implements both ports.IdentityProvider and ports.IdentityAdmin
// over an in-memory user table.
type Provider struct {
	mu    sync.RWMutex
	users map[string]*record // keyed by normalized email
	byID  map[string]*record
}

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.IdentityAdmin    = (*Provider)(nil)
)

// NewProvider returns an empty dev provider. Seed users with CreateUser.
func NewProvider() *Provider {
	return &Provider{
		users: make(map[string]*record),
		byID:  make(map[string]*record),
	}
}

// Admin exposes the provider's privileged surface. The dev provider has no
// credential gate; it is always available.
func (p *Provider) Admin() ports.IdentityAdmin { return p }

func (p *Provider) SignIn(_ context.Context, email, password string) (identity.Principal, error) {
	p.mu.RLock()
	rec, ok := p.users[identity.NormalizeEmail(email)]
	p.mu.RUnlock()
	if !ok {
		return identity.Principal{}, &ports.ProviderError{
			Kind:    ports.KindInvalidCredentials,
			Message: "invalid login credentials",
		}
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(password)); err != nil {
		return identity.Principal{}, &ports.ProviderError{
			Kind:    ports.KindInvalidCredentials,
			Message: "invalid login credentials",
			Cause:   err,
		}
	}
	if !rec.principal.Confirmed {
		return identity.Principal{}, &ports.ProviderError{
			Kind:    ports.KindEmailNotConfirmed,
			Message: "email not confirmed",
		}
	}
	return rec.principal, nil
}

func (p *Provider) SignUp(_ context.Context, in ports.SignUpInput) (identity.Principal, error) {
	return p.create(in.Email, in.Password, false, in.FirstName, in.LastName)
}

// SignOut is a no-op: the dev provider issues no tokens to revoke.
func (p *Provider) SignOut(context.Context, string) error { return nil }

func (p *Provider) FindByEmail(_ context.Context, email string) (identity.Principal, error) {
	p.mu.RLock()
	rec, ok := p.users[identity.NormalizeEmail(email)]
	p.mu.RUnlock()
	if !ok {
		return identity.Principal{}, &ports.ProviderError{
			Kind:    ports.KindNotFound,
			Message: "no principal matches email",
		}
	}
	return rec.principal, nil
}

func (p *Provider) CreateUser(_ context.Context, in ports.CreateUserInput) (identity.Principal, error) {
	return p.create(in.Email, in.Password, in.Confirmed, "", "")
}

func (p *Provider) UpdatePassword(_ context.Context, principalID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return &ports.ProviderError{Kind: ports.KindUnknown, Message: "hash password", Cause: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[principalID]
	if !ok {
		return &ports.ProviderError{Kind: ports.KindNotFound, Message: "no such principal"}
	}
	rec.hash = hash
	return nil
}

func (p *Provider) Confirm(_ context.Context, principalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[principalID]
	if !ok {
		return &ports.ProviderError{Kind: ports.KindNotFound, Message: "no such principal"}
	}
	rec.principal.Confirmed = true
	return nil
}

func (p *Provider) create(email, password string, confirmed bool, first, last string) (identity.Principal, error) {
	normalized := identity.NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return identity.Principal{}, &ports.ProviderError{Kind: ports.KindUnknown, Message: "hash password", Cause: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.users[normalized]; exists {
		return identity.Principal{}, &ports.ProviderError{
			Kind:    ports.KindAlreadyExists,
			Message: "user already registered",
		}
	}
	rec := &record{
		principal: identity.Principal{
			ID:        uuid.NewString(),
			Email:     normalized,
			Confirmed: confirmed,
			FirstName: first,
			LastName:  last,
		},
		hash: hash,
	}
	p.users[normalized] = rec
	p.byID[rec.principal.ID] = rec
	return rec.principal, nil
}
