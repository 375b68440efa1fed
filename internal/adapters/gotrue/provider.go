package gotrue

// Package gotrue adapts a hosted GoTrue-style authentication service to the
// ports.IdentityProvider and ports.IdentityAdmin interfaces. All provider
// failures are classified into typed kinds here, at the boundary; nothing
// above this package inspects provider message strings.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/ports"
)

// Config holds connection settings for the hosted auth service. ServiceKey is
// the privileged credential gating the admin surface; it may be empty, in
// which case Admin() returns nil and repair paths surface configuration
// errors instead.
type Config struct {
	BaseURL    string
	APIKey     string
	ServiceKey string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Provider implements ports.IdentityProvider against the hosted auth HTTP API.
type Provider struct {
	baseURL    string
	apiKey     string
	serviceKey string
	client     *http.Client
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a Provider. Callers should pass a validated config.
func NewProvider(cfg Config) (*Provider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("auth provider base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("auth provider API key is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Provider{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
		client:     hc,
	}, nil
}

// Admin returns the privileged surface, or nil when no service credential is
// configured.
//
//nolint:ireturn // nil-ness is the "privileged channel configured" signal.
func (p *Provider) Admin() ports.IdentityAdmin {
	if p.serviceKey == "" {
		return nil
	}
	return &admin{p: p}
}

// SignIn verifies an email/password pair using the password grant.
func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.Principal, error) {
	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := p.do(ctx, callParams{
		method: http.MethodPost,
		path:   "/token?grant_type=password",
		key:    p.apiKey,
		body:   body,
		out:    &resp,
	}); err != nil {
		return identity.Principal{}, err
	}
	return resp.User.toPrincipal(), nil
}

// SignUp creates a credential with provider-side confirmation email disabled;
// confirmation is handled by this system, not the provider.
func (p *Provider) SignUp(ctx context.Context, in ports.SignUpInput) (identity.Principal, error) {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
		"data": map[string]string{
			"first_name": in.FirstName,
			"last_name":  in.LastName,
		},
		"skip_confirmation_email": true,
	}
	var resp userPayload
	if err := p.do(ctx, callParams{
		method: http.MethodPost,
		path:   "/signup",
		key:    p.apiKey,
		body:   body,
		out:    &resp,
	}); err != nil {
		return identity.Principal{}, err
	}
	return resp.toPrincipal(), nil
}

// SignOut revokes the principal's sessions. The provider only exposes this as
// an administrative operation, so it degrades to a classified error when the
// privileged credential is absent; callers treat sign-out as best effort.
func (p *Provider) SignOut(ctx context.Context, principalID string) error {
	if p.serviceKey == "" {
		return &ports.ProviderError{
			Kind:    ports.KindUnknown,
			Message: "sign-out requires the privileged service credential",
		}
	}
	return p.do(ctx, callParams{
		method: http.MethodPost,
		path:   "/admin/users/" + url.PathEscape(principalID) + "/logout",
		key:    p.serviceKey,
	})
}

// admin is the privileged surface, gated behind the service credential.
type admin struct {
	p *Provider
}

var _ ports.IdentityAdmin = (*admin)(nil)

func (a *admin) FindByEmail(ctx context.Context, email string) (identity.Principal, error) {
	var resp struct {
		Users []userPayload `json:"users"`
	}
	path := "/admin/users?email=" + url.QueryEscape(identity.NormalizeEmail(email))
	if err := a.p.do(ctx, callParams{
		method: http.MethodGet,
		path:   path,
		key:    a.p.serviceKey,
		out:    &resp,
	}); err != nil {
		return identity.Principal{}, err
	}
	for _, u := range resp.Users {
		if identity.NormalizeEmail(u.Email) == identity.NormalizeEmail(email) {
			return u.toPrincipal(), nil
		}
	}
	return identity.Principal{}, &ports.ProviderError{
		Kind:    ports.KindNotFound,
		Message: "no principal matches email",
	}
}

func (a *admin) CreateUser(ctx context.Context, in ports.CreateUserInput) (identity.Principal, error) {
	body := map[string]any{
		"email":         in.Email,
		"password":      in.Password,
		"email_confirm": in.Confirmed,
	}
	var resp userPayload
	if err := a.p.do(ctx, callParams{
		method: http.MethodPost,
		path:   "/admin/users",
		key:    a.p.serviceKey,
		body:   body,
		out:    &resp,
	}); err != nil {
		return identity.Principal{}, err
	}
	return resp.toPrincipal(), nil
}

func (a *admin) UpdatePassword(ctx context.Context, principalID, password string) error {
	return a.p.do(ctx, callParams{
		method: http.MethodPut,
		path:   "/admin/users/" + url.PathEscape(principalID),
		key:    a.p.serviceKey,
		body:   map[string]string{"password": password},
	})
}

func (a *admin) Confirm(ctx context.Context, principalID string) error {
	return a.p.do(ctx, callParams{
		method: http.MethodPut,
		path:   "/admin/users/" + url.PathEscape(principalID),
		key:    a.p.serviceKey,
		body:   map[string]bool{"email_confirm": true},
	})
}

// --- wire types ---

type userPayload struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	UserMetadata     struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user_metadata"`
}

func (u userPayload) toPrincipal() identity.Principal {
	return identity.Principal{
		ID:        u.ID,
		Email:     identity.NormalizeEmail(u.Email),
		Confirmed: u.EmailConfirmedAt != nil,
		FirstName: u.UserMetadata.FirstName,
		LastName:  u.UserMetadata.LastName,
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	User        userPayload `json:"user"`
}

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e apiError) text() string {
	for _, v := range []string{e.ErrorDescription, e.Msg, e.Error} {
		if v != "" {
			return v
		}
	}
	return ""
}

// callParams groups request parameters for do.
type callParams struct {
	method string
	path   string
	key    string
	body   any
	out    any
}

func (p *Provider) do(ctx context.Context, call callParams) error {
	var reqBody io.Reader
	if call.body != nil {
		raw, err := json.Marshal(call.body)
		if err != nil {
			return &ports.ProviderError{Kind: ports.KindUnknown, Message: "encode request", Cause: err}
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, call.method, p.baseURL+call.path, reqBody)
	if err != nil {
		return &ports.ProviderError{Kind: ports.KindUnknown, Message: "create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.key)
	req.Header.Set("apikey", call.key)

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyNetworkError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatusError(resp)
	}

	if call.out != nil {
		if decodeErr := json.NewDecoder(resp.Body).Decode(call.out); decodeErr != nil {
			return &ports.ProviderError{Kind: ports.KindUnknown, Message: "decode response", Cause: decodeErr}
		}
	}
	return nil
}

// classifyNetworkError maps transport-level failures; anything timeout or
// connectivity shaped is retryable.
func classifyNetworkError(err error) *ports.ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &ports.ProviderError{Kind: ports.KindTransient, Message: "request timed out", Cause: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ports.ProviderError{Kind: ports.KindTransient, Message: "network failure", Cause: err}
	}
	return &ports.ProviderError{Kind: ports.KindUnknown, Message: "request failed", Cause: err}
}

// classifyStatusError maps HTTP-level failures using status plus the provider
// error body. This is the single place provider message text is inspected.
func classifyStatusError(resp *http.Response) *ports.ProviderError {
	var body apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	_ = json.Unmarshal(raw, &body)

	text := body.text()
	if text == "" {
		text = strings.TrimSpace(string(raw))
	}
	if text == "" {
		text = resp.Status
	}
	lower := strings.ToLower(text)

	kind := ports.KindUnknown
	switch {
	case resp.StatusCode >= 500:
		kind = ports.KindTransient
	case strings.Contains(lower, "network"), strings.Contains(lower, "timeout"):
		kind = ports.KindTransient
	case strings.Contains(lower, "not confirmed"), strings.Contains(lower, "email_not_confirmed"):
		kind = ports.KindEmailNotConfirmed
	case strings.Contains(lower, "invalid login credentials"), strings.Contains(lower, "invalid_grant"):
		kind = ports.KindInvalidCredentials
	case strings.Contains(lower, "already registered"), strings.Contains(lower, "already exists"):
		kind = ports.KindAlreadyExists
	case resp.StatusCode == http.StatusNotFound:
		kind = ports.KindNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		kind = ports.KindInvalidCredentials
	}

	return &ports.ProviderError{Kind: kind, Message: text}
}
