package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/internal/domain/billing"
	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/mocks/fakes"
	"github.com/arkline/erp-api/internal/ports"
	"github.com/arkline/erp-api/internal/service"
	"github.com/arkline/erp-api/internal/testutil"
)

type apiFixture struct {
	provider *fakes.FakeIdentityProvider
	admin    *fakes.FakeIdentityAdmin
	staff    *fakes.FakeStaffDirectory
	clients  *fakes.FakeClientDirectory
	invoices *fakes.FakeInvoiceStore
	queue    *fakes.MemoryDispatchStore
	sessions *fakes.MemorySessionStore

	server *httptest.Server
}

type renderStub struct{}

func (renderStub) RenderInvoicePDF(billing.InvoiceSnapshot) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

type composeStub struct{}

func (composeStub) ComposeInvoice(billing.DispatchKind, billing.InvoiceSnapshot) (string, string, error) {
	return "subject", "<p>body</p>", nil
}

func (composeStub) ComposeWelcome(string) (string, string, error) {
	return "Welcome", "<p>hi</p>", nil
}

func (composeStub) ComposePasswordReset(string) (string, string, error) {
	return "Password reset", "<p>reset</p>", nil
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		provider: &fakes.FakeIdentityProvider{},
		admin:    &fakes.FakeIdentityAdmin{},
		staff:    &fakes.FakeStaffDirectory{},
		clients:  &fakes.FakeClientDirectory{},
		invoices: &fakes.FakeInvoiceStore{},
		queue:    &fakes.MemoryDispatchStore{},
		sessions: fakes.NewMemorySessionStore(),
	}
	companies := &fakes.FakeCompanyDirectory{}
	cache := fakes.NewMemoryCheckCache()

	dispatcher := service.NewDispatcher(service.DispatcherOptions{
		Store:    f.queue,
		Invoices: f.invoices,
		Delivery: &fakes.FakeDeliveryClient{},
		Renderer: renderStub{},
		Composer: composeStub{},
	})
	reconciler := service.NewReconciler(service.ReconcilerOptions{
		Provider:  f.provider,
		Admin:     f.admin,
		Staff:     f.staff,
		Clients:   f.clients,
		Companies: companies,
		Sessions:  f.sessions,
		Dispatch:  dispatcher,
	})
	checker := service.NewAuthChecker(service.AuthCheckerOptions{
		Sessions: f.sessions,
		Cache:    cache,
		Provider: f.provider,
		Admin:    f.admin,
		Staff:    f.staff,
		Clients:  f.clients,
	})
	invoiceSvc := service.NewInvoiceService(service.InvoiceServiceOptions{
		Store: f.invoices, Dispatch: dispatcher,
	})
	clientSvc := service.NewClientService(service.ClientServiceOptions{
		Clients: f.clients, Companies: companies, Admin: f.admin, Dispatch: dispatcher,
	})

	f.server = httptest.NewServer(NewRouter(RouterServices{
		Auth:     reconciler,
		Checker:  checker,
		Invoices: invoiceSvc,
		Clients:  clientSvc,
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// login authenticates as an auto-provisioned staff user and returns the
// session cookie.
func (f *apiFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "kwame@example.com", "password": "secret"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie returned")
	return nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLoginSetsSessionCookie(t *testing.T) {
	f := newAPIFixture(t)

	cookie := f.login(t)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1, f.sessions.Len())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.provider.SignInFunc = func(context.Context, string, string) (identity.Principal, error) {
		return identity.Principal{}, &ports.ProviderError{Kind: ports.KindInvalidCredentials, Message: "bad password"}
	}

	resp := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "kwame@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "invalid_credentials", body["error"])
}

func TestLoginBannedStaffForbidden(t *testing.T) {
	f := newAPIFixture(t)
	f.staff.Profiles = []*identity.StaffProfile{
		testutil.NewStaffProfile().WithID("principal-1").WithEmail("kwame@example.com").Banned().Build(),
	}

	resp := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "kwame@example.com", "password": "secret"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "account_banned", body["error"])
	assert.NotEmpty(t, body["remediation"])
}

func TestRegister(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "new@example.com", "password": "secret", "first_name": "Kwame",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, f.staff.Inserted, 1)
}

func TestAuthStatus(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/auth/status", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cookie := f.login(t)
	resp = f.do(t, http.MethodGet, "/api/auth/status", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, false, body["degraded"])
}

func TestLogoutEndsSession(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login(t)

	resp := f.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.sessions.Len())

	resp = f.do(t, http.MethodGet, "/api/auth/status", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestResetPasswordRequiresStaff(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/auth/reset-password",
		map[string]string{"email": "ama@example.com", "password": "new-secret"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestResetPassword(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login(t)

	var updated []string
	f.admin.UpdatePasswordFunc = func(_ context.Context, principalID, password string) error {
		updated = append(updated, principalID+":"+password)
		return nil
	}

	resp := f.do(t, http.MethodPost, "/api/auth/reset-password",
		map[string]string{"email": "ama@example.com", "password": "new-secret"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "password_reset", decodeBody(t, resp)["status"])

	assert.Equal(t, []string{"principal-1:new-secret"}, updated)
	require.Len(t, f.queue.Dispatches, 1)
	assert.Equal(t, billing.DispatchKindPasswordReset, f.queue.Dispatches[0].Kind)
	assert.Equal(t, "ama@example.com", f.queue.Dispatches[0].Recipient)
}

func TestCreateInvoiceRequiresStaff(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/invoices", map[string]any{}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A client session is not enough for invoice creation.
	f.clients.Profiles = []*identity.ClientProfile{
		testutil.NewClientProfile().WithEmail("kwame@example.com").WithPrincipalID("principal-1").Build(),
	}
	cookie := f.login(t)
	resp = f.do(t, http.MethodPost, "/api/invoices", map[string]any{}, cookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateInvoiceQueuesNotification(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login(t)

	snap := testutil.NewInvoiceSnapshot().WithNumber("INV-9").Build()
	resp := f.do(t, http.MethodPost, "/api/invoices", createInvoiceRequest{
		ClientID: "client-1",
		Notify:   true,
		Snapshot: snap,
	}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["notification_queued"])
	require.Len(t, f.queue.Dispatches, 1)
}

func TestCreateInvoiceSucceedsWhenQueueDown(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login(t)
	f.queue.EnqueueFunc = func(context.Context, *billing.Dispatch) (*billing.Dispatch, error) {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "queue down")
	}

	snap := testutil.NewInvoiceSnapshot().WithNumber("INV-10").Build()
	resp := f.do(t, http.MethodPost, "/api/invoices", createInvoiceRequest{
		ClientID: "client-1",
		Notify:   true,
		Snapshot: snap,
	}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["notification_queued"])
}

func TestInvoiceSendAndDeliveryStatus(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login(t)

	snap := testutil.NewInvoiceSnapshot().WithNumber("INV-11").Build()
	resp := f.do(t, http.MethodPost, "/api/invoices", createInvoiceRequest{
		ClientID: "client-1",
		Snapshot: snap,
	}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	invoiceID := created["invoice"].(map[string]any)["id"].(string)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%s/send", invoiceID), nil, cookie)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/invoices/%s/delivery", invoiceID), nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "pending", body["dispatch"].(map[string]any)["status"])

	resp = f.do(t, http.MethodGet, "/api/invoices/missing/delivery", nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateClient(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.login(t)

	resp := f.do(t, http.MethodPost, "/api/clients", map[string]string{
		"name": "Ama Mensah", "email": "ama@example.com",
	}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, f.clients.Profiles, 1)
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}
