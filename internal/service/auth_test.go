package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/mocks/fakes"
	"github.com/arkline/erp-api/internal/ports"
)

type reconcilerFixture struct {
	provider  *fakes.FakeIdentityProvider
	admin     *fakes.FakeIdentityAdmin
	staff     *fakes.FakeStaffDirectory
	clients   *fakes.FakeClientDirectory
	companies *fakes.FakeCompanyDirectory
	sessions  *fakes.MemorySessionStore
	queue     *fakes.MemoryDispatchStore
	svc       *Reconciler
}

func newReconcilerFixture(t *testing.T, adminEmail string) *reconcilerFixture {
	t.Helper()
	f := &reconcilerFixture{
		provider:  &fakes.FakeIdentityProvider{},
		admin:     &fakes.FakeIdentityAdmin{},
		staff:     &fakes.FakeStaffDirectory{},
		clients:   &fakes.FakeClientDirectory{},
		companies: &fakes.FakeCompanyDirectory{},
		sessions:  fakes.NewMemorySessionStore(),
		queue:     &fakes.MemoryDispatchStore{},
	}
	dispatcher := NewDispatcher(DispatcherOptions{
		Store:    f.queue,
		Invoices: &fakes.FakeInvoiceStore{},
		Delivery: &fakes.FakeDeliveryClient{},
		Renderer: &stubRenderer{},
		Composer: stubComposer{},
	})
	f.svc = NewReconciler(ReconcilerOptions{
		Provider:    f.provider,
		Admin:       f.admin,
		Staff:       f.staff,
		Clients:     f.clients,
		Companies:   f.companies,
		Sessions:    f.sessions,
		Dispatch:    dispatcher,
		AdminEmail:  adminEmail,
		BackoffUnit: time.Millisecond,
	})
	return f
}

func providerErr(kind ports.ProviderErrorKind) error {
	return &ports.ProviderError{Kind: kind, Message: string(kind)}
}

func strPtr(s string) *string { return &s }

func TestAuthenticateValidation(t *testing.T) {
	f := newReconcilerFixture(t, "")

	_, err := f.svc.Authenticate(context.Background(), "not-an-email", "secret")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Authenticate(context.Background(), "ama@example.com", "")
	assert.True(t, apperrors.IsValidation(err))

	assert.Zero(t, f.provider.SignInCalls)
}

func TestAuthenticateAutoProvisionsStaff(t *testing.T) {
	f := newReconcilerFixture(t, "admin@arkline.test")

	res, err := f.svc.Authenticate(context.Background(), "Kwame@Example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, identity.RoleStaff, res.Identity.Role)
	assert.Equal(t, "principal-1", res.Identity.ProfileID)
	require.Len(t, f.staff.Inserted, 1)
	assert.Equal(t, "principal-1", f.staff.Inserted[0].ID)
	assert.Equal(t, "kwame@example.com", f.staff.Inserted[0].Email)

	// The session is keyed to the reconciled profile id.
	assert.Equal(t, 1, f.sessions.Len())
	assert.Equal(t, res.Identity.ProfileID, res.Session.UserID)
}

func TestAuthenticateAdminEmailGetsAdminRole(t *testing.T) {
	f := newReconcilerFixture(t, "admin@arkline.test")

	res, err := f.svc.Authenticate(context.Background(), "ADMIN@arkline.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, res.Identity.Role)
}

func TestAuthenticateIsIdempotent(t *testing.T) {
	f := newReconcilerFixture(t, "")

	first, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)
	second, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, first.Identity.ProfileID, second.Identity.ProfileID)
	assert.Equal(t, first.Identity.Role, second.Identity.Role)
	assert.Equal(t, first.Identity.CompanyID, second.Identity.CompanyID)
	// Provisioning ran once; the second login resolved the existing row.
	assert.Len(t, f.staff.Inserted, 1)
}

func TestAuthenticateClientWinsOverStaff(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.Profiles = []*identity.StaffProfile{{
		ID: "staff-1", Email: "ama@example.com", Role: identity.RoleStaff,
	}}
	f.clients.Profiles = []*identity.ClientProfile{{
		ID: "client-1", Email: "ama@example.com", Name: "Ama Mensah",
		CompanyID: "company-1", PrincipalID: strPtr("principal-1"), IsActive: true,
	}}

	res, err := f.svc.Authenticate(context.Background(), "ama@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, identity.RoleClient, res.Identity.Role)
	assert.Equal(t, "client-1", res.Identity.ProfileID)
	require.NotNil(t, res.Identity.CompanyID)
	assert.Equal(t, "company-1", *res.Identity.CompanyID)
	assert.Equal(t, "Ama", res.Identity.FirstName)
	assert.Equal(t, "Mensah", res.Identity.LastName)
}

func TestAuthenticateBackfillsClientPrincipalLink(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.clients.Profiles = []*identity.ClientProfile{{
		ID: "client-1", Email: "ama@example.com", Name: "Ama Mensah",
		CompanyID: "company-1", IsActive: true,
	}}

	_, err := f.svc.Authenticate(context.Background(), "ama@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "principal-1", f.clients.Backfills["client-1"])
}

func TestAuthenticateBackfillFailureDoesNotFailLogin(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.clients.Profiles = []*identity.ClientProfile{{
		ID: "client-1", Email: "ama@example.com", Name: "Ama Mensah",
		CompanyID: "company-1", IsActive: true,
	}}
	f.clients.SetPrincipalIDFunc = func(context.Context, string, string) error {
		return apperrors.New(apperrors.ErrCodeInternal, "write failed")
	}

	res, err := f.svc.Authenticate(context.Background(), "ama@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleClient, res.Identity.Role)
}

func TestAuthenticateRelabelsMismatchedStaffID(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.Profiles = []*identity.StaffProfile{{
		ID: "legacy-id", Email: "kwame@example.com", Role: identity.RoleStaff,
	}}

	res, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "principal-1", res.Identity.ProfileID)
	assert.Equal(t, "legacy-id", res.Identity.StoredID)
	assert.True(t, res.Identity.IDRelabeled())

	// The relabel is in-memory only; the stored row keeps its key.
	assert.Equal(t, "legacy-id", f.staff.Profiles[0].ID)
	assert.Empty(t, f.staff.Inserted)
}

func TestAuthenticateRejectsBannedStaff(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.Profiles = []*identity.StaffProfile{{
		ID: "principal-1", Email: "kwame@example.com", Role: identity.RoleStaff, IsBanned: true,
	}}

	_, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsAccountBanned(err))
	assert.NotEmpty(t, apperrors.GetRemediation(err))

	// The provider session is revoked and no local session is created.
	assert.Equal(t, []string{"principal-1"}, f.provider.SignOutCalls)
	assert.Zero(t, f.sessions.Len())
}

func TestAuthenticateBanDoesNotApplyToAdmins(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.Profiles = []*identity.StaffProfile{{
		ID: "principal-1", Email: "kwame@example.com", Role: identity.RoleAdmin, IsBanned: true,
	}}

	res, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, res.Identity.Role)
}

func TestAuthenticateRetriesTransientFailures(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.provider.SignInFunc = func(_ context.Context, email, _ string) (identity.Principal, error) {
		if f.provider.SignInCalls < 3 {
			return identity.Principal{}, providerErr(ports.KindTransient)
		}
		return identity.Principal{ID: "principal-1", Email: email, Confirmed: true}, nil
	}

	res, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "principal-1", res.Identity.ProfileID)
	assert.Equal(t, 3, f.provider.SignInCalls)
}

func TestAuthenticateStopsAfterAttemptBudget(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.provider.SignInFunc = func(context.Context, string, string) (identity.Principal, error) {
		return identity.Principal{}, providerErr(ports.KindTransient)
	}

	_, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthProvider(err))
	assert.NotEmpty(t, apperrors.GetRemediation(err))
	assert.Equal(t, 3, f.provider.SignInCalls)
}

func TestAuthenticateDoesNotRetryInvalidCredentials(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.provider.SignInFunc = func(context.Context, string, string) (identity.Principal, error) {
		return identity.Principal{}, providerErr(ports.KindInvalidCredentials)
	}

	_, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
	// One initial attempt plus the single post-repair retry; never three.
	assert.LessOrEqual(t, f.provider.SignInCalls, 2)
}

func TestAuthenticateRepairsUnconfirmedCredential(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.provider.SignInFunc = func(_ context.Context, email, _ string) (identity.Principal, error) {
		if len(f.admin.ConfirmCalls) == 0 {
			return identity.Principal{}, providerErr(ports.KindEmailNotConfirmed)
		}
		return identity.Principal{ID: "principal-1", Email: email, Confirmed: true}, nil
	}

	res, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "principal-1", res.Identity.ProfileID)
	assert.Equal(t, []string{"principal-1"}, f.admin.ConfirmCalls)
	assert.Equal(t, 2, f.provider.SignInCalls)
}

func TestAuthenticateUnconfirmedWithoutAdminIsConfigurationError(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.svc = NewReconciler(ReconcilerOptions{
		Provider: f.provider, Staff: f.staff, Clients: f.clients,
		Companies: f.companies, Sessions: f.sessions, BackoffUnit: time.Millisecond,
	})
	f.provider.SignInFunc = func(context.Context, string, string) (identity.Principal, error) {
		return identity.Principal{}, providerErr(ports.KindEmailNotConfirmed)
	}

	_, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.NotEmpty(t, apperrors.GetRemediation(err))
}

func TestAuthenticateRepairsMissingPrincipal(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.Profiles = []*identity.StaffProfile{{
		ID: "staff-1", Email: "kwame@example.com", Role: identity.RoleStaff,
	}}
	f.provider.SignInFunc = func(_ context.Context, email, _ string) (identity.Principal, error) {
		if len(f.admin.CreatedUsers) == 0 {
			return identity.Principal{}, providerErr(ports.KindInvalidCredentials)
		}
		return identity.Principal{ID: "principal-1", Email: email, Confirmed: true}, nil
	}

	res, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.NoError(t, err)

	require.Len(t, f.admin.CreatedUsers, 1)
	assert.Equal(t, "kwame@example.com", f.admin.CreatedUsers[0].Email)
	assert.True(t, f.admin.CreatedUsers[0].Confirmed)
	assert.Equal(t, "principal-1", res.Identity.ProfileID)
	assert.Equal(t, "staff-1", res.Identity.StoredID)
}

func TestAuthenticateNoProfileMeansInvalidCredentials(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.provider.SignInFunc = func(context.Context, string, string) (identity.Principal, error) {
		return identity.Principal{}, providerErr(ports.KindInvalidCredentials)
	}

	_, err := f.svc.Authenticate(context.Background(), "nobody@example.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
	assert.Empty(t, f.admin.CreatedUsers)
}

func TestAuthenticateExistingPrincipalMeansWrongPassword(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.Profiles = []*identity.StaffProfile{{
		ID: "staff-1", Email: "kwame@example.com", Role: identity.RoleStaff,
	}}
	f.provider.SignInFunc = func(context.Context, string, string) (identity.Principal, error) {
		return identity.Principal{}, providerErr(ports.KindInvalidCredentials)
	}
	f.admin.CreateUserFunc = func(context.Context, ports.CreateUserInput) (identity.Principal, error) {
		return identity.Principal{}, providerErr(ports.KindAlreadyExists)
	}

	_, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestAuthenticateProvisionInsertFailure(t *testing.T) {
	f := newReconcilerFixture(t, "")
	f.staff.InsertFunc = func(context.Context, *identity.StaffProfile) (*identity.StaffProfile, error) {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "insert failed")
	}

	_, err := f.svc.Authenticate(context.Background(), "kwame@example.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsProvisioning(err))
	assert.Contains(t, apperrors.GetRemediation(err), "kwame@example.com")
	assert.Zero(t, f.sessions.Len())
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
	}{
		{"Ama Mensah", "Ama", "Mensah"},
		{"Ama", "Ama", ""},
		{"Ama Serwaa Mensah", "Ama", "Serwaa Mensah"},
		{"  ", "", ""},
	}
	for _, tt := range tests {
		first, last := splitName(tt.name)
		assert.Equal(t, tt.first, first, tt.name)
		assert.Equal(t, tt.last, last, tt.name)
	}
}
