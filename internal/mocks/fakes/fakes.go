// Package fakes contains simple hand-written test doubles for the ports
// interfaces. These are lightweight and suitable for unit tests without
// codegen: set a Func field to override a call, or rely on the in-memory
// defaults where provided.
package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentityProvider)(nil)
	_ ports.IdentityAdmin    = (*FakeIdentityAdmin)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
	_ ports.CheckCache       = (*MemoryCheckCache)(nil)
	_ ports.StaffDirectory   = (*FakeStaffDirectory)(nil)
	_ ports.ClientDirectory  = (*FakeClientDirectory)(nil)
	_ ports.CompanyDirectory = (*FakeCompanyDirectory)(nil)
	_ ports.InvoiceStore     = (*FakeInvoiceStore)(nil)
	_ ports.DispatchStore    = (*MemoryDispatchStore)(nil)
	_ ports.DeliveryClient   = (*FakeDeliveryClient)(nil)
)

// FakeIdentityProvider overrides provider calls per test.
type FakeIdentityProvider struct {
	SignInFunc  func(ctx context.Context, email, password string) (identity.Principal, error)
	SignUpFunc  func(ctx context.Context, in ports.SignUpInput) (identity.Principal, error)
	SignOutFunc func(ctx context.Context, principalID string) error

	SignInCalls  int
	SignOutCalls []string
}

func (f *FakeIdentityProvider) SignIn(ctx context.Context, email, password string) (identity.Principal, error) {
	f.SignInCalls++
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return identity.Principal{ID: "principal-1", Email: identity.NormalizeEmail(email), Confirmed: true}, nil
}

func (f *FakeIdentityProvider) SignUp(ctx context.Context, in ports.SignUpInput) (identity.Principal, error) {
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, in)
	}
	return identity.Principal{ID: "principal-1", Email: identity.NormalizeEmail(in.Email)}, nil
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context, principalID string) error {
	f.SignOutCalls = append(f.SignOutCalls, principalID)
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx, principalID)
	}
	return nil
}

// FakeIdentityAdmin overrides privileged provider calls per test.
type FakeIdentityAdmin struct {
	FindByEmailFunc    func(ctx context.Context, email string) (identity.Principal, error)
	CreateUserFunc     func(ctx context.Context, in ports.CreateUserInput) (identity.Principal, error)
	UpdatePasswordFunc func(ctx context.Context, principalID, password string) error
	ConfirmFunc        func(ctx context.Context, principalID string) error

	ConfirmCalls []string
	CreatedUsers []ports.CreateUserInput
}

func (f *FakeIdentityAdmin) FindByEmail(ctx context.Context, email string) (identity.Principal, error) {
	if f.FindByEmailFunc != nil {
		return f.FindByEmailFunc(ctx, email)
	}
	return identity.Principal{ID: "principal-1", Email: identity.NormalizeEmail(email), Confirmed: true}, nil
}

func (f *FakeIdentityAdmin) CreateUser(ctx context.Context, in ports.CreateUserInput) (identity.Principal, error) {
	f.CreatedUsers = append(f.CreatedUsers, in)
	if f.CreateUserFunc != nil {
		return f.CreateUserFunc(ctx, in)
	}
	return identity.Principal{ID: "principal-1", Email: identity.NormalizeEmail(in.Email), Confirmed: in.Confirmed}, nil
}

func (f *FakeIdentityAdmin) UpdatePassword(ctx context.Context, principalID, password string) error {
	if f.UpdatePasswordFunc != nil {
		return f.UpdatePasswordFunc(ctx, principalID, password)
	}
	return nil
}

func (f *FakeIdentityAdmin) Confirm(ctx context.Context, principalID string) error {
	f.ConfirmCalls = append(f.ConfirmCalls, principalID)
	if f.ConfirmFunc != nil {
		return f.ConfirmFunc(ctx, principalID)
	}
	return nil
}

// MemorySessionStore is an in-memory ports.SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]identity.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]identity.Session)}
}

func (s *MemorySessionStore) Save(_ context.Context, sess identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return identity.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// MemoryCheckCache is an in-memory ports.CheckCache with a fixed TTL.
type MemoryCheckCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	TTL     time.Duration
}

// NewMemoryCheckCache creates a cache with a 5 second TTL.
func NewMemoryCheckCache() *MemoryCheckCache {
	return &MemoryCheckCache{entries: make(map[string]time.Time), TTL: 5 * time.Second}
}

func (c *MemoryCheckCache) Remember(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = time.Now().Add(c.TTL)
	return nil
}

func (c *MemoryCheckCache) Matches(_ context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.entries[userID]
	if !ok || time.Now().After(deadline) {
		delete(c.entries, userID)
		return false, nil
	}
	return true, nil
}

func (c *MemoryCheckCache) Forget(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

func notFound(what string) error {
	return apperrors.New(apperrors.ErrCodeNotFound, what+" not found")
}

// FakeStaffDirectory backs StaffDirectory with an in-memory slice plus
// optional overrides.
type FakeStaffDirectory struct {
	mu       sync.Mutex
	Profiles []*identity.StaffProfile

	GetByEmailFunc func(ctx context.Context, email string) (*identity.StaffProfile, error)
	InsertFunc     func(ctx context.Context, profile *identity.StaffProfile) (*identity.StaffProfile, error)
	Inserted       []*identity.StaffProfile
}

func (f *FakeStaffDirectory) GetByEmail(ctx context.Context, email string) (*identity.StaffProfile, error) {
	if f.GetByEmailFunc != nil {
		return f.GetByEmailFunc(ctx, email)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Profiles {
		if identity.NormalizeEmail(p.Email) == identity.NormalizeEmail(email) {
			return p, nil
		}
	}
	return nil, notFound("staff profile")
}

func (f *FakeStaffDirectory) GetByID(_ context.Context, id string) (*identity.StaffProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, notFound("staff profile")
}

func (f *FakeStaffDirectory) Insert(ctx context.Context, profile *identity.StaffProfile) (*identity.StaffProfile, error) {
	f.Inserted = append(f.Inserted, profile)
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, profile)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Profiles = append(f.Profiles, profile)
	return profile, nil
}

// FakeClientDirectory backs ClientDirectory with an in-memory slice plus
// optional overrides.
type FakeClientDirectory struct {
	mu       sync.Mutex
	Profiles []*identity.ClientProfile

	SetPrincipalIDFunc func(ctx context.Context, clientID, principalID string) error
	InsertFunc         func(ctx context.Context, profile *identity.ClientProfile) (*identity.ClientProfile, error)
	Backfills          map[string]string
}

func (f *FakeClientDirectory) GetActiveByPrincipalID(_ context.Context, principalID string) (*identity.ClientProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Profiles {
		if p.IsActive && p.PrincipalID != nil && *p.PrincipalID == principalID {
			return p, nil
		}
	}
	return nil, notFound("client profile")
}

func (f *FakeClientDirectory) GetActiveByEmail(_ context.Context, email string) (*identity.ClientProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Profiles {
		if p.IsActive && identity.NormalizeEmail(p.Email) == identity.NormalizeEmail(email) {
			return p, nil
		}
	}
	return nil, notFound("client profile")
}

func (f *FakeClientDirectory) SetPrincipalID(ctx context.Context, clientID, principalID string) error {
	if f.Backfills == nil {
		f.Backfills = make(map[string]string)
	}
	f.Backfills[clientID] = principalID
	if f.SetPrincipalIDFunc != nil {
		return f.SetPrincipalIDFunc(ctx, clientID, principalID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Profiles {
		if p.ID == clientID {
			id := principalID
			p.PrincipalID = &id
			return nil
		}
	}
	return notFound("client profile")
}

func (f *FakeClientDirectory) Insert(ctx context.Context, profile *identity.ClientProfile) (*identity.ClientProfile, error) {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, profile)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if profile.ID == "" {
		profile.ID = "client-" + time.Now().Format("150405.000000")
	}
	f.Profiles = append(f.Profiles, profile)
	return profile, nil
}

// FakeCompanyDirectory backs CompanyDirectory with an in-memory slice.
type FakeCompanyDirectory struct {
	mu        sync.Mutex
	Companies []*identity.Company

	FirstActiveFunc func(ctx context.Context) (*identity.Company, error)
	InsertFunc      func(ctx context.Context, name string) (*identity.Company, error)
}

func (f *FakeCompanyDirectory) FirstActive(ctx context.Context) (*identity.Company, error) {
	if f.FirstActiveFunc != nil {
		return f.FirstActiveFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Companies {
		if c.IsActive {
			return c, nil
		}
	}
	return nil, notFound("company")
}

func (f *FakeCompanyDirectory) Insert(ctx context.Context, name string) (*identity.Company, error) {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	company := &identity.Company{ID: "company-1", Name: name, IsActive: true, CreatedAt: time.Now()}
	f.Companies = append(f.Companies, company)
	return company, nil
}

// FakeInvoiceStore backs InvoiceStore with an in-memory map.
type FakeInvoiceStore struct {
	mu       sync.Mutex
	Invoices map[string]*billing.Invoice

	CreateFunc   func(ctx context.Context, inv *billing.Invoice) (*billing.Invoice, error)
	MarkSentFunc func(ctx context.Context, id string, reminder bool) error
	MarkedSent   []string
}

func (f *FakeInvoiceStore) Create(ctx context.Context, inv *billing.Invoice) (*billing.Invoice, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, inv)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Invoices == nil {
		f.Invoices = make(map[string]*billing.Invoice)
	}
	if inv.ID == "" {
		inv.ID = "invoice-" + inv.Number
	}
	if inv.Status == "" {
		inv.Status = billing.InvoiceStatusDraft
	}
	f.Invoices[inv.ID] = inv
	return inv, nil
}

func (f *FakeInvoiceStore) GetByID(_ context.Context, id string) (*billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.Invoices[id]
	if !ok {
		return nil, notFound("invoice")
	}
	return inv, nil
}

func (f *FakeInvoiceStore) MarkSent(ctx context.Context, id string, reminder bool) error {
	f.MarkedSent = append(f.MarkedSent, id)
	if f.MarkSentFunc != nil {
		return f.MarkSentFunc(ctx, id, reminder)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.Invoices[id]
	if !ok {
		return notFound("invoice")
	}
	if reminder {
		inv.Status = billing.InvoiceStatusReminderSent
	} else {
		inv.Status = billing.InvoiceStatusSent
	}
	return nil
}

func (f *FakeInvoiceStore) ListDueForReminder(_ context.Context, asOf time.Time, limit int) ([]*billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*billing.Invoice
	for _, inv := range f.Invoices {
		if inv.Status == billing.InvoiceStatusSent && inv.DueAt != nil && inv.DueAt.Before(asOf) {
			due = append(due, inv)
			if limit > 0 && len(due) >= limit {
				break
			}
		}
	}
	return due, nil
}

// MemoryDispatchStore is an in-memory FIFO ports.DispatchStore.
type MemoryDispatchStore struct {
	mu         sync.Mutex
	Dispatches []*billing.Dispatch
	nextID     int

	EnqueueFunc func(ctx context.Context, d *billing.Dispatch) (*billing.Dispatch, error)
}

func (s *MemoryDispatchStore) Enqueue(ctx context.Context, d *billing.Dispatch) (*billing.Dispatch, error) {
	if s.EnqueueFunc != nil {
		return s.EnqueueFunc(ctx, d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	d.ID = fmt.Sprintf("dispatch-%d", s.nextID)
	d.Status = billing.DispatchStatusPending
	d.CreatedAt = time.Now()
	s.Dispatches = append(s.Dispatches, d)
	return d, nil
}

func (s *MemoryDispatchStore) ClaimNext(_ context.Context) (*billing.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.Dispatches {
		if d.Status == billing.DispatchStatusPending {
			d.Attempts++
			return d, nil
		}
	}
	return nil, notFound("pending dispatch")
}

func (s *MemoryDispatchStore) MarkSent(_ context.Context, id, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.Dispatches {
		if d.ID == id {
			d.Status = billing.DispatchStatusSent
			d.MessageID = &messageID
			return nil
		}
	}
	return notFound("dispatch")
}

func (s *MemoryDispatchStore) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.Dispatches {
		if d.ID == id {
			d.Status = billing.DispatchStatusFailed
			d.LastError = &reason
			return nil
		}
	}
	return notFound("dispatch")
}

func (s *MemoryDispatchStore) LatestForInvoice(_ context.Context, invoiceID string) (*billing.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Dispatches) - 1; i >= 0; i-- {
		d := s.Dispatches[i]
		if d.InvoiceID != nil && *d.InvoiceID == invoiceID {
			return d, nil
		}
	}
	return nil, notFound("dispatch")
}

// FakeDeliveryClient records sent messages.
type FakeDeliveryClient struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, msg ports.EmailMessage) (string, error)
	Sent     []ports.EmailMessage
}

func (f *FakeDeliveryClient) Send(ctx context.Context, msg ports.EmailMessage) (string, error) {
	f.mu.Lock()
	f.Sent = append(f.Sent, msg)
	f.mu.Unlock()
	if f.SendFunc != nil {
		return f.SendFunc(ctx, msg)
	}
	return "message-id-1", nil
}
