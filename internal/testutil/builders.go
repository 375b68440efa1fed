package testutil

import (
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	"github.com/arkline/erp-api/internal/domain/identity"
)

// InvoiceSnapshotBuilder provides a fluent interface for building invoice
// snapshots with sensible defaults.
type InvoiceSnapshotBuilder struct {
	snap billing.InvoiceSnapshot
}

// NewInvoiceSnapshot creates a builder seeded with a one-item invoice.
func NewInvoiceSnapshot() *InvoiceSnapshotBuilder {
	issued := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &InvoiceSnapshotBuilder{
		snap: billing.InvoiceSnapshot{
			Number:   "INV-1001",
			IssuedAt: issued,
			BilledTo: billing.Party{
				Name:  "Ama Mensah",
				Email: "ama@example.com",
			},
			BilledFrom: billing.Party{
				Name:  "Arkline Ltd",
				Email: "billing@arkline.example",
			},
			Items: []billing.LineItem{
				{Description: "Consulting", Quantity: 2, UnitPrice: 50, Amount: 100},
			},
			Subtotal:     100,
			Total:        100,
			CurrencyCode: "USD",
		},
	}
}

// WithNumber sets the invoice number.
func (b *InvoiceSnapshotBuilder) WithNumber(number string) *InvoiceSnapshotBuilder {
	b.snap.Number = number
	return b
}

// WithTotals sets subtotal and total.
func (b *InvoiceSnapshotBuilder) WithTotals(subtotal, total float64) *InvoiceSnapshotBuilder {
	b.snap.Subtotal = subtotal
	b.snap.Total = total
	return b
}

// WithTax sets an explicit tax amount.
func (b *InvoiceSnapshotBuilder) WithTax(tax float64) *InvoiceSnapshotBuilder {
	b.snap.Tax = &tax
	return b
}

// WithCurrency sets the currency code and symbol.
func (b *InvoiceSnapshotBuilder) WithCurrency(code, symbol string) *InvoiceSnapshotBuilder {
	b.snap.CurrencyCode = code
	b.snap.CurrencySymbol = symbol
	return b
}

// WithItems replaces the line items.
func (b *InvoiceSnapshotBuilder) WithItems(items ...billing.LineItem) *InvoiceSnapshotBuilder {
	b.snap.Items = items
	return b
}

// WithDueAt sets the due date.
func (b *InvoiceSnapshotBuilder) WithDueAt(due time.Time) *InvoiceSnapshotBuilder {
	b.snap.DueAt = &due
	return b
}

// Build returns the snapshot.
func (b *InvoiceSnapshotBuilder) Build() billing.InvoiceSnapshot {
	return b.snap
}

// StaffProfileBuilder builds staff rows for tests.
type StaffProfileBuilder struct {
	profile identity.StaffProfile
}

// NewStaffProfile creates a builder with staff defaults.
func NewStaffProfile() *StaffProfileBuilder {
	return &StaffProfileBuilder{
		profile: identity.StaffProfile{
			Email:     "staff@example.com",
			Role:      identity.RoleStaff,
			FirstName: "Kofi",
			LastName:  "Boateng",
		},
	}
}

// WithID sets the primary key (mirroring a principal id).
func (b *StaffProfileBuilder) WithID(id string) *StaffProfileBuilder {
	b.profile.ID = id
	return b
}

// WithEmail sets the email.
func (b *StaffProfileBuilder) WithEmail(email string) *StaffProfileBuilder {
	b.profile.Email = email
	return b
}

// WithRole sets the role.
func (b *StaffProfileBuilder) WithRole(role identity.Role) *StaffProfileBuilder {
	b.profile.Role = role
	return b
}

// Banned marks the profile banned.
func (b *StaffProfileBuilder) Banned() *StaffProfileBuilder {
	b.profile.IsBanned = true
	return b
}

// WithPrincipalID sets the principal link.
func (b *StaffProfileBuilder) WithPrincipalID(id string) *StaffProfileBuilder {
	b.profile.PrincipalID = &id
	return b
}

// Build returns the profile.
func (b *StaffProfileBuilder) Build() *identity.StaffProfile {
	p := b.profile
	return &p
}

// ClientProfileBuilder builds client rows for tests.
type ClientProfileBuilder struct {
	profile identity.ClientProfile
}

// NewClientProfile creates a builder with client defaults. CompanyID must be
// set before inserting.
func NewClientProfile() *ClientProfileBuilder {
	return &ClientProfileBuilder{
		profile: identity.ClientProfile{
			Email:    "client@example.com",
			Name:     "Ama Mensah",
			IsActive: true,
		},
	}
}

// WithCompanyID sets the owning company.
func (b *ClientProfileBuilder) WithCompanyID(id string) *ClientProfileBuilder {
	b.profile.CompanyID = id
	return b
}

// WithEmail sets the email.
func (b *ClientProfileBuilder) WithEmail(email string) *ClientProfileBuilder {
	b.profile.Email = email
	return b
}

// WithPrincipalID sets the principal link.
func (b *ClientProfileBuilder) WithPrincipalID(id string) *ClientProfileBuilder {
	b.profile.PrincipalID = &id
	return b
}

// Inactive marks the profile inactive.
func (b *ClientProfileBuilder) Inactive() *ClientProfileBuilder {
	b.profile.IsActive = false
	return b
}

// Build returns the profile.
func (b *ClientProfileBuilder) Build() *identity.ClientProfile {
	p := b.profile
	return &p
}
