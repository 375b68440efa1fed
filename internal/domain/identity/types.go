package identity

// Package identity contains domain-level types for principals, profiles, and
// sessions. It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleClient Role = "client"
)

// Principal is the identity provider's credential record. It is owned by the
// provider; this system only ever reads it or repairs its confirmation state.
type Principal struct {
	ID        string
	Email     string
	Confirmed bool
	FirstName string
	LastName  string
}

// StaffProfile is the business-domain row for a staff or admin human.
// ID is expected, but not guaranteed, to equal the principal id.
type StaffProfile struct {
	ID          string     `json:"id"          db:"id"`
	PrincipalID *string    `json:"principal_id" db:"principal_id"`
	Email       string     `json:"email"       db:"email"`
	Role        Role       `json:"role"        db:"role"`
	CompanyID   *string    `json:"company_id"  db:"company_id"`
	IsBanned    bool       `json:"is_banned"   db:"is_banned"`
	FirstName   string     `json:"first_name"  db:"first_name"`
	LastName    string     `json:"last_name"   db:"last_name"`
	JobTitle    *string    `json:"job_title"   db:"job_title"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"  db:"updated_at"`
}

// ClientProfile is the business-domain row for a client. A client may exist
// without a Principal (no login access); PrincipalID is set only after the
// auth side has been verifiably created.
type ClientProfile struct {
	ID          string     `json:"id"           db:"id"`
	PrincipalID *string    `json:"principal_id" db:"principal_id"`
	CompanyID   string     `json:"company_id"   db:"company_id"`
	Email       string     `json:"email"        db:"email"`
	Name        string     `json:"name"         db:"name"`
	Phone       *string    `json:"phone"        db:"phone"`
	Address     *string    `json:"address"      db:"address"`
	AssignedTo  *string    `json:"assigned_to"  db:"assigned_to"`
	IsActive    bool       `json:"is_active"    db:"is_active"`
	CreatedAt   time.Time  `json:"created_at"   db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"   db:"updated_at"`
}

// ReconciledIdentity is the identity handed back to callers after login.
// It is a value type deliberately distinct from the persisted rows: for staff,
// ProfileID carries the principal id for session consistency while StoredID
// keeps whatever primary key the matched row actually has; for clients both
// carry the client row id. The two differ when staff reconciliation found the
// profile by email with a mismatched id; that mismatch is never written back
// to the store.
type ReconciledIdentity struct {
	ProfileID   string
	StoredID    string
	PrincipalID string
	Email       string
	Role        Role
	CompanyID   *string
	FirstName   string
	LastName    string
}

// IDRelabeled reports whether reconciliation substituted the principal id for
// a mismatched stored primary key.
func (r ReconciledIdentity) IDRelabeled() bool {
	return r.StoredID != "" && r.StoredID != r.ProfileID
}

// IsClient reports whether the reconciled identity resolved to a client profile.
func (r ReconciledIdentity) IsClient() bool { return r.Role == RoleClient }

// Company is the organization a staff or client profile belongs to.
type Company struct {
	ID        string     `json:"id"         db:"id"`
	Name      string     `json:"name"       db:"name"`
	IsActive  bool       `json:"is_active"  db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque session identifier.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NormalizeEmail trims and lowercases an email address. Every comparison in
// the reconciliation flow goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
