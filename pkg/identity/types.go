package identity

import (
	"time"

	"github.com/google/uuid"
)

// Principal is an authenticated actor. Credentials are stored as an opaque
// hash produced by the configured hasher (see pkg/auth).
type Principal struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsVerified reports whether the principal confirmed their email.
func (p *Principal) IsVerified() bool {
	return p != nil && p.VerifiedAt != nil
}

// Role is a named set of permissions. A principal may hold any number of
// roles; effective permissions are the union.
type Role struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Category string    `json:"category,omitempty"`
	Active   bool      `json:"active"`
}

// Permission is a grantable capability, optionally scoped to a feature
// module. A nil ModuleID means the permission is global.
type Permission struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ModuleID *uuid.UUID `json:"module_id,omitempty"`
	Active   bool       `json:"active"`
}

// Module is a feature-area grouping used to scope permissions and derive
// navigation. Modules form a tree via ParentID; the store rejects cycles.
type Module struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Order    int        `json:"order"`
	Active   bool       `json:"active"`
}

// Tenant is an isolated data partition serving one organization.
// Partitioning is either a table prefix within a shared database or a named
// connection in multi-database mode.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Slug       string    `json:"slug"`
	Domain     string    `json:"domain,omitempty"`
	Prefix     string    `json:"prefix,omitempty"`
	Connection string    `json:"connection,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
