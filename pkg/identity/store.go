package identity

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary for identity data. Implementations must
// enforce canonical-email and slug uniqueness and the module tree invariant.
type Store interface {
	// Principals.
	CreatePrincipal(ctx context.Context, p *Principal) error
	PrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	PrincipalByEmail(ctx context.Context, email string) (*Principal, error)
	UpdatePrincipal(ctx context.Context, p *Principal) error
	DeactivatePrincipal(ctx context.Context, id uuid.UUID) error

	// Roles.
	CreateRole(ctx context.Context, r *Role) error
	RoleByID(ctx context.Context, id uuid.UUID) (*Role, error)
	RoleBySlug(ctx context.Context, slug string) (*Role, error)
	UpdateRole(ctx context.Context, r *Role) error

	// Permissions.
	CreatePermission(ctx context.Context, p *Permission) error
	PermissionBySlug(ctx context.Context, slug string) (*Permission, error)
	UpdatePermission(ctx context.Context, p *Permission) error

	// Modules.
	CreateModule(ctx context.Context, m *Module) error
	ModuleByID(ctx context.Context, id uuid.UUID) (*Module, error)
	ModuleBySlug(ctx context.Context, slug string) (*Module, error)
	UpdateModule(ctx context.Context, m *Module) error
	Modules(ctx context.Context) ([]Module, error)
	SetModuleParent(ctx context.Context, moduleID uuid.UUID, parentID *uuid.UUID) error

	// Assignments. The relation mutations are idempotent: assigning an
	// existing pair or revoking a missing one is not an error.
	AssignRole(ctx context.Context, principalID, roleID uuid.UUID) error
	RevokeRole(ctx context.Context, principalID, roleID uuid.UUID) error
	GrantPermission(ctx context.Context, principalID, permissionID uuid.UUID) error
	RevokePermission(ctx context.Context, principalID, permissionID uuid.UUID) error
	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error

	// Relation queries.
	RolesByPrincipal(ctx context.Context, principalID uuid.UUID) ([]Role, error)
	DirectPermissions(ctx context.Context, principalID uuid.UUID) ([]Permission, error)
	PermissionsByRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
	PrincipalsWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)

	// Tenants.
	CreateTenant(ctx context.Context, t *Tenant) error
	TenantByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}
