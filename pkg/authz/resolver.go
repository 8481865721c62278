package authz

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/logger"
)

// DefaultSuperAdminRole is the role slug that bypasses permission checks
// unless overridden with WithSuperAdminRole.
const DefaultSuperAdminRole = "super-admin"

// Config holds resolver tuning loaded from the environment.
type Config struct {
	SuperAdminRole string        `env:"AUTHZ_SUPER_ADMIN_ROLE" envDefault:"super-admin"`
	CacheTTL       time.Duration `env:"AUTHZ_CACHE_TTL" envDefault:"5m"`
	CacheSize      int           `env:"AUTHZ_CACHE_SIZE" envDefault:"10000"`
}

// Resolver answers permission and role questions for principals.
// All boolean methods fail closed: errors are logged, never returned.
type Resolver struct {
	store      identity.Store
	cache      CacheStore
	superAdmin string
	log        *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables caching of per-principal role/permission sets.
func WithCache(c CacheStore) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithSuperAdminRole overrides the bypass role slug.
func WithSuperAdminRole(slug string) Option {
	return func(r *Resolver) {
		if slug != "" {
			r.superAdmin = slug
		}
	}
}

// WithLogger sets the logger for fail-closed error reporting.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over the identity store. Without WithCache
// every check reads through to the store.
func NewResolver(store identity.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		superAdmin: DefaultSuperAdminRole,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasPermission reports whether the principal holds the permission. The
// super-admin role is checked first and bypasses the effective-set
// computation entirely.
func (r *Resolver) HasPermission(ctx context.Context, principalID uuid.UUID, slug string) bool {
	roles, err := r.roles(ctx, principalID)
	if err != nil {
		r.denied(ctx, principalID, "permission", slug, err)
		return false
	}
	if r.isSuperAdmin(roles) {
		return true
	}

	perms, err := r.permissions(ctx, principalID)
	if err != nil {
		r.denied(ctx, principalID, "permission", slug, err)
		return false
	}
	return slices.ContainsFunc(perms, func(p identity.Permission) bool { return p.Slug == slug })
}

// HasAnyPermission reports whether the principal holds at least one of the
// permissions. Short-circuits on the first hit.
func (r *Resolver) HasAnyPermission(ctx context.Context, principalID uuid.UUID, slugs ...string) bool {
	for _, slug := range slugs {
		if r.HasPermission(ctx, principalID, slug) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the principal holds every permission.
// Short-circuits on the first miss.
func (r *Resolver) HasAllPermissions(ctx context.Context, principalID uuid.UUID, slugs ...string) bool {
	for _, slug := range slugs {
		if !r.HasPermission(ctx, principalID, slug) {
			return false
		}
	}
	return true
}

// HasRole reports whether the principal holds the active role.
func (r *Resolver) HasRole(ctx context.Context, principalID uuid.UUID, slug string) bool {
	roles, err := r.roles(ctx, principalID)
	if err != nil {
		r.denied(ctx, principalID, "role", slug, err)
		return false
	}
	return slices.ContainsFunc(roles, func(role identity.Role) bool {
		return role.Active && role.Slug == slug
	})
}

// HasAnyRole reports whether the principal holds at least one of the roles.
func (r *Resolver) HasAnyRole(ctx context.Context, principalID uuid.UUID, slugs ...string) bool {
	for _, slug := range slugs {
		if r.HasRole(ctx, principalID, slug) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the principal holds every role.
func (r *Resolver) HasAllRoles(ctx context.Context, principalID uuid.UUID, slugs ...string) bool {
	for _, slug := range slugs {
		if !r.HasRole(ctx, principalID, slug) {
			return false
		}
	}
	return true
}

// UserPermissions returns the materialized effective permission set:
// direct grants plus permissions of active roles, deduplicated, active
// permissions on active modules only, ordered by slug.
func (r *Resolver) UserPermissions(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error) {
	return r.permissions(ctx, principalID)
}

// UserRoles returns the principal's roles ordered by slug.
func (r *Resolver) UserRoles(ctx context.Context, principalID uuid.UUID) ([]identity.Role, error) {
	return r.roles(ctx, principalID)
}

// Invalidate drops the principal's cached role/permission sets.
func (r *Resolver) Invalidate(ctx context.Context, principalID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, principalID); err != nil {
		r.log.ErrorContext(ctx, "authz: cache invalidation failed",
			slog.String("principal_id", principalID.String()), slog.Any("error", err))
	}
}

// Flush drops the whole cache namespace. The blanket fallback for
// mutations whose blast radius cannot be determined.
func (r *Resolver) Flush(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Flush(ctx); err != nil {
		r.log.ErrorContext(ctx, "authz: cache flush failed", slog.Any("error", err))
	}
}

func (r *Resolver) isSuperAdmin(roles []identity.Role) bool {
	return slices.ContainsFunc(roles, func(role identity.Role) bool {
		return role.Active && role.Slug == r.superAdmin
	})
}

func (r *Resolver) roles(ctx context.Context, principalID uuid.UUID) ([]identity.Role, error) {
	if r.cache != nil {
		if roles, err := r.cache.GetRoles(ctx, principalID); err == nil {
			return roles, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			r.log.WarnContext(ctx, "authz: role cache read failed", slog.Any("error", err))
		}
	}

	roles, err := r.store.RolesByPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetRoles(ctx, principalID, roles); err != nil {
			r.log.WarnContext(ctx, "authz: role cache write failed", slog.Any("error", err))
		}
	}
	return roles, nil
}

func (r *Resolver) permissions(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error) {
	if r.cache != nil {
		if perms, err := r.cache.GetPermissions(ctx, principalID); err == nil {
			return perms, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			r.log.WarnContext(ctx, "authz: permission cache read failed", slog.Any("error", err))
		}
	}

	perms, err := r.loadEffectiveSet(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetPermissions(ctx, principalID, perms); err != nil {
			r.log.WarnContext(ctx, "authz: permission cache write failed", slog.Any("error", err))
		}
	}
	return perms, nil
}

func (r *Resolver) loadEffectiveSet(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error) {
	direct, err := r.store.DirectPermissions(ctx, principalID)
	if err != nil {
		return nil, err
	}

	roles, err := r.store.RolesByPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(direct))
	var union []identity.Permission
	for _, p := range direct {
		if _, dup := seen[p.ID]; !dup {
			seen[p.ID] = struct{}{}
			union = append(union, p)
		}
	}
	for _, role := range roles {
		if !role.Active {
			continue
		}
		rolePerms, err := r.store.PermissionsByRole(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range rolePerms {
			if _, dup := seen[p.ID]; !dup {
				seen[p.ID] = struct{}{}
				union = append(union, p)
			}
		}
	}

	activeModules, err := r.activeModuleSet(ctx)
	if err != nil {
		return nil, err
	}

	effective := union[:0]
	for _, p := range union {
		if !p.Active {
			continue
		}
		if p.ModuleID != nil {
			if _, ok := activeModules[*p.ModuleID]; !ok {
				continue
			}
		}
		effective = append(effective, p)
	}

	slices.SortFunc(effective, func(a, b identity.Permission) int {
		return strings.Compare(a.Slug, b.Slug)
	})
	return effective, nil
}

func (r *Resolver) activeModuleSet(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	modules, err := r.store.Modules(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[uuid.UUID]struct{}, len(modules))
	for _, m := range modules {
		if m.Active {
			active[m.ID] = struct{}{}
		}
	}
	return active, nil
}

// denied records a fail-closed decision caused by an internal error.
func (r *Resolver) denied(ctx context.Context, principalID uuid.UUID, kind, slug string, err error) {
	r.log.ErrorContext(ctx, "authz: check failed closed",
		slog.String("principal_id", principalID.String()),
		slog.String(kind, slug),
		slog.Any("error", err))
}
