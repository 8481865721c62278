package authz

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/cache"
	"github.com/guardkit/guardkit/pkg/identity"
)

// CacheStore caches per-principal role and permission sets. Roles and
// permissions are cached independently so the super-admin short-circuit
// never forces a permission-set load.
//
// Get methods return ErrCacheMiss when no entry exists. Implementations may
// also return transport errors; the resolver treats any error as a miss.
type CacheStore interface {
	GetRoles(ctx context.Context, principalID uuid.UUID) ([]identity.Role, error)
	SetRoles(ctx context.Context, principalID uuid.UUID, roles []identity.Role) error
	GetPermissions(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error)
	SetPermissions(ctx context.Context, principalID uuid.UUID, perms []identity.Permission) error

	// Delete drops both sets for one principal; Flush drops everything.
	Delete(ctx context.Context, principalID uuid.UUID) error
	Flush(ctx context.Context) error
}

// MemoryCache is an in-process CacheStore on a TTL-LRU. Suitable for
// single-node deployments; multi-node setups should use RedisCache so
// invalidations are visible across instances.
type MemoryCache struct {
	roles *cache.Cache[uuid.UUID, []identity.Role]
	perms *cache.Cache[uuid.UUID, []identity.Permission]
}

// NewMemoryCache creates a memory cache holding up to capacity principals
// with the given TTL per entry.
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		roles: cache.New[uuid.UUID, []identity.Role](capacity, ttl),
		perms: cache.New[uuid.UUID, []identity.Permission](capacity, ttl),
	}
}

func (c *MemoryCache) GetRoles(ctx context.Context, principalID uuid.UUID) ([]identity.Role, error) {
	roles, ok := c.roles.Get(principalID)
	if !ok {
		return nil, ErrCacheMiss
	}
	return roles, nil
}

func (c *MemoryCache) SetRoles(ctx context.Context, principalID uuid.UUID, roles []identity.Role) error {
	c.roles.Set(principalID, roles)
	return nil
}

func (c *MemoryCache) GetPermissions(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error) {
	perms, ok := c.perms.Get(principalID)
	if !ok {
		return nil, ErrCacheMiss
	}
	return perms, nil
}

func (c *MemoryCache) SetPermissions(ctx context.Context, principalID uuid.UUID, perms []identity.Permission) error {
	c.perms.Set(principalID, perms)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, principalID uuid.UUID) error {
	c.roles.Delete(principalID)
	c.perms.Delete(principalID)
	return nil
}

func (c *MemoryCache) Flush(ctx context.Context) error {
	c.roles.Flush()
	c.perms.Flush()
	return nil
}

var _ CacheStore = (*MemoryCache)(nil)
