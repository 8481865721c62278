package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/guardkit/guardkit/pkg/identity"
)

// RedisCache is a CacheStore on Redis, for deployments where several nodes
// must observe grant invalidations. Entries are JSON-encoded and expire
// server-side after the configured TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced under
// prefix (default "authz") so several environments can share one server.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "authz"
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) rolesKey(id uuid.UUID) string {
	return c.prefix + ":roles:" + id.String()
}

func (c *RedisCache) permsKey(id uuid.UUID) string {
	return c.prefix + ":perms:" + id.String()
}

func (c *RedisCache) GetRoles(ctx context.Context, principalID uuid.UUID) ([]identity.Role, error) {
	var roles []identity.Role
	if err := c.get(ctx, c.rolesKey(principalID), &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *RedisCache) SetRoles(ctx context.Context, principalID uuid.UUID, roles []identity.Role) error {
	return c.set(ctx, c.rolesKey(principalID), roles)
}

func (c *RedisCache) GetPermissions(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error) {
	var perms []identity.Permission
	if err := c.get(ctx, c.permsKey(principalID), &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (c *RedisCache) SetPermissions(ctx context.Context, principalID uuid.UUID, perms []identity.Permission) error {
	return c.set(ctx, c.permsKey(principalID), perms)
}

func (c *RedisCache) Delete(ctx context.Context, principalID uuid.UUID) error {
	return c.client.Del(ctx, c.rolesKey(principalID), c.permsKey(principalID)).Err()
}

// Flush removes every cached entry in this namespace. It scans instead of
// FLUSHDB so unrelated keys on a shared server survive.
func (c *RedisCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 512).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

var _ CacheStore = (*RedisCache)(nil)
