package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/guardkit/guardkit/pkg/cache"
	"github.com/guardkit/guardkit/pkg/identity"
)

// Provider looks up tenants by the identifiers a resolver extracts from
// requests, typically a slug or a custom domain.
type Provider interface {
	ByIdentifier(ctx context.Context, identifier string) (*identity.Tenant, error)
}

// StoreProvider resolves tenants against an identity store, matching the
// identifier against tenant slugs and custom domains.
type StoreProvider struct {
	store identity.Store
}

// NewStoreProvider creates a provider backed by the identity store.
func NewStoreProvider(store identity.Store) *StoreProvider {
	return &StoreProvider{store: store}
}

func (p *StoreProvider) ByIdentifier(ctx context.Context, identifier string) (*identity.Tenant, error) {
	t, err := p.store.TenantByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, errors.Join(ErrTenantNotFound, err)
		}
		return nil, err
	}
	return t, nil
}

// CachedProvider wraps a Provider with a TTL cache so the hot path of every
// request does not hit storage. Lookup misses are not cached.
type CachedProvider struct {
	next  Provider
	cache *cache.Cache[string, *identity.Tenant]
}

// NewCachedProvider wraps next with a TTL cache of the given size.
func NewCachedProvider(next Provider, capacity int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.New[string, *identity.Tenant](capacity, ttl),
	}
}

func (p *CachedProvider) ByIdentifier(ctx context.Context, identifier string) (*identity.Tenant, error) {
	if t, ok := p.cache.Get(identifier); ok {
		clone := *t
		return &clone, nil
	}
	t, err := p.next.ByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	clone := *t
	p.cache.Set(identifier, &clone)
	return t, nil
}

// Invalidate drops a single identifier from the cache.
func (p *CachedProvider) Invalidate(identifier string) {
	p.cache.Delete(identifier)
}

// Flush drops all cached tenants.
func (p *CachedProvider) Flush() {
	p.cache.Flush()
}

var (
	_ Provider = (*StoreProvider)(nil)
	_ Provider = (*CachedProvider)(nil)
)
