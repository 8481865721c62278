package tenant_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/tenant"
)

func TestStores_DefaultFallbacks(t *testing.T) {
	t.Parallel()

	def := identity.NewMemoryStore()
	stores := tenant.NewStores(def, tenant.WithStoreFactory(func(*identity.Tenant) identity.Store {
		return identity.NewMemoryStore()
	}))

	// No tenant in context.
	assert.Same(t, identity.Store(def), stores.For(context.Background()))

	// Tenant without a partition shares the default store.
	shared := &identity.Tenant{ID: uuid.New(), Slug: "shared", Active: true}
	ctx := tenant.WithTenant(context.Background(), shared)
	assert.Same(t, identity.Store(def), stores.For(ctx))

	// No factory configured.
	bare := tenant.NewStores(def)
	partitioned := &identity.Tenant{ID: uuid.New(), Slug: "acme", Prefix: "acme_", Active: true}
	ctx = tenant.WithTenant(context.Background(), partitioned)
	assert.Same(t, identity.Store(def), bare.For(ctx))
}

func TestStores_PartitionedTenantsGetDedicatedStores(t *testing.T) {
	t.Parallel()

	var builds atomic.Int64
	stores := tenant.NewStores(identity.NewMemoryStore(),
		tenant.WithStoreFactory(func(*identity.Tenant) identity.Store {
			builds.Add(1)
			return identity.NewMemoryStore()
		}))

	acme := &identity.Tenant{ID: uuid.New(), Slug: "acme", Prefix: "acme_", Active: true}
	globex := &identity.Tenant{ID: uuid.New(), Slug: "globex", Connection: "globex-db", Active: true}
	acmeCtx := tenant.WithTenant(context.Background(), acme)
	globexCtx := tenant.WithTenant(context.Background(), globex)

	acmeStore := stores.For(acmeCtx)
	globexStore := stores.For(globexCtx)
	assert.NotSame(t, acmeStore, globexStore)

	// Data written through one partition is invisible to the other.
	p := &identity.Principal{ID: uuid.New(), Email: "user@acme.io", Active: true}
	require.NoError(t, acmeStore.CreatePrincipal(context.Background(), p))
	_, err := globexStore.PrincipalByID(context.Background(), p.ID)
	require.ErrorIs(t, err, identity.ErrNotFound)

	// The partition store is built once per tenant.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := stores.For(acmeCtx)
			assert.Same(t, acmeStore, got)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 2, builds.Load())
}
