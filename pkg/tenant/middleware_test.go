package tenant_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/tenant"
)

func seedTenants(t *testing.T) identity.Store {
	t.Helper()

	store := identity.NewMemoryStore()
	ctx := context.Background()
	tenants := []*identity.Tenant{
		{ID: uuid.New(), Slug: "acme", Domain: "portal.acme.io", Active: true},
		{ID: uuid.New(), Slug: "globex", Active: true},
		{ID: uuid.New(), Slug: "dormant", Active: false},
	}
	for _, tn := range tenants {
		require.NoError(t, store.CreateTenant(ctx, tn))
	}
	return store
}

func echoTenant() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tn, ok := tenant.FromContext(r.Context()); ok {
			_, _ = w.Write([]byte(tn.Slug))
			return
		}
		_, _ = w.Write([]byte("none"))
	})
}

func TestMiddleware_ResolvesBySubdomain(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewSubdomainResolver(".app.example.com"),
		tenant.NewStoreProvider(seedTenants(t)),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.app.example.com"
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, "acme", rec.Body.String())
}

func TestMiddleware_ResolvesByDomain(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewDomainResolver(),
		tenant.NewStoreProvider(seedTenants(t)),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "portal.acme.io"
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, "acme", rec.Body.String())
}

type failingProvider struct{ err error }

func (p failingProvider) ByIdentifier(context.Context, string) (*identity.Tenant, error) {
	return nil, p.err
}

func TestMiddleware_StoreFailureRejectsRequest(t *testing.T) {
	t.Parallel()

	storeDown := errors.New("connection refused")
	mw := tenant.NewMiddleware(
		tenant.NewHeaderResolver(""),
		failingProvider{err: storeDown},
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "store failure must not serve the request untenanted")
}

func TestMiddleware_StoreFailureOnDefaultLookupRejectsRequest(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewHeaderResolver(""),
		failingProvider{err: errors.New("connection refused")},
		tenant.WithDefaultTenant("acme"),
	)

	// No tenant signal on the request, so only the default lookup runs.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware_UnknownTenantPassesThrough(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewHeaderResolver(""),
		tenant.NewStoreProvider(seedTenants(t)),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "nope")
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, "none", rec.Body.String())
}

func TestMiddleware_DefaultFallback(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewHeaderResolver(""),
		tenant.NewStoreProvider(seedTenants(t)),
		tenant.WithDefaultTenant("globex"),
	)

	// No header at all falls back to the default.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)
	assert.Equal(t, "globex", rec.Body.String())

	// Unknown identifier also falls back.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "nope")
	rec = httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)
	assert.Equal(t, "globex", rec.Body.String())
}

func TestMiddleware_InactiveTenantNotInjected(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewHeaderResolver(""),
		tenant.NewStoreProvider(seedTenants(t)),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "dormant")
	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, "none", rec.Body.String())
}

func TestMiddleware_Idempotent(t *testing.T) {
	t.Parallel()

	mw := tenant.NewMiddleware(
		tenant.NewHeaderResolver(""),
		tenant.NewStoreProvider(seedTenants(t)),
	)

	preset := &identity.Tenant{ID: uuid.New(), Slug: "preset", Active: true}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), preset))
	req.Header.Set("X-Tenant-ID", "acme")

	rec := httptest.NewRecorder()
	mw.Handler(echoTenant()).ServeHTTP(rec, req)

	assert.Equal(t, "preset", rec.Body.String())
}

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	handler := tenant.RequireTenant(echoTenant())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	tn := &identity.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), tn))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", rec.Body.String())
}

type countingProvider struct {
	next  tenant.Provider
	calls atomic.Int64
}

func (p *countingProvider) ByIdentifier(ctx context.Context, identifier string) (*identity.Tenant, error) {
	p.calls.Add(1)
	return p.next.ByIdentifier(ctx, identifier)
}

func TestCachedProvider(t *testing.T) {
	t.Parallel()

	counting := &countingProvider{next: tenant.NewStoreProvider(seedTenants(t))}
	cached := tenant.NewCachedProvider(counting, 100, time.Minute)

	ctx := context.Background()
	for range 5 {
		tn, err := cached.ByIdentifier(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "acme", tn.Slug)
	}
	assert.EqualValues(t, 1, counting.calls.Load())

	// Misses are not cached.
	_, err := cached.ByIdentifier(ctx, "nope")
	require.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, err = cached.ByIdentifier(ctx, "nope")
	require.ErrorIs(t, err, tenant.ErrTenantNotFound)
	assert.EqualValues(t, 3, counting.calls.Load())

	cached.Invalidate("acme")
	_, err = cached.ByIdentifier(ctx, "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 4, counting.calls.Load())
}

func TestCachedProvider_ReturnsCopies(t *testing.T) {
	t.Parallel()

	cached := tenant.NewCachedProvider(tenant.NewStoreProvider(seedTenants(t)), 100, time.Minute)

	ctx := context.Background()
	first, err := cached.ByIdentifier(ctx, "acme")
	require.NoError(t, err)
	first.Slug = "tampered"

	second, err := cached.ByIdentifier(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", second.Slug)
}
