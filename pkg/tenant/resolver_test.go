package tenant_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/tenant"
)

func TestSubdomainResolver(t *testing.T) {
	t.Parallel()

	r := tenant.NewSubdomainResolver(".app.example.com")

	tests := []struct {
		host string
		want string
	}{
		{"acme.app.example.com", "acme"},
		{"acme.app.example.com:8080", "acme"},
		{"www.app.example.com", ""},
		{"app.example.com", ""},
		{"other.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		got, err := r.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "host %s", tt.host)
	}
}

func TestSubdomainResolver_NoSuffix(t *testing.T) {
	t.Parallel()

	r := tenant.NewSubdomainResolver("")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.example.com"
	got, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acme", got)

	req.Host = "example.com"
	got, err = r.Resolve(req)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDomainResolver(t *testing.T) {
	t.Parallel()

	r := tenant.NewDomainResolver()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "portal.acme.io:443"
	got, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "portal.acme.io", got)
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	r := tenant.NewHeaderResolver("")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	got, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acme", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err = r.Resolve(req)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParamResolver(t *testing.T) {
	t.Parallel()

	r := tenant.NewParamResolver("tenant")

	req := httptest.NewRequest(http.MethodGet, "/dashboard?tenant=acme", nil)
	got, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acme", got)
}

func TestCompositeResolver(t *testing.T) {
	t.Parallel()

	r := tenant.NewCompositeResolver(
		tenant.NewHeaderResolver("X-Tenant-ID"),
		tenant.NewParamResolver("tenant"),
	)

	req := httptest.NewRequest(http.MethodGet, "/?tenant=fallback", nil)
	got, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	req.Header.Set("X-Tenant-ID", "primary")
	got, err = r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "primary", got)
}

func TestCompositeResolver_ErrorsJoined(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken")
	r := tenant.NewCompositeResolver(
		tenant.ResolverFunc(func(*http.Request) (string, error) { return "", errBroken }),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := r.Resolve(req)
	require.ErrorIs(t, err, errBroken)
}

func TestNewResolverFromConfig(t *testing.T) {
	t.Parallel()

	for _, mode := range []tenant.Mode{tenant.ModeSubdomain, tenant.ModeDomain, tenant.ModeHeader, tenant.ModeParam} {
		cfg := tenant.DefaultConfig()
		cfg.Mode = mode
		r, err := tenant.NewResolverFromConfig(cfg)
		require.NoError(t, err, "mode %s", mode)
		require.NotNil(t, r)
	}

	cfg := tenant.DefaultConfig()
	cfg.Mode = "cookie"
	_, err := tenant.NewResolverFromConfig(cfg)
	require.ErrorIs(t, err, tenant.ErrInvalidMode)
}
