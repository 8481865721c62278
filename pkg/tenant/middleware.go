package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/logger"
)

// Middleware resolves the request tenant and injects it into the context.
type Middleware struct {
	resolver    Resolver
	provider    Provider
	defaultSlug string
	log         *slog.Logger
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*Middleware)

// WithDefaultTenant sets a fallback identifier used when the request
// carries no tenant signal or the signalled tenant does not exist.
func WithDefaultTenant(identifier string) MiddlewareOption {
	return func(m *Middleware) {
		m.defaultSlug = identifier
	}
}

// WithLogger sets the middleware logger.
func WithLogger(log *slog.Logger) MiddlewareOption {
	return func(m *Middleware) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMiddleware creates tenant resolution middleware.
func NewMiddleware(resolver Resolver, provider Provider, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		resolver: resolver,
		provider: provider,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps next with tenant resolution. Resolution is idempotent: when
// an upstream middleware already placed a tenant in the context the request
// passes through untouched. Requests without any resolvable tenant proceed
// without one unless RequireTenant guards the route; a failing tenant store
// rejects the request with 503 rather than serving it untenanted.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		t, err := m.resolve(r)
		if err != nil {
			http.Error(w, "tenant lookup unavailable", http.StatusServiceUnavailable)
			return
		}
		if t != nil {
			r = r.WithContext(WithTenant(r.Context(), t))
		}
		next.ServeHTTP(w, r)
	})
}

// resolve maps the request to its tenant. A nil tenant with a nil error means
// the request legitimately has none; a non-nil error means the provider's
// backing store failed and the answer is unknown.
func (m *Middleware) resolve(r *http.Request) (*identity.Tenant, error) {
	ctx := r.Context()

	identifier, err := m.resolver.Resolve(r)
	if err != nil {
		m.log.ErrorContext(ctx, "tenant resolution failed", "error", err)
		identifier = ""
	}

	if identifier != "" {
		t, err := m.provider.ByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			if !t.Active {
				m.log.WarnContext(ctx, "inactive tenant", "identifier", identifier)
				return nil, nil
			}
			return t, nil
		case errors.Is(err, ErrTenantNotFound):
			m.log.DebugContext(ctx, "unknown tenant", "identifier", identifier)
		default:
			m.log.ErrorContext(ctx, "tenant lookup failed", "identifier", identifier, "error", err)
			return nil, err
		}
	}

	if m.defaultSlug == "" {
		return nil, nil
	}
	t, err := m.provider.ByIdentifier(ctx, m.defaultSlug)
	switch {
	case err == nil:
	case errors.Is(err, ErrTenantNotFound):
		m.log.WarnContext(ctx, "default tenant missing", "identifier", m.defaultSlug)
		return nil, nil
	default:
		m.log.ErrorContext(ctx, "default tenant lookup failed", "identifier", m.defaultSlug, "error", err)
		return nil, err
	}
	if !t.Active {
		return nil, nil
	}
	return t, nil
}

// RequireTenant rejects requests whose context has no tenant with 404. It
// must run after Handler.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Error(w, "tenant not found", http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
