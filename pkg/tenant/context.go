package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/identity"
)

type contextKey struct{}

// WithTenant returns a context carrying the tenant.
func WithTenant(ctx context.Context, t *identity.Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext extracts the tenant from the context.
func FromContext(ctx context.Context) (*identity.Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(*identity.Tenant)
	return t, ok
}

// MustFromContext extracts the tenant or panics. Use only behind
// RequireTenant middleware.
func MustFromContext(ctx context.Context) *identity.Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic(ErrNoTenantInContext)
	}
	return t
}

// IDFromContext returns the tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return t.ID, true
}

// LoggerExtractor annotates log records with the tenant slug when one is
// present in the context. Plug it into logger.New via
// logger.WithContextExtractors.
func LoggerExtractor(ctx context.Context) (slog.Attr, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("tenant", t.Slug), true
}
