// Package tenant resolves the tenant for each request and scopes it through
// the context.
//
// A Resolver extracts a tenant identifier from the request using one of four
// strategies: subdomain ("acme" from acme.app.com), full domain, HTTP header,
// or query parameter. Strategies compose: a CompositeResolver tries several
// in order. The strategy is usually picked from TENANT_MODE configuration
// via NewResolverFromConfig, which rejects unknown modes at startup.
//
// A Provider loads the tenant record for an identifier, typically backed by
// the identity store and wrapped in a TTL cache. The middleware glues both
// together: resolve, load, validate active, store in context. Resolution is
// idempotent — a request that already carries a tenant is passed through
// untouched — and a configured default tenant serves as the fallback when no
// identifier matches.
//
// Stores binds the tenant's data partition (named connection or table
// prefix) to the request context instead of any process-global switch, so
// concurrent requests for different tenants stay isolated.
package tenant
