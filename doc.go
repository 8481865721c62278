// Package guardkit is a pluggable authentication and authorization toolkit:
// identity storage (principals, roles, permissions, modules, tenants),
// cached permission resolution with fail-closed checks, permission-filtered
// navigation menus, token sessions with security reporting, append-only
// audit logging with threat heuristics, and request-scoped tenant
// resolution.
//
// Each concern lives in its own package under pkg/ and composes through
// small interfaces; see the package docs for wiring examples.
package guardkit
