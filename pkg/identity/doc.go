// Package identity holds the principals, roles, permissions, feature modules
// and tenants the access-control toolkit operates on.
//
// The package is pure data plus relationship invariants: email uniqueness is
// enforced on a case-folded canonical form, permission and role slugs are
// globally unique, and the module tree rejects cycles. Authorization
// decisions live in pkg/authz; this package only answers "what is assigned
// to whom".
//
// Store is the persistence boundary. MemoryStore is the reference
// implementation used in tests and small deployments; PostgresStore runs on
// a pgx connection pool and supports per-tenant table prefixes.
package identity
