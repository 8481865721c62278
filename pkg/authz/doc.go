// Package authz computes effective permissions and roles for principals.
//
// The effective permission set of a principal is the union of directly
// granted permissions and the permissions of every active role the principal
// holds, filtered to active permissions and active modules. A configurable
// super-admin role bypasses the computation entirely and is checked first,
// before the permission set is ever loaded.
//
// All boolean checks fail closed: any storage error is logged and reported
// as "no permission" rather than surfaced to the caller.
//
// Role and permission sets are cached per principal behind the CacheStore
// interface, with an in-process TTL-LRU implementation and a Redis-backed
// one for multi-node deployments. Grant mutations go through Manager, which
// commits the store write first and invalidates affected cache entries
// after, so a stale grant is never observable past the invalidation point.
package authz
