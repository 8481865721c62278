package authz

import "errors"

var (
	// ErrCacheMiss is returned by CacheStore implementations when no entry
	// exists for the principal.
	ErrCacheMiss = errors.New("authz.cache_miss")

	// ErrUnknownRole is returned by Manager when the referenced role slug
	// does not exist.
	ErrUnknownRole = errors.New("authz.unknown_role")

	// ErrUnknownPermission is returned by Manager when the referenced
	// permission slug does not exist.
	ErrUnknownPermission = errors.New("authz.unknown_permission")
)
