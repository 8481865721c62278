package identity

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("identity.not_found")

	// ErrDuplicateEmail is returned when a principal with the same
	// canonical email already exists.
	ErrDuplicateEmail = errors.New("identity.duplicate_email")

	// ErrDuplicateSlug is returned when a role, permission or module slug
	// is already taken.
	ErrDuplicateSlug = errors.New("identity.duplicate_slug")

	// ErrModuleCycle is returned when a module parent assignment would
	// make a module its own ancestor.
	ErrModuleCycle = errors.New("identity.module_cycle")

	// ErrValidation is returned when a record is rejected before any
	// store write.
	ErrValidation = errors.New("identity.validation_failed")
)
