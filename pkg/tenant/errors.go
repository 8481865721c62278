package tenant

import "errors"

var (
	// ErrTenantNotFound indicates no tenant matches the identifier
	ErrTenantNotFound = errors.New("tenant.not_found")

	// ErrInactiveTenant indicates the resolved tenant is deactivated
	ErrInactiveTenant = errors.New("tenant.inactive")

	// ErrNoTenantInContext indicates a handler required a tenant scope
	ErrNoTenantInContext = errors.New("tenant.not_in_context")

	// ErrInvalidMode indicates an unknown TENANT_MODE value
	ErrInvalidMode = errors.New("tenant.invalid_mode")
)
