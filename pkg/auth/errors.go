package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")
	ErrEmailTaken         = errors.New("auth.email_taken")
	ErrWeakPassword       = errors.New("auth.weak_password")
	ErrInactivePrincipal  = errors.New("auth.inactive_principal")

	ErrTokenInvalid = errors.New("auth.token_invalid")
	ErrTokenExpired = errors.New("auth.token_expired")

	ErrInvalidState    = errors.New("auth.invalid_state")
	ErrInvalidCode     = errors.New("auth.invalid_code")
	ErrUnverifiedEmail = errors.New("auth.unverified_email")
	ErrNoProviderEmail = errors.New("auth.no_provider_email")
)
