package session

import "errors"

var (
	// ErrSessionNotFound indicates no session exists for the token
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrSessionExpired indicates the session passed its expiry time
	ErrSessionExpired = errors.New("session.expired")

	// ErrSessionRevoked indicates the session was explicitly revoked
	ErrSessionRevoked = errors.New("session.revoked")

	// ErrInvalidSession indicates a malformed session record
	ErrInvalidSession = errors.New("session.invalid")

	// ErrTokenGeneration indicates token generation failed
	ErrTokenGeneration = errors.New("session.token_generation_failed")
)
