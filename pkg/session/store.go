package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for session persistence.
type Store interface {
	// Create stores a new session. The token must be unique.
	Create(ctx context.Context, session *Session) error

	// ByToken retrieves a session by token regardless of its state.
	ByToken(ctx context.Context, token string) (*Session, error)

	// UpdateActivity updates only the last activity time.
	UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error

	// Revoke marks the session inactive. Revoking an already inactive
	// session is a no-op.
	Revoke(ctx context.Context, token string) error

	// RevokeByPrincipal marks all live sessions of the principal inactive,
	// except the session with exceptToken when non-empty. Returns the
	// number of sessions revoked.
	RevokeByPrincipal(ctx context.Context, principalID uuid.UUID, exceptToken string) (int, error)

	// ActiveByPrincipal returns the principal's live sessions ordered by
	// last activity, most recent first.
	ActiveByPrincipal(ctx context.Context, principalID uuid.UUID) ([]Session, error)

	// DeleteExpired hard-deletes sessions past their expiry and returns
	// the number removed. Idempotent.
	DeleteExpired(ctx context.Context) (int, error)
}
