package session

import (
	"time"

	"github.com/google/uuid"
)

// DeviceMeta carries the client attributes captured at session creation.
type DeviceMeta struct {
	Device    string `json:"device,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Session is one authenticated principal session. ExpiresAt is fixed at
// creation; activity updates move LastActivityAt only.
type Session struct {
	ID             uuid.UUID `json:"id"`
	PrincipalID    uuid.UUID `json:"principal_id"`
	Token          string    `json:"token"`
	Device         string    `json:"device,omitempty"`
	IP             string    `json:"ip,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	Active         bool      `json:"active"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewSession creates an active session for the principal with a fixed expiry
// window.
func NewSession(principalID uuid.UUID, token string, meta DeviceMeta, lifetime time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:             uuid.New(),
		PrincipalID:    principalID,
		Token:          token,
		Device:         meta.Device,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		Active:         true,
		LastActivityAt: now,
		ExpiresAt:      now.Add(lifetime),
		CreatedAt:      now,
	}
}

// IsExpired returns true if the session passed its expiry time.
func (s *Session) IsExpired() bool {
	return s != nil && time.Now().After(s.ExpiresAt)
}

// IsLive returns true if the session is active and unexpired.
func (s *Session) IsLive() bool {
	return s != nil && s.Active && !s.IsExpired()
}
