package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/logger"
)

// Recorder receives security-relevant session events. Satisfied by the audit
// engine's session adapter; a nil recorder drops events.
type Recorder interface {
	Record(ctx context.Context, principalID uuid.UUID, action, description string, meta map[string]any)
}

// Manager handles the session life-cycle over a Store.
type Manager struct {
	store        Store
	config       Config
	recorder     Recorder
	log          *slog.Logger
	activityChan chan activityUpdate
	done         chan struct{}
}

type activityUpdate struct {
	token string
	time  time.Time
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithConfig sets custom configuration.
func WithConfig(config Config) Option {
	return func(m *Manager) { m.config = config }
}

// WithLifetime sets the fixed session window.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) { m.config.Lifetime = d }
}

// WithMaxSessions sets the advisory per-principal session cap.
func WithMaxSessions(n int) Option {
	return func(m *Manager) { m.config.MaxSessions = n }
}

// WithRecorder wires session events into an audit sink.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates a session manager over the store.
func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		config:       DefaultConfig(),
		log:          logger.Discard(),
		activityChan: make(chan activityUpdate, 1000),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	// Background worker keeps activity persistence off request hot paths.
	go m.activityWorker()

	return m
}

// Create issues a new session for the principal. Exceeding the advisory
// session cap is logged, never blocked.
func (m *Manager) Create(ctx context.Context, principalID uuid.UUID, meta DeviceMeta) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	session := NewSession(principalID, token, meta, m.config.Lifetime)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if m.HasTooManySessions(ctx, principalID) {
		m.log.WarnContext(ctx, "session: principal over advisory session cap",
			slog.String("principal_id", principalID.String()),
			slog.Int("max_sessions", m.config.MaxSessions))
	}

	m.record(ctx, principalID, "session.created", "session created", map[string]any{
		"session_id": session.ID.String(),
		"ip":         meta.IP,
		"device":     meta.Device,
	})
	return session, nil
}

// Get returns the live session for the token. Expired and revoked sessions
// yield distinct errors.
func (m *Manager) Get(ctx context.Context, token string) (*Session, error) {
	session, err := m.store.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, ErrSessionRevoked
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Touch records activity on the session. Missing, revoked or expired
// sessions are a silent no-op, and expiry is never extended.
func (m *Manager) Touch(ctx context.Context, token string) {
	session, err := m.store.ByToken(ctx, token)
	if err != nil || !session.IsLive() {
		return
	}
	if time.Since(session.LastActivityAt) >= m.config.ActivityUpdateThreshold {
		m.queueActivityUpdate(token)
	}
}

// Revoke terminates the session. Returns true when a live session was
// revoked, false when the token was unknown or already dead.
func (m *Manager) Revoke(ctx context.Context, token string) bool {
	session, err := m.store.ByToken(ctx, token)
	if err != nil || !session.IsLive() {
		return false
	}
	if err := m.store.Revoke(ctx, token); err != nil {
		m.log.ErrorContext(ctx, "session: revoke failed", slog.Any("error", err))
		return false
	}
	m.record(ctx, session.PrincipalID, "session.revoked", "session revoked", map[string]any{
		"session_id": session.ID.String(),
	})
	return true
}

// RevokeAll terminates every live session of the principal. One audit record
// is written for the whole operation.
func (m *Manager) RevokeAll(ctx context.Context, principalID uuid.UUID) (int, error) {
	revoked, err := m.store.RevokeByPrincipal(ctx, principalID, "")
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	if revoked > 0 {
		m.record(ctx, principalID, "session.revoked_all", "all sessions revoked", map[string]any{
			"revoked": revoked,
		})
	}
	return revoked, nil
}

// RevokeOthers terminates every live session of the principal except the one
// holding exceptToken. One audit record is written for the whole operation.
func (m *Manager) RevokeOthers(ctx context.Context, principalID uuid.UUID, exceptToken string) (int, error) {
	revoked, err := m.store.RevokeByPrincipal(ctx, principalID, exceptToken)
	if err != nil {
		return 0, fmt.Errorf("revoke other sessions: %w", err)
	}
	if revoked > 0 {
		m.record(ctx, principalID, "session.revoked_others", "other sessions revoked", map[string]any{
			"revoked": revoked,
		})
	}
	return revoked, nil
}

// ActiveSessions returns the principal's live sessions, most recently active
// first.
func (m *Manager) ActiveSessions(ctx context.Context, principalID uuid.UUID) ([]Session, error) {
	return m.store.ActiveByPrincipal(ctx, principalID)
}

// CleanupExpired hard-deletes expired sessions and returns the count.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := m.store.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return removed, nil
}

// HasTooManySessions reports whether the principal exceeds the advisory
// session cap. Advisory only: nothing is evicted, and lookup failures report
// false.
func (m *Manager) HasTooManySessions(ctx context.Context, principalID uuid.UUID) bool {
	if m.config.MaxSessions <= 0 {
		return false
	}
	sessions, err := m.store.ActiveByPrincipal(ctx, principalID)
	if err != nil {
		m.log.ErrorContext(ctx, "session: active session count failed", slog.Any("error", err))
		return false
	}
	return len(sessions) > m.config.MaxSessions
}

func (m *Manager) record(ctx context.Context, principalID uuid.UUID, action, description string, meta map[string]any) {
	if m.recorder != nil {
		m.recorder.Record(ctx, principalID, action, description, meta)
	}
}

func (m *Manager) queueActivityUpdate(token string) {
	select {
	case m.activityChan <- activityUpdate{token: token, time: time.Now()}:
	default:
		// Channel full, drop the update rather than block the hot path.
	}
}

func (m *Manager) activityWorker() {
	for {
		select {
		case update := <-m.activityChan:
			_ = m.store.UpdateActivity(context.Background(), update.token, update.time)
		case <-m.done:
			// Drain remaining updates for graceful shutdown.
			for {
				select {
				case update := <-m.activityChan:
					_ = m.store.UpdateActivity(context.Background(), update.token, update.time)
				default:
					return
				}
			}
		}
	}
}

// Close gracefully shuts down the session manager.
func (m *Manager) Close() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
		return nil
	}
}

// generateToken creates a cryptographically secure opaque token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
