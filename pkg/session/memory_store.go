package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store using in-memory storage. All returned
// records are defensive copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ticker   *time.Ticker
	done     chan struct{}
}

// NewMemoryStore creates an in-memory session store. A positive
// cleanupInterval starts a background ticker that removes expired sessions.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

func (m *MemoryStore) Create(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" || session.PrincipalID == uuid.Nil {
		return ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.Token]; exists {
		return ErrInvalidSession
	}
	cp := *session
	m.sessions[session.Token] = &cp
	return nil
}

func (m *MemoryStore) ByToken(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[token]
	if !exists {
		return nil, ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *MemoryStore) UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[token]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastActivityAt = lastActivity
	return nil
}

func (m *MemoryStore) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[token]
	if !exists {
		return ErrSessionNotFound
	}
	session.Active = false
	return nil
}

func (m *MemoryStore) RevokeByPrincipal(ctx context.Context, principalID uuid.UUID, exceptToken string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	revoked := 0
	for token, session := range m.sessions {
		if session.PrincipalID != principalID || token == exceptToken {
			continue
		}
		if session.Active && session.ExpiresAt.After(now) {
			session.Active = false
			revoked++
		}
	}
	return revoked, nil
}

func (m *MemoryStore) ActiveByPrincipal(ctx context.Context, principalID uuid.UUID) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var result []Session
	for _, session := range m.sessions {
		if session.PrincipalID == principalID && session.Active && session.ExpiresAt.After(now) {
			result = append(result, *session)
		}
	}
	slices.SortFunc(result, func(a, b Session) int {
		return b.LastActivityAt.Compare(a.LastActivityAt)
	})
	return result, nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Close stops the cleanup goroutine.
func (m *MemoryStore) Close() error {
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.done)
	}
	return nil
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_, _ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}

// Stats returns total and live session counts.
func (m *MemoryStore) Stats() (total, live int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total = len(m.sessions)
	for _, session := range m.sessions {
		if session.IsLive() {
			live++
		}
	}
	return
}

var _ Store = (*MemoryStore)(nil)
