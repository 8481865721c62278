package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/session"
)

type recordedEvent struct {
	principalID uuid.UUID
	action      string
	meta        map[string]any
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) Record(_ context.Context, principalID uuid.UUID, action, _ string, meta map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{principalID: principalID, action: action, meta: meta})
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.action)
	}
	return out
}

func newManager(t *testing.T, opts ...session.Option) *session.Manager {
	t.Helper()
	store := session.NewMemoryStore(0)
	m := session.New(store, opts...)
	t.Cleanup(func() {
		_ = m.Close()
		_ = store.Close()
	})
	return m
}

func TestManager_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, session.WithLifetime(time.Hour))
	principalID := uuid.New()

	sess, err := m.Create(ctx, principalID, session.DeviceMeta{
		Device: "iPhone 15", IP: "203.0.113.7", UserAgent: "Safari",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.True(t, sess.Active)
	assert.Equal(t, principalID, sess.PrincipalID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	got, err := m.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "iPhone 15", got.Device)

	_, err = m.Get(ctx, "no-such-token")
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestManager_TouchDoesNotExtendExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, session.WithConfig(session.Config{
		Lifetime:                time.Hour,
		ActivityUpdateThreshold: 0,
	}))

	sess, err := m.Create(ctx, uuid.New(), session.DeviceMeta{})
	require.NoError(t, err)

	m.Touch(ctx, sess.Token)

	require.Eventually(t, func() bool {
		got, err := m.Get(ctx, sess.Token)
		return err == nil && got.LastActivityAt.After(sess.LastActivityAt)
	}, time.Second, 10*time.Millisecond, "activity worker must persist the update")

	got, err := m.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(sess.ExpiresAt), "fixed window: expiry must not move")

	// Touching dead tokens is a silent no-op.
	m.Touch(ctx, "no-such-token")
}

func TestManager_RevokeStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t)
	sess, err := m.Create(ctx, uuid.New(), session.DeviceMeta{})
	require.NoError(t, err)

	assert.True(t, m.Revoke(ctx, sess.Token))
	assert.False(t, m.Revoke(ctx, sess.Token), "second revoke reports false")
	assert.False(t, m.Revoke(ctx, "no-such-token"))

	_, err = m.Get(ctx, sess.Token)
	require.ErrorIs(t, err, session.ErrSessionRevoked)
}

func TestManager_ExpiredSessionDistinctError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, session.WithLifetime(time.Millisecond))
	sess, err := m.Create(ctx, uuid.New(), session.DeviceMeta{})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = m.Get(ctx, sess.Token)
	require.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestManager_RevokeAllAndOthers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sink := &recordingSink{}
	m := newManager(t, session.WithRecorder(sink))
	principalID := uuid.New()

	var tokens []string
	for range 3 {
		sess, err := m.Create(ctx, principalID, session.DeviceMeta{})
		require.NoError(t, err)
		tokens = append(tokens, sess.Token)
	}
	other, err := m.Create(ctx, uuid.New(), session.DeviceMeta{})
	require.NoError(t, err)

	kept := tokens[0]
	revoked, err := m.RevokeOthers(ctx, principalID, kept)
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	_, err = m.Get(ctx, kept)
	require.NoError(t, err, "excepted session stays live")

	revoked, err = m.RevokeAll(ctx, principalID)
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)

	_, err = m.Get(ctx, other.Token)
	require.NoError(t, err, "other principals are untouched")

	actions := sink.actions()
	assert.Equal(t, 1, countOf(actions, "session.revoked_others"), "one audit record per bulk revoke")
	assert.Equal(t, 1, countOf(actions, "session.revoked_all"))

	// Nothing left to revoke, nothing recorded.
	revoked, err = m.RevokeAll(ctx, principalID)
	require.NoError(t, err)
	assert.Zero(t, revoked)
	assert.Equal(t, 1, countOf(sink.actions(), "session.revoked_all"))
}

func countOf(items []string, want string) int {
	n := 0
	for _, item := range items {
		if item == want {
			n++
		}
	}
	return n
}

func TestManager_ActiveSessionsOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	m := session.New(store)
	t.Cleanup(func() { _ = m.Close() })

	principalID := uuid.New()
	first, err := m.Create(ctx, principalID, session.DeviceMeta{})
	require.NoError(t, err)
	second, err := m.Create(ctx, principalID, session.DeviceMeta{})
	require.NoError(t, err)

	require.NoError(t, store.UpdateActivity(ctx, first.Token, time.Now().Add(time.Minute)))

	sessions, err := m.ActiveSessions(ctx, principalID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID, "most recent activity first")
	assert.Equal(t, second.ID, sessions[1].ID)

	assert.True(t, m.Revoke(ctx, second.Token))
	sessions, err = m.ActiveSessions(ctx, principalID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestManager_CleanupExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, session.WithLifetime(time.Millisecond))
	for range 3 {
		_, err := m.Create(ctx, uuid.New(), session.DeviceMeta{})
		require.NoError(t, err)
	}
	time.Sleep(5 * time.Millisecond)

	removed, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "cleanup is idempotent")
}

func TestManager_HasTooManySessionsIsAdvisory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, session.WithMaxSessions(2))
	principalID := uuid.New()

	for range 3 {
		_, err := m.Create(ctx, principalID, session.DeviceMeta{})
		require.NoError(t, err)
	}

	assert.True(t, m.HasTooManySessions(ctx, principalID))

	// Advisory only: all three sessions stay live.
	sessions, err := m.ActiveSessions(ctx, principalID)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}
