package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/audit"
	"github.com/guardkit/guardkit/pkg/auth"
	"github.com/guardkit/guardkit/pkg/identity"
)

type recordedEvent struct {
	action string
	failed bool
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *recordingAuditor) Log(_ context.Context, action, _ string, _ ...audit.EntryOption) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{action: action})
}

func (a *recordingAuditor) LogError(_ context.Context, action, _ string, _ error, _ ...audit.EntryOption) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{action: action, failed: true})
}

func (a *recordingAuditor) last(t *testing.T) recordedEvent {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(t, a.events)
	return a.events[len(a.events)-1]
}

func testConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.TokenSecret = "test-secret"
	cfg.BcryptCost = 4
	return cfg
}

func TestService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	sink := &recordingAuditor{}
	svc := auth.New(identity.NewMemoryStore(), testConfig(), auth.WithAuditor(sink))
	ctx := context.Background()

	p, err := svc.Register(ctx, "User@Example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "User@Example.com", p.Email)
	assert.True(t, p.Active)
	assert.Equal(t, audit.ActionRegister, sink.last(t).action)

	// Lookup is canonical, so a differently-cased email still logs in.
	got, err := svc.Login(ctx, "user@example.COM", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, audit.ActionLogin, sink.last(t).action)
	assert.False(t, sink.last(t).failed)
}

func TestService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := auth.New(identity.NewMemoryStore(), testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "s3cret-pass")
	require.ErrorIs(t, err, identity.ErrValidation)

	_, err = svc.Register(ctx, "user@example.com", "short")
	require.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := auth.New(identity.NewMemoryStore(), testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, "user@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "USER@example.com", "other-pass-123")
	require.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestService_Login_Failures(t *testing.T) {
	t.Parallel()

	sink := &recordingAuditor{}
	store := identity.NewMemoryStore()
	svc := auth.New(store, testConfig(), auth.WithAuditor(sink))
	ctx := context.Background()

	p, err := svc.Register(ctx, "user@example.com", "s3cret-pass")
	require.NoError(t, err)

	// Unknown account and wrong password are indistinguishable.
	_, err = svc.Login(ctx, "ghost@example.com", "whatever-pass")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.True(t, sink.last(t).failed)

	_, err = svc.Login(ctx, "user@example.com", "wrong-pass-123")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.True(t, sink.last(t).failed)

	// Deactivated accounts are rejected even with the right password.
	require.NoError(t, store.DeactivatePrincipal(ctx, p.ID))
	_, err = svc.Login(ctx, "user@example.com", "s3cret-pass")
	require.ErrorIs(t, err, auth.ErrInactivePrincipal)
}

func TestService_ChangePassword(t *testing.T) {
	t.Parallel()

	svc := auth.New(identity.NewMemoryStore(), testConfig())
	ctx := context.Background()

	p, err := svc.Register(ctx, "user@example.com", "s3cret-pass")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, p.ID, "wrong-old-pass", "new-pass-1234")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, p.ID, "s3cret-pass", "new-pass-1234"))

	_, err = svc.Login(ctx, "user@example.com", "s3cret-pass")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "user@example.com", "new-pass-1234")
	require.NoError(t, err)
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := auth.NewBcryptHasher(4)
	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, h.Compare(hash, "s3cret-pass"))
	require.Error(t, h.Compare(hash, "other-pass"))

	// Out-of-range cost falls back to the default instead of failing.
	fallback := auth.NewBcryptHasher(99)
	hash, err = fallback.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, fallback.Compare(hash, "s3cret-pass"))
}
