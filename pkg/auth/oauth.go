package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/audit"
	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/logger"
)

// Provider identifiers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ProviderProfile is the normalized identity a provider adapter returns
// after exchanging the authorization code.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// ProviderAdapter hides provider-specific wire details from the OAuth flow.
type ProviderAdapter interface {
	ProviderID() string
	AuthURL(state string) string
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}

// StateStore persists one-time CSRF state tokens. Consume must atomically
// check and remove so a state token cannot be replayed.
type StateStore interface {
	Store(ctx context.Context, state string, expiresAt time.Time) error
	Consume(ctx context.Context, state string) error
}

// MemoryStateStore keeps state tokens in memory. Suitable for single-node
// deployments and tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewMemoryStateStore creates an empty state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

func (s *MemoryStateStore) Store(ctx context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Drop expired tokens opportunistically; the set stays small.
	now := time.Now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = expiresAt
	return nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return ErrInvalidState
	}
	delete(s.states, state)
	if time.Now().After(exp) {
		return ErrInvalidState
	}
	return nil
}

// OAuthService runs the authorization-code flow for one provider and maps
// the resulting profile onto a principal by canonical email, creating the
// principal on first login.
type OAuthService struct {
	store        identity.Store
	adapter      ProviderAdapter
	states       StateStore
	auditor      Auditor
	stateTTL     time.Duration
	verifiedOnly bool
	log          *slog.Logger
}

// OAuthOption configures the OAuth service.
type OAuthOption func(*OAuthService)

// WithStateStore replaces the in-memory state store.
func WithStateStore(states StateStore) OAuthOption {
	return func(s *OAuthService) {
		if states != nil {
			s.states = states
		}
	}
}

// WithStateTTL sets the lifetime of CSRF state tokens.
func WithStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) {
		if ttl > 0 {
			s.stateTTL = ttl
		}
	}
}

// WithVerifiedOnly controls whether unverified provider emails are rejected.
// On by default; turning it off allows account takeover via provider email
// spoofing, so leave it on unless the provider verifies out of band.
func WithVerifiedOnly(verifiedOnly bool) OAuthOption {
	return func(s *OAuthService) {
		s.verifiedOnly = verifiedOnly
	}
}

// WithOAuthAuditor wires audit logging into the OAuth flow.
func WithOAuthAuditor(a Auditor) OAuthOption {
	return func(s *OAuthService) {
		if a != nil {
			s.auditor = a
		}
	}
}

// WithOAuthLogger sets the service logger.
func WithOAuthLogger(log *slog.Logger) OAuthOption {
	return func(s *OAuthService) {
		if log != nil {
			s.log = log
		}
	}
}

// NewOAuthService creates an OAuth flow for one provider adapter.
func NewOAuthService(store identity.Store, adapter ProviderAdapter, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		store:        store,
		adapter:      adapter,
		states:       NewMemoryStateStore(),
		auditor:      nopAuditor{},
		stateTTL:     10 * time.Minute,
		verifiedOnly: true,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthURL issues a fresh state token and returns the provider authorization
// URL to redirect the user to.
func (s *OAuthService) AuthURL(ctx context.Context) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	if err := s.states.Store(ctx, state, time.Now().Add(s.stateTTL)); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return s.adapter.AuthURL(state), nil
}

// Callback completes the flow: validates the state, exchanges the code for
// a profile, and finds or creates the matching principal.
func (s *OAuthService) Callback(ctx context.Context, code, state string) (*identity.Principal, error) {
	if err := s.states.Consume(ctx, state); err != nil {
		return nil, ErrInvalidState
	}

	profile, err := s.adapter.ResolveProfile(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) || errors.Is(err, ErrNoProviderEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve %s profile: %w", s.adapter.ProviderID(), err)
	}
	if profile.ProviderUserID == "" || profile.Email == "" {
		return nil, ErrNoProviderEmail
	}
	if s.verifiedOnly && !profile.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	p, err := s.store.PrincipalByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if !p.Active {
			s.auditor.LogError(ctx, audit.ActionLogin, "deactivated account", ErrInactivePrincipal,
				audit.WithPrincipal(p.ID))
			return nil, ErrInactivePrincipal
		}
		s.auditor.Log(ctx, audit.ActionLogin, "logged in via "+s.adapter.ProviderID(),
			audit.WithPrincipal(p.ID))
		return p, nil
	case errors.Is(err, identity.ErrNotFound):
		return s.createPrincipal(ctx, profile)
	default:
		return nil, fmt.Errorf("lookup principal: %w", err)
	}
}

func (s *OAuthService) createPrincipal(ctx context.Context, profile ProviderProfile) (*identity.Principal, error) {
	now := time.Now()
	p := &identity.Principal{
		ID:        uuid.New(),
		Email:     profile.Email,
		Active:    true,
		CreatedAt: now,
	}
	if profile.EmailVerified {
		p.VerifiedAt = &now
	}
	if err := s.store.CreatePrincipal(ctx, p); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, identity.ErrDuplicateEmail) {
			return s.store.PrincipalByEmail(ctx, profile.Email)
		}
		return nil, fmt.Errorf("create principal: %w", err)
	}

	s.auditor.Log(ctx, audit.ActionRegister, "registered via "+s.adapter.ProviderID(),
		audit.WithPrincipal(p.ID))
	return p, nil
}
