package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/audit"
	"github.com/guardkit/guardkit/pkg/email"
	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/logger"
)

// Auditor receives security events from the credential flows. *audit.Engine
// satisfies it.
type Auditor interface {
	Log(ctx context.Context, action, description string, opts ...audit.EntryOption)
	LogError(ctx context.Context, action, description string, err error, opts ...audit.EntryOption)
}

// Service implements password-based flows over the identity store.
type Service struct {
	store   identity.Store
	hasher  Hasher
	cfg     Config
	auditor Auditor
	sender  email.Sender
	log     *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithHasher replaces the default bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithAuditor wires audit logging into the flows.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		if a != nil {
			s.auditor = a
		}
	}
}

// WithEmailSender wires outbound mail for password reset links.
func WithEmailSender(sender email.Sender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a password authentication service.
func New(store identity.Store, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:   store,
		hasher:  NewBcryptHasher(cfg.BcryptCost),
		cfg:     cfg,
		auditor: nopAuditor{},
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a principal with the given email and password. The email
// is stored as entered; uniqueness is enforced on its canonical form.
func (s *Service) Register(ctx context.Context, emailAddr, password string) (*identity.Principal, error) {
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, errors.Join(identity.ErrValidation, err)
	}
	if err := s.checkStrength(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &identity.Principal{
		ID:           uuid.New(),
		Email:        emailAddr,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			return nil, errors.Join(ErrEmailTaken, err)
		}
		return nil, fmt.Errorf("create principal: %w", err)
	}

	s.auditor.Log(ctx, audit.ActionRegister, "account registered", audit.WithPrincipal(p.ID))
	return p, nil
}

// Login verifies the credentials and returns the principal. All credential
// failures surface as ErrInvalidCredentials; only a deactivated account is
// reported distinctly, and only after the password matched.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*identity.Principal, error) {
	p, err := s.store.PrincipalByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.auditor.LogError(ctx, audit.ActionLogin, "unknown account", ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	if err := s.hasher.Compare(p.PasswordHash, password); err != nil {
		s.auditor.LogError(ctx, audit.ActionLogin, "wrong password", ErrInvalidCredentials,
			audit.WithPrincipal(p.ID))
		return nil, ErrInvalidCredentials
	}

	if !p.Active {
		s.auditor.LogError(ctx, audit.ActionLogin, "deactivated account", ErrInactivePrincipal,
			audit.WithPrincipal(p.ID))
		return nil, ErrInactivePrincipal
	}

	s.auditor.Log(ctx, audit.ActionLogin, "logged in", audit.WithPrincipal(p.ID))
	return p, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, principalID uuid.UUID, oldPassword, newPassword string) error {
	if err := s.checkStrength(newPassword); err != nil {
		return err
	}

	p, err := s.store.PrincipalByID(ctx, principalID)
	if err != nil {
		return fmt.Errorf("lookup principal: %w", err)
	}
	if err := s.hasher.Compare(p.PasswordHash, oldPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	p.PasswordHash = hash
	if err := s.store.UpdatePrincipal(ctx, p); err != nil {
		return fmt.Errorf("update principal: %w", err)
	}

	s.auditor.Log(ctx, audit.ActionPasswordChange, "password changed", audit.WithPrincipal(p.ID))
	return nil
}

func (s *Service) checkStrength(password string) error {
	min := s.cfg.MinPasswordLength
	if min <= 0 {
		min = 8
	}
	if len(password) < min {
		return fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, min)
	}
	return nil
}

type nopAuditor struct{}

func (nopAuditor) Log(context.Context, string, string, ...audit.EntryOption) {}
func (nopAuditor) LogError(context.Context, string, string, error, ...audit.EntryOption) {
}
