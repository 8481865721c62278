package auth

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/audit"
	"github.com/guardkit/guardkit/pkg/email"
	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/token"
)

const subjectPasswordReset = "password_reset"

type resetPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Subject  string `json:"sub"`
	ExpireAt int64  `json:"exp"`
}

// ResetRequest is the outcome of a password reset request. The token is
// always populated when the principal exists; EmailSent reports whether the
// reset link was actually delivered.
type ResetRequest struct {
	Email     string
	Token     string
	ExpiresAt time.Time
	EmailSent bool
}

var resetTemplate = template.Must(template.New("reset").Parse(`<p>A password reset was requested for your account.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>The link expires at {{.ExpiresAt}}. If you did not request this, ignore this message.</p>`))

// ForgotPassword issues a signed reset token for the account and mails the
// reset link. A send failure does not discard the token; callers decide
// whether to surface it through another channel.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) (*ResetRequest, error) {
	p, err := s.store.PrincipalByEmail(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	tok, err := token.Generate(resetPayload{
		ID:       p.ID.String(),
		Email:    identity.CanonicalEmail(emailAddr),
		Subject:  subjectPasswordReset,
		ExpireAt: expiresAt.Unix(),
	}, s.cfg.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	req := &ResetRequest{Email: p.Email, Token: tok, ExpiresAt: expiresAt}
	if s.sender != nil {
		if err := s.sendResetEmail(ctx, p.Email, tok, expiresAt); err != nil {
			s.log.WarnContext(ctx, "reset email not delivered", "error", err)
		} else {
			req.EmailSent = true
		}
	}

	s.auditor.Log(ctx, audit.ActionPasswordReset, "password reset requested", audit.WithPrincipal(p.ID))
	return req, nil
}

// ResetPassword validates the reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) (*identity.Principal, error) {
	if err := s.checkStrength(newPassword); err != nil {
		return nil, err
	}

	payload, err := token.Parse[resetPayload](resetToken, s.cfg.TokenSecret)
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	if payload.Subject != subjectPasswordReset {
		return nil, ErrTokenInvalid
	}
	if time.Now().Unix() > payload.ExpireAt {
		return nil, ErrTokenExpired
	}
	principalID, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	p, err := s.store.PrincipalByID(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p.PasswordHash = hash
	if err := s.store.UpdatePrincipal(ctx, p); err != nil {
		return nil, fmt.Errorf("update principal: %w", err)
	}

	s.auditor.Log(ctx, audit.ActionPasswordChange, "password reset completed", audit.WithPrincipal(p.ID))
	return p, nil
}

func (s *Service) sendResetEmail(ctx context.Context, to, tok string, expiresAt time.Time) error {
	link := s.cfg.ResetURL
	if strings.Contains(link, "?") {
		link += "&token=" + tok
	} else {
		link += "?token=" + tok
	}

	var body strings.Builder
	if err := resetTemplate.Execute(&body, map[string]string{
		"Link":      link,
		"ExpiresAt": expiresAt.Format(time.RFC1123),
	}); err != nil {
		return err
	}

	return s.sender.Send(ctx, email.Message{
		To:      to,
		Subject: "Reset your password",
		HTML:    body.String(),
		Tag:     "password-reset",
	})
}
