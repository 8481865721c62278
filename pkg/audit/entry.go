package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the outcome of an audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
)

// Common action taxonomy. Callers may log arbitrary actions; these cover the
// flows the toolkit itself records.
const (
	ActionLogin          = "auth.login"
	ActionLogout         = "auth.logout"
	ActionRegister       = "auth.register"
	ActionPasswordReset  = "auth.password_reset"
	ActionPasswordChange = "auth.password_change"
	ActionRoleAssigned   = "authz.role_assigned"
	ActionRoleRevoked    = "authz.role_revoked"
	ActionPermGranted    = "authz.permission_granted"
	ActionPermRevoked    = "authz.permission_revoked"
)

// Entry is one append-only audit record. PrincipalID is nil for
// unauthenticated actions. Request and Response hold redacted payload
// snapshots.
type Entry struct {
	ID          uuid.UUID      `json:"id"`
	PrincipalID *uuid.UUID     `json:"principal_id,omitempty"`
	TenantID    *uuid.UUID     `json:"tenant_id,omitempty"`
	Action      string         `json:"action"`
	Description string         `json:"description,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Request     map[string]any `json:"request,omitempty"`
	Response    map[string]any `json:"response,omitempty"`
	Status      Status         `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Validate checks the entry has all required fields.
func (e *Entry) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidEntry)
	}
	return nil
}

// EntryOption applies configuration to an Entry during creation.
type EntryOption func(*Entry)

// WithPrincipal sets the acting principal.
func WithPrincipal(id uuid.UUID) EntryOption {
	return func(e *Entry) { e.PrincipalID = &id }
}

// WithTenant sets the tenant scope.
func WithTenant(id uuid.UUID) EntryOption {
	return func(e *Entry) { e.TenantID = &id }
}

// WithRequest attaches a request payload snapshot. Redacted before
// persistence.
func WithRequest(payload map[string]any) EntryOption {
	return func(e *Entry) { e.Request = payload }
}

// WithResponse attaches a response payload snapshot. Redacted before
// persistence.
func WithResponse(payload map[string]any) EntryOption {
	return func(e *Entry) { e.Response = payload }
}

// WithStatus overrides the entry status.
func WithStatus(status Status) EntryOption {
	return func(e *Entry) { e.Status = status }
}

// WithIP sets the client IP.
func WithIP(ip string) EntryOption {
	return func(e *Entry) { e.IP = ip }
}

// WithUserAgent sets the client user agent.
func WithUserAgent(ua string) EntryOption {
	return func(e *Entry) { e.UserAgent = ua }
}
