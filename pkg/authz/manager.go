package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/logger"
)

// Invalidator receives cache invalidation signals after grant/revoke
// mutations. Resolver and the menu builder both implement it.
type Invalidator interface {
	Invalidate(ctx context.Context, principalID uuid.UUID)
	Flush(ctx context.Context)
}

// Manager is the mutation surface for role and permission assignments.
// Every mutation commits to the store first and invalidates caches after,
// so a stale read window closes on the next resolver call.
type Manager struct {
	store        identity.Store
	invalidators []Invalidator
	log          *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInvalidators registers caches to notify after each mutation.
func WithInvalidators(invs ...Invalidator) ManagerOption {
	return func(m *Manager) { m.invalidators = append(m.invalidators, invs...) }
}

// WithManagerLogger sets the mutation logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager creates a Manager over the identity store.
func NewManager(store identity.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AssignRole grants the role to the principal. Already-assigned is a no-op.
func (m *Manager) AssignRole(ctx context.Context, principalID uuid.UUID, roleSlug string) error {
	role, err := m.roleBySlug(ctx, roleSlug)
	if err != nil {
		return err
	}
	if err := m.store.AssignRole(ctx, principalID, role.ID); err != nil {
		return fmt.Errorf("assign role %q: %w", roleSlug, err)
	}
	m.invalidate(ctx, principalID)
	return nil
}

// RevokeRole removes the role from the principal.
func (m *Manager) RevokeRole(ctx context.Context, principalID uuid.UUID, roleSlug string) error {
	role, err := m.roleBySlug(ctx, roleSlug)
	if err != nil {
		return err
	}
	if err := m.store.RevokeRole(ctx, principalID, role.ID); err != nil {
		return fmt.Errorf("revoke role %q: %w", roleSlug, err)
	}
	m.invalidate(ctx, principalID)
	return nil
}

// GrantPermission grants a direct permission to the principal.
func (m *Manager) GrantPermission(ctx context.Context, principalID uuid.UUID, permSlug string) error {
	perm, err := m.permissionBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := m.store.GrantPermission(ctx, principalID, perm.ID); err != nil {
		return fmt.Errorf("grant permission %q: %w", permSlug, err)
	}
	m.invalidate(ctx, principalID)
	return nil
}

// RevokePermission removes a direct permission from the principal. The
// permission may still be reachable through a role.
func (m *Manager) RevokePermission(ctx context.Context, principalID uuid.UUID, permSlug string) error {
	perm, err := m.permissionBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := m.store.RevokePermission(ctx, principalID, perm.ID); err != nil {
		return fmt.Errorf("revoke permission %q: %w", permSlug, err)
	}
	m.invalidate(ctx, principalID)
	return nil
}

// AttachRolePermission adds the permission to the role and invalidates
// every principal currently holding the role.
func (m *Manager) AttachRolePermission(ctx context.Context, roleSlug, permSlug string) error {
	role, err := m.roleBySlug(ctx, roleSlug)
	if err != nil {
		return err
	}
	perm, err := m.permissionBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := m.store.AttachPermission(ctx, role.ID, perm.ID); err != nil {
		return fmt.Errorf("attach permission %q to role %q: %w", permSlug, roleSlug, err)
	}
	m.invalidateRoleHolders(ctx, role.ID)
	return nil
}

// DetachRolePermission removes the permission from the role and invalidates
// every principal currently holding the role.
func (m *Manager) DetachRolePermission(ctx context.Context, roleSlug, permSlug string) error {
	role, err := m.roleBySlug(ctx, roleSlug)
	if err != nil {
		return err
	}
	perm, err := m.permissionBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := m.store.DetachPermission(ctx, role.ID, perm.ID); err != nil {
		return fmt.Errorf("detach permission %q from role %q: %w", permSlug, roleSlug, err)
	}
	m.invalidateRoleHolders(ctx, role.ID)
	return nil
}

// SetRoleActive toggles the role's active flag. Deactivating a role removes
// its permissions from every holder's effective set on the next resolution.
func (m *Manager) SetRoleActive(ctx context.Context, roleSlug string, active bool) error {
	role, err := m.roleBySlug(ctx, roleSlug)
	if err != nil {
		return err
	}
	if role.Active == active {
		return nil
	}
	role.Active = active
	if err := m.store.UpdateRole(ctx, role); err != nil {
		return fmt.Errorf("update role %q: %w", roleSlug, err)
	}
	m.invalidateRoleHolders(ctx, role.ID)
	return nil
}

func (m *Manager) roleBySlug(ctx context.Context, slug string) (*identity.Role, error) {
	role, err := m.store.RoleBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, errors.Join(ErrUnknownRole, err)
		}
		return nil, err
	}
	return role, nil
}

func (m *Manager) permissionBySlug(ctx context.Context, slug string) (*identity.Permission, error) {
	perm, err := m.store.PermissionBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, errors.Join(ErrUnknownPermission, err)
		}
		return nil, err
	}
	return perm, nil
}

func (m *Manager) invalidate(ctx context.Context, principalID uuid.UUID) {
	for _, inv := range m.invalidators {
		inv.Invalidate(ctx, principalID)
	}
}

// invalidateRoleHolders invalidates every principal holding the role. When
// the holder list cannot be read the blast radius is unknown, so all caches
// are flushed instead of leaving stale entries behind.
func (m *Manager) invalidateRoleHolders(ctx context.Context, roleID uuid.UUID) {
	ids, err := m.store.PrincipalsWithRole(ctx, roleID)
	if err != nil {
		m.log.WarnContext(ctx, "authz: role holder lookup failed, flushing caches",
			slog.String("role_id", roleID.String()), slog.Any("error", err))
		for _, inv := range m.invalidators {
			inv.Flush(ctx)
		}
		return
	}
	for _, id := range ids {
		m.invalidate(ctx, id)
	}
}
