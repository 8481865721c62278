package identity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pairSet map[uuid.UUID]map[uuid.UUID]struct{}

func (ps pairSet) add(a, b uuid.UUID) {
	if ps[a] == nil {
		ps[a] = make(map[uuid.UUID]struct{})
	}
	ps[a][b] = struct{}{}
}

func (ps pairSet) remove(a, b uuid.UUID) {
	if set, ok := ps[a]; ok {
		delete(set, b)
	}
}

// MemoryStore is a thread-safe in-memory Store. It is the reference
// implementation for tests and single-node deployments; all returned records
// are defensive copies.
type MemoryStore struct {
	mu sync.RWMutex

	principals map[uuid.UUID]*Principal
	byEmail    map[string]uuid.UUID

	roles       map[uuid.UUID]*Role
	permissions map[uuid.UUID]*Permission
	modules     map[uuid.UUID]*Module
	tenants     map[uuid.UUID]*Tenant

	principalRoles pairSet // principal -> roles
	principalPerms pairSet // principal -> direct permissions
	rolePerms      pairSet // role -> permissions
}

// NewMemoryStore creates an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		principals:     make(map[uuid.UUID]*Principal),
		byEmail:        make(map[string]uuid.UUID),
		roles:          make(map[uuid.UUID]*Role),
		permissions:    make(map[uuid.UUID]*Permission),
		modules:        make(map[uuid.UUID]*Module),
		tenants:        make(map[uuid.UUID]*Tenant),
		principalRoles: make(pairSet),
		principalPerms: make(pairSet),
		rolePerms:      make(pairSet),
	}
}

func (s *MemoryStore) CreatePrincipal(ctx context.Context, p *Principal) error {
	if p == nil {
		return fmt.Errorf("%w: nil principal", ErrValidation)
	}
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	canonical := CanonicalEmail(p.Email)
	if _, taken := s.byEmail[canonical]; taken {
		return ErrDuplicateEmail
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	cp := *p
	s.principals[p.ID] = &cp
	s.byEmail[canonical] = p.ID
	return nil
}

func (s *MemoryStore) PrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) PrincipalByEmail(ctx context.Context, email string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[CanonicalEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.principals[id]
	return &cp, nil
}

func (s *MemoryStore) UpdatePrincipal(ctx context.Context, p *Principal) error {
	if p == nil {
		return fmt.Errorf("%w: nil principal", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.principals[p.ID]
	if !ok {
		return ErrNotFound
	}

	newCanonical := CanonicalEmail(p.Email)
	oldCanonical := CanonicalEmail(existing.Email)
	if newCanonical != oldCanonical {
		if _, taken := s.byEmail[newCanonical]; taken {
			return ErrDuplicateEmail
		}
		delete(s.byEmail, oldCanonical)
		s.byEmail[newCanonical] = p.ID
	}

	cp := *p
	s.principals[p.ID] = &cp
	return nil
}

func (s *MemoryStore) DeactivatePrincipal(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.principals[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	return nil
}

func (s *MemoryStore) CreateRole(ctx context.Context, r *Role) error {
	if r == nil || r.Slug == "" {
		return fmt.Errorf("%w: role slug is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.roles {
		if existing.Slug == r.Slug {
			return ErrDuplicateSlug
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	s.roles[r.ID] = &cp
	return nil
}

func (s *MemoryStore) RoleByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) RoleBySlug(ctx context.Context, slug string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.Slug == slug {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateRole(ctx context.Context, r *Role) error {
	if r == nil {
		return fmt.Errorf("%w: nil role", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[r.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.roles {
		if id != r.ID && existing.Slug == r.Slug {
			return ErrDuplicateSlug
		}
	}
	cp := *r
	s.roles[r.ID] = &cp
	return nil
}

func (s *MemoryStore) CreatePermission(ctx context.Context, p *Permission) error {
	if p == nil || p.Slug == "" {
		return fmt.Errorf("%w: permission slug is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.permissions {
		if existing.Slug == p.Slug {
			return ErrDuplicateSlug
		}
	}
	if p.ModuleID != nil {
		if _, ok := s.modules[*p.ModuleID]; !ok {
			return fmt.Errorf("%w: unknown module %s", ErrValidation, p.ModuleID)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	s.permissions[p.ID] = &cp
	return nil
}

func (s *MemoryStore) PermissionBySlug(ctx context.Context, slug string) (*Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.permissions {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdatePermission(ctx context.Context, p *Permission) error {
	if p == nil {
		return fmt.Errorf("%w: nil permission", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[p.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.permissions {
		if id != p.ID && existing.Slug == p.Slug {
			return ErrDuplicateSlug
		}
	}
	cp := *p
	s.permissions[p.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateModule(ctx context.Context, m *Module) error {
	if m == nil || m.Slug == "" {
		return fmt.Errorf("%w: module slug is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.modules {
		if existing.Slug == m.Slug {
			return ErrDuplicateSlug
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ParentID != nil {
		if err := s.checkParentLocked(m.ID, *m.ParentID); err != nil {
			return err
		}
	}
	cp := *m
	s.modules[m.ID] = &cp
	return nil
}

func (s *MemoryStore) ModuleByID(ctx context.Context, id uuid.UUID) (*Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.modules[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ModuleBySlug(ctx context.Context, slug string) (*Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.modules {
		if m.Slug == slug {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateModule(ctx context.Context, m *Module) error {
	if m == nil || m.Slug == "" {
		return fmt.Errorf("%w: module slug is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.modules[m.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.modules {
		if id != m.ID && existing.Slug == m.Slug {
			return ErrDuplicateSlug
		}
	}
	if m.ParentID != nil {
		if err := s.checkParentLocked(m.ID, *m.ParentID); err != nil {
			return err
		}
	}
	cp := *m
	s.modules[m.ID] = &cp
	return nil
}

func (s *MemoryStore) Modules(ctx context.Context) ([]Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Module, 0, len(s.modules))
	for _, m := range s.modules {
		result = append(result, *m)
	}
	slices.SortFunc(result, func(a, b Module) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return result, nil
}

func (s *MemoryStore) SetModuleParent(ctx context.Context, moduleID uuid.UUID, parentID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.modules[moduleID]
	if !ok {
		return ErrNotFound
	}
	if parentID != nil {
		if err := s.checkParentLocked(moduleID, *parentID); err != nil {
			return err
		}
	}
	m.ParentID = parentID
	return nil
}

// checkParentLocked rejects parents that would make moduleID its own
// ancestor. Caller must hold the write lock.
func (s *MemoryStore) checkParentLocked(moduleID, parentID uuid.UUID) error {
	if parentID == moduleID {
		return ErrModuleCycle
	}
	parent, ok := s.modules[parentID]
	if !ok {
		return fmt.Errorf("%w: unknown parent module %s", ErrValidation, parentID)
	}
	for cur := parent; cur != nil && cur.ParentID != nil; {
		if *cur.ParentID == moduleID {
			return ErrModuleCycle
		}
		next, ok := s.modules[*cur.ParentID]
		if !ok {
			break
		}
		cur = next
	}
	return nil
}

func (s *MemoryStore) AssignRole(ctx context.Context, principalID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.principals[principalID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}
	s.principalRoles.add(principalID, roleID)
	return nil
}

func (s *MemoryStore) RevokeRole(ctx context.Context, principalID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.principalRoles.remove(principalID, roleID)
	return nil
}

func (s *MemoryStore) GrantPermission(ctx context.Context, principalID, permissionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.principals[principalID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.permissions[permissionID]; !ok {
		return ErrNotFound
	}
	s.principalPerms.add(principalID, permissionID)
	return nil
}

func (s *MemoryStore) RevokePermission(ctx context.Context, principalID, permissionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.principalPerms.remove(principalID, permissionID)
	return nil
}

func (s *MemoryStore) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.permissions[permissionID]; !ok {
		return ErrNotFound
	}
	s.rolePerms.add(roleID, permissionID)
	return nil
}

func (s *MemoryStore) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolePerms.remove(roleID, permissionID)
	return nil
}

func (s *MemoryStore) RolesByPrincipal(ctx context.Context, principalID uuid.UUID) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Role, 0, len(s.principalRoles[principalID]))
	for roleID := range s.principalRoles[principalID] {
		if r, ok := s.roles[roleID]; ok {
			result = append(result, *r)
		}
	}
	slices.SortFunc(result, func(a, b Role) int { return strings.Compare(a.Slug, b.Slug) })
	return result, nil
}

func (s *MemoryStore) DirectPermissions(ctx context.Context, principalID uuid.UUID) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Permission, 0, len(s.principalPerms[principalID]))
	for permID := range s.principalPerms[principalID] {
		if p, ok := s.permissions[permID]; ok {
			result = append(result, *p)
		}
	}
	slices.SortFunc(result, func(a, b Permission) int { return strings.Compare(a.Slug, b.Slug) })
	return result, nil
}

func (s *MemoryStore) PermissionsByRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Permission, 0, len(s.rolePerms[roleID]))
	for permID := range s.rolePerms[roleID] {
		if p, ok := s.permissions[permID]; ok {
			result = append(result, *p)
		}
	}
	slices.SortFunc(result, func(a, b Permission) int { return strings.Compare(a.Slug, b.Slug) })
	return result, nil
}

func (s *MemoryStore) PrincipalsWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []uuid.UUID
	for principalID, roles := range s.principalRoles {
		if _, ok := roles[roleID]; ok {
			result = append(result, principalID)
		}
	}
	slices.SortFunc(result, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return result, nil
}

func (s *MemoryStore) CreateTenant(ctx context.Context, t *Tenant) error {
	if t == nil || t.Slug == "" {
		return fmt.Errorf("%w: tenant slug is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return ErrDuplicateSlug
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *MemoryStore) TenantByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == identifier || (t.Domain != "" && t.Domain == identifier) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
