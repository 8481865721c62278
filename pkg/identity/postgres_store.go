package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guardkit/guardkit/pkg/pg"
)

// PostgresStore is a Store backed by a pgx connection pool. A table prefix
// can be set for shared-database tenant partitioning; table names are built
// once at construction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	prefix string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTablePrefix prepends prefix to every table name, e.g. "acme_users".
func WithTablePrefix(prefix string) PostgresOption {
	return func(s *PostgresStore) { s.prefix = prefix }
}

// NewPostgresStore creates a Postgres-backed identity store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) table(name string) string {
	return s.prefix + name
}

func (s *PostgresStore) CreatePrincipal(ctx context.Context, p *Principal) error {
	if p == nil {
		return fmt.Errorf("%w: nil principal", ErrValidation)
	}
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, email, canonical_email, password_hash, verified_at, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now()) RETURNING created_at`, s.table("principals"))
	err := s.pool.QueryRow(ctx, query,
		p.ID, p.Email, CanonicalEmail(p.Email), p.PasswordHash, p.VerifiedAt, p.Active,
	).Scan(&p.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *PostgresStore) PrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	query := fmt.Sprintf(`SELECT id, email, password_hash, verified_at, active, created_at
		FROM %s WHERE id = $1`, s.table("principals"))
	return s.scanPrincipal(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) PrincipalByEmail(ctx context.Context, email string) (*Principal, error) {
	query := fmt.Sprintf(`SELECT id, email, password_hash, verified_at, active, created_at
		FROM %s WHERE canonical_email = $1`, s.table("principals"))
	return s.scanPrincipal(s.pool.QueryRow(ctx, query, CanonicalEmail(email)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanPrincipal(row rowScanner) (*Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.VerifiedAt, &p.Active, &p.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePrincipal(ctx context.Context, p *Principal) error {
	if p == nil {
		return fmt.Errorf("%w: nil principal", ErrValidation)
	}
	query := fmt.Sprintf(`UPDATE %s SET email = $2, canonical_email = $3, password_hash = $4,
		verified_at = $5, active = $6 WHERE id = $1`, s.table("principals"))
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Email, CanonicalEmail(p.Email), p.PasswordHash, p.VerifiedAt, p.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeactivatePrincipal(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET active = false WHERE id = $1`, s.table("principals"))
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateRole(ctx context.Context, r *Role) error {
	if r == nil || r.Slug == "" {
		return fmt.Errorf("%w: role slug is required", ErrValidation)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, name, slug, category, active)
		VALUES ($1, $2, $3, $4, $5)`, s.table("roles"))
	_, err := s.pool.Exec(ctx, query, r.ID, r.Name, r.Slug, r.Category, r.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	return err
}

func (s *PostgresStore) RoleByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, category, active FROM %s WHERE id = $1`, s.table("roles"))
	return s.scanRole(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) RoleBySlug(ctx context.Context, slug string) (*Role, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, category, active FROM %s WHERE slug = $1`, s.table("roles"))
	return s.scanRole(s.pool.QueryRow(ctx, query, slug))
}

func (s *PostgresStore) scanRole(row rowScanner) (*Role, error) {
	var r Role
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Category, &r.Active)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, r *Role) error {
	if r == nil {
		return fmt.Errorf("%w: nil role", ErrValidation)
	}
	query := fmt.Sprintf(`UPDATE %s SET name = $2, slug = $3, category = $4, active = $5
		WHERE id = $1`, s.table("roles"))
	tag, err := s.pool.Exec(ctx, query, r.ID, r.Name, r.Slug, r.Category, r.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreatePermission(ctx context.Context, p *Permission) error {
	if p == nil || p.Slug == "" {
		return fmt.Errorf("%w: permission slug is required", ErrValidation)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, name, slug, module_id, active)
		VALUES ($1, $2, $3, $4, $5)`, s.table("permissions"))
	_, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.Slug, p.ModuleID, p.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	if pg.IsForeignKeyViolationError(err) {
		return fmt.Errorf("%w: unknown module", ErrValidation)
	}
	return err
}

func (s *PostgresStore) PermissionBySlug(ctx context.Context, slug string) (*Permission, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, module_id, active FROM %s WHERE slug = $1`, s.table("permissions"))
	var p Permission
	err := s.pool.QueryRow(ctx, query, slug).Scan(&p.ID, &p.Name, &p.Slug, &p.ModuleID, &p.Active)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePermission(ctx context.Context, p *Permission) error {
	if p == nil {
		return fmt.Errorf("%w: nil permission", ErrValidation)
	}
	query := fmt.Sprintf(`UPDATE %s SET name = $2, slug = $3, module_id = $4, active = $5
		WHERE id = $1`, s.table("permissions"))
	tag, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.Slug, p.ModuleID, p.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateModule(ctx context.Context, m *Module) error {
	if m == nil || m.Slug == "" {
		return fmt.Errorf("%w: module slug is required", ErrValidation)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ParentID != nil {
		if err := s.checkParent(ctx, m.ID, *m.ParentID); err != nil {
			return err
		}
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, name, slug, parent_id, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6)`, s.table("modules"))
	_, err := s.pool.Exec(ctx, query, m.ID, m.Name, m.Slug, m.ParentID, m.Order, m.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	return err
}

func (s *PostgresStore) ModuleByID(ctx context.Context, id uuid.UUID) (*Module, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, parent_id, sort_order, active FROM %s WHERE id = $1`, s.table("modules"))
	return s.scanModule(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) ModuleBySlug(ctx context.Context, slug string) (*Module, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, parent_id, sort_order, active FROM %s WHERE slug = $1`, s.table("modules"))
	return s.scanModule(s.pool.QueryRow(ctx, query, slug))
}

func (s *PostgresStore) scanModule(row rowScanner) (*Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.ParentID, &m.Order, &m.Active)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) UpdateModule(ctx context.Context, m *Module) error {
	if m == nil || m.Slug == "" {
		return fmt.Errorf("%w: module slug is required", ErrValidation)
	}
	if m.ParentID != nil {
		if err := s.checkParent(ctx, m.ID, *m.ParentID); err != nil {
			return err
		}
	}
	query := fmt.Sprintf(`UPDATE %s SET name = $2, slug = $3, parent_id = $4, sort_order = $5, active = $6
		WHERE id = $1`, s.table("modules"))
	tag, err := s.pool.Exec(ctx, query, m.ID, m.Name, m.Slug, m.ParentID, m.Order, m.Active)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Modules(ctx context.Context) ([]Module, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, parent_id, sort_order, active
		FROM %s ORDER BY sort_order, id`, s.table("modules"))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.ParentID, &m.Order, &m.Active); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *PostgresStore) SetModuleParent(ctx context.Context, moduleID uuid.UUID, parentID *uuid.UUID) error {
	if parentID != nil {
		if err := s.checkParent(ctx, moduleID, *parentID); err != nil {
			return err
		}
	}
	query := fmt.Sprintf(`UPDATE %s SET parent_id = $2 WHERE id = $1`, s.table("modules"))
	tag, err := s.pool.Exec(ctx, query, moduleID, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// checkParent walks the ancestor chain of parentID and rejects assignments
// that would make moduleID its own ancestor.
func (s *PostgresStore) checkParent(ctx context.Context, moduleID, parentID uuid.UUID) error {
	if parentID == moduleID {
		return ErrModuleCycle
	}
	cur := parentID
	for {
		m, err := s.ModuleByID(ctx, cur)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: unknown parent module %s", ErrValidation, cur)
		}
		if err != nil {
			return err
		}
		if m.ParentID == nil {
			return nil
		}
		if *m.ParentID == moduleID {
			return ErrModuleCycle
		}
		cur = *m.ParentID
	}
}

func (s *PostgresStore) AssignRole(ctx context.Context, principalID, roleID uuid.UUID) error {
	query := fmt.Sprintf(`INSERT INTO %s (principal_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, s.table("principal_roles"))
	_, err := s.pool.Exec(ctx, query, principalID, roleID)
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) RevokeRole(ctx context.Context, principalID, roleID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE principal_id = $1 AND role_id = $2`, s.table("principal_roles"))
	_, err := s.pool.Exec(ctx, query, principalID, roleID)
	return err
}

func (s *PostgresStore) GrantPermission(ctx context.Context, principalID, permissionID uuid.UUID) error {
	query := fmt.Sprintf(`INSERT INTO %s (principal_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, s.table("principal_permissions"))
	_, err := s.pool.Exec(ctx, query, principalID, permissionID)
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) RevokePermission(ctx context.Context, principalID, permissionID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE principal_id = $1 AND permission_id = $2`, s.table("principal_permissions"))
	_, err := s.pool.Exec(ctx, query, principalID, permissionID)
	return err
}

func (s *PostgresStore) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := fmt.Sprintf(`INSERT INTO %s (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, s.table("role_permissions"))
	_, err := s.pool.Exec(ctx, query, roleID, permissionID)
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE role_id = $1 AND permission_id = $2`, s.table("role_permissions"))
	_, err := s.pool.Exec(ctx, query, roleID, permissionID)
	return err
}

func (s *PostgresStore) RolesByPrincipal(ctx context.Context, principalID uuid.UUID) ([]Role, error) {
	query := fmt.Sprintf(`SELECT r.id, r.name, r.slug, r.category, r.active
		FROM %s r JOIN %s pr ON pr.role_id = r.id
		WHERE pr.principal_id = $1 ORDER BY r.slug`,
		s.table("roles"), s.table("principal_roles"))
	rows, err := s.pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Slug, &r.Category, &r.Active); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DirectPermissions(ctx context.Context, principalID uuid.UUID) ([]Permission, error) {
	query := fmt.Sprintf(`SELECT p.id, p.name, p.slug, p.module_id, p.active
		FROM %s p JOIN %s pp ON pp.permission_id = p.id
		WHERE pp.principal_id = $1 ORDER BY p.slug`,
		s.table("permissions"), s.table("principal_permissions"))
	return s.queryPermissions(ctx, query, principalID)
}

func (s *PostgresStore) PermissionsByRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error) {
	query := fmt.Sprintf(`SELECT p.id, p.name, p.slug, p.module_id, p.active
		FROM %s p JOIN %s rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 ORDER BY p.slug`,
		s.table("permissions"), s.table("role_permissions"))
	return s.queryPermissions(ctx, query, roleID)
}

func (s *PostgresStore) queryPermissions(ctx context.Context, query string, arg any) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.ModuleID, &p.Active); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PostgresStore) PrincipalsWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	query := fmt.Sprintf(`SELECT principal_id FROM %s WHERE role_id = $1 ORDER BY principal_id`,
		s.table("principal_roles"))
	rows, err := s.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateTenant(ctx context.Context, t *Tenant) error {
	if t == nil || t.Slug == "" {
		return fmt.Errorf("%w: tenant slug is required", ErrValidation)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, slug, domain, prefix, connection, active, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, now()) RETURNING created_at`, s.table("tenants"))
	err := s.pool.QueryRow(ctx, query, t.ID, t.Slug, t.Domain, t.Prefix, t.Connection, t.Active).Scan(&t.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	return err
}

func (s *PostgresStore) TenantByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	query := fmt.Sprintf(`SELECT id, slug, COALESCE(domain, ''), prefix, connection, active, created_at
		FROM %s WHERE slug = $1 OR domain = $1`, s.table("tenants"))
	var t Tenant
	err := s.pool.QueryRow(ctx, query, identifier).Scan(
		&t.ID, &t.Slug, &t.Domain, &t.Prefix, &t.Connection, &t.Active, &t.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
