package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage is a Storage backed by a pgx connection pool. Request and
// Response maps are stored as jsonb.
type PostgresStorage struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures a PostgresStorage.
type PostgresOption func(*PostgresStorage)

// WithTableName overrides the audit log table name.
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStorage) {
		if name != "" {
			s.table = name
		}
	}
}

// NewPostgresStorage creates a Postgres-backed audit storage.
func NewPostgresStorage(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStorage {
	s := &PostgresStorage{pool: pool, table: "audit_logs"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const insertColumns = `id, principal_id, tenant_id, action, description, ip, user_agent,
	request, response, status, error, created_at`

func (s *PostgresStorage) Store(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, s.table, insertColumns)
	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.PrincipalID, entry.TenantID, entry.Action, entry.Description,
		entry.IP, entry.UserAgent, entry.Request, entry.Response, entry.Status,
		entry.Error, entry.CreatedAt)
	return err
}

func (s *PostgresStorage) StoreBatch(ctx context.Context, entries []Entry) error {
	batch := &pgx.Batch{}
	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, s.table, insertColumns)
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		batch.Queue(query,
			entry.ID, entry.PrincipalID, entry.TenantID, entry.Action, entry.Description,
			entry.IP, entry.UserAgent, entry.Request, entry.Response, entry.Status,
			entry.Error, entry.CreatedAt)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *PostgresStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	query, args := s.buildQuery(criteria)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PrincipalID, &e.TenantID, &e.Action, &e.Description,
			&e.IP, &e.UserAgent, &e.Request, &e.Response, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	where, args := buildWhere(criteria)
	query := fmt.Sprintf(`SELECT count(*) FROM %s%s`, s.table, where)

	var count int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *PostgresStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) buildQuery(criteria Criteria) (string, []any) {
	where, args := buildWhere(criteria)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC`, insertColumns, s.table, where)

	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if criteria.Offset > 0 {
		args = append(args, criteria.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func buildWhere(criteria Criteria) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if criteria.PrincipalID != nil {
		add("principal_id = $%d", *criteria.PrincipalID)
	}
	if criteria.TenantID != nil {
		add("tenant_id = $%d", *criteria.TenantID)
	}
	if criteria.Action != "" {
		add("action = $%d", criteria.Action)
	}
	if criteria.Status != "" {
		add("status = $%d", criteria.Status)
	}
	if criteria.IP != "" {
		add("ip = $%d", criteria.IP)
	}
	if !criteria.From.IsZero() {
		add("created_at >= $%d", criteria.From)
	}
	if !criteria.To.IsZero() {
		add("created_at < $%d", criteria.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		where += " AND " + clause
	}
	return where, args
}

var _ BatchStorage = (*PostgresStorage)(nil)
