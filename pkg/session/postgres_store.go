package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guardkit/guardkit/pkg/pg"
)

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName overrides the sessions table name.
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		if name != "" {
			s.table = name
		}
	}
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{pool: pool, table: "sessions"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Create(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" || session.PrincipalID == uuid.Nil {
		return ErrInvalidSession
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(id, principal_id, token, device, ip, user_agent, active, last_activity_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.table)
	_, err := s.pool.Exec(ctx, query,
		session.ID, session.PrincipalID, session.Token, session.Device, session.IP,
		session.UserAgent, session.Active, session.LastActivityAt, session.ExpiresAt, session.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrInvalidSession
	}
	return err
}

func (s *PostgresStore) ByToken(ctx context.Context, token string) (*Session, error) {
	query := fmt.Sprintf(`SELECT id, principal_id, token, device, ip, user_agent, active,
		last_activity_at, expires_at, created_at FROM %s WHERE token = $1`, s.table)

	var sess Session
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&sess.ID, &sess.PrincipalID, &sess.Token, &sess.Device, &sess.IP,
		&sess.UserAgent, &sess.Active, &sess.LastActivityAt, &sess.ExpiresAt, &sess.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_activity_at = $2 WHERE token = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, token, lastActivity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, token string) error {
	query := fmt.Sprintf(`UPDATE %s SET active = false WHERE token = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) RevokeByPrincipal(ctx context.Context, principalID uuid.UUID, exceptToken string) (int, error) {
	query := fmt.Sprintf(`UPDATE %s SET active = false
		WHERE principal_id = $1 AND active AND expires_at > now() AND token <> $2`, s.table)
	tag, err := s.pool.Exec(ctx, query, principalID, exceptToken)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ActiveByPrincipal(ctx context.Context, principalID uuid.UUID) ([]Session, error) {
	query := fmt.Sprintf(`SELECT id, principal_id, token, device, ip, user_agent, active,
		last_activity_at, expires_at, created_at FROM %s
		WHERE principal_id = $1 AND active AND expires_at > now()
		ORDER BY last_activity_at DESC`, s.table)

	rows, err := s.pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.PrincipalID, &sess.Token, &sess.Device, &sess.IP,
			&sess.UserAgent, &sess.Active, &sess.LastActivityAt, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= now()`, s.table)
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

var _ Store = (*PostgresStore)(nil)
