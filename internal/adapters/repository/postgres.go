package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/metrics"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	credits    INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
	level      INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
	experience INTEGER NOT NULL DEFAULT 0 CHECK (experience >= 0),
	points     INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS users_standing_idx ON users (points DESC, created_at ASC, id ASC);
CREATE TABLE IF NOT EXISTS events (
	seq                   BIGSERIAL PRIMARY KEY,
	id                    TEXT NOT NULL UNIQUE,
	user_id               TEXT NOT NULL REFERENCES users (id),
	kind                  TEXT NOT NULL,
	payload               JSONB NOT NULL,
	emotional_variability DOUBLE PRECISION,
	ts                    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS events_user_idx ON events (user_id, seq);
`

const userColumns = `id, name, credits, level, experience, points, created_at, updated_at`

// PostgresStore is a Store backed by PostgreSQL. Each UpdateUser runs in one
// transaction holding a row lock on the user.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, verifies the connection and, unless
// disabled, creates the schema.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg := defaultPostgresConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database url: %w", err)
	}
	poolConfig.MaxConns = cfg.maxConns
	poolConfig.MinConns = cfg.minConns
	poolConfig.MaxConnLifetime = cfg.maxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if cfg.migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates the tables and indexes when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) error {
	defer observe("create_user", time.Now())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Credits, u.Level, u.Experience, u.Points, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrUserExists, u.ID)
	}
	if err != nil {
		metrics.RecordStoreError("create_user")
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (model.User, error) {
	defer observe("get_user", time.Now())
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		metrics.RecordStoreError("get_user")
		return model.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	defer observe("list_users", time.Now())
	return s.queryUsers(ctx, "list_users", `SELECT `+userColumns+` FROM users`)
}

func (s *PostgresStore) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	defer observe("get_users", time.Now())
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return s.queryUsers(ctx, "get_users", `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
}

func (s *PostgresStore) queryUsers(ctx context.Context, op, sql string, args ...any) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			metrics.RecordStoreError(op)
			return nil, fmt.Errorf("postgres: %s: %w", op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id string, e *model.Event, fn func(*model.User) error) (model.User, error) {
	defer observe("update_user", time.Now())

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		metrics.RecordStoreError("update_user")
		return model.User{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		metrics.RecordStoreError("update_user")
		return model.User{}, fmt.Errorf("postgres: lock user: %w", err)
	}

	if err := fn(&u); err != nil {
		return model.User{}, err
	}

	if e != nil {
		if err := insertEvent(ctx, tx, e); err != nil {
			return model.User{}, err
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET credits = $2, level = $3, experience = $4, points = $5, updated_at = $6 WHERE id = $1`,
		u.ID, u.Credits, u.Level, u.Experience, u.Points, u.UpdatedAt)
	if err != nil {
		metrics.RecordStoreError("update_user")
		return model.User{}, fmt.Errorf("postgres: update user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		metrics.RecordStoreError("update_user")
		return model.User{}, fmt.Errorf("postgres: commit: %w", err)
	}
	return u, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, e *model.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("postgres: encode payload: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, user_id, kind, payload, emotional_variability, ts) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, string(e.Kind), payload, e.EmotionalVariability, e.TS)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
	}
	if err != nil {
		metrics.RecordStoreError("append_event")
		return fmt.Errorf("postgres: append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, userID string) ([]model.Event, error) {
	defer observe("list_events", time.Now())

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		metrics.RecordStoreError("list_events")
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, kind, payload, emotional_variability, ts FROM events WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		metrics.RecordStoreError("list_events")
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var (
			e       model.Event
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &payload, &e.EmotionalVariability, &e.TS); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Kind = model.Kind(kind)
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("postgres: decode payload: %w", err)
		}
		e.TS = e.TS.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		metrics.RecordStoreError("count_users")
		return 0, fmt.Errorf("postgres: count users: %w", err)
	}
	return n, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Credits, &u.Level, &u.Experience, &u.Points, &u.CreatedAt, &u.UpdatedAt)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
