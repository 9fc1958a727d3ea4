package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jackknife/charsheet/internal/models"
)

// PgxConn is the subset of *pgxpool.Pool used by PostgresStore.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps credentials and sheet documents in a single users table.
type PostgresStore struct {
	pool PgxConn
}

func NewPostgresStore(pool PgxConn) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist. The sheet is stored as
// TEXT so the exact bytes the client sent are returned.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			data     TEXT
		)
	`)
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT username, password FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, password string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password, data) VALUES ($1, $2, $3)`,
		username, password, "{}",
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return models.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, username, password string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password = $1 WHERE username = $2`, password, username,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) SaveSheet(ctx context.Context, username string, doc []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET data = $1 WHERE username = $2`, string(doc), username,
	)
	if err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// LoadSheet returns nil when the user has no stored document.
func (s *PostgresStore) LoadSheet(ctx context.Context, username string) ([]byte, error) {
	var data sql.NullString
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM users WHERE username = $1`, username,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sheet: %w", err)
	}
	if !data.Valid {
		return nil, nil
	}
	return []byte(data.String), nil
}
