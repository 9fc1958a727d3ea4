package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jackknife/charsheet/internal/models"
)

// SQLiteStore is the single-file counterpart of PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens and migrates the users database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			data     TEXT
		)
	`)
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, password string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, data) VALUES (?, ?, ?)`,
		username, password, "{}",
	)
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return models.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdatePassword(ctx context.Context, username, password string) error {
	return s.updateOne(ctx, "update password",
		`UPDATE users SET password = ? WHERE username = ?`, password, username)
}

func (s *SQLiteStore) SaveSheet(ctx context.Context, username string, doc []byte) error {
	return s.updateOne(ctx, "save sheet",
		`UPDATE users SET data = ? WHERE username = ?`, string(doc), username)
}

func (s *SQLiteStore) LoadSheet(ctx context.Context, username string) ([]byte, error) {
	var data sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM users WHERE username = ?`, username,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
