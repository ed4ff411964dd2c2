package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_user_id ON sessions(user_id);
`

// Store persists users and sessions in SQLite or PostgreSQL.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	return Open(ctx, DriverSQLite, path)
}

// Open connects to the account database with the given driver and applies
// the schema. For sqlite3 dsn is a file path; for postgres it is a libpq
// connection string or URL.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var db *sql.DB
	var err error
	switch driver {
	case DriverSQLite, "":
		db, err = sql.Open(DriverSQLite, sqliteDSN(dsn))
		if err == nil {
			// One connection keeps ":memory:" databases shared and serializes writes.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		db, err = sql.Open(DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unknown account database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening account database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to account database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying account schema: %w", err)
	}
	return &Store{db: db}, nil
}

// sqliteDSN appends the connection options the store relies on, keeping any
// query already present in path.
func sqliteDSN(path string) string {
	const opts = "_foreign_keys=on&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + opts
	}
	return path + "?" + opts
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts u. A duplicate username or email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *User, passwordHash string) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Username, u.Email, passwordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// UserByUsername returns the user and its password hash.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, string, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1
	`
	u := &User{}
	var hash string
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("querying user: %w", err)
	}
	return u, hash, nil
}

// CreateSession inserts a session row.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, sess.Token, sess.UserID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// SessionUser returns the session for token joined with its user.
func (s *Store) SessionUser(ctx context.Context, token string) (*Session, *User, error) {
	query := `
		SELECT s.token, s.user_id, s.expires_at, u.id, u.username, u.email, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
	`
	sess := &Session{}
	u := &User{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&sess.Token, &sess.UserID, &sess.ExpiresAt,
		&u.ID, &u.Username, &u.Email, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying session: %w", err)
	}
	return sess, u, nil
}

// DeleteSession removes the session for token. Deleting an unknown token is
// not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now and returns
// how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pgUniqueViolation
	}
	return false
}
