// Package account manages user registration, login and session tokens.
//
// Users and sessions are stored in SQLite; passwords are hashed with bcrypt.
// A session token is an opaque UUID that expires after a configured TTL.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

var (
	ErrInvalidInput       = errors.New("invalid account details")
	ErrConflict           = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("missing, unknown or expired session")
	ErrNotFound           = errors.New("record not found")
)

// User is a registered account. The password hash never leaves the store.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an issued login token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service implements the account operations on top of a Store.
type Service struct {
	store *Store
	ttl   time.Duration
	cost  int
	now   func() time.Time
}

// NewService creates an account service issuing sessions valid for ttl.
func NewService(store *Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store: store,
		ttl:   ttl,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
}

// Register validates and stores a new user.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	case !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, email)
	case len(password) < MinPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password is too long", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u, string(hash)); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks the credentials and issues a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, hash, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", u.ID)
	return sess, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	sess, u, err := s.store.SessionUser(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, token)
		return nil, ErrUnauthorized
	}
	return u, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// PurgeExpired removes expired sessions.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}
