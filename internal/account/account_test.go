package account

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := OpenStore(t.Context(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(store, time.Hour)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	u, err := svc.Register(ctx, " ada ", "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.NotEmpty(t, u.ID)

	sess, err := svc.Login(ctx, "ada", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)
	assert.NotEmpty(t, sess.Token)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(t)
	tests := []struct {
		name, username, email, password string
	}{
		{"empty username", "  ", "a@b.c", "password1"},
		{"bad email", "bob", "bob.example.com", "password1"},
		{"short password", "bob", "bob@example.com", "short"},
		{"overlong password", "bob", "bob@example.com", strings.Repeat("x", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(t.Context(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, err := svc.Register(ctx, "ada", "ada@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ada", "other@example.com", "password1")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, "other", "ada@example.com", "password1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()
	_, err := svc.Register(ctx, "ada", "ada@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownAndExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, err := svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Register(ctx, "ada", "ada@example.com", "password1")
	require.NoError(t, err)
	sess, err := svc.Login(ctx, "ada", "password1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutAndPurge(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, err := svc.Register(ctx, "ada", "ada@example.com", "password1")
	require.NoError(t, err)
	first, err := svc.Login(ctx, "ada", "password1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "ada", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.Token))
	_, err = svc.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	svc.now = time.Now
	_, err = svc.Authenticate(ctx, second.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "mathvoice.db?_foreign_keys=on&_busy_timeout=5000", sqliteDSN("mathvoice.db"))
	assert.Equal(t, "file:mv.db?cache=shared&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("file:mv.db?cache=shared"))
}

func TestOpenStore_PathWithQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db") + "?_journal_mode=WAL"
	store, err := OpenStore(t.Context(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var fk int
	require.NoError(t, store.db.QueryRowContext(t.Context(), "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, store.db.QueryRowContext(t.Context(), "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), "mysql", "dsn")
	assert.ErrorContains(t, err, "unknown account database driver")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.False(t, isUniqueViolation(nil))
}
