package users

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/auth"
	"github.com/sabrositas/pos-backend/pkg/auth/session"
	"github.com/sabrositas/pos-backend/pkg/config"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

const usersDDL = `CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  full_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'cashier',
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`

type fakeSessions struct {
	tokens  map[string]string
	revoked map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}, revoked: map[string]bool{}}
}

func (f *fakeSessions) Generate(_ context.Context, userID string) (string, error) {
	token := "refresh-" + uuid.NewString()
	f.tokens[userID] = token
	f.revoked[userID] = false
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, userID, provided string) (string, error) {
	current, ok := f.tokens[userID]
	if !ok || current != provided {
		return "", session.ErrInvalidRefreshToken
	}
	return f.Generate(ctx, userID)
}

func (f *fakeSessions) Revoke(_ context.Context, userID string) error {
	delete(f.tokens, userID)
	f.revoked[userID] = true
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-test-secret-test-1234",
		Issuer:                 "sabrositas-pos",
		ExpirationMinutes:      60,
		RefreshTokenTTLMinutes: 43200,
	}
}

// Small argon parameters keep the tests quick.
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newUserService(t *testing.T) (Service, *fakeSessions, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:usersvc?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(usersDDL).Error)
	require.NoError(t, conn.Exec("DELETE FROM users").Error)

	sessions := newFakeSessions()
	svc, err := NewService(conn, sessions, testJWTConfig(), testPasswordConfig(),
		logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, sessions, conn
}

func seedUser(t *testing.T, svc Service) (uuid.UUID, string, string) {
	t.Helper()
	user, tempPassword, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "cashier@sabrositas.co",
		FullName: "Lucia Prieto",
		Role:     enums.UserRoleCashier,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tempPassword)
	return user.ID, user.Email, tempPassword
}

func TestLoginHappyPath(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	userID, email, password := seedUser(t, svc)

	result, err := svc.Login(ctx, email, password)
	require.NoError(t, err)
	assert.Equal(t, userID, result.User.ID)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.UserRoleCashier, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, conn := newUserService(t)
	ctx := context.Background()
	userID, email, password := seedUser(t, svc)

	_, err := svc.Login(ctx, email, "wrong-password")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())

	_, err = svc.Login(ctx, "nobody@sabrositas.co", password)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())

	require.NoError(t, conn.Exec("UPDATE users SET active = 0 WHERE id = ?", userID).Error)
	_, err = svc.Login(ctx, email, password)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	userID, email, password := seedUser(t, svc)

	login, err := svc.Login(ctx, email, password)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, userID, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed token no longer works.
	_, err = svc.Refresh(ctx, userID, login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions, _ := newUserService(t)
	ctx := context.Background()
	userID, email, password := seedUser(t, svc)

	login, err := svc.Login(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, userID))
	assert.True(t, sessions.revoked[userID.String()])

	_, err = svc.Refresh(ctx, userID, login.RefreshToken)
	require.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, sessions, _ := newUserService(t)
	ctx := context.Background()
	userID, email, password := seedUser(t, svc)

	err := svc.ChangePassword(ctx, userID, password, "short")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.As(err).Code())

	err = svc.ChangePassword(ctx, userID, "wrong", "new-password-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())

	require.NoError(t, svc.ChangePassword(ctx, userID, password, "new-password-1"))
	assert.True(t, sessions.revoked[userID.String()])

	_, err = svc.Login(ctx, email, password)
	require.Error(t, err)
	_, err = svc.Login(ctx, email, "new-password-1")
	require.NoError(t, err)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, _, err := svc.CreateUser(ctx, CreateUserInput{Email: "bad", FullName: "x", Role: enums.UserRoleCashier})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.As(err).Code())

	_, _, err = svc.CreateUser(ctx, CreateUserInput{Email: "a@b.co", FullName: "x", Role: "root"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnknownEnum, errors.As(err).Code())

	_, _, err = svc.CreateUser(ctx, CreateUserInput{Email: "dup@b.co", FullName: "x", Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	_, _, err = svc.CreateUser(ctx, CreateUserInput{Email: "dup@b.co", FullName: "y", Role: enums.UserRoleAdmin})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyExists, errors.As(err).Code())
}
