package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
)

func registerAlice(t *testing.T, svc *AuthService) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return resp
}

func assertCode(t *testing.T, err error, code domainerrors.Code) {
	t.Helper()
	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr), "expected coded error, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t, newTestStore(t), &captureMailer{})
	ctx := context.Background()

	resp := registerAlice(t, svc)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "alice@example.com", resp.User.Email, "email stored lowercased")
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, resp.User.PasswordHash, "password123")

	t.Run("login by email", func(t *testing.T) {
		got, err := svc.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, got.User.ID)
	})

	t.Run("login by username", func(t *testing.T) {
		got, err := svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, got.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "nope-nope-nope"})
		assertCode(t, err, domainerrors.CodeInvalidCredentials)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Identifier: "nobody", Password: "password123"})
		assertCode(t, err, domainerrors.CodeInvalidCredentials)
	})
}

func TestRegisterConflicts(t *testing.T) {
	svc := newAuthService(t, newTestStore(t), &captureMailer{})
	ctx := context.Background()
	registerAlice(t, svc)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Username: "other", Email: "alice@example.com", Password: "password123"})
		assertCode(t, err, domainerrors.CodeConflict)
	})

	t.Run("duplicate username different case", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Username: "ALICE", Email: "new@example.com", Password: "password123"})
		assertCode(t, err, domainerrors.CodeConflict)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "short"})
		assertCode(t, err, domainerrors.CodeValidation)
	})
}

func TestUpdatePreferencesAndProfile(t *testing.T) {
	svc := newAuthService(t, newTestStore(t), &captureMailer{})
	ctx := context.Background()
	alice := registerAlice(t, svc)

	t.Run("preferences", func(t *testing.T) {
		user, err := svc.UpdatePreferences(ctx, alice.User.ID, domain.Preferences{
			DarkMode: true,
			FontSize: domain.FontSizeLarge,
		})
		require.NoError(t, err)
		assert.True(t, user.Preferences.DarkMode)
		assert.Equal(t, domain.FontSizeLarge, user.Preferences.FontSize)
	})

	t.Run("invalid font size", func(t *testing.T) {
		_, err := svc.UpdatePreferences(ctx, alice.User.ID, domain.Preferences{FontSize: "huge"})
		assertCode(t, err, domainerrors.CodeValidation)
	})

	t.Run("profile update", func(t *testing.T) {
		user, err := svc.UpdateProfile(ctx, alice.User.ID, UpdateProfileRequest{
			Username:       ptr("alice2"),
			FavoriteGenres: []string{"Mystery", "mystery", " Fantasy "},
		})
		require.NoError(t, err)
		assert.Equal(t, "alice2", user.Username)
		assert.Equal(t, []string{"mystery", "fantasy"}, user.FavoriteGenres)
	})

	t.Run("profile conflict", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "password123"})
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, alice.User.ID, UpdateProfileRequest{Username: ptr("bob")})
		assertCode(t, err, domainerrors.CodeConflict)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	mailer := &captureMailer{}
	svc := newAuthService(t, newTestStore(t), mailer)
	ctx := context.Background()
	registerAlice(t, svc)

	t.Run("unknown email is a silent no-op", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "stranger@example.com"))
		assert.Empty(t, mailer.to)
	})

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	require.Len(t, mailer.url, 1)
	assert.Equal(t, "alice@example.com", mailer.to[0])

	link, err := url.Parse(mailer.url[0])
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	assert.True(t, strings.HasPrefix(mailer.url[0], "http://localhost:5173/reset-password"))

	t.Run("bad token rejected", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: "bogus", Password: "newpassword1"})
		assertCode(t, err, domainerrors.CodeUnauthorized)
	})

	t.Run("reset succeeds once", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "newpassword1"}))

		_, err := svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "password123"})
		assertCode(t, err, domainerrors.CodeInvalidCredentials)

		_, err = svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "newpassword1"})
		assert.NoError(t, err)

		// The token is single-use
		err = svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "anotherpass1"})
		assertCode(t, err, domainerrors.CodeUnauthorized)
	})
}

func TestPasswordResetExpiredToken(t *testing.T) {
	mailer := &captureMailer{}
	s := newTestStore(t)
	svc := newAuthService(t, s, mailer)
	ctx := context.Background()
	alice := registerAlice(t, svc)

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	link, err := url.Parse(mailer.url[0])
	require.NoError(t, err)
	token := link.Query().Get("token")

	// Age the token past its expiry
	user, err := s.Users.Get(ctx, alice.User.ID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	user.ResetTokenExpiresAt = &past
	require.NoError(t, s.Users.Update(ctx, user.ID, user))

	err = svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "newpassword1"})
	assertCode(t, err, domainerrors.CodeTokenExpired)
}

func TestMe(t *testing.T) {
	svc := newAuthService(t, newTestStore(t), &captureMailer{})
	alice := registerAlice(t, svc)

	user, err := svc.Me(context.Background(), alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Me(context.Background(), "user-gone")
	assertCode(t, err, domainerrors.CodeUnauthorized)
}
