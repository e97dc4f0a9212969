package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-hash", "whatever")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	svc, err := NewTokenService(key, time.Hour)
	require.NoError(t, err)

	user := &domain.User{}
	user.ID = "user-abc"

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-abc", claims.UserID)
	assert.Equal(t, "user-abc", claims.Subject)
}

func TestExpiredTokenRejected(t *testing.T) {
	key := make([]byte, 32)
	svc, err := NewTokenService(key, -time.Minute)
	require.NoError(t, err)

	user := &domain.User{}
	user.ID = "user-abc"

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc, err := NewTokenService(make([]byte, 32), time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken("v4.local.garbage")
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key1, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key1, 32)

	// Second load returns the same key
	key2, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	// Corrupt key file is an error, not a silent regeneration
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.key"), []byte("short"), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestResetToken(t *testing.T) {
	raw, hash := GenerateResetToken()
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, raw, hash)
	assert.Equal(t, hash, HashResetToken(raw))

	raw2, hash2 := GenerateResetToken()
	assert.NotEqual(t, raw, raw2)
	assert.NotEqual(t, hash, hash2)
}
