package api

import (
	"encoding/json/v2"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndMe(t *testing.T) {
	ts := newTestServer(t)

	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Get("/api/auth/me", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "alice", envelope.Data.Username)
	assert.Equal(t, "alice@example.com", envelope.Data.Email)

	// Password material never leaves the API.
	assert.NotContains(t, resp.Body.String(), "password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Post("/api/auth/register", map[string]any{
		"username": "someone-else",
		"email":    "Alice@Example.com",
		"password": "another password",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, resp.Body.Bytes()))
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com")

	for _, identifier := range []string{"alice", "alice@example.com"} {
		resp := ts.api.Post("/api/auth/login", map[string]any{
			"identifier": identifier,
			"password":   "correct horse battery",
		})
		require.Equal(t, http.StatusOK, resp.Code, "login as %q: %s", identifier, resp.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Post("/api/auth/login", map[string]any{
		"identifier": "alice",
		"password":   "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, resp.Body.Bytes()))
}

func TestMeRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/auth/me", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUpdatePreferences(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Put("/api/auth/preferences", bearer(token), map[string]any{
		"dark_mode":      true,
		"font_size":      "large",
		"reduced_motion": false,
		"high_contrast":  true,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data struct {
			Preferences struct {
				DarkMode bool   `json:"dark_mode"`
				FontSize string `json:"font_size"`
			} `json:"preferences"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Preferences.DarkMode)
	assert.Equal(t, "large", envelope.Data.Preferences.FontSize)
}

func TestUpdatePreferencesRejectsUnknownFontSize(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Put("/api/auth/preferences", bearer(token), map[string]any{
		"font_size": "enormous",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com")
	token, _ := ts.register(t, "bob", "bob@example.com")

	resp := ts.api.Put("/api/auth/profile", bearer(token), map[string]any{
		"username": "Alice",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestUpdateProfileGenres(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Put("/api/auth/profile", bearer(token), map[string]any{
		"favorite_genres": []string{" Mystery ", "FANTASY", "mystery"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data struct {
			FavoriteGenres []string `json:"favorite_genres"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"mystery", "fantasy"}, envelope.Data.FavoriteGenres)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com")

	// Unknown emails get the same answer as known ones.
	resp := ts.api.Post("/api/auth/forgot-password", map[string]any{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, ts.mailer.to)

	resp = ts.api.Post("/api/auth/forgot-password", map[string]any{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, ts.mailer.url, 1)
	assert.Equal(t, []string{"alice@example.com"}, ts.mailer.to)

	link, err := url.Parse(ts.mailer.url[0])
	require.NoError(t, err)
	resetToken := link.Query().Get("token")
	require.NotEmpty(t, resetToken)

	resp = ts.api.Post("/api/auth/reset-password", map[string]any{
		"token":    "bogus-token",
		"password": "a whole new password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/auth/reset-password", map[string]any{
		"token":    resetToken,
		"password": "a whole new password",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Old password no longer works, new one does, token is spent.
	resp = ts.api.Post("/api/auth/login", map[string]any{
		"identifier": "alice",
		"password":   "correct horse battery",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/auth/login", map[string]any{
		"identifier": "alice",
		"password":   "a whole new password",
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/auth/reset-password", map[string]any{
		"token":    resetToken,
		"password": "yet another password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/auth/register", map[string]any{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, resp.Body.Bytes()))
	assert.True(t, strings.Contains(resp.Body.String(), "username") ||
		strings.Contains(resp.Body.String(), "email"))
}
