package service

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

func ptr[T any](v T) *T { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *openlibrary.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openlibrary.NewClient(openlibrary.Config{
		BaseURL:        srv.URL,
		CoverBaseURL:   "https://covers.openlibrary.org",
		SearchTimeout:  2 * time.Second,
		SuggestTimeout: time.Second,
	}, testLogger())
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(make([]byte, 32), time.Hour)
	require.NoError(t, err)
	return tokens
}

// captureMailer records reset links instead of sending them.
type captureMailer struct {
	to  []string
	url []string
}

func (m *captureMailer) SendPasswordReset(to, resetURL string) error {
	m.to = append(m.to, to)
	m.url = append(m.url, resetURL)
	return nil
}

func newAuthService(t *testing.T, s *store.Store, mailer *captureMailer) *AuthService {
	t.Helper()
	return NewAuthService(s, newTestTokens(t), validation.New(), mailer, testLogger(), time.Hour, "http://localhost:5173")
}
