package api

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// catalogStub is an Open Library stand-in whose handler can be swapped
// mid-test.
type catalogStub struct {
	mu      sync.Mutex
	handler http.HandlerFunc
}

func (c *catalogStub) set(h http.HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *catalogStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"numFound":0,"docs":[]}`)
		return
	}
	h(w, r)
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

type testServer struct {
	*Server
	api     humatest.TestAPI
	catalog *catalogStub
	mailer  *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	stub := &catalogStub{}
	upstream := httptest.NewServer(stub)
	t.Cleanup(upstream.Close)

	catalog := openlibrary.NewClient(openlibrary.Config{
		BaseURL:        upstream.URL,
		CoverBaseURL:   "https://covers.openlibrary.org",
		SearchTimeout:  2 * time.Second,
		SuggestTimeout: time.Second,
	}, logger)

	tokens, err := auth.NewTokenService(make([]byte, 32), time.Hour)
	require.NoError(t, err)

	v := validation.New()
	mailer := &captureMailer{}

	services := &Services{
		Auth:           service.NewAuthService(st, tokens, v, mailer, logger, time.Hour, "http://localhost:5173"),
		Library:        service.NewLibraryService(st, catalog, v, logger),
		Reviews:        service.NewReviewService(st, v, logger),
		Recommendation: service.NewRecommendationService(st, catalog, logger),
	}

	s := NewServer(st, tokens, services, Options{}, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.api),
		catalog: stub,
		mailer:  mailer,
	}
}

// register creates an account and returns its bearer token and user id.
func (ts *testServer) register(t *testing.T, username, email string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/auth/register", map[string]any{
		"username": username,
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, "register failed: %s", resp.Body.String())

	var envelope struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data.Token, envelope.Data.User.ID
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

// errorCode extracts the machine-readable code from an error response.
func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Code
}

// searchFixture is one Open Library search page with two full docs and a
// sparse one.
const searchFixture = `{
	"numFound": 3,
	"docs": [
		{
			"key": "/works/OL1W",
			"title": "The Stars My Destination",
			"author_name": ["Alfred Bester"],
			"first_publish_year": 1956,
			"cover_i": 101,
			"isbn": ["9780679767800"],
			"subject": ["Science Fiction", "Classics", "Revenge", "Space", "Teleportation", "Extra"]
		},
		{
			"key": "/works/OL2W",
			"title": "Ancillary Justice",
			"author_name": ["Ann Leckie"],
			"first_publish_year": 2013,
			"cover_i": 202,
			"subject": ["Science Fiction", "Space Opera"]
		},
		{
			"key": "/works/OL3W",
			"title": "Untitled Draft"
		}
	]
}`

func serveSearchFixture(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, searchFixture)
}
