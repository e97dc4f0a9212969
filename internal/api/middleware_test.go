package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", clientIP(req))
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "alice@example.com")

	limited := false
	for range 12 {
		resp := ts.api.Post("/api/auth/login", map[string]any{
			"identifier": "alice",
			"password":   "wrong",
		})
		if resp.Code == http.StatusTooManyRequests {
			limited = true
			assert.Equal(t, "RATE_LIMITED", errorCode(t, resp.Body.Bytes()))
			break
		}
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}
	assert.True(t, limited, "expected a 429 after repeated attempts")
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/health")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"healthy"`)
}
