package api

import (
	"encoding/json/v2"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveSubjectEcho answers every search with books tagged by the
// requested subject so tests can tell which genre produced a result.
func serveSubjectEcho(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"numFound":2,"docs":[
		{"key":"/works/%s1","title":"Pick One","author_name":["A"],"subject":[%q]},
		{"key":"/works/%s2","title":"Pick Two","author_name":["B"],"subject":[%q]}
	]}`, hashQuery(q), q, hashQuery(q), q)
}

func hashQuery(q string) string {
	sum := 0
	for _, r := range q {
		sum += int(r)
	}
	return fmt.Sprintf("OLQ%d", sum)
}

func TestRecommendationsFallbackGenres(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.set(serveSubjectEcho)
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Get("/api/recommendations", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		Basis   struct {
			Genres          []string `json:"genres"`
			SavedBooksCount int      `json:"saved_books_count"`
		} `json:"basis"`
		Data []struct {
			RecommendedBy string `json:"recommended_by"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)

	// A fresh account has no genre signal of its own; the basis reports
	// that, while the defaults still drive the picks.
	assert.Empty(t, envelope.Basis.Genres)
	assert.Zero(t, envelope.Basis.SavedBooksCount)
	assert.Positive(t, envelope.Count)

	sources := make(map[string]bool)
	for _, book := range envelope.Data {
		sources[book.RecommendedBy] = true
	}
	assert.True(t, sources["fiction"], "default genres should drive the picks, got %v", sources)
	assert.Equal(t, "fiction", envelope.Data[0].RecommendedBy)
}

func TestRecommendationsUseFavoriteGenres(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.set(serveSubjectEcho)
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Put("/api/recommendations/preferences", bearer(token), map[string]any{
		"favorite_genres": []string{"Horror", "Poetry"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var userEnvelope struct {
		Data struct {
			FavoriteGenres []string `json:"favorite_genres"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &userEnvelope))
	assert.Equal(t, []string{"horror", "poetry"}, userEnvelope.Data.FavoriteGenres)

	resp = ts.api.Get("/api/recommendations", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Basis struct {
			Genres []string `json:"genres"`
		} `json:"basis"`
		Data []struct {
			RecommendedBy string `json:"recommended_by"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Basis.Genres)
	assert.Equal(t, "horror", envelope.Basis.Genres[0])
	require.NotEmpty(t, envelope.Data)
	assert.Equal(t, "horror", envelope.Data[0].RecommendedBy)
}

func TestRecommendationsCatalogDown(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.set(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Get("/api/recommendations", bearer(token))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", errorCode(t, resp.Body.Bytes()))
}

func TestTrending(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.set(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "*", r.URL.Query().Get("q"))
		assert.Equal(t, "new", r.URL.Query().Get("sort"))
		serveSearchFixture(w, r)
	})
	token, _ := ts.register(t, "alice", "alice@example.com")

	resp := ts.api.Get("/api/recommendations/trending", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Count)
}

func TestRecommendationsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/recommendations")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
