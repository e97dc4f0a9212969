package openlibrary

import (
	"encoding/json/v2"
	"fmt"
)

// BookSummary is the normalized catalog view of one work. It is
// ephemeral: search and recommendation responses are built from it, and
// save requests snapshot its fields into the library.
type BookSummary struct {
	ID          string   `json:"id"` // normalized work id, e.g. "OL45883W"
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	PublishYear *int     `json:"publish_year,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	ISBN        *string  `json:"isbn,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Description string   `json:"description,omitempty"`

	// Rating and RecommendedBy are populated for recommendations only.
	Rating        *float64 `json:"rating,omitempty"`
	RecommendedBy string   `json:"recommended_by,omitempty"`
}

// SearchResult is one page of catalog search results.
type SearchResult struct {
	Books []BookSummary `json:"books"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
}

// WorkDetail is the full detail view of a single work.
type WorkDetail struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
}

// searchResponse mirrors the catalog's /search.json payload.
type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverID          int64    `json:"cover_i"`
	ISBN             []string `json:"isbn"`
	Subject          []string `json:"subject"`
	RatingsAverage   float64  `json:"ratings_average"`
}

// workResponse mirrors the catalog's /works/{id}.json payload.
type workResponse struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Description description `json:"description"`
	Subjects    []string    `json:"subjects"`
	Covers      []int64     `json:"covers"`
}

// description absorbs the catalog's two description shapes: a bare
// string, or {"type": "/type/text", "value": "..."}.
type description string

func (d *description) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = description(s)
		return nil
	}

	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parse description: %w", err)
	}
	*d = description(obj.Value)
	return nil
}
