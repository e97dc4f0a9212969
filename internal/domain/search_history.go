package domain

import "time"

// SearchHistoryLimit caps how many search records are kept per user.
// Inserting past the cap evicts the oldest records in a batch.
const SearchHistoryLimit = 100

// ClickedBook is a breadcrumb for a result the user opened from a search.
type ClickedBook struct {
	OpenLibraryID string    `json:"open_library_id"`
	Title         string    `json:"title"`
	Genres        []string  `json:"genres,omitempty"`
	ClickedAt     time.Time `json:"clicked_at"`
}

// SearchRecord captures one catalog search, for history display and for
// inferring genre interest during recommendation.
type SearchRecord struct {
	Syncable
	UserID         string        `json:"user_id"`
	Query          string        `json:"query"`
	ResultsCount   int           `json:"results_count"`
	InferredGenres []string      `json:"inferred_genres,omitempty"`
	ClickedBooks   []ClickedBook `json:"clicked_books,omitempty"`
	SearchedAt     time.Time     `json:"searched_at"`
}
