package domain

import (
	"math"
	"time"
)

// ReadingStatus tracks where a saved book sits in the user's reading life.
type ReadingStatus string

const (
	StatusNotStarted ReadingStatus = "not-started"
	StatusReading    ReadingStatus = "reading"
	StatusPaused     ReadingStatus = "paused"
	StatusCompleted  ReadingStatus = "completed"
)

// Valid reports whether the status is one of the supported values.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusReading, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ReadingProgress tracks page position within a saved book.
// Percentage is derived, never set directly by callers.
type ReadingProgress struct {
	Status      ReadingStatus `json:"status"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
	Percentage  int           `json:"percentage"`
	Notes       string        `json:"notes,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// NewReadingProgress returns the zero progress for a freshly saved book.
func NewReadingProgress() ReadingProgress {
	return ReadingProgress{Status: StatusNotStarted}
}

// ProgressUpdate is a partial progress change. Nil fields are untouched.
type ProgressUpdate struct {
	Status      *ReadingStatus
	CurrentPage *int
	TotalPages  *int
	Notes       *string
}

// Apply merges a partial update into the progress and recomputes the
// derived fields. StartedAt is set once, on the first transition into
// reading. Completing forces the percentage to 100 and stamps
// CompletedAt.
func (p *ReadingProgress) Apply(u ProgressUpdate, now time.Time) {
	if u.CurrentPage != nil {
		p.CurrentPage = *u.CurrentPage
	}
	if u.TotalPages != nil {
		p.TotalPages = *u.TotalPages
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	if u.Status != nil {
		p.Status = *u.Status
	}

	if p.TotalPages > 0 {
		pct := int(math.Round(float64(p.CurrentPage) / float64(p.TotalPages) * 100))
		p.Percentage = min(pct, 100)
	}

	if p.Status == StatusReading && p.StartedAt == nil {
		p.StartedAt = &now
	}
	if p.Status == StatusCompleted {
		p.Percentage = 100
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
	}
}

// SavedBook is a catalog book snapshot saved into a user's library.
// Catalog fields are copied at save time; the catalog is not re-queried
// for saved books.
type SavedBook struct {
	Syncable
	UserID        string `json:"user_id"`
	OpenLibraryID string `json:"open_library_id"` // normalized work id, e.g. "OL45883W"

	Title       string   `json:"title"`
	Author      string   `json:"author"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	PublishYear *int     `json:"publish_year,omitempty"`
	ISBN        *string  `json:"isbn,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Description string   `json:"description,omitempty"`

	Progress   ReadingProgress `json:"progress"`
	UserRating *int            `json:"user_rating,omitempty"` // denormalized from the user's review
}

// LibraryKey builds the composite uniqueness key for one save per
// (user, work) pair.
func LibraryKey(userID, openLibraryID string) string {
	return userID + "/" + openLibraryID
}

// ReadingStats aggregates a user's library by status.
type ReadingStats struct {
	TotalBooks    int     `json:"total_books"`
	NotStarted    int     `json:"not_started"`
	Reading       int     `json:"reading"`
	Paused        int     `json:"paused"`
	Completed     int     `json:"completed"`
	AverageRating float64 `json:"average_rating"` // one decimal, 0 when nothing rated
}

// ComputeReadingStats folds a library listing into totals.
func ComputeReadingStats(books []*SavedBook) ReadingStats {
	stats := ReadingStats{TotalBooks: len(books)}

	ratingSum, rated := 0, 0
	for _, b := range books {
		switch b.Progress.Status {
		case StatusReading:
			stats.Reading++
		case StatusPaused:
			stats.Paused++
		case StatusCompleted:
			stats.Completed++
		default:
			stats.NotStarted++
		}
		if b.UserRating != nil {
			ratingSum += *b.UserRating
			rated++
		}
	}

	if rated > 0 {
		stats.AverageRating = math.Round(float64(ratingSum)/float64(rated)*10) / 10
	}

	return stats
}
