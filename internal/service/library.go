package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// LibraryService covers catalog discovery and the personal library:
// search, suggestions, details, saved books, progress and history.
type LibraryService struct {
	store     *store.Store
	catalog   *openlibrary.Client
	validator *validation.Validator
	logger    *slog.Logger
}

// NewLibraryService creates the library service.
func NewLibraryService(s *store.Store, catalog *openlibrary.Client, validator *validation.Validator, logger *slog.Logger) *LibraryService {
	return &LibraryService{store: s, catalog: catalog, validator: validator, logger: logger}
}

// SearchBooksRequest is a catalog search with optional filters.
type SearchBooksRequest struct {
	Query    string
	Genre    string
	YearFrom *int
	YearTo   *int
	Page     int
	Limit    int
}

// SearchBooksResult is one page of results plus the history record id.
type SearchBooksResult struct {
	Books    []openlibrary.BookSummary
	Total    int
	Page     int
	SearchID string
}

// Search queries the catalog, applies the year post-filter, and records
// the search in the user's history.
func (s *LibraryService) Search(ctx context.Context, userID string, req SearchBooksRequest) (*SearchBooksResult, error) {
	if strings.TrimSpace(req.Query) == "" && req.Genre == "" && req.YearFrom == nil && req.YearTo == nil {
		return nil, domainerrors.Validationf("provide a search query or at least one filter")
	}

	result, err := s.catalog.Search(ctx, openlibrary.SearchParams{
		Query: req.Query,
		Genre: req.Genre,
		Page:  req.Page,
		Limit: req.Limit,
	})
	if err != nil {
		return nil, err
	}

	books := filterByYear(result.Books, req.YearFrom, req.YearTo)

	searchID, err := s.recordSearch(ctx, userID, req, books)
	if err != nil {
		// History is best-effort; the search itself succeeded.
		s.logger.Error("record search history", "user_id", userID, "error", err)
	}

	return &SearchBooksResult{
		Books:    books,
		Total:    result.Total,
		Page:     result.Page,
		SearchID: searchID,
	}, nil
}

// filterByYear drops books outside the bounds. While any bound is
// active, books with unknown publication year are dropped too.
func filterByYear(books []openlibrary.BookSummary, from, to *int) []openlibrary.BookSummary {
	if from == nil && to == nil {
		return books
	}
	out := make([]openlibrary.BookSummary, 0, len(books))
	for _, b := range books {
		if b.PublishYear == nil {
			continue
		}
		if from != nil && *b.PublishYear < *from {
			continue
		}
		if to != nil && *b.PublishYear > *to {
			continue
		}
		out = append(out, b)
	}
	return out
}

// recordSearch appends a history record and returns its id.
func (s *LibraryService) recordSearch(ctx context.Context, userID string, req SearchBooksRequest, books []openlibrary.BookSummary) (string, error) {
	searchID, err := id.Generate("search")
	if err != nil {
		return "", fmt.Errorf("generate search ID: %w", err)
	}

	record := &domain.SearchRecord{
		UserID:         userID,
		Query:          strings.TrimSpace(req.Query),
		ResultsCount:   len(books),
		InferredGenres: inferGenres(req.Genre, books),
		SearchedAt:     time.Now(),
	}
	record.ID = searchID
	record.InitTimestamps()

	if err := s.store.AppendSearch(ctx, record); err != nil {
		return "", fmt.Errorf("append search record: %w", err)
	}
	return searchID, nil
}

// inferGenres derives genre interest from a search: the explicit genre
// filter, plus the most frequent subjects on the result page.
func inferGenres(genreFilter string, books []openlibrary.BookSummary) []string {
	counts := make(map[string]int)
	var order []string
	for _, b := range books {
		for _, g := range b.Genres {
			g = strings.ToLower(g)
			if counts[g] == 0 {
				order = append(order, g)
			}
			counts[g]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	out := make([]string, 0, 4)
	if g := strings.ToLower(strings.TrimSpace(genreFilter)); g != "" {
		out = append(out, g)
	}
	for _, g := range order {
		if len(out) == 4 {
			break
		}
		if len(out) > 0 && out[0] == g {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Suggest returns autocomplete entries. Upstream failures degrade to an
// empty list; suggestions must never surface an error to the client.
func (s *LibraryService) Suggest(ctx context.Context, query string, limit int) []openlibrary.BookSummary {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []openlibrary.BookSummary{}
	}

	books, err := s.catalog.Suggest(ctx, query, limit)
	if err != nil {
		s.logger.Warn("suggestions degraded", "error", err)
		return []openlibrary.BookSummary{}
	}
	return books
}

// Details fetches the full catalog record for one work.
func (s *LibraryService) Details(ctx context.Context, workID string) (*openlibrary.WorkDetail, error) {
	return s.catalog.GetWork(ctx, workID)
}

// ListSaved returns the user's library, most recently added first.
func (s *LibraryService) ListSaved(ctx context.Context, userID string) ([]*domain.SavedBook, error) {
	return s.store.ListBooksByUser(ctx, userID)
}

// SaveBookRequest snapshots a catalog book into the library.
type SaveBookRequest struct {
	OpenLibraryID string   `json:"open_library_id" validate:"required"`
	Title         string   `json:"title" validate:"required"`
	Author        string   `json:"author,omitempty"`
	CoverURL      *string  `json:"cover_url,omitempty"`
	PublishYear   *int     `json:"publish_year,omitempty"`
	ISBN          *string  `json:"isbn,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// Save adds a book to the library. Saving the same work twice is a
// Conflict; the store's unique index decides the winner under
// concurrency.
func (s *LibraryService) Save(ctx context.Context, userID string, req SaveBookRequest) (*domain.SavedBook, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.SavedBook{
		UserID:        userID,
		OpenLibraryID: openlibrary.NormalizeWorkID(req.OpenLibraryID),
		Title:         req.Title,
		Author:        req.Author,
		CoverURL:      req.CoverURL,
		PublishYear:   req.PublishYear,
		ISBN:          req.ISBN,
		Genres:        req.Genres,
		Description:   req.Description,
		Progress:      domain.NewReadingProgress(),
	}
	if book.Author == "" {
		book.Author = "Unknown Author"
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.store.Books.Create(ctx, bookID, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("book is already in your library")
		}
		return nil, fmt.Errorf("save book: %w", err)
	}

	s.logger.Info("book saved", "user_id", userID, "book_id", bookID, "work", book.OpenLibraryID)
	return book, nil
}

// Remove deletes a saved book by its internal id. A book owned by
// someone else is reported as NotFound, not Forbidden.
func (s *LibraryService) Remove(ctx context.Context, userID, bookID string) error {
	book, err := s.ownedBook(ctx, userID, bookID)
	if err != nil {
		return err
	}
	return s.store.Books.Delete(ctx, book.ID)
}

// RemoveByOpenLibraryID deletes a saved book by its external work id.
func (s *LibraryService) RemoveByOpenLibraryID(ctx context.Context, userID, workID string) error {
	book, err := s.store.GetBookByLibraryKey(ctx, userID, openlibrary.NormalizeWorkID(workID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("book not found in your library")
		}
		return fmt.Errorf("look up book: %w", err)
	}
	return s.store.Books.Delete(ctx, book.ID)
}

// UpdateProgressRequest is a partial reading progress change.
type UpdateProgressRequest struct {
	Status      *string `json:"status,omitempty"`
	CurrentPage *int    `json:"current_page,omitempty" validate:"omitempty,gte=0"`
	TotalPages  *int    `json:"total_pages,omitempty" validate:"omitempty,gte=0"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateProgress applies a partial progress update to an owned book.
func (s *LibraryService) UpdateProgress(ctx context.Context, userID, bookID string, req UpdateProgressRequest) (*domain.SavedBook, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	update := domain.ProgressUpdate{
		CurrentPage: req.CurrentPage,
		TotalPages:  req.TotalPages,
		Notes:       req.Notes,
	}
	if req.Status != nil {
		status := domain.ReadingStatus(*req.Status)
		if !status.Valid() {
			return nil, domainerrors.Validationf("invalid reading status %q", *req.Status)
		}
		update.Status = &status
	}

	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found in your library")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book.UserID != userID {
		return nil, domainerrors.Forbidden("this book belongs to another library")
	}

	book.Progress.Apply(update, time.Now())
	book.Touch()

	if err := s.store.Books.Update(ctx, book.ID, book); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return book, nil
}

// Stats aggregates the user's library by reading status.
func (s *LibraryService) Stats(ctx context.Context, userID string) (domain.ReadingStats, error) {
	books, err := s.store.ListBooksByUser(ctx, userID)
	if err != nil {
		return domain.ReadingStats{}, err
	}
	return domain.ComputeReadingStats(books), nil
}

// ClickedBookRequest is the breadcrumb a client posts when a search
// result is opened.
type ClickedBookRequest struct {
	OpenLibraryID string   `json:"open_library_id" validate:"required"`
	Title         string   `json:"title" validate:"required"`
	Genres        []string `json:"genres,omitempty"`
}

// RecordClick appends a clicked-book breadcrumb to one of the user's
// search records.
func (s *LibraryService) RecordClick(ctx context.Context, userID, searchID string, req ClickedBookRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	record, err := s.store.Searches.Get(ctx, searchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("search record not found")
		}
		return fmt.Errorf("get search record: %w", err)
	}
	if record.UserID != userID {
		return domainerrors.NotFound("search record not found")
	}

	record.ClickedBooks = append(record.ClickedBooks, domain.ClickedBook{
		OpenLibraryID: openlibrary.NormalizeWorkID(req.OpenLibraryID),
		Title:         req.Title,
		Genres:        req.Genres,
		ClickedAt:     time.Now(),
	})
	record.Touch()

	if err := s.store.Searches.Update(ctx, record.ID, record); err != nil {
		return fmt.Errorf("update search record: %w", err)
	}
	return nil
}

// ownedBook loads a saved book, reporting records of other users as
// NotFound so ids can't be probed.
func (s *LibraryService) ownedBook(ctx context.Context, userID, bookID string) (*domain.SavedBook, error) {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found in your library")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book.UserID != userID {
		return nil, domainerrors.NotFound("book not found in your library")
	}
	return book, nil
}
