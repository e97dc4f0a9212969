package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/search",
		Summary:     "Search the catalog",
		Description: "Searches Open Library with optional genre and year filters. Each search is recorded in the caller's history.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/suggestions",
		Summary:     "Typeahead suggestions",
		Description: "Lightweight title suggestions. Degrades to an empty list when the catalog is unavailable.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSuggestBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookDetails",
		Method:      http.MethodGet,
		Path:        "/api/books/details/{id}",
		Summary:     "Work details",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleBookDetails)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/saved",
		Summary:     "List saved books",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSaved)

	huma.Register(s.api, huma.Operation{
		OperationID:   "saveBook",
		Method:        http.MethodPost,
		Path:          "/api/books/saved",
		Summary:       "Save a book",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Library"},
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleSaveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeSavedBook",
		Method:      http.MethodDelete,
		Path:        "/api/books/saved/{id}",
		Summary:     "Remove a saved book",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveSaved)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeSavedBookByWork",
		Method:      http.MethodDelete,
		Path:        "/api/books/saved/openlibrary/{olid}",
		Summary:     "Remove a saved book by Open Library ID",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveSavedByWork)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReadingProgress",
		Method:      http.MethodPut,
		Path:        "/api/books/{id}/progress",
		Summary:     "Update reading progress",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingStats",
		Method:      http.MethodGet,
		Path:        "/api/books/progress/stats",
		Summary:     "Reading statistics",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReadingStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "recordSearchClick",
		Method:      http.MethodPost,
		Path:        "/api/books/search/{searchID}/clicks",
		Summary:     "Record a result click",
		Description: "Attaches a clicked book to one of the caller's search records",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecordClick)
}

// === DTOs ===

// SearchFilters echoes the filters a search was run with.
type SearchFilters struct {
	Query    string `json:"query,omitempty"`
	Genre    string `json:"genre,omitempty"`
	YearFrom *int   `json:"year_from,omitempty"`
	YearTo   *int   `json:"year_to,omitempty"`
}

// SearchBooksInput carries catalog search parameters. Huma rejects
// pointer query fields, so the year bounds are value ints with zero
// meaning unset; no catalog work has publish year 0.
type SearchBooksInput struct {
	Query    string `query:"q" doc:"Free-text query"`
	Genre    string `query:"genre" doc:"Genre filter"`
	YearFrom int    `query:"year_from" doc:"Earliest publish year, 0 = unset"`
	YearTo   int    `query:"year_to" doc:"Latest publish year, 0 = unset"`
	Page     int    `query:"page" doc:"Page number, 1-based"`
	Limit    int    `query:"limit" doc:"Results per page"`
}

func yearBound(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// SearchBooksOutput is one page of catalog results.
type SearchBooksOutput struct {
	Body struct {
		Success  bool                      `json:"success"`
		Count    int                       `json:"count"`
		Total    int                       `json:"total"`
		Page     int                       `json:"page"`
		SearchID string                    `json:"search_id,omitempty" doc:"History record for click tracking"`
		Filters  SearchFilters             `json:"filters"`
		Data     []openlibrary.BookSummary `json:"data"`
	}
}

// SuggestBooksInput carries typeahead parameters.
type SuggestBooksInput struct {
	Query string `query:"q"`
	Limit int    `query:"limit"`
}

// BookListOutput is a plain list of catalog book summaries.
type BookListOutput struct {
	Body struct {
		Success bool                      `json:"success"`
		Count   int                       `json:"count"`
		Data    []openlibrary.BookSummary `json:"data"`
	}
}

// WorkIDInput identifies an Open Library work.
type WorkIDInput struct {
	ID string `path:"id" doc:"Open Library work ID"`
}

// WorkDetailOutput wraps work details for Huma.
type WorkDetailOutput struct {
	Body struct {
		Success bool                    `json:"success"`
		Data    *openlibrary.WorkDetail `json:"data"`
	}
}

// SavedBooksOutput is the caller's library.
type SavedBooksOutput struct {
	Body struct {
		Success bool                `json:"success"`
		Count   int                 `json:"count"`
		Data    []*domain.SavedBook `json:"data"`
	}
}

// SaveBookInput wraps a save request for Huma.
type SaveBookInput struct {
	Body service.SaveBookRequest
}

// SavedBookOutput wraps a single saved book for Huma.
type SavedBookOutput struct {
	Body struct {
		Success bool              `json:"success"`
		Data    *domain.SavedBook `json:"data"`
	}
}

// BookIDInput identifies a saved book by its internal ID.
type BookIDInput struct {
	ID string `path:"id" doc:"Saved book ID"`
}

// WorkPathInput identifies a saved book by its Open Library work ID.
type WorkPathInput struct {
	OLID string `path:"olid" doc:"Open Library work ID"`
}

// UpdateProgressInput wraps a progress update for Huma.
type UpdateProgressInput struct {
	ID   string `path:"id" doc:"Saved book ID"`
	Body service.UpdateProgressRequest
}

// ReadingStatsOutput wraps reading statistics for Huma.
type ReadingStatsOutput struct {
	Body struct {
		Success bool                `json:"success"`
		Data    domain.ReadingStats `json:"data"`
	}
}

// RecordClickInput wraps a click record for Huma.
type RecordClickInput struct {
	SearchID string `path:"searchID" doc:"Search history record ID"`
	Body     service.ClickedBookRequest
}

// === Handlers ===

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	yearFrom := yearBound(input.YearFrom)
	yearTo := yearBound(input.YearTo)

	req := service.SearchBooksRequest{
		Query:    input.Query,
		Genre:    input.Genre,
		YearFrom: yearFrom,
		YearTo:   yearTo,
		Page:     input.Page,
		Limit:    input.Limit,
	}

	result, err := s.services.Library.Search(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	out := &SearchBooksOutput{}
	out.Body.Success = true
	out.Body.Count = len(result.Books)
	out.Body.Total = result.Total
	out.Body.Page = result.Page
	out.Body.SearchID = result.SearchID
	out.Body.Filters = SearchFilters{
		Query:    input.Query,
		Genre:    input.Genre,
		YearFrom: yearFrom,
		YearTo:   yearTo,
	}
	out.Body.Data = result.Books
	return out, nil
}

func (s *Server) handleSuggestBooks(ctx context.Context, input *SuggestBooksInput) (*BookListOutput, error) {
	if _, err := getUserID(ctx); err != nil {
		return nil, err
	}

	books := s.services.Library.Suggest(ctx, input.Query, input.Limit)

	out := &BookListOutput{}
	out.Body.Success = true
	out.Body.Count = len(books)
	out.Body.Data = books
	return out, nil
}

func (s *Server) handleBookDetails(ctx context.Context, input *WorkIDInput) (*WorkDetailOutput, error) {
	if _, err := getUserID(ctx); err != nil {
		return nil, err
	}

	detail, err := s.services.Library.Details(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &WorkDetailOutput{}
	out.Body.Success = true
	out.Body.Data = detail
	return out, nil
}

func (s *Server) handleListSaved(ctx context.Context, _ *struct{}) (*SavedBooksOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Library.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &SavedBooksOutput{}
	out.Body.Success = true
	out.Body.Count = len(books)
	out.Body.Data = books
	return out, nil
}

func (s *Server) handleSaveBook(ctx context.Context, input *SaveBookInput) (*SavedBookOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Library.Save(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}

	out := &SavedBookOutput{}
	out.Body.Success = true
	out.Body.Data = book
	return out, nil
}

func (s *Server) handleRemoveSaved(ctx context.Context, input *BookIDInput) (*MessageOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Library.Remove(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return messageOutput("book removed from library"), nil
}

func (s *Server) handleRemoveSavedByWork(ctx context.Context, input *WorkPathInput) (*MessageOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Library.RemoveByOpenLibraryID(ctx, userID, input.OLID); err != nil {
		return nil, err
	}
	return messageOutput("book removed from library"), nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*SavedBookOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Library.UpdateProgress(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}

	out := &SavedBookOutput{}
	out.Body.Success = true
	out.Body.Data = book
	return out, nil
}

func (s *Server) handleReadingStats(ctx context.Context, _ *struct{}) (*ReadingStatsOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Library.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ReadingStatsOutput{}
	out.Body.Success = true
	out.Body.Data = stats
	return out, nil
}

func (s *Server) handleRecordClick(ctx context.Context, input *RecordClickInput) (*MessageOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Library.RecordClick(ctx, userID, input.SearchID, input.Body); err != nil {
		return nil, err
	}
	return messageOutput("click recorded"), nil
}
