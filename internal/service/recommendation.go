package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// recommendation tuning: how many genres feed one response, how many
// books each genre contributes, and how far back search history counts.
const (
	genreFetchCount   = 3
	booksPerGenre     = 5
	searchLookback    = 10
	trendingPageLimit = domain.RecommendationLimit
)

// RecommendationService builds genre-based recommendations from the
// user's favorites, library and recent searches.
type RecommendationService struct {
	store   *store.Store
	catalog *openlibrary.Client
	logger  *slog.Logger
}

// NewRecommendationService creates the recommendation service.
func NewRecommendationService(s *store.Store, catalog *openlibrary.Client, logger *slog.Logger) *RecommendationService {
	return &RecommendationService{store: s, catalog: catalog, logger: logger}
}

// RecommendationResult is the recommendation set plus the signals that
// produced it.
type RecommendationResult struct {
	Books []openlibrary.BookSummary  `json:"books"`
	Basis domain.RecommendationBasis `json:"basis"`
}

// Recommend assembles recommendations for a user. Genre signals are
// merged in precedence order (favorites, then library genres, then
// recent searches); the top genres are queried concurrently and
// per-genre failures are isolated. Books already in the library are
// excluded.
func (s *RecommendationService) Recommend(ctx context.Context, userID string) (*RecommendationResult, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	saved, err := s.store.ListBooksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved books: %w", err)
	}

	searches, err := s.store.ListSearchesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	if len(searches) > searchLookback {
		searches = searches[:searchLookback]
	}

	genres := mergeGenreSignals(user, saved, searches)

	fetchGenres := genres
	if len(fetchGenres) == 0 {
		fetchGenres = domain.FallbackGenres
	} else if len(fetchGenres) > genreFetchCount {
		fetchGenres = fetchGenres[:genreFetchCount]
	}

	books, err := s.fetchGenres(ctx, fetchGenres, saved)
	if err != nil {
		return nil, err
	}

	return &RecommendationResult{
		Books: books,
		Basis: domain.RecommendationBasis{
			Genres:              genres,
			SavedBooksCount:     len(saved),
			RecentSearchesCount: len(searches),
		},
	}, nil
}

// mergeGenreSignals builds the genre interest set, lowercased and
// first-occurrence ordered: favorites first, then genres of saved
// books, then genres inferred from recent searches.
func mergeGenreSignals(user *domain.User, saved []*domain.SavedBook, searches []*domain.SearchRecord) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(genre string) {
		genre = strings.ToLower(strings.TrimSpace(genre))
		if genre == "" || seen[genre] {
			return
		}
		seen[genre] = true
		out = append(out, genre)
	}

	for _, g := range user.FavoriteGenres {
		add(g)
	}
	for _, b := range saved {
		for _, g := range b.Genres {
			add(g)
		}
	}
	for _, rec := range searches {
		for _, g := range rec.InferredGenres {
			add(g)
		}
	}
	return out
}

type genreFetch struct {
	genre string
	books []openlibrary.BookSummary
	err   error
}

// fetchGenres queries the catalog for each genre concurrently and
// merges the results. A genre that fails contributes nothing; if every
// genre fails the catalog is effectively down.
func (s *RecommendationService) fetchGenres(ctx context.Context, genres []string, saved []*domain.SavedBook) ([]openlibrary.BookSummary, error) {
	results := make(chan genreFetch, len(genres))
	for _, genre := range genres {
		go func() {
			books, err := s.catalog.SearchSubject(ctx, genre, booksPerGenre)
			results <- genreFetch{genre: genre, books: books, err: err}
		}()
	}

	// Preserve the requested genre order regardless of arrival order.
	byGenre := make(map[string][]openlibrary.BookSummary, len(genres))
	failures := 0
	for range genres {
		r := <-results
		if r.err != nil {
			failures++
			s.logger.Warn("genre recommendations degraded", "genre", r.genre, "error", r.err)
			continue
		}
		byGenre[r.genre] = r.books
	}
	if failures == len(genres) {
		return nil, domainerrors.UpstreamUnavailable("catalog is unreachable")
	}

	excluded := make(map[string]bool, len(saved))
	for _, b := range saved {
		excluded[openlibrary.NormalizeWorkID(b.OpenLibraryID)] = true
	}

	seen := make(map[string]bool)
	out := make([]openlibrary.BookSummary, 0, domain.RecommendationLimit)
	for _, genre := range genres {
		for _, book := range byGenre[genre] {
			if len(out) == domain.RecommendationLimit {
				return out, nil
			}
			if seen[book.ID] || excluded[book.ID] {
				continue
			}
			seen[book.ID] = true
			out = append(out, book)
		}
	}
	return out, nil
}

// Trending returns the newest popular books, no personal signal involved.
func (s *RecommendationService) Trending(ctx context.Context) ([]openlibrary.BookSummary, error) {
	result, err := s.catalog.Search(ctx, openlibrary.SearchParams{
		Query: "*",
		Sort:  "new",
		Limit: trendingPageLimit,
	})
	if err != nil {
		return nil, err
	}
	return result.Books, nil
}

// UpdatePreferences replaces the user's favorite genres.
func (s *RecommendationService) UpdatePreferences(ctx context.Context, userID string, genres []string) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.FavoriteGenres = normalizeGenres(genres)
	user.Touch()
	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		return nil, fmt.Errorf("update favorite genres: %w", err)
	}
	return user, nil
}
