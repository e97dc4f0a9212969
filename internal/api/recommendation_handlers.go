package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRecommendations",
		Method:      http.MethodGet,
		Path:        "/api/recommendations",
		Summary:     "Personalized recommendations",
		Description: "Genre-based picks built from favorites, saved books and recent searches",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecommendations)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTrendingBooks",
		Method:      http.MethodGet,
		Path:        "/api/recommendations/trending",
		Summary:     "Trending books",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleTrending)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateGenrePreferences",
		Method:      http.MethodPut,
		Path:        "/api/recommendations/preferences",
		Summary:     "Update favorite genres",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateGenrePreferences)
}

// === DTOs ===

// RecommendationsOutput carries picks plus the signals they came from.
type RecommendationsOutput struct {
	Body struct {
		Success bool                       `json:"success"`
		Count   int                        `json:"count"`
		Basis   domain.RecommendationBasis `json:"basis"`
		Data    []openlibrary.BookSummary  `json:"data"`
	}
}

// GenrePreferencesInput wraps a favorite-genres replacement for Huma.
type GenrePreferencesInput struct {
	Body struct {
		FavoriteGenres []string `json:"favorite_genres"`
	}
}

// === Handlers ===

func (s *Server) handleRecommendations(ctx context.Context, _ *struct{}) (*RecommendationsOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Recommendation.Recommend(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &RecommendationsOutput{}
	out.Body.Success = true
	out.Body.Count = len(result.Books)
	out.Body.Basis = result.Basis
	out.Body.Data = result.Books
	return out, nil
}

func (s *Server) handleTrending(ctx context.Context, _ *struct{}) (*BookListOutput, error) {
	if _, err := getUserID(ctx); err != nil {
		return nil, err
	}

	books, err := s.services.Recommendation.Trending(ctx)
	if err != nil {
		return nil, err
	}

	out := &BookListOutput{}
	out.Body.Success = true
	out.Body.Count = len(books)
	out.Body.Data = books
	return out, nil
}

func (s *Server) handleUpdateGenrePreferences(ctx context.Context, input *GenrePreferencesInput) (*UserOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Recommendation.UpdatePreferences(ctx, userID, input.Body.FavoriteGenres)
	if err != nil {
		return nil, err
	}
	return userOutput(user), nil
}
