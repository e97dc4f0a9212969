package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReviews",
		Method:      http.MethodGet,
		Path:        "/api/reviews/book/{olid}",
		Summary:     "Reviews for a work",
		Description: "Public listing of reviews for an Open Library work, newest first",
		Tags:        []string{"Reviews"},
	}, s.handleListBookReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserReviews",
		Method:      http.MethodGet,
		Path:        "/api/reviews/user",
		Summary:     "The caller's reviews",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserReviews)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createReview",
		Method:        http.MethodPost,
		Path:          "/api/reviews",
		Summary:       "Review a saved book",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Reviews"},
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReview",
		Method:      http.MethodPut,
		Path:        "/api/reviews/{id}",
		Summary:     "Update a review",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReview",
		Method:      http.MethodDelete,
		Path:        "/api/reviews/{id}",
		Summary:     "Delete a review",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "markReviewHelpful",
		Method:      http.MethodPost,
		Path:        "/api/reviews/{id}/helpful",
		Summary:     "Mark a review helpful",
		Description: "One vote per user per review",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkHelpful)
}

// === DTOs ===

// ReviewResponse is a review as served to clients. The stored voter
// list stays private; callers get the vote count and whether they
// voted themselves.
type ReviewResponse struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	BookID        string               `json:"book_id"`
	OpenLibraryID string               `json:"open_library_id"`
	Rating        int                  `json:"rating"`
	Title         string               `json:"title,omitempty"`
	Comment       string               `json:"comment,omitempty"`
	ReadingStatus domain.ReadingStatus `json:"reading_status"`
	HelpfulVotes  int                  `json:"helpful_votes"`
	Voted         bool                 `json:"voted"`
	Username      string               `json:"username,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// toReviewResponse converts a stored review for the given caller;
// callerID may be empty for anonymous readers.
func toReviewResponse(r *domain.Review, username, callerID string) ReviewResponse {
	return ReviewResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		BookID:        r.BookID,
		OpenLibraryID: r.OpenLibraryID,
		Rating:        r.Rating,
		Title:         r.Title,
		Comment:       r.Comment,
		ReadingStatus: r.ReadingStatus,
		HelpfulVotes:  r.HelpfulVotes,
		Voted:         callerID != "" && r.HasVoted(callerID),
		Username:      username,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// WorkReviewsOutput lists reviews for a work with its average rating.
type WorkReviewsOutput struct {
	Body struct {
		Success       bool             `json:"success"`
		Count         int              `json:"count"`
		AverageRating float64          `json:"average_rating"`
		Data          []ReviewResponse `json:"data"`
	}
}

// UserReviewsOutput lists the caller's reviews.
type UserReviewsOutput struct {
	Body struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		Data    []ReviewResponse `json:"data"`
	}
}

// CreateReviewInput wraps a new review for Huma.
type CreateReviewInput struct {
	Body service.CreateReviewRequest
}

// ReviewOutput wraps a single review for Huma.
type ReviewOutput struct {
	Body struct {
		Success bool           `json:"success"`
		Data    ReviewResponse `json:"data"`
	}
}

// ReviewIDInput identifies a review.
type ReviewIDInput struct {
	ID string `path:"id" doc:"Review ID"`
}

// UpdateReviewInput wraps a partial review update for Huma.
type UpdateReviewInput struct {
	ID   string `path:"id" doc:"Review ID"`
	Body service.UpdateReviewRequest
}

// === Handlers ===

func reviewOutput(review *domain.Review, callerID string) *ReviewOutput {
	out := &ReviewOutput{}
	out.Body.Success = true
	out.Body.Data = toReviewResponse(review, "", callerID)
	return out
}

func (s *Server) handleListBookReviews(ctx context.Context, input *WorkPathInput) (*WorkReviewsOutput, error) {
	// Public endpoint; a logged-in caller still gets their voted flags.
	callerID, _ := getUserID(ctx)

	reviews, average, err := s.services.Reviews.ListForWork(ctx, input.OLID)
	if err != nil {
		return nil, err
	}

	data := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		data = append(data, toReviewResponse(&r.Review, r.Username, callerID))
	}

	out := &WorkReviewsOutput{}
	out.Body.Success = true
	out.Body.Count = len(data)
	out.Body.AverageRating = average
	out.Body.Data = data
	return out, nil
}

func (s *Server) handleListUserReviews(ctx context.Context, _ *struct{}) (*UserReviewsOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	reviews, err := s.services.Reviews.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		data = append(data, toReviewResponse(r, "", userID))
	}

	out := &UserReviewsOutput{}
	out.Body.Success = true
	out.Body.Count = len(data)
	out.Body.Data = data
	return out, nil
}

func (s *Server) handleCreateReview(ctx context.Context, input *CreateReviewInput) (*ReviewOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Reviews.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return reviewOutput(review, userID), nil
}

func (s *Server) handleUpdateReview(ctx context.Context, input *UpdateReviewInput) (*ReviewOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Reviews.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return reviewOutput(review, userID), nil
}

func (s *Server) handleDeleteReview(ctx context.Context, input *ReviewIDInput) (*MessageOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Reviews.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return messageOutput("review deleted"), nil
}

func (s *Server) handleMarkHelpful(ctx context.Context, input *ReviewIDInput) (*ReviewOutput, error) {
	userID, err := getUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Reviews.MarkHelpful(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return reviewOutput(review, userID), nil
}
