package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// ReviewService handles reviews and helpful votes. A user's review
// rating is mirrored onto the saved book while they still own it.
type ReviewService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewReviewService creates the review service.
func NewReviewService(s *store.Store, validator *validation.Validator, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: s, validator: validator, logger: logger}
}

// ReviewWithAuthor decorates a review with its author's username.
type ReviewWithAuthor struct {
	domain.Review
	Username string `json:"username"`
}

// CreateReviewRequest contains a new review.
type CreateReviewRequest struct {
	BookID        string `json:"book_id" validate:"required"`
	Rating        int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title         string `json:"title,omitempty" validate:"max=100"`
	Comment       string `json:"comment,omitempty" validate:"max=1000"`
	ReadingStatus string `json:"reading_status" validate:"required,oneof=reading completed"`
}

// Create adds a review for a book in the caller's library and mirrors
// the rating onto the saved book.
func (s *ReviewService) Create(ctx context.Context, userID string, req CreateReviewRequest) (*domain.Review, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	book, err := s.store.Books.Get(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found in your library")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book.UserID != userID {
		return nil, domainerrors.NotFound("book not found in your library")
	}

	reviewID, err := id.Generate("review")
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	review := &domain.Review{
		UserID:        userID,
		BookID:        book.ID,
		OpenLibraryID: book.OpenLibraryID,
		Rating:        req.Rating,
		Title:         req.Title,
		Comment:       req.Comment,
		ReadingStatus: domain.ReadingStatus(req.ReadingStatus),
	}
	review.ID = reviewID
	review.InitTimestamps()

	if err := s.store.Reviews.Create(ctx, reviewID, review); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("you already reviewed this book")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.mirrorRating(ctx, userID, book.ID, &req.Rating)

	s.logger.Info("review created", "user_id", userID, "review_id", reviewID)
	return review, nil
}

// UpdateReviewRequest is a partial review change.
type UpdateReviewRequest struct {
	Rating        *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Title         *string `json:"title,omitempty" validate:"omitempty,max=100"`
	Comment       *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
	ReadingStatus *string `json:"reading_status,omitempty" validate:"omitempty,oneof=reading completed"`
}

// Update applies a partial change to the caller's own review.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID string, req UpdateReviewRequest) (*domain.Review, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Title != nil {
		review.Title = *req.Title
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	if req.ReadingStatus != nil {
		review.ReadingStatus = domain.ReadingStatus(*req.ReadingStatus)
	}
	review.Touch()

	if err := s.store.Reviews.Update(ctx, review.ID, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if req.Rating != nil {
		s.mirrorRating(ctx, userID, review.BookID, req.Rating)
	}
	return review, nil
}

// Delete removes the caller's own review and clears the mirrored rating
// if the book is still in their library.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return err
	}

	if err := s.store.Reviews.Delete(ctx, review.ID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.mirrorRating(ctx, userID, review.BookID, nil)
	return nil
}

// MarkHelpful records a helpful vote. One vote per user per review.
func (s *ReviewService) MarkHelpful(ctx context.Context, userID, reviewID string) (*domain.Review, error) {
	review, err := s.store.Reviews.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	if !review.AddVote(userID) {
		return nil, domainerrors.Conflict("you already marked this review helpful")
	}
	review.Touch()

	if err := s.store.Reviews.Update(ctx, review.ID, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

// ListForWork returns all reviews of a catalog work with usernames and
// the average rating. Public: no caller context needed.
func (s *ReviewService) ListForWork(ctx context.Context, workID string) ([]ReviewWithAuthor, float64, error) {
	reviews, err := s.store.ListReviewsByWork(ctx, openlibrary.NormalizeWorkID(workID))
	if err != nil {
		return nil, 0, err
	}
	decorated, err := s.withAuthors(ctx, reviews)
	if err != nil {
		return nil, 0, err
	}
	return decorated, domain.AverageRating(reviews), nil
}

// ListForUser returns the caller's reviews, newest first.
func (s *ReviewService) ListForUser(ctx context.Context, userID string) ([]*domain.Review, error) {
	return s.store.ListReviewsByUser(ctx, userID)
}

// ownedReview loads a review and checks ownership. Reviews are public,
// so a foreign review is Forbidden rather than NotFound.
func (s *ReviewService) ownedReview(ctx context.Context, userID, reviewID string) (*domain.Review, error) {
	review, err := s.store.Reviews.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.UserID != userID {
		return nil, domainerrors.Forbidden("this review belongs to another user")
	}
	return review, nil
}

// mirrorRating copies (or clears, with nil) a rating onto the saved
// book, only while the caller still owns it. Books removed or re-saved
// since the review may diverge; that is accepted.
func (s *ReviewService) mirrorRating(ctx context.Context, userID, bookID string, rating *int) {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil || book.UserID != userID {
		return
	}
	book.UserRating = rating
	book.Touch()
	if err := s.store.Books.Update(ctx, book.ID, book); err != nil {
		s.logger.Warn("mirror review rating", "book_id", bookID, "error", err)
	}
}

// withAuthors resolves usernames for a review listing.
func (s *ReviewService) withAuthors(ctx context.Context, reviews []*domain.Review) ([]ReviewWithAuthor, error) {
	usernames := make(map[string]string)
	out := make([]ReviewWithAuthor, 0, len(reviews))
	for _, r := range reviews {
		name, ok := usernames[r.UserID]
		if !ok {
			user, err := s.store.Users.Get(ctx, r.UserID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				name = "deleted user"
			case err != nil:
				return nil, fmt.Errorf("get review author: %w", err)
			default:
				name = user.Username
			}
			usernames[r.UserID] = name
		}
		out = append(out, ReviewWithAuthor{Review: *r, Username: name})
	}
	return out, nil
}
