package store

import (
	"context"
	"slices"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// ListReviewsByUser returns a user's reviews, newest first.
func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]*domain.Review, error) {
	reviews, err := s.Reviews.ListByIndexPrefix(ctx, "user", userID+"/")
	if err != nil {
		return nil, err
	}
	sortReviews(reviews)
	return reviews, nil
}

// ListReviewsByWork returns all reviews for one catalog work, newest first.
// The id must already be normalized.
func (s *Store) ListReviewsByWork(ctx context.Context, openLibraryID string) ([]*domain.Review, error) {
	reviews, err := s.Reviews.ListByIndexPrefix(ctx, "work", openLibraryID+"/")
	if err != nil {
		return nil, err
	}
	sortReviews(reviews)
	return reviews, nil
}

// GetReviewByUserBook looks up the one review a user wrote for a saved book.
func (s *Store) GetReviewByUserBook(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	return s.Reviews.GetByIndex(ctx, "userbook", domain.ReviewKey(userID, bookID))
}

func sortReviews(reviews []*domain.Review) {
	slices.SortFunc(reviews, func(a, b *domain.Review) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
