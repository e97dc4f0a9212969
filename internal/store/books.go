package store

import (
	"context"
	"slices"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// ListBooksByUser returns a user's library, most recently added first.
func (s *Store) ListBooksByUser(ctx context.Context, userID string) ([]*domain.SavedBook, error) {
	books, err := s.Books.ListByIndexPrefix(ctx, "user", userID+"/")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(books, func(a, b *domain.SavedBook) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return books, nil
}

// GetBookByLibraryKey looks up a saved book by its (user, work) pair.
func (s *Store) GetBookByLibraryKey(ctx context.Context, userID, openLibraryID string) (*domain.SavedBook, error) {
	return s.Books.GetByIndex(ctx, "library", domain.LibraryKey(userID, openLibraryID))
}
