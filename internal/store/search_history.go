package store

import (
	"context"
	"slices"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// AppendSearch stores a search record and evicts the oldest records
// once the user's history grows past domain.SearchHistoryLimit.
func (s *Store) AppendSearch(ctx context.Context, record *domain.SearchRecord) error {
	if err := s.Searches.Create(ctx, record.ID, record); err != nil {
		return err
	}

	history, err := s.ListSearchesByUser(ctx, record.UserID)
	if err != nil {
		return err
	}
	if len(history) <= domain.SearchHistoryLimit {
		return nil
	}

	// history is newest-first; everything past the cap goes.
	for _, old := range history[domain.SearchHistoryLimit:] {
		if err := s.Searches.Delete(ctx, old.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListSearchesByUser returns a user's search history, newest first.
func (s *Store) ListSearchesByUser(ctx context.Context, userID string) ([]*domain.SearchRecord, error) {
	records, err := s.Searches.ListByIndexPrefix(ctx, "user", userID+"/")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(records, func(a, b *domain.SearchRecord) int {
		return b.SearchedAt.Compare(a.SearchedAt)
	})
	return records, nil
}
