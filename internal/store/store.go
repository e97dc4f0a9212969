// Package store is the persistence layer: a Badger key-value database
// with typed entities and secondary indexes on top.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Users    *Entity[domain.User]
	Books    *Entity[domain.SavedBook]
	Reviews  *Entity[domain.Review]
	Searches *Entity[domain.SearchRecord]
}

// New opens the database at path and wires up the entities.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Badger's own logging is too chatty
	opts.SyncWrites = true // Sync to disk to survive crashes

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}

	// Unique: one account per email and per username, case-insensitive.
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndex("email", func(u *domain.User) []string {
			return []string{domain.NormalizeEmail(u.Email)}
		}).
		WithIndex("username", func(u *domain.User) []string {
			return []string{strings.ToLower(u.Username)}
		}).
		WithIndex("resettoken", func(u *domain.User) []string {
			if u.ResetTokenHash == "" {
				return nil
			}
			return []string{u.ResetTokenHash}
		})

	// "user" lists a library; "library" is the unique one-save-per-work
	// constraint that arbitrates concurrent duplicate saves.
	s.Books = NewEntity[domain.SavedBook](s, "book:").
		WithIndex("user", func(b *domain.SavedBook) []string {
			return []string{b.UserID + "/" + b.ID}
		}).
		WithIndex("library", func(b *domain.SavedBook) []string {
			return []string{domain.LibraryKey(b.UserID, b.OpenLibraryID)}
		})

	// "work" powers the public per-work listing; "userbook" is the
	// one-review-per-book constraint.
	s.Reviews = NewEntity[domain.Review](s, "review:").
		WithIndex("user", func(r *domain.Review) []string {
			return []string{r.UserID + "/" + r.ID}
		}).
		WithIndex("work", func(r *domain.Review) []string {
			return []string{r.OpenLibraryID + "/" + r.ID}
		}).
		WithIndex("userbook", func(r *domain.Review) []string {
			return []string{domain.ReviewKey(r.UserID, r.BookID)}
		})

	s.Searches = NewEntity[domain.SearchRecord](s, "search:").
		WithIndex("user", func(r *domain.SearchRecord) []string {
			return []string{r.UserID + "/" + r.ID}
		})

	if logger != nil {
		logger.Info("database opened", "path", path)
	}

	return s, nil
}

// Ping verifies the database is readable.
func (s *Store) Ping() error {
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("ping"))
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing database")
	}
	return s.db.Close()
}
