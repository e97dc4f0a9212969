// Package main provides a tool to seed the database with demo data.
//
// It creates a demo account with a handful of saved books, reading
// progress and reviews so the client has something to show during
// development.
//
// Usage:
//
//	DB_PATH=~/.shelfmark/db go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

var seedBooks = []struct {
	workID string
	title  string
	author string
	year   int
	genres []string
}{
	{"OL45883W", "Dune", "Frank Herbert", 1965, []string{"science fiction", "classics"}},
	{"OL27448W", "The Hobbit", "J.R.R. Tolkien", 1937, []string{"fantasy", "adventure"}},
	{"OL17091839W", "The Seven Deaths of Evelyn Hardcastle", "Stuart Turton", 2018, []string{"mystery"}},
	{"OL20126932W", "Gideon the Ninth", "Tamsyn Muir", 2019, []string{"science fiction", "fantasy"}},
	{"OL5735363W", "The Name of the Wind", "Patrick Rothfuss", 2007, []string{"fantasy"}},
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/.shelfmark/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	user, err := seedUser(ctx, s)
	if err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}
	fmt.Printf("Demo user: %s (password \"demo-password\")\n", user.Email)

	for _, b := range seedBooks {
		book, err := seedBook(ctx, s, user.ID, b.workID, b.title, b.author, b.year, b.genres, rng)
		if err != nil {
			log.Printf("Skipping %s: %v", b.title, err)
			continue
		}
		fmt.Printf("  saved %q (%s)\n", book.Title, book.Progress.Status)
	}

	fmt.Println("Done.")
}

func seedUser(ctx context.Context, s *store.Store) (*domain.User, error) {
	if existing, err := s.Users.GetByIndex(ctx, "email", "demo@shelfmark.local"); err == nil {
		return existing, nil
	}

	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:       "demo",
		Email:          "demo@shelfmark.local",
		PasswordHash:   hash,
		FavoriteGenres: []string{"science fiction", "fantasy"},
		Preferences:    domain.DefaultPreferences(),
	}
	user.ID = id.MustGenerate("user")
	user.InitTimestamps()

	if err := s.Users.Create(ctx, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

func seedBook(ctx context.Context, s *store.Store, userID, workID, title, author string, year int, genres []string, rng *rand.Rand) (*domain.SavedBook, error) {
	book := &domain.SavedBook{
		UserID:        userID,
		OpenLibraryID: workID,
		Title:         title,
		Author:        author,
		PublishYear:   &year,
		Genres:        genres,
		Progress:      domain.NewReadingProgress(),
	}
	book.ID = id.MustGenerate("book")
	book.InitTimestamps()

	// Give some books progress and a review for variety.
	switch rng.Intn(3) {
	case 1:
		now := time.Now()
		book.Progress.Status = domain.StatusReading
		book.Progress.TotalPages = 300
		book.Progress.CurrentPage = rng.Intn(300)
		book.Progress.Percentage = book.Progress.CurrentPage * 100 / 300
		book.Progress.StartedAt = &now
	case 2:
		now := time.Now()
		book.Progress.Status = domain.StatusCompleted
		book.Progress.Percentage = 100
		book.Progress.StartedAt = &now
		book.Progress.CompletedAt = &now
	}

	if err := s.Books.Create(ctx, book.ID, book); err != nil {
		return nil, err
	}

	if book.Progress.Status == domain.StatusCompleted {
		if err := seedReview(ctx, s, book, rng); err != nil {
			return nil, err
		}
	}
	return book, nil
}

func seedReview(ctx context.Context, s *store.Store, book *domain.SavedBook, rng *rand.Rand) error {
	rating := 3 + rng.Intn(3)
	review := &domain.Review{
		UserID:        book.UserID,
		BookID:        book.ID,
		OpenLibraryID: book.OpenLibraryID,
		Rating:        rating,
		Title:         "Seeded review",
		Comment:       "Demo data for development.",
		ReadingStatus: domain.StatusCompleted,
	}
	review.ID = id.MustGenerate("review")
	review.InitTimestamps()

	if err := s.Reviews.Create(ctx, review.ID, review); err != nil {
		return err
	}

	book.UserRating = &rating
	book.Touch()
	return s.Books.Update(ctx, book.ID, book)
}
