package domain

import (
	"math"
	"slices"
)

// Review is a user's rating and write-up for a saved book. One review
// per (user, book); the rating is also mirrored onto the SavedBook.
type Review struct {
	Syncable
	UserID        string `json:"user_id"`
	BookID        string `json:"book_id"`         // internal SavedBook id
	OpenLibraryID string `json:"open_library_id"` // normalized, for public per-work listings

	Rating        int           `json:"rating"` // 1-5
	Title         string        `json:"title,omitempty"`
	Comment       string        `json:"comment,omitempty"`
	ReadingStatus ReadingStatus `json:"reading_status"` // reading or completed

	HelpfulVotes int      `json:"helpful_votes"`
	VotedBy      []string `json:"voted_by,omitempty"`
}

// ReviewKey builds the composite uniqueness key for one review per
// (user, book) pair.
func ReviewKey(userID, bookID string) string {
	return userID + "/" + bookID
}

// HasVoted reports whether the given user already marked this review helpful.
func (r *Review) HasVoted(userID string) bool {
	return slices.Contains(r.VotedBy, userID)
}

// AddVote records a helpful vote. Returns false if the user already voted.
func (r *Review) AddVote(userID string) bool {
	if r.HasVoted(userID) {
		return false
	}
	r.VotedBy = append(r.VotedBy, userID)
	r.HelpfulVotes++
	return true
}

// AverageRating is the mean review rating rounded to one decimal,
// 0 when there are no reviews.
func AverageRating(reviews []*Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}
