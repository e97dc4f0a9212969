package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewVotes(t *testing.T) {
	r := &Review{}

	assert.True(t, r.AddVote("user-a"))
	assert.Equal(t, 1, r.HelpfulVotes)
	assert.True(t, r.HasVoted("user-a"))

	// Repeat vote is rejected
	assert.False(t, r.AddVote("user-a"))
	assert.Equal(t, 1, r.HelpfulVotes)

	assert.True(t, r.AddVote("user-b"))
	assert.Equal(t, 2, r.HelpfulVotes)
}

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    float64
	}{
		{"no reviews", nil, 0},
		{"single", []int{4}, 4},
		{"rounds to one decimal", []int{4, 5, 5}, 4.7},
		{"mixed", []int{1, 2, 3, 4, 5}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := make([]*Review, len(tt.ratings))
			for i, rating := range tt.ratings {
				reviews[i] = &Review{Rating: rating}
			}
			assert.InDelta(t, tt.want, AverageRating(reviews), 0.001)
		})
	}
}

func TestReviewKey(t *testing.T) {
	assert.Equal(t, "user-a/book-b", ReviewKey("user-a", "book-b"))
}
