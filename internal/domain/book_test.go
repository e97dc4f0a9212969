package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestReadingProgressApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("percentage derived from pages", func(t *testing.T) {
		p := NewReadingProgress()
		p.Apply(ProgressUpdate{CurrentPage: ptr(50), TotalPages: ptr(200)}, now)
		assert.Equal(t, 25, p.Percentage)
	})

	t.Run("percentage rounds", func(t *testing.T) {
		p := NewReadingProgress()
		p.Apply(ProgressUpdate{CurrentPage: ptr(1), TotalPages: ptr(3)}, now)
		assert.Equal(t, 33, p.Percentage)
	})

	t.Run("percentage clamped to 100", func(t *testing.T) {
		p := NewReadingProgress()
		p.Apply(ProgressUpdate{CurrentPage: ptr(250), TotalPages: ptr(200)}, now)
		assert.Equal(t, 100, p.Percentage)
	})

	t.Run("zero total pages leaves percentage alone", func(t *testing.T) {
		p := NewReadingProgress()
		p.Apply(ProgressUpdate{CurrentPage: ptr(10)}, now)
		assert.Equal(t, 0, p.Percentage)
	})

	t.Run("started at set once", func(t *testing.T) {
		p := NewReadingProgress()
		p.Apply(ProgressUpdate{Status: ptr(StatusReading)}, now)
		require.NotNil(t, p.StartedAt)
		first := *p.StartedAt

		later := now.Add(time.Hour)
		p.Apply(ProgressUpdate{Status: ptr(StatusPaused)}, later)
		p.Apply(ProgressUpdate{Status: ptr(StatusReading)}, later)
		assert.Equal(t, first, *p.StartedAt)
	})

	t.Run("completed forces percentage and completed at", func(t *testing.T) {
		p := NewReadingProgress()
		p.Apply(ProgressUpdate{CurrentPage: ptr(90), TotalPages: ptr(300)}, now)
		assert.Equal(t, 30, p.Percentage)

		p.Apply(ProgressUpdate{Status: ptr(StatusCompleted)}, now)
		assert.Equal(t, 100, p.Percentage)
		require.NotNil(t, p.CompletedAt)
		assert.Equal(t, now, *p.CompletedAt)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		p := ReadingProgress{Status: StatusReading, CurrentPage: 40, TotalPages: 100, Percentage: 40, Notes: "good"}
		p.Apply(ProgressUpdate{CurrentPage: ptr(60)}, now)
		assert.Equal(t, StatusReading, p.Status)
		assert.Equal(t, 100, p.TotalPages)
		assert.Equal(t, 60, p.Percentage)
		assert.Equal(t, "good", p.Notes)
	})
}

func TestReadingStatusValid(t *testing.T) {
	assert.True(t, StatusNotStarted.Valid())
	assert.True(t, StatusReading.Valid())
	assert.True(t, StatusPaused.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, ReadingStatus("finished").Valid())
}

func TestComputeReadingStats(t *testing.T) {
	books := []*SavedBook{
		{Progress: ReadingProgress{Status: StatusReading}, UserRating: ptr(4)},
		{Progress: ReadingProgress{Status: StatusCompleted}, UserRating: ptr(5)},
		{Progress: ReadingProgress{Status: StatusCompleted}},
		{Progress: ReadingProgress{Status: StatusNotStarted}},
		{Progress: ReadingProgress{Status: StatusPaused}},
	}

	stats := ComputeReadingStats(books)
	assert.Equal(t, 5, stats.TotalBooks)
	assert.Equal(t, 1, stats.Reading)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.NotStarted)
	assert.Equal(t, 1, stats.Paused)
	assert.InDelta(t, 4.5, stats.AverageRating, 0.001)
}

func TestComputeReadingStatsEmpty(t *testing.T) {
	stats := ComputeReadingStats(nil)
	assert.Equal(t, 0, stats.TotalBooks)
	assert.Zero(t, stats.AverageRating)
}

func TestLibraryKey(t *testing.T) {
	assert.Equal(t, "user-abc/OL45883W", LibraryKey("user-abc", "OL45883W"))
}
