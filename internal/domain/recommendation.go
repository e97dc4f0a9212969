package domain

// FallbackGenres seed recommendations for users with no signal at all:
// no favorites, no saved books, no search history.
var FallbackGenres = []string{"fiction", "mystery", "science fiction"}

// RecommendationLimit caps how many books one recommendation response carries.
const RecommendationLimit = 12

// RecommendationBasis explains which signals produced a recommendation
// set, so the client can show "because you like X".
type RecommendationBasis struct {
	Genres              []string `json:"genres"`
	SavedBooksCount     int      `json:"saved_books_count"`
	RecentSearchesCount int      `json:"recent_searches_count"`
}
