// Package movie defines the records passed between the catalog, the
// profile components and the selector.
package movie

// Sort orders an AntiPreference may carry.
const (
	SortVoteAverageAsc = "vote_average.asc"
	SortPopularityAsc  = "popularity.asc"
	SortPopularityDesc = "popularity.desc"
)

// Summary is a poster record returned to callers for display.
// PosterURL is never empty.
type Summary struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterURL   string  `json:"poster_url"`
	Year        string  `json:"year"`
	GenreIDs    []int   `json:"genre_ids"`
	Summary     string  `json:"summary"`
	VoteAverage float64 `json:"vote_average"`
}

// Detail is the per-movie record rendered into model prompts.
type Detail struct {
	Title       string   `json:"title"`
	Genres      []string `json:"genres"`
	Year        string   `json:"year"`
	Overview    string   `json:"overview"`
	VoteAverage float64  `json:"vote_average"`
}

// AntiPreference is a filter profile aimed at movies the user would dislike.
// An empty GenresToInclude means no genre restriction. Keywords are advisory
// and never sent to the catalog.
type AntiPreference struct {
	GenresToInclude []int    `json:"genres_to_include"`
	MinYear         string   `json:"min_year"`
	MaxYear         string   `json:"max_year"`
	VoteAverageLTE  float64  `json:"vote_average_lte"`
	SortPreference  string   `json:"sort_preference"`
	Keywords        []string `json:"keywords"`
}

// TasteSummary is a two-field human readable description of a user's taste.
type TasteSummary struct {
	TasteProfile    string `json:"taste_profile"`
	AntiPreferences string `json:"anti_preferences"`
}

// ValidSort reports whether s is one of the supported sort orders.
func ValidSort(s string) bool {
	switch s {
	case SortVoteAverageAsc, SortPopularityAsc, SortPopularityDesc:
		return true
	}
	return false
}

// MaxVoteAverageLTE is the ceiling applied to AntiPreference.VoteAverageLTE.
const MaxVoteAverageLTE = 5.0

// ClampVoteAverage bounds v to [0, MaxVoteAverageLTE].
func ClampVoteAverage(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxVoteAverageLTE {
		return MaxVoteAverageLTE
	}
	return v
}
