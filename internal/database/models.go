package database

import "github.com/TobiSchelling/antirec/internal/movie"

// Profile is a stored analysis of a user's selection.
type Profile struct {
	ID             string               `json:"id"`
	SelectedIDs    []int                `json:"selected_ids"`
	AntiPreference movie.AntiPreference `json:"anti_preference"`
	TasteSummary   movie.TasteSummary   `json:"taste_summary"`
	CreatedAt      string               `json:"created_at"`
	Views          int                  `json:"views"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	Profiles       int
	Views          int
	DistinctMovies int
}
