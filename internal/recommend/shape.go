package recommend

import (
	"slices"

	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// shape shuffles raw, keeps the first count entries and maps those with a
// poster. The result may be shorter than count.
func (s *Selector) shape(raw []catalog.Movie, count int) []movie.Summary {
	movies := slices.Clone(raw)

	s.mu.Lock()
	s.rng.Shuffle(len(movies), func(i, j int) { movies[i], movies[j] = movies[j], movies[i] })
	s.mu.Unlock()

	if len(movies) > count {
		movies = movies[:count]
	}

	out := make([]movie.Summary, 0, len(movies))
	for _, m := range movies {
		if m.PosterPath == "" {
			continue
		}
		out = append(out, toSummary(m, s.opts.ImageBaseURL))
	}
	return out
}

func toSummary(m catalog.Movie, imageBase string) movie.Summary {
	title := m.Title
	if title == "" {
		title = "Unknown Title"
	}
	summary := m.Overview
	if summary == "" {
		summary = "No summary available"
	}
	genres := m.GenreIDs
	if genres == nil {
		genres = []int{}
	}

	return movie.Summary{
		ID:          m.ID,
		Title:       title,
		PosterURL:   imageBase + m.PosterPath,
		Year:        m.Year(),
		GenreIDs:    genres,
		Summary:     summary,
		VoteAverage: m.VoteAverage,
	}
}
