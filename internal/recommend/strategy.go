package recommend

import (
	"github.com/TobiSchelling/antirec/internal/catalog"
	"github.com/TobiSchelling/antirec/internal/movie"
)

const maxSampledGenres = 2

type strategy struct {
	name    string
	filters catalog.Filters
}

// strategies lists the query tiers in the order they are tried. The targeted
// tier exists only when pref restricts genres.
func (s *Selector) strategies(pref *movie.AntiPreference) []strategy {
	var out []strategy

	if pref != nil && len(pref.GenresToInclude) > 0 {
		f := s.baseFilters()
		f.Genres = s.sampleGenres(pref.GenresToInclude, maxSampledGenres)
		if pref.MinYear != "" {
			f.ReleaseDateGTE = pref.MinYear + "-01-01"
		}
		if pref.MaxYear != "" {
			f.ReleaseDateLTE = pref.MaxYear + "-12-31"
		}
		f.SortBy = movie.SortPopularityDesc
		f.VoteCountGTE = 100
		out = append(out, strategy{name: "targeted", filters: f})
	}

	low := s.baseFilters()
	low.VoteAverageLTE = catalog.Float(5.0)
	low.SortBy = movie.SortVoteAverageAsc
	low.VoteCountGTE = 200

	broad := s.baseFilters()
	broad.VoteAverageLTE = catalog.Float(6.0)
	broad.SortBy = movie.SortVoteAverageAsc
	broad.VoteCountGTE = 100

	return append(out,
		strategy{name: "generic_low_rated", filters: low},
		strategy{name: "broadened", filters: broad},
	)
}

func (s *Selector) baseFilters() catalog.Filters {
	return catalog.Filters{
		Certifications:       append([]string(nil), s.opts.Certifications...),
		CertificationCountry: s.opts.CertificationCountry,
		OriginalLanguage:     s.opts.OriginalLanguage,
	}
}

// sampleGenres picks up to k distinct entries uniformly without replacement.
func (s *Selector) sampleGenres(genres []int, k int) []int {
	s.mu.Lock()
	perm := s.rng.Perm(len(genres))
	s.mu.Unlock()

	if k > len(perm) {
		k = len(perm)
	}
	out := make([]int, k)
	for i := range out {
		out[i] = genres[perm[i]]
	}
	return out
}
