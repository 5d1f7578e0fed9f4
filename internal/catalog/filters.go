package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// Filters are the discover options the client understands. Zero-valued
// options are left out of the request.
type Filters struct {
	Genres               []int // OR-combined
	ReleaseDateGTE       string
	ReleaseDateLTE       string
	VoteAverageLTE       *float64
	VoteCountGTE         int
	Certifications       []string
	CertificationCountry string
	OriginalLanguage     string
	SortBy               string
}

// IsZero reports whether no filter is set, in which case the popular
// listing is queried instead of discover.
func (f Filters) IsZero() bool {
	return len(f.Genres) == 0 &&
		f.ReleaseDateGTE == "" &&
		f.ReleaseDateLTE == "" &&
		f.VoteAverageLTE == nil &&
		f.VoteCountGTE == 0 &&
		len(f.Certifications) == 0 &&
		f.OriginalLanguage == "" &&
		f.SortBy == ""
}

// Float returns a pointer to v, for VoteAverageLTE.
func Float(v float64) *float64 { return &v }

func (f Filters) values(page int, language string) url.Values {
	if page < 1 {
		page = 1
	}
	v := url.Values{
		"page":          {strconv.Itoa(page)},
		"include_adult": {"false"},
	}
	if language != "" {
		v.Set("language", language)
	}

	if len(f.Genres) > 0 {
		ids := make([]string, len(f.Genres))
		for i, g := range f.Genres {
			ids[i] = strconv.Itoa(g)
		}
		v.Set("with_genres", strings.Join(ids, "|"))
	}
	if f.ReleaseDateGTE != "" {
		v.Set("primary_release_date.gte", f.ReleaseDateGTE)
	}
	if f.ReleaseDateLTE != "" {
		v.Set("primary_release_date.lte", f.ReleaseDateLTE)
	}
	if f.VoteAverageLTE != nil {
		v.Set("vote_average.lte", strconv.FormatFloat(*f.VoteAverageLTE, 'f', -1, 64))
	}
	if f.VoteCountGTE > 0 {
		v.Set("vote_count.gte", strconv.Itoa(f.VoteCountGTE))
	}
	if len(f.Certifications) > 0 {
		v.Set("certification", strings.Join(f.Certifications, "|"))
		if f.CertificationCountry != "" {
			v.Set("certification_country", f.CertificationCountry)
		}
	}
	if f.OriginalLanguage != "" {
		v.Set("with_original_language", f.OriginalLanguage)
	}
	if f.SortBy != "" {
		v.Set("sort_by", f.SortBy)
	}
	return v
}
