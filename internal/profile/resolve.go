// Package profile derives a user's taste and anti-preferences from the
// movies they picked, via the catalog and a language model.
package profile

import (
	"context"

	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/movie"
)

// Catalog resolves movie ids to details.
type Catalog interface {
	FetchByID(ctx context.Context, id int) (*movie.Detail, error)
}

// resolveDetails fetches each id in order. Missing or failed lookups are
// skipped; only cancellation of ctx is an error.
func resolveDetails(ctx context.Context, cat Catalog, ids []int) ([]movie.Detail, error) {
	details := make([]movie.Detail, 0, len(ids))
	for _, id := range ids {
		d, err := cat.FetchByID(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn().Err(err).Int("movie_id", id).Msg("skipping movie details")
			continue
		}
		if d == nil {
			logging.Debug().Int("movie_id", id).Msg("movie not found")
			continue
		}
		details = append(details, *d)
	}
	return details, nil
}
