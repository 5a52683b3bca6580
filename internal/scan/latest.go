package scan

import (
	"context"

	apperrors "github.com/listenvault/listenvault/internal/errors"
)

// LatestTimestamp returns the listened_at of the newest listen present in
// the dumps: the maximum timestamp in the newest partition. An empty newest
// partition falls through to the next-newest one that has listens. If there
// are no partitions, or every partition is empty, the error carries
// CATALOG_EMPTY so callers can treat it as "no data yet".
func (s *Scanner) LatestTimestamp(ctx context.Context) (int64, error) {
	refs, err := s.catalog.List(ctx)
	if err != nil {
		return 0, err
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		listens, err := s.source.Read(ctx, ref)
		if err != nil {
			return 0, s.readError(ref, err)
		}
		if len(listens) == 0 {
			s.log.Debug().Str("partition", ref.Name).Msg("partition is empty, trying next-newest")
			continue
		}

		max := listens[0].ListenedAt
		for _, listen := range listens[1:] {
			if listen.ListenedAt > max {
				max = listen.ListenedAt
			}
		}
		return max, nil
	}

	return 0, apperrors.NewCatalogError(apperrors.CodeCatalogEmpty,
		"no listens in any partition")
}
