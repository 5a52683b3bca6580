// Package scan implements the bounded range scan and latest-timestamp query
// over the partition catalog. Reading a partition is the expensive operation,
// so the scan walks partitions newest to oldest and stops as soon as one has
// nothing at or after the window's lower bound: every older partition is
// chronologically at or below it and cannot contribute either.
package scan

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/listenvault/listenvault/internal/catalog"
	apperrors "github.com/listenvault/listenvault/internal/errors"
	"github.com/listenvault/listenvault/pkg/types"
)

// Window is an inclusive [Start, End] pair of Unix timestamps.
type Window struct {
	Start int64
	End   int64
}

// CatalogLister lists partitions newest-first.
type CatalogLister interface {
	List(ctx context.Context) ([]catalog.PartitionRef, error)
}

// Source materializes a partition's listens. Implementations may block on
// network and storage I/O for an unbounded time.
type Source interface {
	Read(ctx context.Context, ref catalog.PartitionRef) ([]types.Listen, error)
}

// CacheWarmer speculatively downloads partitions so later sequential reads
// hit the local cache. Warming is best-effort and must not affect which
// partitions the scan merges.
type CacheWarmer interface {
	WarmCache(ctx context.Context, refs []catalog.PartitionRef)
}

// Scanner runs range scans over the dump partitions.
// Concurrent calls are independent: each derives its own catalog snapshot.
type Scanner struct {
	catalog  CatalogLister
	source   Source
	warmer   CacheWarmer
	prefetch int
	log      zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scanner) { s.log = log }
}

// WithPrefetch enables speculative cache warming of the first depth
// partitions before the sequential merge starts. Partitions warmed past the
// scan's termination point are never merged, only cached.
func WithPrefetch(w CacheWarmer, depth int) Option {
	return func(s *Scanner) {
		s.warmer = w
		s.prefetch = depth
	}
}

// NewScanner creates a scanner over the given catalog and partition source.
func NewScanner(cat CatalogLister, src Source, opts ...Option) *Scanner {
	s := &Scanner{
		catalog: cat,
		source:  src,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns all listens with w.Start <= listened_at <= w.End, merged
// across partitions. Each partition's internal ascending order is preserved
// within its own contribution; no global order is guaranteed across the
// merged result.
//
// A read failure on any partition aborts the whole scan with no partial
// data. An empty catalog yields an empty result: a range query over no data
// has a well-defined answer. An inverted window does too.
func (s *Scanner) Scan(ctx context.Context, w Window) ([]types.Listen, error) {
	if w.Start > w.End {
		return []types.Listen{}, nil
	}

	refs, err := s.catalog.List(ctx)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.CodeCatalogEmpty {
			return []types.Listen{}, nil
		}
		return nil, err
	}

	if s.warmer != nil && s.prefetch > 0 {
		n := s.prefetch
		if n > len(refs) {
			n = len(refs)
		}
		s.warmer.WarmCache(ctx, refs[:n])
	}

	acc := []types.Listen{}
	for _, ref := range refs {
		// Cancellation takes effect at partition boundaries; whatever was
		// accumulated before it is discarded.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		listens, err := s.source.Read(ctx, ref)
		if err != nil {
			return nil, s.readError(ref, err)
		}

		atOrAfter := fromStart(listens, w.Start)
		if len(atOrAfter) == 0 {
			// Listens are ascending within a partition and partitions are
			// walked newest to oldest, so once a partition has nothing at
			// or after w.Start, no older partition can either.
			s.log.Debug().
				Str("partition", ref.Name).
				Int64("window_start", w.Start).
				Msg("partition exhausted below window start, stopping scan")
			break
		}

		// The upper bound is applied separately on purpose. A partition can
		// hold listens newer than w.End alongside listens inside the window;
		// folding both bounds into one filter would make such a partition
		// look exhausted and stop the scan while older partitions still
		// have in-window listens.
		inWindow := throughEnd(atOrAfter, w.End)

		s.log.Debug().
			Str("partition", ref.Name).
			Int("records", len(listens)).
			Int("matched", len(inWindow)).
			Msg("scanned partition")

		acc = append(acc, inWindow...)
	}

	return acc, nil
}

// readError normalizes a partition read failure. Structured errors from the
// source (including the listed-then-deleted race reported as
// PARTITION_NOT_FOUND) pass through; anything else becomes
// PARTITION_READ_FAILED carrying the partition path.
func (s *Scanner) readError(ref catalog.PartitionRef, err error) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	return apperrors.NewScanError(apperrors.CodePartitionReadFailed,
		"partition read failed, aborting scan", err).
		WithDetails(map[string]interface{}{"partition": ref.Path})
}

// fromStart returns the suffix of listens with listened_at >= start,
// relying on the ascending order within a partition.
func fromStart(listens []types.Listen, start int64) []types.Listen {
	i := sort.Search(len(listens), func(i int) bool {
		return listens[i].ListenedAt >= start
	})
	return listens[i:]
}

// throughEnd returns the prefix of listens with listened_at <= end.
func throughEnd(listens []types.Listen, end int64) []types.Listen {
	i := sort.Search(len(listens), func(i int) bool {
		return listens[i].ListenedAt > end
	})
	return listens[:i]
}
