package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/listenvault/listenvault/internal/catalog"
	apperrors "github.com/listenvault/listenvault/internal/errors"
	"github.com/listenvault/listenvault/internal/partition"
	"github.com/listenvault/listenvault/internal/storage"
	"github.com/listenvault/listenvault/pkg/types"
)

// StoreSource materializes partitions by downloading them from object
// storage into a local directory and reading the partition file there.
// Numbered partitions are immutable and served from the download cache;
// the incremental partition is replaced in place upstream, so it is
// re-downloaded on every read.
type StoreSource struct {
	store       storage.ObjectStorage
	downloader  *storage.BatchDownloader
	downloadDir string
	log         zerolog.Logger
}

// NewStoreSource creates a store-backed partition source. concurrency bounds
// parallel cache-warming downloads.
func NewStoreSource(store storage.ObjectStorage, downloadDir string, concurrency int, log zerolog.Logger) (*StoreSource, error) {
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, apperrors.NewInternalError("failed to create download directory", err)
	}
	return &StoreSource{
		store:       store,
		downloader:  storage.NewBatchDownloader(store, concurrency, downloadDir),
		downloadDir: downloadDir,
		log:         log,
	}, nil
}

// Read downloads the partition if needed and loads its listens. A partition
// deleted between listing and read surfaces as PARTITION_NOT_FOUND; it is
// still fatal to the scan, never silently skipped, because skipping a
// partition would break the early-termination reasoning.
//
// An unreadable cached copy (interrupted earlier run, disk fault) is
// discarded and fetched fresh from the store before the read is reported
// failed, so a bad cache entry never poisons every retry.
func (s *StoreSource) Read(ctx context.Context, ref catalog.PartitionRef) ([]types.Listen, error) {
	localPath := filepath.Join(s.downloadDir, ref.Name)

	cached := false
	if !ref.Incremental {
		if _, err := os.Stat(localPath); err == nil {
			cached = true
		}
	}

	if !cached {
		if err := s.download(ctx, ref, localPath); err != nil {
			return nil, err
		}
	}

	listens, err := partition.Read(ctx, localPath)
	if err != nil && cached {
		s.log.Debug().
			Str("partition", ref.Name).
			Err(err).
			Msg("cached partition unreadable, refetching")
		os.Remove(localPath)
		if derr := s.download(ctx, ref, localPath); derr != nil {
			return nil, derr
		}
		listens, err = partition.Read(ctx, localPath)
	}
	if err != nil {
		return nil, apperrors.NewScanError(apperrors.CodePartitionReadFailed,
			"failed to read partition file", err).
			WithDetails(map[string]interface{}{"partition": ref.Path, "local_path": localPath})
	}
	return listens, nil
}

func (s *StoreSource) download(ctx context.Context, ref catalog.PartitionRef, localPath string) error {
	if err := s.store.Download(ctx, ref.Path, localPath); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return apperrors.NewScanError(apperrors.CodePartitionNotFound,
				"partition disappeared between listing and read", err).
				WithDetails(map[string]interface{}{"partition": ref.Path})
		}
		return apperrors.NewScanError(apperrors.CodePartitionReadFailed,
			"failed to download partition", err).
			WithDetails(map[string]interface{}{"partition": ref.Path})
	}
	return nil
}

// WarmCache downloads the given partitions in parallel into the download
// directory. Failures are only logged; the sequential Read path reports any
// error that actually matters. The incremental partition is excluded since
// Read always fetches it fresh.
func (s *StoreSource) WarmCache(ctx context.Context, refs []catalog.PartitionRef) {
	var paths []string
	for _, ref := range refs {
		if ref.Incremental {
			continue
		}
		paths = append(paths, ref.Path)
	}
	if len(paths) == 0 {
		return
	}

	result, err := s.downloader.Download(ctx, paths)
	if err != nil {
		s.log.Debug().Err(err).Msg("cache warming failed")
		return
	}
	for p, perr := range result.Errors {
		s.log.Debug().Str("partition", p).Err(perr).Msg("cache warming skipped partition")
	}
	s.log.Debug().
		Int("downloads", result.Downloads).
		Int("cache_hits", result.CacheHits).
		Msg("warmed partition cache")
}
