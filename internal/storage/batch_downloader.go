package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchDownloader coordinates parallel downloads from object storage into a
// local cache directory, skipping objects that are already present. The scan
// uses it to warm the cache for partitions that may be needed; files fetched
// past the scan's termination point simply remain unread in the cache.
type BatchDownloader struct {
	storage     ObjectStorage
	concurrency int
	cacheDir    string
}

// BatchResult contains the outcome of a batch download operation.
type BatchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	CacheHits  int
	Downloads  int
}

// NewBatchDownloader creates a new batch downloader.
func NewBatchDownloader(storage ObjectStorage, concurrency int, cacheDir string) *BatchDownloader {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BatchDownloader{
		storage:     storage,
		concurrency: concurrency,
		cacheDir:    cacheDir,
	}
}

// Download downloads the given objects in parallel. Per-object failures are
// reported in the result rather than aborting the batch, since a warm-cache
// miss just means the sequential reader downloads the file itself later.
func (b *BatchDownloader) Download(ctx context.Context, objectPaths []string) (*BatchResult, error) {
	result := &BatchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}
	if len(objectPaths) == 0 {
		return result, nil
	}

	var downloadQueue []string
	for _, p := range objectPaths {
		local := b.LocalPath(p)
		if _, err := os.Stat(local); err == nil {
			result.LocalPaths[p] = local
			result.CacheHits++
			continue
		}
		downloadQueue = append(downloadQueue, p)
	}

	sem := semaphore.NewWeighted(int64(b.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, p := range downloadQueue {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[p] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(path, local string) {
			defer sem.Release(1)
			defer wg.Done()

			if err := b.storage.Download(ctx, path, local); err != nil {
				mu.Lock()
				result.Errors[path] = err
				mu.Unlock()
				return
			}

			mu.Lock()
			result.LocalPaths[path] = local
			result.Downloads++
			mu.Unlock()
		}(p, b.LocalPath(p))
	}

	wg.Wait()

	return result, nil
}

// LocalPath returns the cache path for an object.
func (b *BatchDownloader) LocalPath(objectPath string) string {
	name := filepath.Base(filepath.FromSlash(objectPath))
	if b.cacheDir == "" {
		return name
	}
	return filepath.Join(b.cacheDir, name)
}
