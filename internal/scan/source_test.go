package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenvault/listenvault/internal/catalog"
	apperrors "github.com/listenvault/listenvault/internal/errors"
	"github.com/listenvault/listenvault/internal/partition"
	"github.com/listenvault/listenvault/internal/storage"
)

func uploadPartition(t *testing.T, store *storage.LocalStorage, objectPath string, timestamps ...int64) {
	t.Helper()
	ctx := context.Background()
	stagePath := filepath.Join(t.TempDir(), "stage.sqlite")
	_, err := partition.Write(ctx, stagePath, listensAt(timestamps...))
	require.NoError(t, err)
	require.NoError(t, store.Upload(ctx, stagePath, objectPath))
}

func newLocalSource(t *testing.T, store *storage.LocalStorage) *StoreSource {
	t.Helper()
	src, err := NewStoreSource(store, t.TempDir(), 2, zerolog.Nop())
	require.NoError(t, err)
	return src
}

func TestStoreSource_ReadsPartition(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploadPartition(t, store, "listens/0.sqlite", 10, 20, 30)

	src := newLocalSource(t, store)
	got, err := src.Read(context.Background(), numberedRef(0))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, timestamps(got))
}

func TestStoreSource_NumberedPartitionCached(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploadPartition(t, store, "listens/0.sqlite", 10, 20)

	src := newLocalSource(t, store)
	ctx := context.Background()

	_, err = src.Read(ctx, numberedRef(0))
	require.NoError(t, err)

	// Numbered partitions are immutable, so the cached copy is served even
	// after the stored object changes.
	uploadPartition(t, store, "listens/0.sqlite", 10, 20, 30)
	got, err := src.Read(ctx, numberedRef(0))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, timestamps(got))
}

func TestStoreSource_IncrementalAlwaysFresh(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploadPartition(t, store, "listens/"+catalog.IncrementalName, 100)

	src := newLocalSource(t, store)
	ctx := context.Background()

	got, err := src.Read(ctx, incrementalRef())
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, timestamps(got))

	// The incremental file is replaced in place upstream; a later read must
	// observe the new contents, not a cached copy.
	uploadPartition(t, store, "listens/"+catalog.IncrementalName, 100, 110)
	got, err = src.Read(ctx, incrementalRef())
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 110}, timestamps(got))
}

func TestStoreSource_RecoversFromTruncatedCacheEntry(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploadPartition(t, store, "listens/0.sqlite", 10, 20, 30)

	// An interrupted earlier run left a truncated file at the cache path;
	// the store still holds a valid copy.
	downloadDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(downloadDir, "0.sqlite"), []byte("SQLite form"), 0644))

	src, err := NewStoreSource(store, downloadDir, 2, zerolog.Nop())
	require.NoError(t, err)

	got, err := src.Read(context.Background(), numberedRef(0))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, timestamps(got))

	// The refetched copy replaces the bad one, so the next read is a
	// plain cache hit.
	got, err = src.Read(context.Background(), numberedRef(0))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, timestamps(got))
}

func TestStoreSource_BadCacheEntryAndMissingObject(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	downloadDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(downloadDir, "0.sqlite"), []byte("junk"), 0644))

	src, err := NewStoreSource(store, downloadDir, 2, zerolog.Nop())
	require.NoError(t, err)

	// The refetch finds the object gone, which is the race Read reports.
	_, err = src.Read(context.Background(), numberedRef(0))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePartitionNotFound, apperrors.GetCode(err))
}

func TestStoreSource_MissingPartition(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	src := newLocalSource(t, store)
	_, err = src.Read(context.Background(), numberedRef(5))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePartitionNotFound, apperrors.GetCode(err))
}

func TestStoreSource_CorruptPartition(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	junk := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(junk, []byte("not a sqlite file"), 0644))
	require.NoError(t, store.Upload(context.Background(), junk, "listens/0.sqlite"))

	src := newLocalSource(t, store)
	_, err = src.Read(context.Background(), numberedRef(0))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePartitionReadFailed, apperrors.GetCode(err))
}

func TestStoreSource_WarmCacheSkipsIncremental(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploadPartition(t, store, "listens/0.sqlite", 10)
	uploadPartition(t, store, "listens/"+catalog.IncrementalName, 100)

	downloadDir := t.TempDir()
	src, err := NewStoreSource(store, downloadDir, 2, zerolog.Nop())
	require.NoError(t, err)

	src.WarmCache(context.Background(), []catalog.PartitionRef{incrementalRef(), numberedRef(0)})

	assert.FileExists(t, filepath.Join(downloadDir, "0.sqlite"))
	assert.NoFileExists(t, filepath.Join(downloadDir, catalog.IncrementalName))
}

func TestStoreSource_EndToEndScan(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploadPartition(t, store, "listens/0.sqlite", 1, 5, 10)
	uploadPartition(t, store, "listens/1.sqlite", 11, 15, 20)
	uploadPartition(t, store, "listens/"+catalog.IncrementalName, 21, 25)

	src := newLocalSource(t, store)
	scanner := NewScanner(catalog.New(store, "listens"), src, WithPrefetch(src, 2))

	got, err := scanner.Scan(context.Background(), Window{Start: 8, End: 22})
	require.NoError(t, err)
	assert.Equal(t, []int64{21, 11, 15, 20, 10}, timestamps(got))

	latest, err := scanner.LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25), latest)
}
