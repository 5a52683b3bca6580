// Package ingest produces dump partitions from JSON listen files: a full
// import writes the next numbered partition, an incremental append merges
// new listens into the single incremental partition and replaces it.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/listenvault/listenvault/internal/catalog"
	apperrors "github.com/listenvault/listenvault/internal/errors"
	"github.com/listenvault/listenvault/internal/partition"
	"github.com/listenvault/listenvault/internal/storage"
	"github.com/listenvault/listenvault/pkg/types"
)

// Importer writes partitions into the dump directory.
type Importer struct {
	store      storage.ObjectStorage
	catalog    *catalog.Catalog
	prefix     string
	stagingDir string
	log        zerolog.Logger
}

// NewImporter creates an importer that stages partition files under
// stagingDir before uploading them to the dump prefix.
func NewImporter(store storage.ObjectStorage, cat *catalog.Catalog, prefix, stagingDir string, log zerolog.Logger) (*Importer, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, apperrors.NewInternalError("failed to create staging directory", err)
	}
	return &Importer{
		store:      store,
		catalog:    cat,
		prefix:     prefix,
		stagingDir: stagingDir,
		log:        log,
	}, nil
}

// ReadJSONFile parses listens from a JSON-lines file (one listen object per
// line, the ListenBrainz dump interchange format). A listen without a
// listened_at timestamp is rejected.
func ReadJSONFile(filePath string) ([]types.Listen, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, apperrors.NewIngestError(apperrors.CodePartitionWriteFailed,
			"failed to open listen file", err).
			WithDetails(map[string]interface{}{"path": filePath})
	}
	defer f.Close()

	var listens []types.Listen
	dec := json.NewDecoder(f)
	for {
		var listen types.Listen
		if err := dec.Decode(&listen); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, apperrors.NewIngestError(apperrors.CodeInvalidListen,
				"failed to decode listen", err).
				WithDetails(map[string]interface{}{"path": filePath, "record": len(listens)})
		}
		if listen.ListenedAt == 0 {
			return nil, apperrors.New(apperrors.ErrCategoryIngest, apperrors.CodeInvalidListen,
				"listen has no listened_at timestamp").
				WithDetails(map[string]interface{}{"path": filePath, "record": len(listens)})
		}
		listens = append(listens, listen)
	}

	return listens, nil
}

// ImportFull writes the listens as the next numbered partition and returns
// its file name. Ordinals continue from the highest one already in the
// catalog; an empty catalog starts at 0.
func (i *Importer) ImportFull(ctx context.Context, listens []types.Listen) (string, error) {
	refs, err := i.listRefs(ctx)
	if err != nil {
		return "", err
	}

	next := 0
	for _, ref := range refs {
		if !ref.Incremental && ref.Ordinal >= next {
			next = ref.Ordinal + 1
		}
	}

	name := fmt.Sprintf("%d%s", next, catalog.Ext)
	if err := i.writeAndUpload(ctx, name, listens); err != nil {
		return "", err
	}
	return name, nil
}

// AppendIncremental merges the listens into the incremental partition,
// rewriting and replacing it. Merging re-sorts, so out-of-order submissions
// still produce an ascending partition.
func (i *Importer) AppendIncremental(ctx context.Context, listens []types.Listen) error {
	refs, err := i.listRefs(ctx)
	if err != nil {
		return err
	}

	merged := listens
	for _, ref := range refs {
		if !ref.Incremental {
			continue
		}
		existing, err := i.readExisting(ctx, ref)
		if err != nil {
			return err
		}
		merged = append(existing, listens...)
		break
	}

	return i.writeAndUpload(ctx, catalog.IncrementalName, merged)
}

// listRefs lists the catalog, treating an empty dump directory as zero refs.
func (i *Importer) listRefs(ctx context.Context) ([]catalog.PartitionRef, error) {
	refs, err := i.catalog.List(ctx)
	if err != nil {
		code := apperrors.GetCode(err)
		if code == apperrors.CodeCatalogEmpty || code == apperrors.CodeDirectoryNotFound {
			return nil, nil
		}
		return nil, err
	}
	return refs, nil
}

// readExisting downloads and reads the current incremental partition.
func (i *Importer) readExisting(ctx context.Context, ref catalog.PartitionRef) ([]types.Listen, error) {
	localPath := filepath.Join(i.stagingDir, uuid.New().String()+catalog.Ext)
	defer os.Remove(localPath)

	if err := i.store.Download(ctx, ref.Path, localPath); err != nil {
		return nil, apperrors.NewIngestError(apperrors.CodePartitionReadFailed,
			"failed to download incremental partition", err).
			WithDetails(map[string]interface{}{"partition": ref.Path})
	}
	listens, err := partition.Read(ctx, localPath)
	if err != nil {
		return nil, apperrors.NewIngestError(apperrors.CodePartitionReadFailed,
			"failed to read incremental partition", err).
			WithDetails(map[string]interface{}{"partition": ref.Path})
	}
	return listens, nil
}

// writeAndUpload stages a partition file and uploads it under name.
func (i *Importer) writeAndUpload(ctx context.Context, name string, listens []types.Listen) error {
	stagePath := filepath.Join(i.stagingDir, uuid.New().String()+catalog.Ext)
	defer os.Remove(stagePath)

	result, err := partition.Write(ctx, stagePath, listens)
	if err != nil {
		return apperrors.NewIngestError(apperrors.CodePartitionWriteFailed,
			"failed to build partition", err).
			WithDetails(map[string]interface{}{"name": name})
	}

	objectPath := path.Join(i.prefix, name)
	if err := i.store.Upload(ctx, stagePath, objectPath); err != nil {
		return apperrors.NewIngestError(apperrors.CodePartitionWriteFailed,
			"failed to upload partition", err).
			WithDetails(map[string]interface{}{"partition": objectPath})
	}

	i.log.Info().
		Str("partition", objectPath).
		Int64("rows", result.RowCount).
		Int64("size_bytes", result.SizeBytes).
		Msg("uploaded partition")

	return nil
}
