// Package catalog derives the ordered view of dump partitions from the
// object store. The dump directory holds numbered files produced by a
// one-time full export ("0.sqlite", "1.sqlite", ...) where a higher ordinal
// means strictly newer listens, plus at most one "incremental.sqlite" holding
// the newest listens not yet folded into a numbered file.
package catalog

import (
	"context"
	"errors"
	"path"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/listenvault/listenvault/internal/errors"
	"github.com/listenvault/listenvault/internal/storage"
)

const (
	// IncrementalName is the reserved file name of the incremental partition.
	IncrementalName = "incremental.sqlite"

	// Ext is the partition file extension. Directory entries without it
	// are ignored.
	Ext = ".sqlite"
)

// PartitionRef identifies one partition file in the dump directory.
type PartitionRef struct {
	// Name is the file name within the dump prefix, e.g. "3.sqlite".
	Name string

	// Path is the full object path in the store.
	Path string

	// Ordinal is the parsed integer from a numbered partition's name.
	// -1 for the incremental partition.
	Ordinal int

	// Incremental marks the single incremental partition.
	Incremental bool
}

// Lister is the slice of the object store the catalog needs.
type Lister interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Catalog lists and orders the partition files of the event history.
// It holds no state between calls: the store may grow at any time, so every
// List re-derives the ordering from a fresh directory listing.
type Catalog struct {
	store  Lister
	prefix string
}

// New creates a catalog over the dump files under prefix.
func New(store Lister, prefix string) *Catalog {
	return &Catalog{store: store, prefix: prefix}
}

// List returns all partitions newest-first: the incremental partition (if
// present) at index 0, then numbered partitions by ordinal descending.
//
// The incremental file is trusted to be chronologically newer than every
// numbered file; that is a precondition of the dump producer, not verified
// here. A matching file whose leading name token is not an integer means the
// dump directory is corrupt and is a fatal MALFORMED_PARTITION_NAME error.
// Zero usable partitions is CATALOG_EMPTY, which callers may treat as
// "no data yet".
func (c *Catalog) List(ctx context.Context) ([]PartitionRef, error) {
	names, err := c.store.ListObjects(ctx, c.prefix)
	if err != nil {
		if errors.Is(err, storage.ErrDirectoryNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrCategoryCatalog, apperrors.CodeDirectoryNotFound,
				"dump directory not found", err).
				WithDetails(map[string]interface{}{"prefix": c.prefix})
		}
		return nil, apperrors.Wrap(apperrors.ErrCategoryCatalog, apperrors.CodeUnexpected,
			"failed to list dump directory", err).
			WithDetails(map[string]interface{}{"prefix": c.prefix})
	}

	var incremental *PartitionRef
	var numbered []PartitionRef

	for _, objectPath := range names {
		base := path.Base(objectPath)

		// The incremental file sorts separately from the numbered files,
		// so pull it out before ordinal parsing.
		if base == IncrementalName {
			incremental = &PartitionRef{
				Name:        base,
				Path:        objectPath,
				Ordinal:     -1,
				Incremental: true,
			}
			continue
		}
		if !strings.HasSuffix(base, Ext) {
			continue
		}

		token := strings.SplitN(base, ".", 2)[0]
		ordinal, err := strconv.Atoi(token)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCategoryCatalog, apperrors.CodeMalformedPartitionName,
				"partition file name is not ordinal-named", err).
				WithDetails(map[string]interface{}{"name": base, "path": objectPath})
		}

		numbered = append(numbered, PartitionRef{
			Name:    base,
			Path:    objectPath,
			Ordinal: ordinal,
		})
	}

	// Higher ordinal means newer listens; scan order is newest first.
	sort.Slice(numbered, func(i, j int) bool {
		return numbered[i].Ordinal > numbered[j].Ordinal
	})

	refs := make([]PartitionRef, 0, len(numbered)+1)
	if incremental != nil {
		refs = append(refs, *incremental)
	}
	refs = append(refs, numbered...)

	if len(refs) == 0 {
		return nil, apperrors.NewCatalogError(apperrors.CodeCatalogEmpty,
			"no partitions in dump directory").
			WithDetails(map[string]interface{}{"prefix": c.prefix})
	}

	return refs, nil
}
