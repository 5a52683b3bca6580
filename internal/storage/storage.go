// Package storage provides object storage abstractions for the dump store.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrUploadFailed      = errors.New("upload failed")
	ErrDownloadFailed    = errors.New("download failed")
	ErrDeleteFailed      = errors.New("delete failed")
)

// ObjectStorage abstracts the distributed filesystem holding the dump files.
// Implementations include S3 and local filesystem for testing.
type ObjectStorage interface {
	// ListObjects returns all object paths under the given prefix.
	// Returns ErrDirectoryNotFound when the prefix itself does not exist
	// on backends that have a directory concept.
	ListObjects(ctx context.Context, prefix string) ([]string, error)

	// Download downloads an object to the local filesystem.
	// Returns ErrObjectNotFound if the object does not exist, which can
	// happen when a partition is replaced between listing and read.
	Download(ctx context.Context, objectPath, localPath string) error

	// Upload uploads a local file to object storage.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Delete removes an object from storage. Deleting a missing object
	// is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)
}
