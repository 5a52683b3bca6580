// Package partition implements the physical dump-file format: a SQLite file
// holding listens ordered ascending by listened_at, with snappy-compressed
// JSON payloads and a metadata table carrying row count, timestamp bounds and
// a murmur3 content checksum.
package partition

import (
	"encoding/binary"
	"errors"
	"hash"

	"github.com/spaolacci/murmur3"
)

// FormatVersion identifies the partition file layout. Readers reject files
// written with a newer version.
const FormatVersion = 1

// Metadata table and key names inside a partition file.
const (
	metaTable = "_listenvault_meta"

	metaKeyFormatVersion = "format_version"
	metaKeyRowCount      = "row_count"
	metaKeyMinListenedAt = "min_listened_at"
	metaKeyMaxListenedAt = "max_listened_at"
	metaKeyChecksum      = "checksum"
)

// Format-level errors surfaced by the reader.
var (
	ErrChecksumMismatch   = errors.New("partition checksum mismatch")
	ErrMissingMetadata    = errors.New("partition metadata missing")
	ErrUnsupportedVersion = errors.New("unsupported partition format version")
)

// contentHasher accumulates the murmur3 content checksum of a partition.
// Rows must be fed in ascending listened_at order, the same order the
// reader scans them back.
type contentHasher struct {
	h hash.Hash64
}

func newContentHasher() *contentHasher {
	return &contentHasher{h: murmur3.New64()}
}

// add feeds one row: the listened_at timestamp followed by the uncompressed
// payload bytes.
func (c *contentHasher) add(listenedAt int64, payload []byte) {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(listenedAt))
	c.h.Write(ts[:])
	c.h.Write(payload)
}

func (c *contentHasher) sum() uint64 {
	return c.h.Sum64()
}
