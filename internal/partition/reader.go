package partition

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/golang/snappy"
	_ "github.com/mattn/go-sqlite3"

	"github.com/listenvault/listenvault/pkg/types"
)

// Read loads all listens from the partition file at path, in ascending
// listened_at order, and verifies the content checksum recorded at write
// time. Any structural problem, including a checksum mismatch, is reported
// as an error; the scan layer treats all of them as a failed partition read.
func Read(ctx context.Context, path string) ([]types.Listen, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("partition: failed to open %s: %w", path, err)
	}
	defer db.Close()

	meta, err := readMetadata(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("partition: %s: %w", path, err)
	}
	if meta.formatVersion > FormatVersion {
		return nil, fmt.Errorf("partition: %s: version %d: %w", path, meta.formatVersion, ErrUnsupportedVersion)
	}

	rows, err := db.QueryContext(ctx, "SELECT listened_at, user_id, payload FROM listens ORDER BY listened_at ASC")
	if err != nil {
		return nil, fmt.Errorf("partition: failed to read %s: %w", path, err)
	}
	defer rows.Close()

	hasher := newContentHasher()
	listens := make([]types.Listen, 0, meta.rowCount)

	for rows.Next() {
		var listenedAt, userID int64
		var compressed []byte
		if err := rows.Scan(&listenedAt, &userID, &compressed); err != nil {
			return nil, fmt.Errorf("partition: failed to scan row in %s: %w", path, err)
		}

		payloadJSON, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("partition: failed to decompress payload in %s: %w", path, err)
		}

		var listen types.Listen
		if err := json.Unmarshal(payloadJSON, &listen); err != nil {
			return nil, fmt.Errorf("partition: failed to decode payload in %s: %w", path, err)
		}
		// The indexed columns are authoritative over the payload copy.
		listen.ListenedAt = listenedAt
		listen.UserID = userID

		hasher.add(listenedAt, payloadJSON)
		listens = append(listens, listen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("partition: error iterating %s: %w", path, err)
	}

	if int64(len(listens)) != meta.rowCount {
		return nil, fmt.Errorf("partition: %s: row count %d, metadata says %d: %w",
			path, len(listens), meta.rowCount, ErrChecksumMismatch)
	}
	if hasher.sum() != meta.checksum {
		return nil, fmt.Errorf("partition: %s: %w", path, ErrChecksumMismatch)
	}

	return listens, nil
}

// metadata is the decoded _listenvault_meta table.
type metadata struct {
	formatVersion int
	rowCount      int64
	minListenedAt int64
	maxListenedAt int64
	checksum      uint64
}

func readMetadata(ctx context.Context, db *sql.DB) (*metadata, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s", metaTable))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingMetadata, err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata: %w", err)
	}

	required := []string{metaKeyFormatVersion, metaKeyRowCount, metaKeyChecksum}
	for _, k := range required {
		if _, ok := kv[k]; !ok {
			return nil, fmt.Errorf("missing key %q: %w", k, ErrMissingMetadata)
		}
	}

	var meta metadata
	if meta.formatVersion, err = strconv.Atoi(kv[metaKeyFormatVersion]); err != nil {
		return nil, fmt.Errorf("bad format_version: %w", err)
	}
	if meta.rowCount, err = strconv.ParseInt(kv[metaKeyRowCount], 10, 64); err != nil {
		return nil, fmt.Errorf("bad row_count: %w", err)
	}
	if meta.checksum, err = strconv.ParseUint(kv[metaKeyChecksum], 10, 64); err != nil {
		return nil, fmt.Errorf("bad checksum: %w", err)
	}
	// Bounds are informational, tolerate their absence in older files.
	meta.minListenedAt, _ = strconv.ParseInt(kv[metaKeyMinListenedAt], 10, 64)
	meta.maxListenedAt, _ = strconv.ParseInt(kv[metaKeyMaxListenedAt], 10, 64)

	return &meta, nil
}
