package partition

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/golang/snappy"
	_ "github.com/mattn/go-sqlite3"

	"github.com/listenvault/listenvault/pkg/types"
)

// WriteResult contains metadata about a written partition file.
type WriteResult struct {
	Path          string
	RowCount      int64
	MinListenedAt int64
	MaxListenedAt int64
	SizeBytes     int64
	Checksum      uint64
}

// Write creates a sealed partition file at path from the given listens.
// Listens are sorted ascending by listened_at before writing, which is the
// order every reader depends on. Zero listens is allowed: dump producers can
// publish an empty incremental file right after a full export.
func Write(ctx context.Context, path string, listens []types.Listen) (*WriteResult, error) {
	sorted := make([]types.Listen, len(listens))
	copy(sorted, listens)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ListenedAt < sorted[j].ListenedAt
	})

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to create file: %w", err)
	}
	defer db.Close()

	// WAL during build for write throughput, checkpointed back to DELETE
	// before sealing so the partition is a single self-contained file.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("partition: failed to set journal mode: %w", err)
	}

	createSQL := `
		CREATE TABLE listens (
			listened_at INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("partition: failed to create listens table: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX idx_listens_listened_at ON listens(listened_at)"); err != nil {
		return nil, fmt.Errorf("partition: failed to create index: %w", err)
	}

	metaSQL := fmt.Sprintf(`
		CREATE TABLE %s (
			key TEXT NOT NULL PRIMARY KEY,
			value TEXT NOT NULL
		) WITHOUT ROWID
	`, metaTable)
	if _, err := db.ExecContext(ctx, metaSQL); err != nil {
		return nil, fmt.Errorf("partition: failed to create metadata table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO listens (listened_at, user_id, payload) VALUES (?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("partition: failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	hasher := newContentHasher()
	var minTS, maxTS int64

	for i, listen := range sorted {
		payloadJSON, err := json.Marshal(listen)
		if err != nil {
			return nil, fmt.Errorf("partition: failed to marshal listen: %w", err)
		}
		compressed := snappy.Encode(nil, payloadJSON)

		if _, err := stmt.ExecContext(ctx, listen.ListenedAt, listen.UserID, compressed); err != nil {
			return nil, fmt.Errorf("partition: failed to insert listen: %w", err)
		}

		hasher.add(listen.ListenedAt, payloadJSON)
		if i == 0 {
			minTS = listen.ListenedAt
		}
		maxTS = listen.ListenedAt
	}

	checksum := hasher.sum()
	meta := map[string]string{
		metaKeyFormatVersion: strconv.Itoa(FormatVersion),
		metaKeyRowCount:      strconv.FormatInt(int64(len(sorted)), 10),
		metaKeyMinListenedAt: strconv.FormatInt(minTS, 10),
		metaKeyMaxListenedAt: strconv.FormatInt(maxTS, 10),
		metaKeyChecksum:      strconv.FormatUint(checksum, 10),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (key, value) VALUES (?, ?)", metaTable), k, v); err != nil {
			return nil, fmt.Errorf("partition: failed to write metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("partition: failed to commit: %w", err)
	}

	// Seal: fold the WAL back into the main file.
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("partition: failed to checkpoint WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=DELETE"); err != nil {
		return nil, fmt.Errorf("partition: failed to set journal mode to DELETE: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("partition: failed to close file: %w", err)
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to stat file: %w", err)
	}

	return &WriteResult{
		Path:          path,
		RowCount:      int64(len(sorted)),
		MinListenedAt: minTS,
		MaxListenedAt: maxTS,
		SizeBytes:     fileInfo.Size(),
		Checksum:      checksum,
	}, nil
}
