package obscache

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openmic-labs/stagecut/internal/monitoring"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key     TEXT PRIMARY KEY,
	video_path    TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	last_accessed INTEGER NOT NULL,
	size_bytes    INTEGER NOT NULL,
	frame_count   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_last_accessed
	ON cache_entries(last_accessed);
`

// index is the shared sqlite catalogue of cache blobs. It is what makes
// size accounting and LRU eviction cheap; the blobs themselves are plain
// files next to it.
type index struct {
	db *sql.DB
}

// entry is one index row.
type entry struct {
	CacheKey     string
	VideoPath    string
	CreatedAt    time.Time
	LastAccessed time.Time
	SizeBytes    int64
	FrameCount   int
}

// openIndex opens (or creates) the index database. A corrupt index file is
// deleted and recreated empty rather than surfaced: cached observations
// are always re-derivable, so losing the catalogue only costs re-detection.
func openIndex(path string) (*index, error) {
	idx, err := tryOpenIndex(path)
	if err == nil {
		return idx, nil
	}

	monitoring.Logf("obscache: index %s unusable (%v); recreating", path, err)
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("remove corrupt index: %w", rmErr)
	}
	return tryOpenIndex(path)
}

func tryOpenIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}
	return &index{db: db}, nil
}

func (ix *index) close() error {
	return ix.db.Close()
}

// upsert records a blob. Runs in a transaction so a concurrent reader never
// observes a half-written row.
func (ix *index) upsert(e entry) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO cache_entries (cache_key, video_path, created_at, last_accessed, size_bytes, frame_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			video_path = excluded.video_path,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed,
			size_bytes = excluded.size_bytes,
			frame_count = excluded.frame_count`,
		e.CacheKey, e.VideoPath, e.CreatedAt.UnixNano(), e.LastAccessed.UnixNano(), e.SizeBytes, e.FrameCount)
	if err != nil {
		return fmt.Errorf("upsert index entry: %w", err)
	}
	return tx.Commit()
}

// touch bumps an entry's last-accessed stamp.
func (ix *index) touch(cacheKey string, at time.Time) error {
	_, err := ix.db.Exec(`UPDATE cache_entries SET last_accessed = ? WHERE cache_key = ?`,
		at.UnixNano(), cacheKey)
	if err != nil {
		return fmt.Errorf("touch index entry: %w", err)
	}
	return nil
}

// remove drops an entry.
func (ix *index) remove(cacheKey string) error {
	_, err := ix.db.Exec(`DELETE FROM cache_entries WHERE cache_key = ?`, cacheKey)
	if err != nil {
		return fmt.Errorf("remove index entry: %w", err)
	}
	return nil
}

// stats returns the entry count and total blob bytes.
func (ix *index) stats() (count int, totalBytes int64, err error) {
	row := ix.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM cache_entries`)
	if err := row.Scan(&count, &totalBytes); err != nil {
		return 0, 0, fmt.Errorf("query index stats: %w", err)
	}
	return count, totalBytes, nil
}

// oldest returns up to n entries in least-recently-accessed order.
func (ix *index) oldest(n int) ([]entry, error) {
	rows, err := ix.db.Query(`
		SELECT cache_key, video_path, created_at, last_accessed, size_bytes, frame_count
		FROM cache_entries ORDER BY last_accessed ASC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query oldest entries: %w", err)
	}
	defer rows.Close()

	var out []entry
	for rows.Next() {
		var e entry
		var created, accessed int64
		if err := rows.Scan(&e.CacheKey, &e.VideoPath, &created, &accessed, &e.SizeBytes, &e.FrameCount); err != nil {
			return nil, fmt.Errorf("scan index entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		e.LastAccessed = time.Unix(0, accessed)
		out = append(out, e)
	}
	return out, rows.Err()
}

// clear removes every entry.
func (ix *index) clear() error {
	_, err := ix.db.Exec(`DELETE FROM cache_entries`)
	if err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}
