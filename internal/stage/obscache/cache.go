// Package obscache caches detector output per (video content, detection
// config) pair so parameter tuning downstream of detection never pays for
// re-detection. Blobs are gzip JSON files keyed by the two hashes; a shared
// sqlite index carries access times and sizes for LRU eviction. Every
// corruption path degrades to a cache miss, never a failure.
package obscache

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/monitoring"
	"github.com/openmic-labs/stagecut/internal/stage"
	"github.com/openmic-labs/stagecut/internal/timeutil"
)

// ErrCacheMiss reports that no usable cached observations exist for the
// requested video and configuration.
var ErrCacheMiss = errors.New("obscache: cache miss")

// evictFraction is the share of entries removed (oldest-accessed first)
// when the cache exceeds its size budget.
const evictFraction = 4 // one quarter

// blobVersion guards the blob envelope format; bump on incompatible change.
const blobVersion = 1

// envelope is the on-disk blob format.
type envelope struct {
	Version      int                      `json:"version"`
	VideoHash    string                   `json:"video_hash"`
	ConfigHash   string                   `json:"config_hash"`
	VideoPath    string                   `json:"video_path"`
	CreatedAt    int64                    `json:"created_at"`
	Observations []stage.FrameObservation `json:"observations"`
}

// Stats summarizes cache occupancy.
type Stats struct {
	Entries    int
	TotalBytes int64
}

// Cache is the observation cache. Safe for use from one goroutine;
// concurrent processes share safely through sqlite and atomic file
// renames.
type Cache struct {
	dir      string
	maxBytes int64
	clock    timeutil.Clock
	idx      *index
}

// Open prepares the cache directory and index. Pass a nil clock to use the
// real one.
func Open(cfg *config.CacheConfig, clock timeutil.Clock) (*Cache, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	dir := cfg.GetDirectory()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	idx, err := openIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	return &Cache{
		dir:      dir,
		maxBytes: cfg.GetMaxSizeBytes(),
		clock:    clock,
		idx:      idx,
	}, nil
}

// Close releases the index database.
func (c *Cache) Close() error {
	return c.idx.close()
}

// Load returns the cached observations for a video under the given
// detection fingerprint. Any unreadable or mismatched blob is treated as
// (and converted to) a miss.
func (c *Cache) Load(videoPath string, fingerprint map[string]any) ([]stage.FrameObservation, error) {
	key, err := c.key(videoPath, fingerprint)
	if err != nil {
		return nil, err
	}

	blobPath := c.blobPath(key)
	f, err := os.Open(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}
		return nil, fmt.Errorf("open cache blob: %w", err)
	}
	defer f.Close()

	env, err := readEnvelope(f)
	if err != nil {
		// Truncated or garbled blob: drop it and miss.
		monitoring.Logf("obscache: blob %s unreadable (%v); discarding", key, err)
		c.discard(key)
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if env.Version != blobVersion {
		monitoring.Logf("obscache: blob %s has version %d, want %d; discarding", key, env.Version, blobVersion)
		c.discard(key)
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if err := c.idx.touch(key, c.clock.Now()); err != nil {
		monitoring.Logf("obscache: touch %s: %v", key, err)
	}
	return env.Observations, nil
}

// Save writes the observations for a video under the given detection
// fingerprint, then evicts old entries if the cache has outgrown its
// budget.
func (c *Cache) Save(videoPath string, fingerprint map[string]any, observations []stage.FrameObservation) error {
	videoHash, err := VideoHash(videoPath)
	if err != nil {
		return err
	}
	configHash, err := ConfigHash(fingerprint)
	if err != nil {
		return err
	}
	key := CacheKey(videoHash, configHash)

	now := c.clock.Now()
	env := envelope{
		Version:      blobVersion,
		VideoHash:    videoHash,
		ConfigHash:   configHash,
		VideoPath:    videoPath,
		CreatedAt:    now.UnixNano(),
		Observations: observations,
	}

	blobPath := c.blobPath(key)
	tmp := blobPath + ".tmp"
	if err := writeEnvelope(tmp, env); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, blobPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish cache blob: %w", err)
	}

	info, err := os.Stat(blobPath)
	if err != nil {
		return fmt.Errorf("stat cache blob: %w", err)
	}
	if err := c.idx.upsert(entry{
		CacheKey:     key,
		VideoPath:    videoPath,
		CreatedAt:    now,
		LastAccessed: now,
		SizeBytes:    info.Size(),
		FrameCount:   len(observations),
	}); err != nil {
		return err
	}

	return c.evictIfNeeded()
}

// Has reports whether a usable blob exists without reading it fully.
func (c *Cache) Has(videoPath string, fingerprint map[string]any) bool {
	key, err := c.key(videoPath, fingerprint)
	if err != nil {
		return false
	}
	_, err = os.Stat(c.blobPath(key))
	return err == nil
}

// Stats reports cache occupancy from the index.
func (c *Cache) Stats() (Stats, error) {
	count, total, err := c.idx.stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Entries: count, TotalBytes: total}, nil
}

// Clear removes every blob and index entry.
func (c *Cache) Clear() error {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.json.gz"))
	if err != nil {
		return fmt.Errorf("list cache blobs: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache blob: %w", err)
		}
	}
	return c.idx.clear()
}

func (c *Cache) key(videoPath string, fingerprint map[string]any) (string, error) {
	videoHash, err := VideoHash(videoPath)
	if err != nil {
		return "", err
	}
	configHash, err := ConfigHash(fingerprint)
	if err != nil {
		return "", err
	}
	return CacheKey(videoHash, configHash), nil
}

func (c *Cache) blobPath(key string) string {
	return filepath.Join(c.dir, key+".json.gz")
}

// discard removes a blob and its index entry, best effort.
func (c *Cache) discard(key string) {
	if err := os.Remove(c.blobPath(key)); err != nil && !os.IsNotExist(err) {
		monitoring.Logf("obscache: remove blob %s: %v", key, err)
	}
	if err := c.idx.remove(key); err != nil {
		monitoring.Logf("obscache: remove index entry %s: %v", key, err)
	}
}

func (c *Cache) evictIfNeeded() error {
	count, total, err := c.idx.stats()
	if err != nil {
		return err
	}
	if total <= c.maxBytes || count == 0 {
		return nil
	}

	n := count / evictFraction
	if n < 1 {
		n = 1
	}
	victims, err := c.idx.oldest(n)
	if err != nil {
		return err
	}
	for _, v := range victims {
		c.discard(v.CacheKey)
	}
	monitoring.Logf("obscache: evicted %d entries (%d bytes over budget)", len(victims), total-c.maxBytes)
	return nil
}

func readEnvelope(f *os.File) (envelope, error) {
	var env envelope
	gz, err := gzip.NewReader(f)
	if err != nil {
		return env, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()
	if err := json.NewDecoder(gz).Decode(&env); err != nil {
		return env, fmt.Errorf("decode blob: %w", err)
	}
	return env, nil
}

func writeEnvelope(path string, env envelope) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache blob: %w", err)
	}
	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(env); err != nil {
		gz.Close()
		f.Close()
		return fmt.Errorf("encode blob: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush gzip stream: %w", err)
	}
	return f.Close()
}
