package obscache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// hashChunk is how much of each end of the video file participates in the
// content hash. Size + mtime + both ends is enough to catch re-encodes and
// replacements without reading gigabytes.
const hashChunk = 64 * 1024

// VideoHash fingerprints a video file from its size, modification time and
// the first and last 64KB of content.
func VideoHash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat video file: %w", err)
	}

	hasher := sha256.New()
	hasher.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	hasher.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if _, err := io.CopyN(hasher, f, hashChunk); err != nil && err != io.EOF {
		return "", fmt.Errorf("read video head: %w", err)
	}
	if info.Size() > 2*hashChunk {
		if _, err := f.Seek(-hashChunk, io.SeekEnd); err != nil {
			return "", fmt.Errorf("seek video tail: %w", err)
		}
		if _, err := io.CopyN(hasher, f, hashChunk); err != nil && err != io.EOF {
			return "", fmt.Errorf("read video tail: %w", err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ConfigHash fingerprints the detection-affecting configuration. The
// fingerprint map is marshaled with sorted keys so equal configurations
// always hash identically; the digest is truncated to 16 hex characters to
// keep cache file names readable.
func ConfigHash(fingerprint map[string]any) (string, error) {
	data, err := json.Marshal(fingerprint)
	if err != nil {
		return "", fmt.Errorf("marshal config fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

// CacheKey combines the two hashes into the blob file stem.
func CacheKey(videoHash, configHash string) string {
	return videoHash + "_" + configHash
}
