package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FileCache persists descriptor bytes on disk, one file per key, sharded by
// hash prefix so a repository-sized cache does not pile every entry into a
// single directory. Entries survive across CLI invocations; the TTL is
// checked on read, so a cold cache directory can simply be deleted.
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache rooted at dir, creating it when absent.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Entry layout: a single header line holding the expiry as Unix nanoseconds
// (0 for no expiry), then the descriptor bytes verbatim. Descriptors stay
// readable on disk for debugging.

// Get retrieves the descriptor bytes stored under key. Expired and
// unreadable entries are removed and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	sep := bytes.IndexByte(raw, '\n')
	if sep < 0 {
		_ = os.Remove(path)
		return nil, false, nil
	}
	expiry, err := strconv.ParseInt(string(raw[:sep]), 10, 64)
	if err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if expiry != 0 && time.Now().UnixNano() > expiry {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return raw[sep+1:], true, nil
}

// Set stores descriptor bytes under key. A TTL of 0 keeps the entry until it
// is deleted or the cache directory is cleared.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expiry int64
	if ttl > 0 {
		expiry = time.Now().Add(ttl).UnixNano()
	}

	buf := make([]byte, 0, len(data)+21)
	buf = strconv.AppendInt(buf, expiry, 10)
	buf = append(buf, '\n')
	buf = append(buf, data...)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Delete removes the entry for key. A missing entry is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; every operation already leaves the directory consistent.
func (c *FileCache) Close() error {
	return nil
}

// path shards entries into 256 subdirectories by the first hash byte, so
// listing the cache stays cheap even after resolving large trees.
func (c *FileCache) path(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum[2:]+".pom")
}

var _ Cache = (*FileCache)(nil)
