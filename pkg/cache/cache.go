// Package cache provides pluggable byte caches for downloaded descriptors.
//
// Four backends are available:
//   - FileCache: file-based storage for CLI usage
//   - MemoryCache: bounded in-process LRU for a single resolution run
//   - RedisCache: shared storage for multi-instance deployments
//   - NullCache: no-op cache for tests or when caching is disabled
//
// All backends share the [Cache] interface and are safe for concurrent use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque byte values under string keys with per-entry TTLs.
type Cache interface {
	// Get retrieves a value. The boolean reports whether the key was found
	// and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A TTL of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
