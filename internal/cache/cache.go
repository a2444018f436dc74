package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores encoded artifacts by key. Implementations are safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	Cleanup()
}

// ComputeKey generates a cache key from content using SHA-256.
func ComputeKey(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:16]) // use first 128 bits
}

// Key hashes parts into a single key. Parts are separated by NUL so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	var buf []byte
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, p...)
	}
	return ComputeKey(buf)
}

// Entry represents a cached entry with expiration. A zero ExpiresAt never
// expires.
type Entry struct {
	Value     []byte    `msgpack:"value"`
	ExpiresAt time.Time `msgpack:"expires_at"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

func newEntry(value []byte, ttl time.Duration) Entry {
	now := time.Now()
	e := Entry{Value: value, CreatedAt: now}
	if ttl != 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// Noop is a Cache that never hits. It backs -no-cache runs.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) {}
func (Noop) Delete(context.Context, string)                     {}
func (Noop) Clear(context.Context)                              {}

var _ Cache = Noop{}
