package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// File permission constants for cache operations.
const (
	cacheDirPerm  = 0o750 // Directory permissions: rwxr-x---
	cacheFilePerm = 0o600 // File permissions: rw-------
)

// Minimum length for creating subdirectory structure in cache keys.
const minKeyLengthForSubdir = 4

const entryExt = ".mpk"

// FileCache implements Cache using file system storage.
// Entries are msgpack-encoded files in a two-level directory structure.
type FileCache struct {
	baseDir string
}

// NewFileCache creates a new file-based cache.
// The baseDir is where cache files will be stored.
func NewFileCache(baseDir string) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, cacheDirPerm); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &FileCache{
		baseDir: baseDir,
	}, nil
}

// Dir returns the cache directory.
func (f *FileCache) Dir() string { return f.baseDir }

// Get retrieves a value from the cache. Unreadable or corrupt entries are
// misses.
func (f *FileCache) Get(_ context.Context, key string) ([]byte, bool) {
	path := f.keyToPath(key)

	entry, err := readEntry(path)
	if err != nil {
		return nil, false
	}
	if entry.IsExpired() {
		_ = os.Remove(path)
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value in the cache with the given TTL. Failures are ignored;
// the next run simply misses.
func (f *FileCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	path := f.keyToPath(key)

	if err := os.MkdirAll(filepath.Dir(path), cacheDirPerm); err != nil {
		return
	}

	data, err := msgpack.Marshal(newEntry(value, ttl))
	if err != nil {
		return
	}

	// Write atomically using temp file
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return
	}
	_ = os.Chmod(tmp.Name(), cacheFilePerm)
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
	}
}

// Delete removes a value from the cache.
func (f *FileCache) Delete(_ context.Context, key string) {
	_ = os.Remove(f.keyToPath(key))
}

// Clear removes all values from the cache.
func (f *FileCache) Clear(_ context.Context) {
	_ = os.RemoveAll(f.baseDir)
	_ = os.MkdirAll(f.baseDir, cacheDirPerm)
}

// keyToPath converts a cache key to a file path.
func (f *FileCache) keyToPath(key string) string {
	safeKey := sanitizeKey(key)

	// Create a 2-level directory structure using first 4 chars of key
	if len(safeKey) >= minKeyLengthForSubdir {
		subDir := filepath.Join(f.baseDir, safeKey[:2], safeKey[2:4])
		return filepath.Join(subDir, safeKey+entryExt)
	}

	return filepath.Join(f.baseDir, safeKey+entryExt)
}

// sanitizeKey makes a key safe for use as a filename.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(key)
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// walkEntries calls fn for every entry file under the cache directory.
func (f *FileCache) walkEntries(fn func(path string, size int64)) {
	_ = filepath.WalkDir(f.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, entryExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(path, info.Size())
		return nil
	})
}

// Stats returns statistics about the cache.
func (f *FileCache) Stats() (total int, expired int, size int64) {
	f.walkEntries(func(path string, n int64) {
		total++
		size += n
		if entry, err := readEntry(path); err == nil && entry.IsExpired() {
			expired++
		}
	})
	return total, expired, size
}

// Cleanup removes expired and corrupt entries.
func (f *FileCache) Cleanup() {
	f.walkEntries(func(path string, _ int64) {
		entry, err := readEntry(path)
		if err != nil || entry.IsExpired() {
			_ = os.Remove(path)
		}
	})
}

// Ensure FileCache implements Cache interface.
var (
	_ Cache   = (*FileCache)(nil)
	_ Cleaner = (*FileCache)(nil)
)
