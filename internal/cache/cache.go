// Package cache is a small TTL file cache. The shell keeps the editor buffer
// in it so an unsaved draft survives between visits.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/errors"
)

const (
	dataSuffix = ".data"
	metaSuffix = ".meta"
)

// Cache defines the interface for local file caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Cleanup(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// Entry is the metadata stored next to each cached value
type Entry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int64     `json:"size"`
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	return errors.IsType(err, errors.ErrTypeNotFound)
}

// FileCache implements Cache with one data file and one metadata file per key
type FileCache struct {
	directory   string
	maxBytes    int64
	defaultTTL  time.Duration
	cleanupFreq time.Duration
	now         func() time.Time

	mu     sync.RWMutex
	hits   atomic.Int64
	misses atomic.Int64

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewFileCache creates the directory if needed and starts periodic cleanup
// when cleanupFreq is positive.
func NewFileCache(directory string, maxSizeMB int, defaultTTL, cleanupFreq time.Duration) (*FileCache, error) {
	directory = config.ExpandPath(directory)

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create cache directory")
	}

	c := &FileCache{
		directory:   directory,
		maxBytes:    int64(maxSizeMB) * 1024 * 1024,
		defaultTTL:  defaultTTL,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go c.backgroundCleanup()
	}

	return c, nil
}

// NewFromConfig builds a cache from the cache section of the configuration
func NewFromConfig(cfg config.CacheConfig, maxSizeMB int) (*FileCache, error) {
	return NewFileCache(cfg.Directory, maxSizeMB, cfg.TTL(), cfg.CleanupDuration())
}

// Get returns the value for key, or a not-found error when absent or expired
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	entry, err := c.readMeta(key)
	if err != nil {
		c.mu.RUnlock()
		c.misses.Add(1)

		return nil, err
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.RUnlock()
		c.misses.Add(1)
		_ = c.Delete(ctx, key)

		return nil, errors.NewNotFoundError("cache entry", key).WithSuggestion("entry expired")
	}

	data, err := os.ReadFile(c.dataPath(key))
	c.mu.RUnlock()

	if err != nil {
		c.misses.Add(1)
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read cache data")
	}

	c.hits.Add(1)

	return data, nil
}

// Set stores data under key. A zero ttl uses the default.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	entry := Entry{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Size:      int64(len(data)),
	}

	if err := c.enforceSize(entry.Size); err != nil {
		return err
	}

	dataPath := c.dataPath(key)
	if err := os.WriteFile(dataPath, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write cache data")
	}

	meta, err := json.Marshal(entry)
	if err != nil {
		_ = os.Remove(dataPath)
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal cache metadata")
	}

	if err := os.WriteFile(c.metaPath(key), meta, 0600); err != nil {
		_ = os.Remove(dataPath)
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write cache metadata")
	}

	return nil
}

// Delete removes key; missing keys are ignored
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeHashed(c.hashKey(key))

	return nil
}

// Clear removes every entry and resets the counters
func (c *FileCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read cache directory")
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && (strings.HasSuffix(name, dataSuffix) || strings.HasSuffix(name, metaSuffix)) {
			_ = os.Remove(filepath.Join(c.directory, name))
		}
	}

	c.hits.Store(0)
	c.misses.Store(0)

	return nil
}

// Cleanup removes expired entries and returns how many were dropped
func (c *FileCache) Cleanup(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read cache directory")
	}

	now := c.now()
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(c.directory, entry.Name()))
		if err != nil {
			continue
		}

		var meta Entry
		if err := json.Unmarshal(raw, &meta); err != nil {
			continue
		}

		if now.After(meta.ExpiresAt) {
			c.removeHashed(strings.TrimSuffix(entry.Name(), metaSuffix))
			removed++
		}
	}

	return removed, nil
}

// GetStats returns cache statistics
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	size, count, err := c.usage()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to measure cache")
	}

	stats := &Stats{
		TotalEntries: count,
		TotalSize:    size,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return stats, nil
}

// Directory returns the cache root
func (c *FileCache) Directory() string {
	return c.directory
}

// Close stops the background cleanup goroutine
func (c *FileCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})

	return nil
}

func (c *FileCache) readMeta(key string) (Entry, error) {
	raw, err := os.ReadFile(c.metaPath(key))
	if os.IsNotExist(err) {
		return Entry{}, errors.NewNotFoundError("cache entry", key)
	}

	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read cache metadata")
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to parse cache metadata")
	}

	return entry, nil
}

func (c *FileCache) dataPath(key string) string {
	return filepath.Join(c.directory, c.hashKey(key)+dataSuffix)
}

func (c *FileCache) metaPath(key string) string {
	return filepath.Join(c.directory, c.hashKey(key)+metaSuffix)
}

func (c *FileCache) removeHashed(hashed string) {
	_ = os.Remove(filepath.Join(c.directory, hashed+dataSuffix))
	_ = os.Remove(filepath.Join(c.directory, hashed+metaSuffix))
}

// hashKey creates a safe filename from a cache key
func (c *FileCache) hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// enforceSize evicts the oldest entries until newEntrySize fits. Caller holds the write lock.
func (c *FileCache) enforceSize(newEntrySize int64) error {
	if c.maxBytes <= 0 {
		return nil
	}

	if newEntrySize > c.maxBytes {
		return errors.Newf(errors.ErrTypeValidation, "entry of %d bytes exceeds cache limit of %d bytes", newEntrySize, c.maxBytes)
	}

	current, _, err := c.usage()
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to measure cache")
	}

	if current+newEntrySize <= c.maxBytes {
		return nil
	}

	type candidate struct {
		hashed  string
		modTime time.Time
		size    int64
	}

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read cache directory")
	}

	var candidates []candidate

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), dataSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		candidates = append(candidates, candidate{
			hashed:  strings.TrimSuffix(entry.Name(), dataSuffix),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	needed := current + newEntrySize - c.maxBytes

	var freed int64

	for _, cand := range candidates {
		if freed >= needed {
			break
		}

		c.removeHashed(cand.hashed)
		freed += cand.size
	}

	return nil
}

// usage returns total data bytes and entry count. Caller holds a lock.
func (c *FileCache) usage() (int64, int64, error) {
	var (
		size  int64
		count int64
	)

	err := filepath.WalkDir(c.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, dataSuffix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		size += info.Size()
		count++

		return nil
	})

	return size, count, err
}

// backgroundCleanup runs periodic cleanup of expired entries
func (c *FileCache) backgroundCleanup() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = c.Cleanup(context.Background())
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *FileCache) String() string {
	return fmt.Sprintf("filecache(%s)", c.directory)
}
