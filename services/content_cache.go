package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/model"
)

// PersistentCacheStore is the durable tier consulted on in-memory misses
type PersistentCacheStore interface {
	Get(ctx context.Context, fileHash string) (*model.CacheEntry, error)
	Put(ctx context.Context, entry *model.CacheEntry) error
	Touch(ctx context.Context, fileHash string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// CacheConfig tunes the in-memory tier
type CacheConfig struct {
	MaxEntries int           // In-memory entry cap before LRU eviction (default: 1000)
	TTL        time.Duration // Entry lifetime (default: 24h)
}

// DefaultCacheConfig returns the default cache policy
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 1000,
		TTL:        24 * time.Hour,
	}
}

type memEntry struct {
	fileName       string
	fileSize       int64
	result         *model.ExtractionResult
	createdAt      time.Time
	expiresAt      time.Time
	accessCount    int64
	lastAccessedAt time.Time
}

// ContentAddressedCache reuses processing results for identical file content.
// The fast path is an in-process map; a durable store (when bound) is
// consulted on misses and repopulates the memory tier. Durable-tier failures
// degrade to memory-only caching and are never surfaced to callers.
type ContentAddressedCache struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	maxEntries int
	ttl        time.Duration
	store      PersistentCacheStore

	hits   int64
	misses int64
}

// NewContentAddressedCache creates a cache. store may be nil for
// memory-only operation (tests, degraded mode).
func NewContentAddressedCache(config CacheConfig, store PersistentCacheStore) *ContentAddressedCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}

	return &ContentAddressedCache{
		entries:    make(map[string]*memEntry),
		maxEntries: config.MaxEntries,
		ttl:        config.TTL,
		store:      store,
	}
}

// HashBytes returns the hex SHA-256 digest of file content
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for a content hash, or nil on miss.
// Hits update access bookkeeping in both tiers.
func (c *ContentAddressedCache) Get(ctx context.Context, fileHash string) *model.ExtractionResult {
	now := time.Now()

	c.mu.Lock()
	if entry, ok := c.entries[fileHash]; ok {
		if now.After(entry.expiresAt) {
			delete(c.entries, fileHash)
		} else {
			entry.accessCount++
			entry.lastAccessedAt = now
			c.hits++
			result := entry.result
			c.mu.Unlock()
			if c.store != nil {
				if err := c.store.Touch(ctx, fileHash); err != nil {
					log.Printf("Warning: failed to touch durable cache entry: %v", err)
				}
			}
			return result
		}
	}
	c.mu.Unlock()

	// In-memory miss: consult the durable tier
	if c.store != nil {
		stored, err := c.store.Get(ctx, fileHash)
		if err == nil {
			var result model.ExtractionResult
			if jsonErr := json.Unmarshal(stored.Result, &result); jsonErr == nil {
				if err := c.store.Touch(ctx, fileHash); err != nil {
					log.Printf("Warning: failed to touch durable cache entry: %v", err)
				}

				c.mu.Lock()
				c.entries[fileHash] = &memEntry{
					fileName:       stored.FileName,
					fileSize:       stored.FileSize,
					result:         &result,
					createdAt:      stored.CreatedAt,
					expiresAt:      stored.ExpiresAt,
					accessCount:    stored.AccessCount + 1,
					lastAccessedAt: now,
				}
				c.evictLocked()
				c.hits++
				c.mu.Unlock()
				return &result
			}
			log.Printf("Warning: corrupt durable cache entry for %s dropped", fileHash)
		} else if !errors.Is(err, database.ErrCacheEntryNotFound) {
			log.Printf("Warning: durable cache tier unavailable: %v", err)
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil
}

// Put stores a fresh processing result under its content hash
func (c *ContentAddressedCache) Put(ctx context.Context, fileHash, fileName string, fileSize int64, result *model.ExtractionResult) {
	now := time.Now()
	expiresAt := now.Add(c.ttl)

	c.mu.Lock()
	c.entries[fileHash] = &memEntry{
		fileName:       fileName,
		fileSize:       fileSize,
		result:         result,
		createdAt:      now,
		expiresAt:      expiresAt,
		accessCount:    1,
		lastAccessedAt: now,
	}
	c.evictLocked()
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("Warning: failed to encode result for durable cache: %v", err)
		return
	}

	entry := &model.CacheEntry{
		FileHash:       fileHash,
		FileName:       fileName,
		FileSize:       fileSize,
		Result:         payload,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
		AccessCount:    1,
		LastAccessedAt: now,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		log.Printf("Warning: durable cache tier unavailable, caching in memory only: %v", err)
	}
}

// AccessCount reports the bookkeeping counter for a hash (0 when absent)
func (c *ContentAddressedCache) AccessCount(fileHash string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[fileHash]; ok {
		return entry.accessCount
	}
	return 0
}

// CleanupExpired removes expired entries from both tiers and returns how
// many each tier dropped
func (c *ContentAddressedCache) CleanupExpired(ctx context.Context) (int, int64) {
	now := time.Now()

	c.mu.Lock()
	removed := 0
	for hash, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, hash)
			removed++
		}
	}
	c.mu.Unlock()

	var storeRemoved int64
	if c.store != nil {
		var err error
		storeRemoved, err = c.store.PurgeExpired(ctx)
		if err != nil {
			log.Printf("Warning: failed to purge durable cache tier: %v", err)
		}
	}

	return removed, storeRemoved
}

// Stats summarizes the in-memory tier
func (c *ContentAddressedCache) Stats() model.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := model.CacheStats{
		TotalEntries: len(c.entries),
		TopFiles:     []model.CacheTopFile{},
	}

	total := c.hits + c.misses
	if total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	type ranked struct {
		name  string
		count int64
	}
	var files []ranked

	for _, entry := range c.entries {
		stats.TotalSize += entry.fileSize
		created := entry.createdAt
		if stats.OldestEntry == nil || created.Before(*stats.OldestEntry) {
			t := created
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || created.After(*stats.NewestEntry) {
			t := created
			stats.NewestEntry = &t
		}
		files = append(files, ranked{name: entry.fileName, count: entry.accessCount})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].count != files[j].count {
			return files[i].count > files[j].count
		}
		return files[i].name < files[j].name
	})

	const topN = 5
	for i, f := range files {
		if i >= topN {
			break
		}
		stats.TopFiles = append(stats.TopFiles, model.CacheTopFile{FileName: f.name, AccessCount: f.count})
	}

	return stats
}

// evictLocked drops least-recently-accessed entries until under the cap.
// Caller holds c.mu.
func (c *ContentAddressedCache) evictLocked() {
	for len(c.entries) > c.maxEntries {
		var lruHash string
		var lruTime time.Time
		for hash, entry := range c.entries {
			if lruHash == "" || entry.lastAccessedAt.Before(lruTime) {
				lruHash = hash
				lruTime = entry.lastAccessedAt
			}
		}
		delete(c.entries, lruHash)
	}
}
