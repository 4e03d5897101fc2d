package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gradeflow/gradeflow/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCacheEntryNotFound is returned when no durable entry exists for a hash
var ErrCacheEntryNotFound = errors.New("cache entry not found")

// CacheStore is the durable tier of the content-addressed result cache
type CacheStore struct {
	db *gorm.DB
}

// NewCacheStore creates a new durable cache store
func NewCacheStore(db *gorm.DB) *CacheStore {
	return &CacheStore{db: db}
}

// Get fetches the entry for a content hash. Expired entries are purged and
// reported as misses.
func (s *CacheStore) Get(ctx context.Context, fileHash string) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	err := s.db.WithContext(ctx).First(&entry, "file_hash = ?", fileHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCacheEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch cache entry: %w", err)
	}

	if time.Now().After(entry.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&model.CacheEntry{}, "file_hash = ?", fileHash)
		return nil, ErrCacheEntryNotFound
	}

	return &entry, nil
}

// Put stores or replaces the entry for a content hash
func (s *CacheStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_hash"}},
			UpdateAll: true,
		}).
		Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Touch updates access bookkeeping after a hit
func (s *CacheStore) Touch(ctx context.Context, fileHash string) error {
	return s.db.WithContext(ctx).
		Model(&model.CacheEntry{}).
		Where("file_hash = ?", fileHash).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": time.Now(),
		}).Error
}

// PurgeExpired deletes all entries past their expiry and returns the count
func (s *CacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.CacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
