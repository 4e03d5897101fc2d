package model

import (
	"time"

	"gorm.io/datatypes"
)

// CacheEntry is the durable tier's record of a processed file, keyed by the
// SHA-256 of its content so identical re-uploads reuse prior results
type CacheEntry struct {
	FileHash       string         `json:"file_hash" gorm:"primaryKey;size:64"`
	FileName       string         `json:"file_name"`
	FileSize       int64          `json:"file_size"`
	Result         datatypes.JSON `json:"result"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at" gorm:"index"`
	AccessCount    int64          `json:"access_count"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
}

// CacheTopFile is one row of the most-accessed-files statistic
type CacheTopFile struct {
	FileName    string `json:"file_name"`
	AccessCount int64  `json:"access_count"`
}

// CacheStats summarizes in-memory tier usage for reporting
type CacheStats struct {
	TotalEntries int            `json:"total_entries"`
	HitRate      float64        `json:"hit_rate"`
	TotalSize    int64          `json:"total_size"`
	OldestEntry  *time.Time     `json:"oldest_entry,omitempty"`
	NewestEntry  *time.Time     `json:"newest_entry,omitempty"`
	TopFiles     []CacheTopFile `json:"top_files"`
}
