package cron

import (
	"context"
	"fmt"
	"time"
)

// CleanupExtractionCache purges expired entries from both extraction cache
// tiers. Runs hourly; the cache also purges lazily on access, this sweep
// keeps the durable tier from accumulating dead rows.
func (m *CronManager) CleanupExtractionCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_extraction_cache"

	memRemoved, storeRemoved := m.contentCache.CleanupExpired(ctx)
	m.logJobComplete(jobName, fmt.Sprintf("removed %d in-memory and %d stored entries", memRemoved, storeRemoved))
}

// SweepGradingJobs deletes grading job keys that lost their TTL. Redis
// normally expires them on its own; keys with TTL -1 were written before a
// crash mid-update and would otherwise live forever.
func (m *CronManager) SweepGradingJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "sweep_grading_jobs"

	keys, err := m.redisCache.Keys(ctx, "grading:job:*")
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to list job keys: %w", err))
		return
	}

	removed := 0
	for _, key := range keys {
		ttl, err := m.redisCache.TTL(ctx, key)
		if err != nil {
			continue
		}
		// go-redis reports "exists, no expiry" as -1 and "gone" as -2
		if ttl == -1 {
			if err := m.redisCache.Delete(ctx, key); err == nil {
				removed++
			}
		}
	}

	m.logJobComplete(jobName, fmt.Sprintf("checked %d keys, removed %d without TTL", len(keys), removed))
}
