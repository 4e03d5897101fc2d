package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gradeflow/gradeflow/services"
	rediscache "github.com/gradeflow/gradeflow/utils/cache"
)

// CronManager manages all scheduled maintenance jobs
type CronManager struct {
	cron         *cron.Cron
	contentCache *services.ContentAddressedCache
	redisCache   *rediscache.RedisCache
}

// NewCronManager creates a new cron manager
func NewCronManager(contentCache *services.ContentAddressedCache, redisCache *rediscache.RedisCache) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:         c,
		contentCache: contentCache,
		redisCache:   redisCache,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every hour: purge expired extraction cache entries (both tiers)
	_, err := m.cron.AddFunc("0 0 * * * *", func() {
		m.logJobStart("cleanup_extraction_cache")
		m.CleanupExtractionCache()
	})
	if err != nil {
		return err
	}

	// 2. Daily at 3 AM: sweep orphaned grading job keys
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("sweep_grading_jobs")
		m.SweepGradingJobs()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)
}
