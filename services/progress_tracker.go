package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow/model"
	"github.com/gradeflow/gradeflow/utils/cache"
)

// Job state TTLs: running jobs refresh on every update, terminal jobs
// stay readable long enough for clients to collect the report
const (
	runningJobTTL  = 2 * time.Hour
	terminalJobTTL = 24 * time.Hour
)

// GradingProgressTracker persists batch grading job state in Redis so
// clients can poll progress while the pipeline runs in the background
type GradingProgressTracker struct {
	cache *cache.RedisCache
}

// NewGradingProgressTracker creates a new progress tracker
func NewGradingProgressTracker(redisCache *cache.RedisCache) *GradingProgressTracker {
	return &GradingProgressTracker{cache: redisCache}
}

// CreateJob registers a new pending job and returns its ID
func (t *GradingProgressTracker) CreateJob(ctx context.Context, totalFiles int) (*model.GradingJob, error) {
	now := time.Now()
	job := &model.GradingJob{
		JobID:      uuid.New().String(),
		Status:     model.GradingJobPending,
		Message:    "Batch accepted",
		TotalFiles: totalFiles,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	if err := t.save(ctx, job, runningJobTTL); err != nil {
		return nil, fmt.Errorf("failed to create grading job: %w", err)
	}
	log.Printf("[GRADING] job %s created for %d files", job.JobID, totalFiles)
	return job, nil
}

// GetJob loads job state; cache.ErrNotFound when unknown or expired
func (t *GradingProgressTracker) GetJob(ctx context.Context, jobID string) (*model.GradingJob, error) {
	var job model.GradingJob
	if err := t.cache.GetJSON(ctx, jobKey(jobID), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateProgress records the current phase and completion percentage
func (t *GradingProgressTracker) UpdateProgress(ctx context.Context, jobID, phase, message string, progress int) {
	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("Warning: failed to load job %s for progress update: %v", jobID, err)
		return
	}

	job.Status = model.GradingJobProcessing
	job.CurrentPhase = phase
	job.Message = message
	job.Progress = progress
	job.UpdatedAt = time.Now()

	if err := t.save(ctx, job, runningJobTTL); err != nil {
		log.Printf("Warning: failed to persist progress for job %s: %v", jobID, err)
	}
}

// CompleteJob stores the final report and marks the job completed
func (t *GradingProgressTracker) CompleteJob(ctx context.Context, jobID string, report *model.BatchReport) error {
	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	now := time.Now()
	job.Status = model.GradingJobCompleted
	job.CurrentPhase = ""
	job.Message = "Batch processed"
	job.Progress = 100
	job.Report = report
	job.ProcessedFiles = report.Extraction.Stats.SuccessfulFiles
	job.FailedFiles = report.Extraction.Stats.FailedFiles
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err := t.save(ctx, job, terminalJobTTL); err != nil {
		return fmt.Errorf("failed to persist completed job %s: %w", jobID, err)
	}
	log.Printf("[GRADING] job %s completed: %d ok, %d failed", jobID, job.ProcessedFiles, job.FailedFiles)
	return nil
}

// FailJob marks the job failed with an error message
func (t *GradingProgressTracker) FailJob(ctx context.Context, jobID string, jobErr error) {
	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("Warning: failed to load job %s to mark failed: %v", jobID, err)
		return
	}

	now := time.Now()
	job.Status = model.GradingJobFailed
	job.CurrentPhase = ""
	job.Message = "Batch failed"
	job.Error = jobErr.Error()
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err := t.save(ctx, job, terminalJobTTL); err != nil {
		log.Printf("Warning: failed to persist failed job %s: %v", jobID, err)
	}
	log.Printf("[GRADING] job %s failed: %v", jobID, jobErr)
}

func (t *GradingProgressTracker) save(ctx context.Context, job *model.GradingJob, ttl time.Duration) error {
	return t.cache.SetJSON(ctx, jobKey(job.JobID), job, ttl)
}

func jobKey(jobID string) string {
	return fmt.Sprintf(model.RedisKeyGradingJob, jobID)
}
