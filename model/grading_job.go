package model

import "time"

// GradingJobStatus represents the status of a batch grading job
type GradingJobStatus string

const (
	GradingJobPending    GradingJobStatus = "pending"
	GradingJobProcessing GradingJobStatus = "processing"
	GradingJobCompleted  GradingJobStatus = "completed"
	GradingJobFailed     GradingJobStatus = "failed"
)

// GradingJob is the state of a batch grading run stored in Redis
type GradingJob struct {
	JobID        string           `json:"job_id"`
	Status       GradingJobStatus `json:"status"`
	Progress     int              `json:"progress"`      // 0-100
	CurrentPhase string           `json:"current_phase"` // "extracting", "grouping", "validating"
	Message      string           `json:"message"`

	// File tracking
	TotalFiles     int `json:"total_files"`
	ProcessedFiles int `json:"processed_files,omitempty"`
	FailedFiles    int `json:"failed_files,omitempty"`

	// Error tracking
	Error string `json:"error,omitempty"`

	// Result
	Report *BatchReport `json:"report,omitempty"`

	// Timestamps
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsComplete reports whether the job reached a terminal state
func (j *GradingJob) IsComplete() bool {
	return j.Status == GradingJobCompleted || j.Status == GradingJobFailed
}

// Redis key patterns for grading jobs
const (
	// RedisKeyGradingJob stores the full job state as JSON
	// Usage: fmt.Sprintf(RedisKeyGradingJob, jobID)
	RedisKeyGradingJob = "grading:job:%s"
)
