package grading

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/gradeflow/gradeflow/model"
	"github.com/gradeflow/gradeflow/services"
	"github.com/gradeflow/gradeflow/utils/cache"
	"github.com/gradeflow/gradeflow/utils/pdfvalidation"
	"github.com/gradeflow/gradeflow/utils/response"
)

// maxBatchFiles bounds one grading batch upload
const maxBatchFiles = 50

// BatchHandler handles batch grading API endpoints
type BatchHandler struct {
	pipeline *services.GradingPipeline
	tracker  *services.GradingProgressTracker
	limits   pdfvalidation.ScanLimits
}

// NewBatchHandler creates a new batch grading handler
func NewBatchHandler(pipeline *services.GradingPipeline, tracker *services.GradingProgressTracker) *BatchHandler {
	return &BatchHandler{
		pipeline: pipeline,
		tracker:  tracker,
		limits:   pdfvalidation.DefaultScanLimits,
	}
}

// UploadBatch handles POST /api/v1/grading/batches
// Accepts a multipart batch of scanned test papers and starts a grading job
func (h *BatchHandler) UploadBatch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "Failed to parse multipart form")
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return response.BadRequest(c, "At least one file is required")
	}
	if len(fileHeaders) > maxBatchFiles {
		return response.BadRequest(c, "Too many files in one batch")
	}

	files := make([]model.FileInput, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		check, err := pdfvalidation.ValidateScanFile(fileHeader, h.limits)
		if err != nil {
			return response.InternalServerError(c, "Failed to read uploaded file "+fileHeader.Filename)
		}
		if !check.Valid {
			return response.BadRequest(c, fileHeader.Filename+": "+check.Error)
		}
		files = append(files, model.FileInput{
			FileName: fileHeader.Filename,
			RawBytes: check.Content,
		})
	}

	job, err := h.tracker.CreateJob(c.Context(), len(files))
	if err != nil {
		return response.ServiceUnavailable(c, "Job tracking is unavailable")
	}

	log.Printf("[GRADING] starting job %s with %d files", job.JobID, len(files))

	// The batch runs in the background; clients poll the job resource.
	// Detached context: the pipeline must outlive this request.
	go h.pipeline.Run(context.Background(), job.JobID, files)

	return response.Accepted(c, "Grading batch accepted", fiber.Map{
		"job_id":      job.JobID,
		"status":      job.Status,
		"total_files": job.TotalFiles,
	})
}

// GetJob handles GET /api/v1/grading/batches/:job_id
// Returns job progress, or the full state once terminal
func (h *BatchHandler) GetJob(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return response.BadRequest(c, "Job ID is required")
	}

	job, err := h.tracker.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return response.NotFound(c, "Grading job not found")
		}
		return response.InternalServerError(c, "Failed to load grading job")
	}

	return response.Success(c, job)
}

// GetReport handles GET /api/v1/grading/batches/:job_id/report
// Returns the rendered text report of a completed job
func (h *BatchHandler) GetReport(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return response.BadRequest(c, "Job ID is required")
	}

	job, err := h.tracker.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return response.NotFound(c, "Grading job not found")
		}
		return response.InternalServerError(c, "Failed to load grading job")
	}

	if !job.IsComplete() {
		return response.Conflict(c, "Report is not available until the job completes")
	}
	if job.Report == nil {
		return response.Conflict(c, "Job failed before producing a report")
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	return c.SendString(job.Report.TextReport)
}
