package services

import (
	"context"
	"log"
	"strings"

	"github.com/gradeflow/gradeflow/model"
)

// GradingPipeline runs a batch end to end: extraction, page grouping,
// answer-key validation, report assembly. Job state lands in Redis via the
// progress tracker so the HTTP layer can poll it.
type GradingPipeline struct {
	coordinator *BatchExtractionCoordinator
	multipage   *MultiPageDetectionService
	validator   *AnswerKeyValidationService
	tracker     *GradingProgressTracker
}

// NewGradingPipeline creates a new grading pipeline
func NewGradingPipeline(coordinator *BatchExtractionCoordinator, multipage *MultiPageDetectionService, validator *AnswerKeyValidationService, tracker *GradingProgressTracker) *GradingPipeline {
	return &GradingPipeline{
		coordinator: coordinator,
		multipage:   multipage,
		validator:   validator,
		tracker:     tracker,
	}
}

// Run processes a batch under an existing job ID. Intended to run in a
// goroutine; all outcomes, including fatal ones, are recorded on the job.
func (p *GradingPipeline) Run(ctx context.Context, jobID string, files []model.FileInput) {
	p.tracker.UpdateProgress(ctx, jobID, "extracting", "Extracting text from scans", 10)

	extraction, err := p.coordinator.ProcessBatch(ctx, files)
	if err != nil {
		p.tracker.FailJob(ctx, jobID, err)
		return
	}

	p.tracker.UpdateProgress(ctx, jobID, "grouping", "Grouping pages into submissions", 60)
	grouping := p.multipage.GroupPages(extraction.Results)
	for _, group := range grouping.PageGroups {
		log.Printf("[GRADING] job %s grouped %s", jobID, groupKeyForDisplay(group))
	}

	p.tracker.UpdateProgress(ctx, jobID, "validating", "Validating against answer keys", 80)
	validation, err := p.validator.ValidateBatch(ctx, buildStudentEntries(extraction.Results, grouping))
	if err != nil {
		p.tracker.FailJob(ctx, jobID, err)
		return
	}

	report := &model.BatchReport{
		Extraction: extraction,
		Grouping:   grouping,
		Validation: validation,
		TextReport: RenderReport(validation),
	}

	if err := p.tracker.CompleteJob(ctx, jobID, report); err != nil {
		log.Printf("Warning: job %s finished but state could not be stored: %v", jobID, err)
	}
}

// buildStudentEntries merges each page group's member files into one
// validation entry. Inferred group identities are not forwarded as detected
// student IDs; those entries fall back to the unknown-student sentinel.
func buildStudentEntries(results []*model.ExtractionResult, grouping *model.GroupingReport) []model.StudentResults {
	byFile := make(map[string]*model.ExtractionResult, len(results))
	for _, result := range results {
		byFile[result.FileName] = result
	}

	entries := make([]model.StudentResults, 0, len(grouping.PageGroups))
	for _, group := range grouping.PageGroups {
		entry := model.StudentResults{ExamID: group.ExamID, StudentID: group.StudentName}
		// Placeholder identities never masquerade as detected ones; the
		// validator substitutes its unknown sentinels instead
		if strings.HasPrefix(group.ExamID, "Inferred_") {
			entry.ExamID = ""
		}
		if strings.HasPrefix(group.StudentName, "Inferred_") {
			entry.StudentID = ""
		}

		for _, page := range group.Pages {
			if result, ok := byFile[page.FileName]; ok {
				entry.Results = append(entry.Results, result.Structured.Questions...)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
