package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/gradeflow/gradeflow/model"
)

// partialThresholdPercent is the minimum completion for a non-complete
// submission to count as partial rather than incomplete
const partialThresholdPercent = 80

// AnswerKeyProvider is the authoritative source for expected question numbers
type AnswerKeyProvider interface {
	GetQuestionNumbers(ctx context.Context, examID string) ([]int, error)
}

// AnswerKeyValidationService compares parsed student results against stored
// answer keys. Expected question counts are cached per exam ID since answer
// keys do not change during a grading session.
type AnswerKeyValidationService struct {
	provider AnswerKeyProvider

	mu            sync.Mutex
	expectedCache map[string]int
}

// NewAnswerKeyValidationService creates a new validation service
func NewAnswerKeyValidationService(provider AnswerKeyProvider) *AnswerKeyValidationService {
	return &AnswerKeyValidationService{
		provider:      provider,
		expectedCache: make(map[string]int),
	}
}

// ExpectedQuestionCount returns how many questions the exam's answer key
// holds, 0 when no key exists
func (s *AnswerKeyValidationService) ExpectedQuestionCount(ctx context.Context, examID string) (int, error) {
	s.mu.Lock()
	if count, ok := s.expectedCache[examID]; ok {
		s.mu.Unlock()
		return count, nil
	}
	s.mu.Unlock()

	numbers, err := s.provider.GetQuestionNumbers(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("failed to load answer key for %s: %w", examID, err)
	}

	s.mu.Lock()
	s.expectedCache[examID] = len(numbers)
	s.mu.Unlock()
	return len(numbers), nil
}

// Invalidate drops the cached expected count for an exam so the next lookup
// hits the store. Called whenever an exam's answer key changes.
func (s *AnswerKeyValidationService) Invalidate(examID string) {
	s.mu.Lock()
	delete(s.expectedCache, examID)
	s.mu.Unlock()
}

// ValidateStudent compares one student's parsed results against the exam's
// answer key
func (s *AnswerKeyValidationService) ValidateStudent(ctx context.Context, examID, studentID string, results []model.ParsedQuestion) (*model.ValidationResult, error) {
	expected, err := s.ExpectedQuestionCount(ctx, examID)
	if err != nil {
		return nil, err
	}

	observed := make(map[int]bool)
	for _, q := range results {
		if q.QuestionNumber > 0 {
			observed[q.QuestionNumber] = true
		}
	}
	actual := len(observed)

	result := &model.ValidationResult{
		ExamID:            examID,
		StudentID:         studentID,
		ExpectedQuestions: expected,
		ActualQuestions:   actual,
	}

	switch {
	case expected == 0:
		result.Status = model.ValidationNoAnswerKey
	case actual == expected:
		result.Status = model.ValidationComplete
		result.IsComplete = true
		result.CompletionPercentage = 100
	default:
		result.CompletionPercentage = int(math.Round(100 * float64(actual) / float64(expected)))
		if actual > 0 && result.CompletionPercentage >= partialThresholdPercent {
			result.Status = model.ValidationPartial
		} else {
			result.Status = model.ValidationIncomplete
		}
	}

	if !result.IsComplete && expected > 0 {
		for n := 1; n <= expected; n++ {
			if !observed[n] {
				result.MissingQuestions = append(result.MissingQuestions, n)
			}
		}
	}

	return result, nil
}

// ValidateBatch validates every student entry and aggregates counts, rates
// and remediation recommendations. Deterministic for identical input.
func (s *AnswerKeyValidationService) ValidateBatch(ctx context.Context, entries []model.StudentResults) (*model.BatchValidationSummary, error) {
	summary := &model.BatchValidationSummary{
		TotalStudents:     len(entries),
		ValidationResults: make(map[string]model.ValidationResult, len(entries)),
		Recommendations:   []string{},
	}
	if len(entries) == 0 {
		return summary, nil
	}

	detectedIDs := 0
	for i, entry := range entries {
		studentID := strings.TrimSpace(entry.StudentID)
		if studentID != "" {
			detectedIDs++
		} else {
			studentID = model.UnknownStudentSentinel
		}
		examID := strings.TrimSpace(entry.ExamID)
		if examID == "" {
			examID = model.UnknownExamSentinel
		}

		result, err := s.ValidateStudent(ctx, examID, studentID, entry.Results)
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case model.ValidationComplete:
			summary.CompleteStudents++
		case model.ValidationPartial:
			summary.PartialStudents++
		case model.ValidationIncomplete:
			summary.IncompleteStudents++
		case model.ValidationNoAnswerKey:
			summary.NoAnswerKeyStudents++
		}

		key := studentID
		if _, taken := summary.ValidationResults[key]; taken {
			key = fmt.Sprintf("%s#%d", studentID, i+1)
		}
		summary.ValidationResults[key] = *result
	}

	total := float64(summary.TotalStudents)
	summary.OverallSuccessRate = int(math.Round(100 * float64(summary.CompleteStudents+summary.PartialStudents) / total))
	summary.StudentIDDetectionRate = int(math.Round(100 * float64(detectedIDs) / total))

	// Recommendation rules fire independently, in a fixed order
	if summary.StudentIDDetectionRate < 95 {
		summary.Recommendations = append(summary.Recommendations,
			"Standardize student ID formats on answer sheets to improve identification")
	}
	if summary.IncompleteStudents > 0 {
		summary.Recommendations = append(summary.Recommendations,
			"Review scan quality for students with incomplete submissions")
	}
	if summary.PartialStudents > 0 {
		summary.Recommendations = append(summary.Recommendations,
			"Check for missing pages in partially complete submissions")
	}
	if summary.OverallSuccessRate < 90 {
		summary.Recommendations = append(summary.Recommendations,
			"Improve scan quality or adjust processing parameters to raise the success rate")
	}
	if summary.NoAnswerKeyStudents > 0 {
		summary.Recommendations = append(summary.Recommendations,
			"Upload answer keys for exams that currently have none")
	}

	return summary, nil
}

// RenderReport produces a deterministic human-readable validation summary
func RenderReport(summary *model.BatchValidationSummary) string {
	var b strings.Builder

	b.WriteString("GRADING BATCH VALIDATION REPORT\n")
	b.WriteString("===============================\n\n")
	fmt.Fprintf(&b, "Total students:        %d\n", summary.TotalStudents)
	fmt.Fprintf(&b, "Complete:              %d (%s)\n", summary.CompleteStudents, percentOf(summary.CompleteStudents, summary.TotalStudents))
	fmt.Fprintf(&b, "Partial:               %d (%s)\n", summary.PartialStudents, percentOf(summary.PartialStudents, summary.TotalStudents))
	fmt.Fprintf(&b, "Incomplete:            %d (%s)\n", summary.IncompleteStudents, percentOf(summary.IncompleteStudents, summary.TotalStudents))
	fmt.Fprintf(&b, "No answer key:         %d (%s)\n", summary.NoAnswerKeyStudents, percentOf(summary.NoAnswerKeyStudents, summary.TotalStudents))
	fmt.Fprintf(&b, "Overall success rate:  %d%%\n", summary.OverallSuccessRate)
	fmt.Fprintf(&b, "ID detection rate:     %d%%\n", summary.StudentIDDetectionRate)

	if len(summary.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range summary.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	if len(summary.ValidationResults) > 0 {
		b.WriteString("\nPer-student results:\n")
		keys := make([]string, 0, len(summary.ValidationResults))
		for key := range summary.ValidationResults {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			result := summary.ValidationResults[key]
			fmt.Fprintf(&b, "  %s [%s]: %d/%d questions, %d%% (%s)\n",
				key, result.ExamID, result.ActualQuestions, result.ExpectedQuestions,
				result.CompletionPercentage, result.Status)
			if len(result.MissingQuestions) > 0 {
				fmt.Fprintf(&b, "    missing questions: %s\n", joinInts(result.MissingQuestions))
			}
		}
	}

	return b.String()
}

func percentOf(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(100*float64(part)/float64(total))))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
