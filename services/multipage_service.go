package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gradeflow/gradeflow/model"
)

// Page numbers outside this range are treated as noise, not page numbers
const (
	minPageNumber = 1
	maxPageNumber = 99
)

// MultiPageDetectionService regroups a batch of per-file extraction results
// into logical per-student submissions keyed by exam and student name
type MultiPageDetectionService struct{}

// NewMultiPageDetectionService creates a new multi-page detection service
func NewMultiPageDetectionService() *MultiPageDetectionService {
	return &MultiPageDetectionService{}
}

// GroupPages builds page groups from extraction results. Files carrying
// neither exam ID nor student name are reported as ungrouped; files with
// partial identification are grouped under a sentinel key and contribute a
// deduplicated low-confidence suggestion.
func (s *MultiPageDetectionService) GroupPages(results []*model.ExtractionResult) *model.GroupingReport {
	report := &model.GroupingReport{
		PageGroups:     []model.PageGroup{},
		UngroupedFiles: []string{},
		Suggestions:    []model.GroupSuggestion{},
	}

	groups := make(map[string]*model.PageGroup)
	groupOrder := []string{}
	suggested := make(map[string]bool)

	for _, result := range results {
		if result == nil {
			continue
		}

		examID := strings.TrimSpace(result.ExamID)
		studentName := strings.TrimSpace(result.StudentName)

		if examID == "" && studentName == "" {
			report.UngroupedFiles = append(report.UngroupedFiles, result.FileName)
			continue
		}

		examKey := examID
		if examKey == "" {
			examKey = model.NoExamSentinel
		}
		studentKey := studentName
		if studentKey == "" {
			studentKey = model.NoStudentSentinel
		}
		groupKey := examKey + "::" + studentKey

		// Partial identification still groups, but is surfaced as a
		// low-confidence suggestion once per exam+student key
		if examID == "" || studentName == "" {
			if !suggested[groupKey] {
				suggested[groupKey] = true
				report.Suggestions = append(report.Suggestions, model.GroupSuggestion{
					ExamID:      examID,
					StudentName: studentName,
					FileName:    result.FileName,
					Confidence:  result.Confidence / 2,
				})
			}
		}

		group, ok := groups[groupKey]
		if !ok {
			group = &model.PageGroup{
				GroupID:     groupKey,
				ExamID:      examKey,
				StudentName: studentKey,
				Pages:       []model.PageRef{},
			}
			groups[groupKey] = group
			groupOrder = append(groupOrder, groupKey)
		}

		group.Pages = append(group.Pages, model.PageRef{
			PageNumber: DetectPageNumber(result.FileName, result.ExtractedText),
			FileName:   result.FileName,
			Confidence: result.Confidence,
		})
	}

	for _, key := range groupOrder {
		group := groups[key]
		sort.SliceStable(group.Pages, func(i, j int) bool {
			return group.Pages[i].PageNumber < group.Pages[j].PageNumber
		})
		group.IsComplete = isContiguousFromOne(group.Pages)
		s.inferMissingIdentity(group)
		report.PageGroups = append(report.PageGroups, *group)
	}

	return report
}

// Filename page patterns, tried in priority order
var filenamePagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)page[_\s-]?(\d{1,3})`),
	regexp.MustCompile(`(?i)(?:^|[_\s-])p[-_](\d{1,3})\b`),
	regexp.MustCompile(`_(\d{1,3})\.[A-Za-z0-9]+$`),
	regexp.MustCompile(`\((\d{1,3})\)`),
}

// Content page patterns, consulted when the filename carries no page cue
var contentPagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpage\s+(\d{1,3})\b`),
	regexp.MustCompile(`(?m)^\s*(\d{1,2})\s*$`),
}

// DetectPageNumber finds a page number in the filename first, then the OCR
// text; returns 1 when nothing matches
func DetectPageNumber(fileName, text string) int {
	for _, re := range filenamePagePatterns {
		if n, ok := matchPageNumber(re, fileName); ok {
			return n
		}
	}
	for _, re := range contentPagePatterns {
		if n, ok := matchPageNumber(re, text); ok {
			return n
		}
	}
	return 1
}

func matchPageNumber(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < minPageNumber || n > maxPageNumber {
		return 0, false
	}
	return n, true
}

// isContiguousFromOne reports whether sorted page numbers form exactly 1..N
// with no duplicates or gaps
func isContiguousFromOne(pages []model.PageRef) bool {
	if len(pages) == 0 {
		return false
	}
	for i, page := range pages {
		if page.PageNumber != i+1 {
			return false
		}
	}
	return true
}

// inferMissingIdentity backfills sentinel exam IDs or student names from
// filename cues. Backfilled values are placeholders, flagged Inferred so
// downstream reporting never treats them as detected identification.
func (s *MultiPageDetectionService) inferMissingIdentity(group *model.PageGroup) {
	if group.ExamID != model.NoExamSentinel && group.StudentName != model.NoStudentSentinel {
		return
	}

	if group.ExamID == model.NoExamSentinel {
		if code := examCodeFromFileNames(group.Pages); code != "" {
			group.ExamID = code
		} else {
			group.ExamID = "Inferred_" + sanitizeToken(firstFileName(group.Pages))
		}
		group.Inferred = true
	}
	if group.StudentName == model.NoStudentSentinel {
		group.StudentName = "Inferred_" + sanitizeToken(firstFileName(group.Pages))
		group.Inferred = true
	}
}

var examCodePattern = regexp.MustCompile(`\b([A-Z]{2,6}[-_]\d{2,4})\b`)

func examCodeFromFileNames(pages []model.PageRef) string {
	for _, page := range pages {
		if m := examCodePattern.FindStringSubmatch(strings.ToUpper(page.FileName)); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

func firstFileName(pages []model.PageRef) string {
	if len(pages) == 0 {
		return "unknown"
	}
	return pages[0].FileName
}

var tokenCleaner = regexp.MustCompile(`[^A-Za-z0-9]+`)

func sanitizeToken(s string) string {
	if dot := strings.LastIndex(s, "."); dot > 0 {
		s = s[:dot]
	}
	cleaned := tokenCleaner.ReplaceAllString(s, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}

// groupKeyForDisplay renders a group identity for logs and reports
func groupKeyForDisplay(group model.PageGroup) string {
	return fmt.Sprintf("%s / %s (%d pages)", group.ExamID, group.StudentName, len(group.Pages))
}
