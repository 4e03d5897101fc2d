package services

import (
	"testing"

	"github.com/gradeflow/gradeflow/model"
)

func pageResult(fileName, examID, studentName, text string) *model.ExtractionResult {
	return &model.ExtractionResult{
		FileName:      fileName,
		ExamID:        examID,
		StudentName:   studentName,
		ExtractedText: text,
		Confidence:    0.9,
	}
}

func TestGroupPagesContiguousSequenceIsComplete(t *testing.T) {
	svc := NewMultiPageDetectionService()

	report := svc.GroupPages([]*model.ExtractionResult{
		pageResult("doe_page_2.pdf", "MATH-101", "Jane Doe", ""),
		pageResult("doe_page_1.pdf", "MATH-101", "Jane Doe", ""),
		pageResult("doe_page_3.pdf", "MATH-101", "Jane Doe", ""),
	})

	if len(report.PageGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(report.PageGroups))
	}
	group := report.PageGroups[0]
	if !group.IsComplete {
		t.Fatal("pages 1..3 must be complete")
	}
	for i, page := range group.Pages {
		if page.PageNumber != i+1 {
			t.Fatalf("pages not sorted ascending: %+v", group.Pages)
		}
	}
}

func TestGroupPagesGapIsIncomplete(t *testing.T) {
	svc := NewMultiPageDetectionService()

	report := svc.GroupPages([]*model.ExtractionResult{
		pageResult("doe_page_1.pdf", "MATH-101", "Jane Doe", ""),
		pageResult("doe_page_3.pdf", "MATH-101", "Jane Doe", ""),
	})
	if report.PageGroups[0].IsComplete {
		t.Fatal("pages [1,3] must not be complete")
	}

	report = svc.GroupPages([]*model.ExtractionResult{
		pageResult("doe_page_2.pdf", "MATH-101", "Jane Doe", ""),
		pageResult("doe_page_3.pdf", "MATH-101", "Jane Doe", ""),
		pageResult("doe_page_4.pdf", "MATH-101", "Jane Doe", ""),
	})
	if report.PageGroups[0].IsComplete {
		t.Fatal("pages [2,3,4] without page 1 must not be complete")
	}
}

func TestGroupPagesUnidentifiedFileIsUngrouped(t *testing.T) {
	svc := NewMultiPageDetectionService()

	report := svc.GroupPages([]*model.ExtractionResult{
		pageResult("mystery.pdf", "", "", "illegible"),
		pageResult("doe_page_1.pdf", "MATH-101", "Jane Doe", ""),
	})

	if len(report.UngroupedFiles) != 1 || report.UngroupedFiles[0] != "mystery.pdf" {
		t.Fatalf("expected mystery.pdf ungrouped, got %v", report.UngroupedFiles)
	}
	if len(report.PageGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(report.PageGroups))
	}
}

func TestGroupPagesPartialInfoSuggestsOnce(t *testing.T) {
	svc := NewMultiPageDetectionService()

	report := svc.GroupPages([]*model.ExtractionResult{
		pageResult("a_page_1.pdf", "MATH-101", "", ""),
		pageResult("a_page_2.pdf", "MATH-101", "", ""),
	})

	if len(report.Suggestions) != 1 {
		t.Fatalf("expected one deduplicated suggestion, got %d", len(report.Suggestions))
	}
	if report.Suggestions[0].ExamID != "MATH-101" {
		t.Fatalf("unexpected suggestion: %+v", report.Suggestions[0])
	}
	if report.Suggestions[0].Confidence >= 0.9 {
		t.Fatalf("suggestion must carry reduced confidence, got %v", report.Suggestions[0].Confidence)
	}

	if len(report.PageGroups) != 1 {
		t.Fatalf("expected partial-info files grouped together, got %d groups", len(report.PageGroups))
	}
	group := report.PageGroups[0]
	if group.ExamID != "MATH-101" {
		t.Fatalf("expected detected exam ID kept, got %q", group.ExamID)
	}
	if !group.Inferred {
		t.Fatal("backfilled student identity must be flagged inferred")
	}
	if group.StudentName == model.NoStudentSentinel {
		t.Fatal("expected placeholder student name backfilled")
	}
}

func TestDetectPageNumberPatterns(t *testing.T) {
	cases := []struct {
		fileName string
		text     string
		want     int
	}{
		{"smith_page_3.pdf", "", 3},
		{"smith_p-2.pdf", "", 2},
		{"smith_4.pdf", "", 4},
		{"smith (5).pdf", "", 5},
		{"smith.pdf", "continued\nPage 7\nmore answers", 7},
		{"smith.pdf", "answers\n2\n", 2},
		{"smith.pdf", "no page cues anywhere", 1},
		{"smith_page_400.pdf", "", 1}, // out of the 1-99 range
	}

	for _, tc := range cases {
		if got := DetectPageNumber(tc.fileName, tc.text); got != tc.want {
			t.Errorf("DetectPageNumber(%q, %q) = %d, want %d", tc.fileName, tc.text, got, tc.want)
		}
	}
}
