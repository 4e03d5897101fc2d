package services

import (
	"testing"

	"github.com/gradeflow/gradeflow/model"
)

func TestBuildStudentEntriesMergesGroupPages(t *testing.T) {
	results := []*model.ExtractionResult{
		{
			FileName: "doe_page_1.pdf",
			Structured: model.StructuredData{
				Questions: []model.ParsedQuestion{{QuestionNumber: 1, Answer: "A"}, {QuestionNumber: 2, Answer: "B"}},
			},
		},
		{
			FileName: "doe_page_2.pdf",
			Structured: model.StructuredData{
				Questions: []model.ParsedQuestion{{QuestionNumber: 3, Answer: "C"}},
			},
		},
	}
	grouping := &model.GroupingReport{
		PageGroups: []model.PageGroup{{
			GroupID:     "MATH-101::Jane Doe",
			ExamID:      "MATH-101",
			StudentName: "Jane Doe",
			Pages: []model.PageRef{
				{PageNumber: 1, FileName: "doe_page_1.pdf"},
				{PageNumber: 2, FileName: "doe_page_2.pdf"},
			},
		}},
	}

	entries := buildStudentEntries(results, grouping)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.StudentID != "Jane Doe" || entry.ExamID != "MATH-101" {
		t.Fatalf("unexpected identity: %+v", entry)
	}
	if len(entry.Results) != 3 {
		t.Fatalf("expected questions merged across pages, got %d", len(entry.Results))
	}
}

func TestBuildStudentEntriesDropsInferredIdentity(t *testing.T) {
	grouping := &model.GroupingReport{
		PageGroups: []model.PageGroup{{
			GroupID:     "MATH-101::NO_STUDENT",
			ExamID:      "MATH-101",
			StudentName: "Inferred_doe_page_1",
			Inferred:    true,
			Pages:       []model.PageRef{{PageNumber: 1, FileName: "doe_page_1.pdf"}},
		}},
	}

	entries := buildStudentEntries(nil, grouping)
	if entries[0].StudentID != "" {
		t.Fatalf("inferred placeholder must not pass as a detected student ID, got %q", entries[0].StudentID)
	}
	if entries[0].ExamID != "MATH-101" {
		t.Fatalf("detected exam ID must survive, got %q", entries[0].ExamID)
	}
}
