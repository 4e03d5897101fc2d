package model

// Sentinels used in grouping keys when a scan carries partial identification
const (
	NoExamSentinel    = "NO_EXAM"
	NoStudentSentinel = "NO_STUDENT"
)

// PageRef is one page placed inside a page group
type PageRef struct {
	PageNumber int     `json:"page_number"`
	FileName   string  `json:"file_name"`
	Confidence float64 `json:"confidence"`
}

// PageGroup is the set of scanned pages believed to belong to one student's
// one exam submission. Pages are kept sorted ascending by page number.
type PageGroup struct {
	GroupID     string    `json:"group_id"`
	ExamID      string    `json:"exam_id"`
	StudentName string    `json:"student_name"`
	Pages       []PageRef `json:"pages"`
	IsComplete  bool      `json:"is_complete"`
	Inferred    bool      `json:"inferred,omitempty"` // identity backfilled heuristically, not detected
}

// GroupSuggestion is a low-confidence hint for a file that could not be
// grouped outright but carries partial identification
type GroupSuggestion struct {
	ExamID      string  `json:"exam_id,omitempty"`
	StudentName string  `json:"student_name,omitempty"`
	FileName    string  `json:"file_name"`
	Confidence  float64 `json:"confidence"`
}

// GroupingReport is the output of multi-page detection over a batch
type GroupingReport struct {
	PageGroups     []PageGroup       `json:"page_groups"`
	UngroupedFiles []string          `json:"ungrouped_files"`
	Suggestions    []GroupSuggestion `json:"suggestions"`
}
