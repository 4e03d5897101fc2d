package model

// ValidationStatus classifies how much of an exam a student's scans covered
type ValidationStatus string

const (
	ValidationComplete    ValidationStatus = "complete"
	ValidationPartial     ValidationStatus = "partial"
	ValidationIncomplete  ValidationStatus = "incomplete"
	ValidationNoAnswerKey ValidationStatus = "no_answer_key"
)

// Sentinels for batch entries missing identification
const (
	UnknownStudentSentinel = "Unknown_Student"
	UnknownExamSentinel    = "Unknown_Exam"
)

// ValidationResult compares one student's parsed results against an answer key
type ValidationResult struct {
	ExamID               string           `json:"exam_id"`
	StudentID            string           `json:"student_id,omitempty"`
	ExpectedQuestions    int              `json:"expected_questions"`
	ActualQuestions      int              `json:"actual_questions"`
	CompletionPercentage int              `json:"completion_percentage"`
	Status               ValidationStatus `json:"status"`
	IsComplete           bool             `json:"is_complete"`
	MissingQuestions     []int            `json:"missing_questions,omitempty"`
}

// StudentResults is one batch-validation input entry
type StudentResults struct {
	StudentID string           `json:"student_id,omitempty"`
	ExamID    string           `json:"exam_id,omitempty"`
	Results   []ParsedQuestion `json:"results"`
}

// BatchValidationSummary aggregates validation across a grading batch
type BatchValidationSummary struct {
	TotalStudents          int                         `json:"total_students"`
	CompleteStudents       int                         `json:"complete_students"`
	PartialStudents        int                         `json:"partial_students"`
	IncompleteStudents     int                         `json:"incomplete_students"`
	NoAnswerKeyStudents    int                         `json:"no_answer_key_students"`
	OverallSuccessRate     int                         `json:"overall_success_rate"`
	StudentIDDetectionRate int                         `json:"student_id_detection_rate"`
	ValidationResults      map[string]ValidationResult `json:"validation_results"`
	Recommendations        []string                    `json:"recommendations"`
}
