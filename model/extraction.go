package model

import "time"

// StageStatus tags the outcome of one pipeline stage
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageDegraded StageStatus = "degraded"
	StageFatal    StageStatus = "fatal"
)

// StageOutcome records how a best-effort stage ended, so downstream code can
// tell "feature unavailable" apart from "succeeded with empty data"
type StageOutcome struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// FileInput is a single uploaded scan supplied by the caller
type FileInput struct {
	FileName string
	RawBytes []byte
}

// ParsedQuestion is one question/answer pair recovered from a scan
type ParsedQuestion struct {
	QuestionNumber int     `json:"question_number"`
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// DetectionSummary is the output of the bubble/mark detection stage
type DetectionSummary struct {
	MarkCount  int      `json:"mark_count"`
	Detections []string `json:"detections,omitempty"`
}

// StructuredData holds the semantic structure recovered from OCR text
type StructuredData struct {
	Pages            int                `json:"pages"`
	Questions        []ParsedQuestion   `json:"questions"`
	Answers          map[string]string  `json:"answers,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
}

// ExtractionResult is the immutable output of processing one scan file
type ExtractionResult struct {
	FileName      string            `json:"file_name"`
	ExtractedText string            `json:"extracted_text"`
	ExamID        string            `json:"exam_id,omitempty"`      // empty when not detected
	StudentName   string            `json:"student_name,omitempty"` // empty when not detected
	Confidence    float64           `json:"confidence"`
	Structured    StructuredData    `json:"structured"`
	Detection     *DetectionSummary `json:"detection,omitempty"`
	Stages        []StageOutcome    `json:"stages,omitempty"`
	FromCache     bool              `json:"from_cache,omitempty"`
	ProcessedAt   time.Time         `json:"processed_at"`
}
