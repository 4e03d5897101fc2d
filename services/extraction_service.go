package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gradeflow/gradeflow/model"
)

// ErrExtractionFailed wraps fatal per-file extraction failures
var ErrExtractionFailed = errors.New("extraction failed")

// ErrExtractionNotConfigured means a required capability binding is missing.
// This is fatal to the whole batch, not to a single file.
var ErrExtractionNotConfigured = errors.New("extraction service not configured")

// Breaker service names, one breaker instance per external dependency
const (
	BreakerOCR       = "ocr"
	BreakerDetection = "detection"
	BreakerInference = "inference"
)

// Confidence assigned to a result depending on whether the deterministic
// pattern pass found an exam ID in the OCR text
const (
	ConfidenceExamIDMatched = 0.9
	ConfidenceNoExamID      = 0.6
)

// OcrCapability extracts raw text from scan bytes
type OcrCapability interface {
	ExtractText(ctx context.Context, imageBytes []byte, filename string) (*OCRResponse, error)
}

// StructureDetectionCapability detects bubble/mark structure on a scan
type StructureDetectionCapability interface {
	Detect(ctx context.Context, imageBytes []byte, filename string) (*model.DetectionSummary, error)
}

// SemanticParseCapability recovers exam structure from OCR text
type SemanticParseCapability interface {
	Parse(ctx context.Context, text string) (*ParsedSheet, error)
}

// DocumentExtractionService drives one scan through OCR, structure detection
// and semantic parsing, each stage guarded by its own circuit breaker. Only
// the OCR stage is fatal for the file; the rest degrade.
type DocumentExtractionService struct {
	ocr      OcrCapability
	detector StructureDetectionCapability
	parser   SemanticParseCapability
	breakers *BreakerSet
}

// NewDocumentExtractionService creates a new extraction service
func NewDocumentExtractionService(ocr OcrCapability, detector StructureDetectionCapability, parser SemanticParseCapability, breakers *BreakerSet) *DocumentExtractionService {
	return &DocumentExtractionService{
		ocr:      ocr,
		detector: detector,
		parser:   parser,
		breakers: breakers,
	}
}

// Ready reports whether the required capability bindings are present.
// OCR and semantic parsing are required for batch grading; detection is the
// only optional stage.
func (s *DocumentExtractionService) Ready() error {
	if s.ocr == nil {
		return fmt.Errorf("%w: OCR capability missing", ErrExtractionNotConfigured)
	}
	if s.breakers == nil {
		return fmt.Errorf("%w: breaker set missing", ErrExtractionNotConfigured)
	}
	if s.parser == nil {
		return fmt.Errorf("%w: semantic parse capability missing", ErrExtractionNotConfigured)
	}
	if probe, ok := s.parser.(interface{ Ready() error }); ok {
		if err := probe.Ready(); err != nil {
			return fmt.Errorf("%w: %v", ErrExtractionNotConfigured, err)
		}
	}
	return nil
}

// Extract produces an ExtractionResult for one scan file
func (s *DocumentExtractionService) Extract(ctx context.Context, file model.FileInput) (*model.ExtractionResult, error) {
	result := &model.ExtractionResult{
		FileName:    file.FileName,
		ProcessedAt: time.Now(),
	}

	// Stage 1: OCR. Fatal when the call fails or the breaker is open.
	var ocrResp *OCRResponse
	err := s.breakers.Get(BreakerOCR).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		ocrResp, opErr = s.ocr.ExtractText(ctx, file.RawBytes, file.FileName)
		return opErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, file.FileName, err)
	}
	result.ExtractedText = ocrResp.Text
	result.Structured.Pages = ocrResp.PageCount
	result.Stages = append(result.Stages, model.StageOutcome{Stage: "ocr", Status: model.StageOK})

	// Stage 2: bubble/mark detection. Best-effort; never aborts the pipeline.
	if s.detector != nil {
		var detection *model.DetectionSummary
		err = s.breakers.Get(BreakerDetection).Execute(ctx, func(ctx context.Context) error {
			var opErr error
			detection, opErr = s.detector.Detect(ctx, file.RawBytes, file.FileName)
			return opErr
		})
		if err != nil {
			log.Printf("Warning: detection unavailable for %s: %v", file.FileName, err)
			result.Stages = append(result.Stages, model.StageOutcome{
				Stage:  "detection",
				Status: model.StageDegraded,
				Reason: "detection unavailable",
			})
		} else {
			result.Detection = detection
			result.Stages = append(result.Stages, model.StageOutcome{Stage: "detection", Status: model.StageOK})
		}
	} else {
		result.Stages = append(result.Stages, model.StageOutcome{
			Stage:  "detection",
			Status: model.StageDegraded,
			Reason: "detection unavailable",
		})
	}

	// Stage 3: semantic parsing. Best-effort; on failure the result keeps
	// empty identification and no structured questions.
	if s.parser != nil {
		var sheet *ParsedSheet
		err = s.breakers.Get(BreakerInference).Execute(ctx, func(ctx context.Context) error {
			var opErr error
			sheet, opErr = s.parser.Parse(ctx, ocrResp.Text)
			return opErr
		})
		if err != nil {
			log.Printf("Warning: semantic parsing failed for %s: %v", file.FileName, err)
			result.Stages = append(result.Stages, model.StageOutcome{
				Stage:  "parse",
				Status: model.StageDegraded,
				Reason: err.Error(),
			})
		} else {
			result.ExamID = sheet.ExamID
			result.StudentName = sheet.StudentName
			result.Structured.Questions = sheet.Questions
			result.Stages = append(result.Stages, model.StageOutcome{Stage: "parse", Status: model.StageOK})
		}
	} else {
		result.Stages = append(result.Stages, model.StageOutcome{
			Stage:  "parse",
			Status: model.StageDegraded,
			Reason: "semantic parsing unavailable",
		})
	}

	// Stage 4: deterministic pattern pass over the OCR text, used both as a
	// fallback and as the confidence signal for page grouping.
	patternExamID := DetectExamID(ocrResp.Text)
	if result.ExamID == "" {
		result.ExamID = patternExamID
	}
	if result.StudentName == "" {
		result.StudentName = DetectStudentName(ocrResp.Text)
	}

	if patternExamID != "" {
		result.Confidence = ConfidenceExamIDMatched
	} else {
		result.Confidence = ConfidenceNoExamID
	}

	return result, nil
}

// Exam ID patterns, tried in priority order; first match wins
var examIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*exam[ \t]*id[ \t]*[:#-]?[ \t]*([A-Za-z0-9][A-Za-z0-9_-]{2,19})`),
	regexp.MustCompile(`(?im)^[ \t]*test[ \t]*id[ \t]*[:#-]?[ \t]*([A-Za-z0-9][A-Za-z0-9_-]{2,19})`),
	regexp.MustCompile(`(?i)\bexam\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9_-]{2,19})`),
	regexp.MustCompile(`\b(EXAM[-_][A-Z0-9][A-Z0-9-]{1,15})\b`),
}

// Student name patterns, tried in priority order; first plausible match wins
var studentNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*student[ \t]*name[ \t]*[:#-]?[ \t]*([^\r\n]+)`),
	regexp.MustCompile(`(?im)^[ \t]*name[ \t]*[:#][ \t]*([^\r\n]+)`),
	regexp.MustCompile(`(?im)^[ \t]*student[ \t]*[:#][ \t]*([^\r\n]+)`),
}

// DetectExamID runs the ordered exam ID patterns over OCR text
func DetectExamID(text string) string {
	for _, re := range examIDPatterns {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			return strings.ToUpper(strings.TrimSpace(m[1]))
		}
	}
	return ""
}

// DetectStudentName runs the ordered name patterns over OCR text, keeping
// only plausible full names
func DetectStudentName(text string) string {
	for _, re := range studentNamePatterns {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			candidate := strings.TrimSpace(m[1])
			if isPlausibleName(candidate) {
				return candidate
			}
		}
	}
	return ""
}

var nameCharset = regexp.MustCompile(`^[A-Za-z .'-]+$`)

// isPlausibleName accepts 2-4 whitespace-separated tokens, total length 5-50,
// containing only letters, spaces, hyphens, apostrophes and periods
func isPlausibleName(s string) bool {
	if len(s) < 5 || len(s) > 50 {
		return false
	}
	if !nameCharset.MatchString(s) {
		return false
	}
	tokens := strings.Fields(s)
	return len(tokens) >= 2 && len(tokens) <= 4
}
