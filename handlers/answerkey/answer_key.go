package answerkey

import (
	"log"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/model"
	"github.com/gradeflow/gradeflow/utils/response"
	"github.com/gradeflow/gradeflow/utils/validation"
)

// KeyCountInvalidator drops a cached expected-question count after an exam's
// answer key changes
type KeyCountInvalidator interface {
	Invalidate(examID string)
}

// AnswerKeyHandler handles answer key API endpoints
type AnswerKeyHandler struct {
	store     *database.AnswerKeyStore
	counts    KeyCountInvalidator
	validator *validation.Validator
}

// NewAnswerKeyHandler creates a new answer key handler
func NewAnswerKeyHandler(store *database.AnswerKeyStore, counts KeyCountInvalidator, validator *validation.Validator) *AnswerKeyHandler {
	return &AnswerKeyHandler{
		store:     store,
		counts:    counts,
		validator: validator,
	}
}

// UpsertRequest is the payload for creating or replacing answer key entries
type UpsertRequest struct {
	ExamID  string               `json:"exam_id" validate:"required,min=3,max=40"`
	Entries []UpsertEntryRequest `json:"entries" validate:"required,min=1,max=500,dive"`
}

// UpsertEntryRequest is one question of an answer key payload
type UpsertEntryRequest struct {
	QuestionNumber int    `json:"question_number" validate:"required,gte=1,lte=500"`
	CorrectAnswer  string `json:"correct_answer" validate:"required,max=200"`
	Points         int    `json:"points" validate:"gte=0,lte=100"`
}

// formatFieldErrors flattens per-field messages for the error payload
func formatFieldErrors(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, msg := range fields {
		parts = append(parts, msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Upsert handles POST /api/v1/answer-keys
// Inserts or updates the answer key entries for one exam
func (h *AnswerKeyHandler) Upsert(c *fiber.Ctx) error {
	var req UpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, "Validation failed",
			"VALIDATION_ERROR", formatFieldErrors(validation.FormatValidationErrors(err)))
	}

	examID := strings.ToUpper(strings.TrimSpace(req.ExamID))

	entries := make([]model.AnswerKeyEntry, 0, len(req.Entries))
	seen := make(map[int]bool, len(req.Entries))
	for _, entry := range req.Entries {
		if seen[entry.QuestionNumber] {
			return response.BadRequest(c, "Duplicate question number in answer key")
		}
		seen[entry.QuestionNumber] = true

		points := entry.Points
		if points == 0 {
			points = 1
		}
		entries = append(entries, model.AnswerKeyEntry{
			ExamID:         examID,
			QuestionNumber: entry.QuestionNumber,
			CorrectAnswer:  entry.CorrectAnswer,
			Points:         points,
		})
	}

	if err := h.store.UpsertEntries(c.Context(), entries); err != nil {
		log.Printf("[ANSWER-KEY] upsert failed for %s: %v", examID, err)
		return response.InternalServerError(c, "Failed to store answer key")
	}

	// Later grading jobs must see the new key, not a cached count
	h.counts.Invalidate(examID)

	return response.Created(c, fiber.Map{
		"exam_id":        examID,
		"question_count": len(entries),
	})
}

// List handles GET /api/v1/answer-keys/:exam_id
// Returns all answer key entries for an exam
func (h *AnswerKeyHandler) List(c *fiber.Ctx) error {
	examID := strings.ToUpper(strings.TrimSpace(c.Params("exam_id")))
	if examID == "" {
		return response.BadRequest(c, "Exam ID is required")
	}

	entries, err := h.store.GetEntries(c.Context(), examID)
	if err != nil {
		log.Printf("[ANSWER-KEY] fetch failed for %s: %v", examID, err)
		return response.InternalServerError(c, "Failed to load answer key")
	}
	if len(entries) == 0 {
		return response.NotFound(c, "No answer key stored for this exam")
	}

	return response.Success(c, fiber.Map{
		"exam_id": examID,
		"entries": entries,
	})
}
