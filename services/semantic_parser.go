package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gradeflow/gradeflow/model"
	"github.com/gradeflow/gradeflow/services/inference"
	"github.com/gradeflow/gradeflow/utils"
)

// ParsedSheet is the semantic structure recovered from one scan's OCR text
type ParsedSheet struct {
	ExamID      string                 `json:"exam_id"`
	StudentName string                 `json:"student_name"`
	Questions   []model.ParsedQuestion `json:"questions"`
}

const sheetParseSystemPrompt = `You are a strict parser for scanned, OCR'd test papers.
Given raw OCR text, return ONLY a JSON object with this shape:
{"exam_id": string or "", "student_name": string or "", "questions": [{"question_number": int, "answer": string, "confidence": number}]}
Rules:
- exam_id: the exam/test identifier printed on the paper, "" if absent.
- student_name: the student's full name as written, "" if absent.
- questions: one entry per answered question, question_number starting at 1.
- Never invent values. Use "" or omit entries rather than guessing.`

// LLMSheetParser recovers exam structure from OCR text via the inference API
type LLMSheetParser struct {
	client *inference.Client
}

// NewLLMSheetParser creates a new LLM-backed sheet parser
func NewLLMSheetParser(client *inference.Client) *LLMSheetParser {
	return &LLMSheetParser{client: client}
}

// Ready reports whether the inference credential is bound. A missing key is a
// configuration failure that aborts batches up front, unlike transient parse
// failures which degrade per file.
func (p *LLMSheetParser) Ready() error {
	if !p.client.Configured() {
		return errors.New("inference API key not configured")
	}
	return nil
}

// Parse submits OCR text for structuring. Callers treat failures as
// degradation, not fatal errors.
func (p *LLMSheetParser) Parse(ctx context.Context, text string) (*ParsedSheet, error) {
	if !p.client.Configured() {
		return nil, fmt.Errorf("inference API key not configured")
	}

	// Very long OCR text gets truncated; identification headers are at the top
	const maxPromptChars = 24000
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	messages := []inference.Message{
		{Role: "system", Content: sheetParseSystemPrompt},
		{Role: "user", Content: "OCR text:\n\n" + text},
	}

	raw, err := p.client.ChatCompletion(ctx, messages, true)
	if err != nil {
		return nil, fmt.Errorf("sheet parsing failed: %w", err)
	}

	var sheet ParsedSheet
	if err := utils.ExtractJSONTo(raw, &sheet); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	sheet.ExamID = strings.TrimSpace(sheet.ExamID)
	sheet.StudentName = strings.TrimSpace(sheet.StudentName)

	return &sheet, nil
}
