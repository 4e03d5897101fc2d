package database

import (
	"context"
	"fmt"

	"github.com/gradeflow/gradeflow/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerKeyStore reads and writes per-exam answer keys in Postgres
type AnswerKeyStore struct {
	db *gorm.DB
}

// NewAnswerKeyStore creates a new answer key store
func NewAnswerKeyStore(db *gorm.DB) *AnswerKeyStore {
	return &AnswerKeyStore{db: db}
}

// GetQuestionNumbers returns the question numbers of an exam's answer key,
// ordered ascending. An exam with no key returns an empty slice, not an error.
func (s *AnswerKeyStore) GetQuestionNumbers(ctx context.Context, examID string) ([]int, error) {
	var numbers []int
	err := s.db.WithContext(ctx).
		Model(&model.AnswerKeyEntry{}).
		Where("exam_id = ?", examID).
		Order("question_number ASC").
		Pluck("question_number", &numbers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch answer key for exam %s: %w", examID, err)
	}
	return numbers, nil
}

// GetEntries returns all answer key entries for an exam, ordered by question
func (s *AnswerKeyStore) GetEntries(ctx context.Context, examID string) ([]model.AnswerKeyEntry, error) {
	var entries []model.AnswerKeyEntry
	err := s.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("question_number ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch answer key entries for exam %s: %w", examID, err)
	}
	return entries, nil
}

// UpsertEntries inserts or updates answer key entries for an exam
func (s *AnswerKeyStore) UpsertEntries(ctx context.Context, entries []model.AnswerKeyEntry) error {
	if len(entries) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exam_id"}, {Name: "question_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"correct_answer", "points", "updated_at"}),
		}).
		Create(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to upsert answer key entries: %w", err)
	}
	return nil
}
