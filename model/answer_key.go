package model

import "time"

// AnswerKeyEntry is one question of an exam's authoritative answer key
type AnswerKeyEntry struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ExamID         string    `json:"exam_id" gorm:"index:idx_answer_key_exam_question,unique;not null"`
	QuestionNumber int       `json:"question_number" gorm:"index:idx_answer_key_exam_question,unique;not null"`
	CorrectAnswer  string    `json:"correct_answer" gorm:"not null"`
	Points         int       `json:"points" gorm:"default:1"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
