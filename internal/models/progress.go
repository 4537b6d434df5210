package models

import (
	"time"

	"gorm.io/datatypes"
)

type AnswerContext string

const (
	ContextPractice AnswerContext = "PRACTICE"
	ContextExam     AnswerContext = "EXAM"
)

// UserAnswer is an immutable record of one submission. Rows are only ever
// appended; overwriting an exam answer appends a new row and re-points the
// attempt-question link.
type UserAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	UserID     string `json:"user_id" gorm:"not null;index:idx_user_question;size:255"`
	QuestionID uint   `json:"question_id" gorm:"not null;index:idx_user_question"`

	// Set semantics, order irrelevant; stored de-duplicated
	SelectedAnswerIDs datatypes.JSONSlice[uint] `json:"selected_answer_ids" gorm:"type:jsonb"`

	// Computed at submission time, frozen thereafter
	IsCorrect bool `json:"is_correct" gorm:"not null"`

	Context       AnswerContext `json:"context" gorm:"not null;index"`
	ExamAttemptID *uint         `json:"exam_attempt_id,omitempty" gorm:"index"`
	AnsweredAt    time.Time     `json:"answered_at" gorm:"not null;index"`
	TimeSpent     *int          `json:"time_spent,omitempty"` // seconds

	// Relations
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}

// UserProgress keeps running accuracy counters per (user, exam, topic).
// AccuracyPercentage is always recomputed from the counters in the same
// write; it never drifts from them. Rows are created on first answer and
// never deleted.
type UserProgress struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_exam_topic"`
	ExamID  uint   `json:"exam_id" gorm:"not null;uniqueIndex:idx_user_exam_topic"`
	TopicID uint   `json:"topic_id" gorm:"not null;uniqueIndex:idx_user_exam_topic"`

	QuestionsAttempted int     `json:"questions_attempted" gorm:"not null;default:0"`
	QuestionsCorrect   int     `json:"questions_correct" gorm:"not null;default:0"`
	AccuracyPercentage float64 `json:"accuracy_percentage" gorm:"not null;default:0"` // 2 decimals

	LastPracticedAt time.Time `json:"last_practiced_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Topic *Topic `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
