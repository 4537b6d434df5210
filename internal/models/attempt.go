package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
)

// ExamAttempt is one timed mock-exam session. There is no abandoned or
// expired state: an attempt stays IN_PROGRESS until explicitly completed,
// and the time limit is advisory only.
type ExamAttempt struct {
	ID     uint          `json:"id" gorm:"primaryKey"`
	UserID string        `json:"user_id" gorm:"not null;index;size:255"`
	ExamID uint          `json:"exam_id" gorm:"not null;index"`
	Status AttemptStatus `json:"status" gorm:"default:IN_PROGRESS;index"`

	// Snapshot of the exam blueprint at start time
	QuestionCount   int `json:"question_count" gorm:"not null"`
	DurationMinutes int `json:"duration_minutes" gorm:"not null"`

	// Answer-option order is fixed per attempt with this seed
	OptionShuffleSeed int64 `json:"-" gorm:"not null"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null;index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Set only on completion
	Score  *int  `json:"score,omitempty"`  // 0-100
	Passed *bool `json:"passed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam      *Exam                 `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Questions []ExamAttemptQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamAttemptID"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// IsCompleted reports whether the attempt reached its terminal state.
func (a *ExamAttempt) IsCompleted() bool {
	return a.Status == AttemptCompleted
}

// TimeRemainingMinutes derives the advisory countdown at the given instant,
// ceiling-rounded and clamped at zero. Never stored.
func (a *ExamAttempt) TimeRemainingMinutes(now time.Time) int {
	deadline := a.StartedAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute > 0 {
		minutes++
	}
	return minutes
}

// ExamAttemptQuestion fixes one question's position within an attempt.
// SortOrder is assigned once at start and never recomputed, so the
// rendered question order is stable across reads even when the bank's
// active set changes later.
type ExamAttemptQuestion struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	ExamAttemptID uint `json:"exam_attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID    uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	SortOrder     int  `json:"sort_order" gorm:"not null"`

	// Points at the latest UserAnswer for this question; re-pointed on
	// overwrite submissions
	UserAnswerID *uint `json:"user_answer_id,omitempty"`
	IsFlagged    bool  `json:"is_flagged" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Question   *Question   `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	UserAnswer *UserAnswer `json:"user_answer,omitempty" gorm:"foreignKey:UserAnswerID"`
}

func (ExamAttemptQuestion) TableName() string {
	return "exam_attempt_questions"
}
