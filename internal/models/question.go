package models

import (
	"time"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
)

type Question struct {
	ID      uint         `json:"id" gorm:"primaryKey"`
	ExamID  uint         `json:"exam_id" gorm:"not null;index"`
	TopicID uint         `json:"topic_id" gorm:"not null;index"`
	Type    QuestionType `json:"type" gorm:"not null;default:SINGLE_CHOICE" validate:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE"`

	Content     string  `json:"content" gorm:"type:text;not null" validate:"required"`
	CodeSnippet *string `json:"code_snippet,omitempty" gorm:"type:text"`

	// Ordinal 1 (easiest) to 5 (hardest)
	Difficulty int `json:"difficulty" gorm:"default:3;index" validate:"min=1,max=5"`

	Explanation  string  `json:"explanation" gorm:"type:text"`
	ReferenceURL *string `json:"reference_url,omitempty" gorm:"size:500"`

	IsPremium bool `json:"is_premium" gorm:"default:false;index"`
	IsActive  bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    *Exam    `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Topic   *Topic   `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectAnswerIDs returns the ids of all answers marked correct.
func (q *Question) CorrectAnswerIDs() []uint {
	ids := make([]uint, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// HasAnswer reports whether the given answer id belongs to this question.
func (q *Question) HasAnswer(answerID uint) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// Answer ids are never reused: rows are only ever added, soft-retired via
// the owning question's IsActive flag, and referenced from userAnswers by id.
type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Content    string `json:"content" gorm:"type:text;not null" validate:"required"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	SortOrder  int    `json:"sort_order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
}

func (Answer) TableName() string {
	return "answers"
}
