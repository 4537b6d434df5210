package models

import (
	"time"
)

type Exam struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Type string `json:"type" gorm:"uniqueIndex;not null;size:50" validate:"required"` // e.g. "PD1"
	Name string `json:"name" gorm:"not null;size:200" validate:"required,max=200"`

	// Blueprint
	QuestionCount   int  `json:"question_count" gorm:"not null" validate:"min=1"`
	PassingScore    int  `json:"passing_score" gorm:"not null" validate:"min=0,max=100"` // percent
	DurationMinutes int  `json:"duration_minutes" gorm:"not null" validate:"min=1"`
	IsActive        bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Topics []Topic `json:"topics,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

type Topic struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	ExamID uint   `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_exam_slug"`
	Name   string `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	Slug   string `json:"slug" gorm:"not null;size:100;uniqueIndex:idx_exam_slug" validate:"required,max=100"`

	// Blueprint weight in percent, informational only
	Weight    int  `json:"weight" gorm:"default:0" validate:"min=0,max=100"`
	SortOrder int  `json:"sort_order" gorm:"default:0"`
	IsActive  bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam      *Exam      `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:TopicID"`
}

func (Topic) TableName() string {
	return "topics"
}
