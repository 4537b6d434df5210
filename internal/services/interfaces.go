package services

import (
	"context"
	"io"
	"time"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptRequest struct {
	ExamType string `json:"exam_type" validate:"required,max=50"`
}

type StartAttemptResponse struct {
	AttemptID            uint                     `json:"attempt_id"`
	QuestionCount        int                      `json:"question_count"`
	DurationMinutes      int                      `json:"duration_minutes"`
	TimeRemainingMinutes int                      `json:"time_remaining_minutes"`
	FirstQuestion        *AttemptQuestionResponse `json:"first_question,omitempty"`
}

type AttemptResponse struct {
	*models.ExamAttempt
	TimeRemainingMinutes int                        `json:"time_remaining_minutes"`
	Questions            []*AttemptQuestionResponse `json:"questions,omitempty"`
}

type AttemptQuestionResponse struct {
	QuestionID        uint          `json:"question_id"`
	SortOrder         int           `json:"sort_order"`
	IsFlagged         bool          `json:"is_flagged"`
	IsAnswered        bool          `json:"is_answered"`
	SelectedAnswerIDs []uint        `json:"selected_answer_ids,omitempty"`
	Question          *QuestionView `json:"question"`
}

// QuestionView is the rendered question. Correctness markers and the
// explanation are stripped while the attempt is in progress.
type QuestionView struct {
	ID           uint                `json:"id"`
	TopicID      uint                `json:"topic_id"`
	Type         models.QuestionType `json:"type"`
	Content      string              `json:"content"`
	CodeSnippet  *string             `json:"code_snippet,omitempty"`
	Difficulty   int                 `json:"difficulty"`
	Explanation  string              `json:"explanation,omitempty"`
	ReferenceURL *string             `json:"reference_url,omitempty"`
	Answers      []AnswerView        `json:"answers"`
}

type AnswerView struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type SubmitExamAnswerRequest struct {
	QuestionID        uint   `json:"question_id" validate:"required"`
	SelectedAnswerIDs []uint `json:"selected_answer_ids" validate:"required,min=1"`
	TimeSpent         *int   `json:"time_spent" validate:"omitempty,min=0"`
}

type FlagQuestionRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	IsFlagged  bool `json:"is_flagged"`
}

type CompleteAttemptResponse struct {
	Score  int  `json:"score"`
	Passed bool `json:"passed"`
}

type AttemptHistoryEntry struct {
	ID              uint                 `json:"id"`
	ExamType        string               `json:"exam_type"`
	Status          models.AttemptStatus `json:"status"`
	QuestionCount   int                  `json:"question_count"`
	Score           *int                 `json:"score,omitempty"`
	Passed          *bool                `json:"passed,omitempty"`
	StartedAt       time.Time            `json:"started_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
}

// ===== PRACTICE RELATED DTOs =====

type PracticeQuestionsRequest struct {
	ExamType        string `json:"exam_type" validate:"required,max=50"`
	Topic           string `json:"topic" validate:"omitempty,max=100"` // slug or id
	Count           int    `json:"count" validate:"required,min=1,max=50"`
	Difficulty      *int   `json:"difficulty" validate:"omitempty,min=1,max=5"`
	ExcludeAnswered bool   `json:"exclude_answered"`
}

type PracticeSubmitRequest struct {
	QuestionID        uint   `json:"question_id" validate:"required"`
	SelectedAnswerIDs []uint `json:"selected_answer_ids" validate:"required,min=1"`
	TimeSpent         *int   `json:"time_spent" validate:"omitempty,min=0"`
}

// SubmissionResult is returned on every scored practice answer.
type SubmissionResult struct {
	IsCorrect        bool    `json:"is_correct"`
	CorrectAnswerIDs []uint  `json:"correct_answer_ids"`
	Explanation      string  `json:"explanation"`
	ReferenceURL     *string `json:"reference_url,omitempty"`
}

type TopicWithProgress struct {
	*models.Topic
	Progress *TopicProgressSummary `json:"progress,omitempty"`
}

type TopicProgressSummary struct {
	QuestionsAttempted int        `json:"questions_attempted"`
	QuestionsCorrect   int        `json:"questions_correct"`
	AccuracyPercentage float64    `json:"accuracy_percentage"`
	LastPracticedAt    *time.Time `json:"last_practiced_at,omitempty"`
}

// ===== PROGRESS RELATED DTOs =====

type ProgressOverviewResponse struct {
	ExamType        string                  `json:"exam_type"`
	TotalAttempted  int                     `json:"total_attempted"`
	TotalCorrect    int                     `json:"total_correct"`
	OverallAccuracy float64                 `json:"overall_accuracy"`
	Topics          []*TopicProgressDetail  `json:"topics"`
}

type TopicProgressDetail struct {
	TopicID            uint       `json:"topic_id"`
	TopicName          string     `json:"topic_name"`
	TopicSlug          string     `json:"topic_slug"`
	QuestionsAttempted int        `json:"questions_attempted"`
	QuestionsCorrect   int        `json:"questions_correct"`
	AccuracyPercentage float64    `json:"accuracy_percentage"`
	LastPracticedAt    *time.Time `json:"last_practiced_at,omitempty"`
}

type ReadinessResponse struct {
	ExamType string `json:"exam_type"`
	Score    int    `json:"score"` // 0-100, pass-probability proxy
}

type SubscriptionStatusResponse struct {
	Status            models.SubscriptionStatus `json:"status"`
	Plan              string                    `json:"plan"`
	Tier              models.UserTier           `json:"tier"`
	CurrentPeriodEnd  *time.Time                `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool                      `json:"cancel_at_period_end"`
}

// ===== QUESTION BANK (ADMIN) DTOs =====

type CreateExamRequest struct {
	Type            string `json:"type" validate:"required,max=50"`
	Name            string `json:"name" validate:"required,max=200"`
	QuestionCount   int    `json:"question_count" validate:"required,min=1"`
	PassingScore    int    `json:"passing_score" validate:"min=0,max=100"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1"`
	IsActive        *bool  `json:"is_active"`
}

type UpdateExamRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=200"`
	QuestionCount   *int    `json:"question_count" validate:"omitempty,min=1"`
	PassingScore    *int    `json:"passing_score" validate:"omitempty,min=0,max=100"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=1"`
	IsActive        *bool   `json:"is_active"`
}

type CreateTopicRequest struct {
	ExamType  string `json:"exam_type" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"required,max=100,topic_ref"`
	Weight    int    `json:"weight" validate:"min=0,max=100"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type UpdateTopicRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=200"`
	Weight    *int    `json:"weight" validate:"omitempty,min=0,max=100"`
	SortOrder *int    `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

type CreateQuestionRequest struct {
	ExamType     string                `json:"exam_type" validate:"required,max=50"`
	Topic        string                `json:"topic" validate:"required,max=100"` // slug or id
	Type         models.QuestionType   `json:"type" validate:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE"`
	Content      string                `json:"content" validate:"required"`
	CodeSnippet  *string               `json:"code_snippet"`
	Difficulty   int                   `json:"difficulty" validate:"required,min=1,max=5"`
	Explanation  string                `json:"explanation"`
	ReferenceURL *string               `json:"reference_url" validate:"omitempty,url"`
	IsPremium    bool                  `json:"is_premium"`
	IsActive     *bool                 `json:"is_active"`
	Answers      []CreateAnswerRequest `json:"answers" validate:"required,min=2,max=10,dive"`
}

type CreateAnswerRequest struct {
	Content   string `json:"content" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
	SortOrder int    `json:"sort_order"`
}

type UpdateQuestionRequest struct {
	Content      *string               `json:"content" validate:"omitempty,min=1"`
	CodeSnippet  *string               `json:"code_snippet"`
	Difficulty   *int                  `json:"difficulty" validate:"omitempty,min=1,max=5"`
	Explanation  *string               `json:"explanation"`
	ReferenceURL *string               `json:"reference_url" validate:"omitempty,url"`
	IsPremium    *bool                 `json:"is_premium"`
	IsActive     *bool                 `json:"is_active"`
	Answers      []CreateAnswerRequest `json:"answers" validate:"omitempty,min=2,max=10,dive"`
}

type ImportResult struct {
	TotalRows     int      `json:"total_rows"`
	ImportedRows  int      `json:"imported_rows"`
	SkippedRows   int      `json:"skipped_rows"`
	RowErrors     []string `json:"row_errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

// AttemptService owns the timed-exam lifecycle.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*StartAttemptResponse, error)
	GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitExamAnswerRequest, userID string) error
	FlagQuestion(ctx context.Context, attemptID uint, req *FlagQuestionRequest, userID string) error
	Complete(ctx context.Context, attemptID uint, userID string) (*CompleteAttemptResponse, error)
	GetHistory(ctx context.Context, userID string, examType string, limit int) ([]*AttemptHistoryEntry, error)
}

// PracticeService serves free-form practice sessions.
type PracticeService interface {
	GetTopics(ctx context.Context, examType string, userID string) ([]*TopicWithProgress, error)
	GetQuestions(ctx context.Context, req *PracticeQuestionsRequest, userID string) ([]*QuestionView, error)
	SubmitAnswer(ctx context.Context, req *PracticeSubmitRequest, userID string) (*SubmissionResult, error)
}

// ProgressService aggregates accuracy and derives readiness.
type ProgressService interface {
	GetOverview(ctx context.Context, examType string, userID string) (*ProgressOverviewResponse, error)
	GetTopicProgress(ctx context.Context, examType string, topicRef string, userID string) (*TopicProgressDetail, error)
	GetReadinessScore(ctx context.Context, examType string, userID string) (*ReadinessResponse, error)
	GetSubscriptionStatus(ctx context.Context, userID string) (*SubscriptionStatusResponse, error)
}

// QuestionBankService is the admin surface over reference data.
type QuestionBankService interface {
	CreateExam(ctx context.Context, req *CreateExamRequest) (*models.Exam, error)
	UpdateExam(ctx context.Context, examType string, req *UpdateExamRequest) (*models.Exam, error)
	ListExams(ctx context.Context) ([]*models.Exam, error)
	CreateTopic(ctx context.Context, req *CreateTopicRequest) (*models.Topic, error)
	UpdateTopic(ctx context.Context, topicID uint, req *UpdateTopicRequest) (*models.Topic, error)
	CreateQuestion(ctx context.Context, req *CreateQuestionRequest) (*models.Question, error)
	UpdateQuestion(ctx context.Context, questionID uint, req *UpdateQuestionRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, questionID uint) error
	GetQuestion(ctx context.Context, questionID uint) (*models.Question, error)
	ExportQuestions(ctx context.Context, examType string, w io.Writer) error
	ImportQuestions(ctx context.Context, examType string, r io.Reader) (*ImportResult, error)
}

// ServiceManager wires the services with their shared dependencies.
type ServiceManager interface {
	Attempt() AttemptService
	Practice() PracticeService
	Progress() ProgressService
	QuestionBank() QuestionBankService

	Repository() repositories.Repository

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
