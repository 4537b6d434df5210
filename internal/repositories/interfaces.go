package repositories

import (
	"context"
	"time"

	"github.com/prepstack/examprep-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	ExamID         uint   `json:"exam_id"`
	TopicID        *uint  `json:"topic_id"`
	Difficulty     *int   `json:"difficulty"`
	IncludePremium bool   `json:"include_premium"`
	ExcludeIDs     []uint `json:"exclude_ids"`
}

type AttemptFilters struct {
	ExamID    *uint                 `json:"exam_id"`
	Status    *models.AttemptStatus `json:"status"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "started_at", "completed_at"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

type ExamFilters struct {
	ActiveOnly bool `json:"active_only"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ProgressTotals struct {
	TotalAttempted int `json:"total_attempted"`
	TotalCorrect   int `json:"total_correct"`
}

// ===== ENTITY REPOSITORIES =====

type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByType(ctx context.Context, examType string) (*models.Exam, error)
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, error)
}

type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, id uint) (*models.Topic, error)
	GetBySlug(ctx context.Context, examID uint, slug string) (*models.Topic, error)
	ListByExam(ctx context.Context, examID uint, activeOnly bool) ([]*models.Topic, error)
}

type QuestionRepository interface {
	// Create persists the question together with its answers
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	ListPool(ctx context.Context, filters QuestionFilters) ([]*models.Question, error)
	ListByExam(ctx context.Context, examID uint) ([]*models.Question, error)
	ReplaceAnswers(ctx context.Context, questionID uint, answers []models.Answer) error
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	Update(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error)
	// GetWithQuestions preloads attempt questions ordered by sort_order,
	// each joined with full question and answer content
	GetWithQuestions(ctx context.Context, id uint) (*models.ExamAttempt, error)
	ListByUser(ctx context.Context, userID string, filters AttemptFilters) ([]*models.ExamAttempt, error)
	CreateQuestions(ctx context.Context, questions []*models.ExamAttemptQuestion) error
	GetQuestion(ctx context.Context, attemptID, questionID uint) (*models.ExamAttemptQuestion, error)
	LinkAnswer(ctx context.Context, attemptQuestionID, userAnswerID uint) error
	SetFlag(ctx context.Context, attemptQuestionID uint, isFlagged bool) error
}

type UserAnswerRepository interface {
	Create(ctx context.Context, answer *models.UserAnswer) error
	ListByAttempt(ctx context.Context, attemptID uint) ([]*models.UserAnswer, error)
	// AnsweredQuestionIDs returns ids of every question the user has
	// answered for the exam, across both contexts
	AnsweredQuestionIDs(ctx context.Context, userID string, examID uint) ([]uint, error)
}

type ProgressRepository interface {
	// RecordAnswer upserts the (user, exam, topic) row atomically:
	// counters are incremented and accuracy recomputed in one statement,
	// so concurrent submissions for the same topic never lose updates.
	RecordAnswer(ctx context.Context, userID string, examID, topicID uint, isCorrect bool, answeredAt time.Time) (*models.UserProgress, error)
	Get(ctx context.Context, userID string, examID, topicID uint) (*models.UserProgress, error)
	ListByUserAndExam(ctx context.Context, userID string, examID uint) ([]*models.UserProgress, error)
	Totals(ctx context.Context, userID string, examID uint) (*ProgressTotals, error)
}

type SubscriptionRepository interface {
	// GetByUserID returns nil without error when the user has no
	// subscription row (free tier)
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetRole(ctx context.Context, id string) (models.UserRole, error)
	Exists(ctx context.Context, id string) (bool, error)
}
