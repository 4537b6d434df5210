package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/prepstack/examprep-service/internal/cache"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// AttemptPostgreSQL implements AttemptRepository. Attempts are not cached:
// the answered/flagged state changes on nearly every request while the
// attempt is live.
type AttemptPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db, cacheManager: cacheManager}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := a.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt %d: %w", id, err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Preload("Exam").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_attempt_questions.sort_order ASC")
		}).
		Preload("Questions.Question").
		Preload("Questions.Question.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.sort_order ASC")
		}).
		Preload("Questions.UserAnswer").
		First(&attempt, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt %d with questions: %w", id, err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, error) {
	var attempts []*models.ExamAttempt

	query := a.db.WithContext(ctx).
		Preload("Exam").
		Where("user_id = ?", userID)

	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "started_at"
	}
	sortOrder := filters.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts for user %s: %w", userID, err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) CreateQuestions(ctx context.Context, questions []*models.ExamAttemptQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	if err := a.db.WithContext(ctx).Create(&questions).Error; err != nil {
		return fmt.Errorf("failed to create attempt questions: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetQuestion(ctx context.Context, attemptID, questionID uint) (*models.ExamAttemptQuestion, error) {
	var question models.ExamAttemptQuestion
	if err := a.db.WithContext(ctx).
		Where("exam_attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&question).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt question: %w", err)
	}
	return &question, nil
}

func (a *AttemptPostgreSQL) LinkAnswer(ctx context.Context, attemptQuestionID, userAnswerID uint) error {
	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttemptQuestion{}).
		Where("id = ?", attemptQuestionID).
		Update("user_answer_id", userAnswerID).Error; err != nil {
		return fmt.Errorf("failed to link answer: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) SetFlag(ctx context.Context, attemptQuestionID uint, isFlagged bool) error {
	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttemptQuestion{}).
		Where("id = ?", attemptQuestionID).
		Update("is_flagged", isFlagged).Error; err != nil {
		return fmt.Errorf("failed to set flag: %w", err)
	}
	return nil
}
