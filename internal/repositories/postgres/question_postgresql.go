package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/prepstack/examprep-service/internal/cache"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// QuestionPostgreSQL implements QuestionRepository
type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	// Answers ride along through the association
	if err := r.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	cache.InvalidateQuestionCache(ctx, r.cacheManager, question.ID, question.ExamID)
	return nil
}

func (r *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	if err := r.db.WithContext(ctx).Omit("Answers").Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	cache.InvalidateQuestionCache(ctx, r.cacheManager, question.ID, question.ExamID)
	return nil
}

func (r *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	question, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Where("question_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
		return fmt.Errorf("failed to delete answers for question %d: %w", id, err)
	}
	if err := r.db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question %d: %w", id, err)
	}
	cache.InvalidateQuestionCache(ctx, r.cacheManager, id, question.ExamID)
	return nil
}

func (r *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	cacheKey := fmt.Sprintf("id:%d", id)

	err := r.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var fetched models.Question
		if err := r.db.WithContext(ctx).
			Preload("Answers", func(db *gorm.DB) *gorm.DB {
				return db.Order("answers.sort_order ASC")
			}).
			First(&fetched, id).Error; err != nil {
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &question, nil
}

// ListPool loads the filtered candidate set for selection. Shuffling and
// truncation happen in the service layer; the pool is bounded (hundreds of
// rows per exam) so loading it whole is fine.
func (r *QuestionPostgreSQL) ListPool(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, error) {
	var questions []*models.Question

	query := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.sort_order ASC")
		}).
		Where("exam_id = ? AND is_active = ?", filters.ExamID, true)

	if filters.TopicID != nil {
		query = query.Where("topic_id = ?", *filters.TopicID)
	}
	if !filters.IncludePremium {
		query = query.Where("is_premium = ?", false)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if len(filters.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filters.ExcludeIDs)
	}

	if err := query.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list question pool: %w", err)
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.sort_order ASC")
		}).
		Where("exam_id = ?", examID).
		Order("topic_id ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions for exam %d: %w", examID, err)
	}
	return questions, nil
}

// ReplaceAnswers swaps the question's answer set. New rows get fresh ids;
// old ids stay referenced by historical user answers and are never reused.
func (r *QuestionPostgreSQL) ReplaceAnswers(ctx context.Context, questionID uint, answers []models.Answer) error {
	question, err := r.GetByID(ctx, questionID)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to remove old answers: %w", err)
		}
		for i := range answers {
			answers[i].ID = 0
			answers[i].QuestionID = questionID
		}
		if err := tx.Create(&answers).Error; err != nil {
			return fmt.Errorf("failed to create new answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateQuestionCache(ctx, r.cacheManager, questionID, question.ExamID)
	return nil
}
