package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/prepstack/examprep-service/internal/cache"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// ExamPostgreSQL implements ExamRepository over GORM with cache-aside reads
type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	if err := r.db.WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (r *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	if err := r.db.WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}
	cache.InvalidateExamCache(ctx, r.cacheManager, exam.ID, exam.Type)
	return nil
}

func (r *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	cacheKey := fmt.Sprintf("id:%d", id)

	err := r.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var fetched models.Exam
		if err := r.db.WithContext(ctx).First(&fetched, id).Error; err != nil {
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get exam %d: %w", id, err)
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) GetByType(ctx context.Context, examType string) (*models.Exam, error) {
	var exam models.Exam
	cacheKey := fmt.Sprintf("type:%s", examType)

	err := r.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var fetched models.Exam
		if err := r.db.WithContext(ctx).Where("type = ?", examType).First(&fetched).Error; err != nil {
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get exam by type %s: %w", examType, err)
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	var exams []*models.Exam
	query := r.db.WithContext(ctx).Order("type ASC")
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

// TopicPostgreSQL implements TopicRepository
type TopicPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTopicPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TopicRepository {
	return &TopicPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *TopicPostgreSQL) Create(ctx context.Context, topic *models.Topic) error {
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Topic, fmt.Sprintf("exam:%d:*", topic.ExamID))
	return nil
}

func (r *TopicPostgreSQL) Update(ctx context.Context, topic *models.Topic) error {
	if err := r.db.WithContext(ctx).Save(topic).Error; err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	cache.SafeDelete(ctx, r.cacheManager.Topic, fmt.Sprintf("id:%d", topic.ID))
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Topic, fmt.Sprintf("exam:%d:*", topic.ExamID))
	return nil
}

func (r *TopicPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	cacheKey := fmt.Sprintf("id:%d", id)

	err := r.cacheManager.Topic.CacheOrExecute(ctx, cacheKey, &topic, cache.TopicCacheConfig.TTL, func() (interface{}, error) {
		var fetched models.Topic
		if err := r.db.WithContext(ctx).First(&fetched, id).Error; err != nil {
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get topic %d: %w", id, err)
	}
	return &topic, nil
}

func (r *TopicPostgreSQL) GetBySlug(ctx context.Context, examID uint, slug string) (*models.Topic, error) {
	var topic models.Topic
	cacheKey := fmt.Sprintf("exam:%d:slug:%s", examID, slug)

	err := r.cacheManager.Topic.CacheOrExecute(ctx, cacheKey, &topic, cache.TopicCacheConfig.TTL, func() (interface{}, error) {
		var fetched models.Topic
		if err := r.db.WithContext(ctx).
			Where("exam_id = ? AND slug = ?", examID, slug).
			First(&fetched).Error; err != nil {
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get topic by slug %s: %w", slug, err)
	}
	return &topic, nil
}

func (r *TopicPostgreSQL) ListByExam(ctx context.Context, examID uint, activeOnly bool) ([]*models.Topic, error) {
	var topics []*models.Topic
	query := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("sort_order ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics for exam %d: %w", examID, err)
	}
	return topics, nil
}
