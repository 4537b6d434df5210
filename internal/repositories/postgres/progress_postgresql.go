package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepstack/examprep-service/internal/cache"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// UserAnswerPostgreSQL implements UserAnswerRepository. Rows are
// append-only; there is deliberately no update or delete.
type UserAnswerPostgreSQL struct {
	db *gorm.DB
}

func NewUserAnswerPostgreSQL(db *gorm.DB) repositories.UserAnswerRepository {
	return &UserAnswerPostgreSQL{db: db}
}

func (r *UserAnswerPostgreSQL) Create(ctx context.Context, answer *models.UserAnswer) error {
	if err := r.db.WithContext(ctx).Create(answer).Error; err != nil {
		return fmt.Errorf("failed to create user answer: %w", err)
	}
	return nil
}

func (r *UserAnswerPostgreSQL) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.UserAnswer, error) {
	var answers []*models.UserAnswer
	if err := r.db.WithContext(ctx).
		Where("exam_attempt_id = ?", attemptID).
		Order("answered_at ASC, id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers for attempt %d: %w", attemptID, err)
	}
	return answers, nil
}

func (r *UserAnswerPostgreSQL) AnsweredQuestionIDs(ctx context.Context, userID string, examID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.UserAnswer{}).
		Distinct("user_answers.question_id").
		Joins("JOIN questions ON questions.id = user_answers.question_id").
		Where("user_answers.user_id = ? AND questions.exam_id = ?", userID, examID).
		Pluck("user_answers.question_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list answered question ids: %w", err)
	}
	return ids, nil
}

// ProgressPostgreSQL implements ProgressRepository
type ProgressPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewProgressPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db, cacheManager: cacheManager}
}

// RecordAnswer upserts the counters in a single statement. The conflict
// branch does the increment and accuracy recompute in SQL, so two
// concurrent submissions for the same (user, exam, topic) both land.
func (r *ProgressPostgreSQL) RecordAnswer(ctx context.Context, userID string, examID, topicID uint, isCorrect bool, answeredAt time.Time) (*models.UserProgress, error) {
	correctInc := 0
	if isCorrect {
		correctInc = 1
	}

	row := &models.UserProgress{
		UserID:             userID,
		ExamID:             examID,
		TopicID:            topicID,
		QuestionsAttempted: 1,
		QuestionsCorrect:   correctInc,
		AccuracyPercentage: math.Round(float64(correctInc)*100*100) / 100,
		LastPracticedAt:    answeredAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "exam_id"}, {Name: "topic_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"questions_attempted": gorm.Expr("user_progress.questions_attempted + 1"),
			"questions_correct":   gorm.Expr("user_progress.questions_correct + ?", correctInc),
			"accuracy_percentage": gorm.Expr(
				"ROUND((user_progress.questions_correct + ?) * 100.0 / (user_progress.questions_attempted + 1), 2)",
				correctInc),
			"last_practiced_at": answeredAt,
			"updated_at":        answeredAt,
		}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	cache.InvalidateProgressCache(ctx, r.cacheManager, userID, examID)

	// Re-read the row: on the conflict path the struct still holds the
	// insert values, not the incremented ones
	return r.fetch(ctx, userID, examID, topicID)
}

func (r *ProgressPostgreSQL) fetch(ctx context.Context, userID string, examID, topicID uint) (*models.UserProgress, error) {
	var progress models.UserProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ? AND topic_id = ?", userID, examID, topicID).
		First(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

func (r *ProgressPostgreSQL) Get(ctx context.Context, userID string, examID, topicID uint) (*models.UserProgress, error) {
	return r.fetch(ctx, userID, examID, topicID)
}

func (r *ProgressPostgreSQL) ListByUserAndExam(ctx context.Context, userID string, examID uint) ([]*models.UserProgress, error) {
	var rows []*models.UserProgress
	cacheKey := fmt.Sprintf("user:%s:exam:%d:list", userID, examID)

	err := r.cacheManager.Progress.CacheOrExecute(ctx, cacheKey, &rows, cache.ProgressCacheConfig.TTL, func() (interface{}, error) {
		var fetched []*models.UserProgress
		if err := r.db.WithContext(ctx).
			Preload("Topic").
			Where("user_id = ? AND exam_id = ?", userID, examID).
			Find(&fetched).Error; err != nil {
			return nil, err
		}
		return fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return rows, nil
}

func (r *ProgressPostgreSQL) Totals(ctx context.Context, userID string, examID uint) (*repositories.ProgressTotals, error) {
	var totals repositories.ProgressTotals
	if err := r.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Select("COALESCE(SUM(questions_attempted), 0) as total_attempted, COALESCE(SUM(questions_correct), 0) as total_correct").
		Where("user_id = ? AND exam_id = ?", userID, examID).
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum progress totals: %w", err)
	}
	return &totals, nil
}
