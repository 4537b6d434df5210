package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

type progressService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger) ProgressService {
	return &progressService{
		repo:   repo,
		logger: logger,
	}
}

// ===== OVERVIEW =====

func (s *progressService) GetOverview(ctx context.Context, examType string, userID string) (*ProgressOverviewResponse, error) {
	s.logger.Info("Getting progress overview", "exam_type", examType, "user_id", userID)

	exam, err := getActiveExam(ctx, s.repo, examType)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.Progress().Totals(ctx, userID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress totals: %w", err)
	}

	rows, err := s.repo.Progress().ListByUserAndExam(ctx, userID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	topics := make([]*TopicProgressDetail, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, toTopicProgressDetail(row))
	}

	return &ProgressOverviewResponse{
		ExamType:        exam.Type,
		TotalAttempted:  totals.TotalAttempted,
		TotalCorrect:    totals.TotalCorrect,
		OverallAccuracy: roundedAccuracy(totals.TotalCorrect, totals.TotalAttempted),
		Topics:          topics,
	}, nil
}

func (s *progressService) GetTopicProgress(ctx context.Context, examType string, topicRef string, userID string) (*TopicProgressDetail, error) {
	exam, err := getActiveExam(ctx, s.repo, examType)
	if err != nil {
		return nil, err
	}

	topic, err := resolveTopic(ctx, s.repo, exam.ID, topicRef)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.Progress().Get(ctx, userID, exam.ID, topic.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Untouched topic: zero counters, not an error
			return &TopicProgressDetail{
				TopicID:   topic.ID,
				TopicName: topic.Name,
				TopicSlug: topic.Slug,
			}, nil
		}
		return nil, fmt.Errorf("failed to load topic progress: %w", err)
	}

	detail := toTopicProgressDetail(row)
	detail.TopicName = topic.Name
	detail.TopicSlug = topic.Slug
	return detail, nil
}

// ===== READINESS =====

// GetReadinessScore is a coarse pass-probability proxy: overall answer
// accuracy across both contexts, rounded to a whole percent. A user with
// no history scores zero rather than erroring.
func (s *progressService) GetReadinessScore(ctx context.Context, examType string, userID string) (*ReadinessResponse, error) {
	exam, err := getActiveExam(ctx, s.repo, examType)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.Progress().Totals(ctx, userID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress totals: %w", err)
	}

	score := 0
	if totals.TotalAttempted > 0 {
		score = int(math.Round(float64(totals.TotalCorrect) * 100 / float64(totals.TotalAttempted)))
	}

	return &ReadinessResponse{
		ExamType: exam.Type,
		Score:    score,
	}, nil
}

// ===== SUBSCRIPTION =====

func (s *progressService) GetSubscriptionStatus(ctx context.Context, userID string) (*SubscriptionStatusResponse, error) {
	subscription, err := s.repo.Subscription().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if subscription == nil {
		return &SubscriptionStatusResponse{
			Status: models.SubscriptionFree,
			Plan:   "FREE",
			Tier:   models.TierFree,
		}, nil
	}

	return &SubscriptionStatusResponse{
		Status:            subscription.Status,
		Plan:              subscription.Plan,
		Tier:              subscription.Tier(),
		CurrentPeriodEnd:  subscription.CurrentPeriodEnd,
		CancelAtPeriodEnd: subscription.CancelAtPeriodEnd,
	}, nil
}

// ===== HELPERS =====

func toTopicProgressDetail(row *models.UserProgress) *TopicProgressDetail {
	lastPracticed := row.LastPracticedAt
	detail := &TopicProgressDetail{
		TopicID:            row.TopicID,
		QuestionsAttempted: row.QuestionsAttempted,
		QuestionsCorrect:   row.QuestionsCorrect,
		AccuracyPercentage: row.AccuracyPercentage,
		LastPracticedAt:    &lastPracticed,
	}
	if row.Topic != nil {
		detail.TopicName = row.Topic.Name
		detail.TopicSlug = row.Topic.Slug
	}
	return detail
}

// roundedAccuracy matches the stored per-topic convention: two decimals,
// zero when nothing was attempted.
func roundedAccuracy(correct, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return math.Round(float64(correct)*10000/float64(attempted)) / 100
}
