package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/prepstack/examprep-service/internal/events"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
	"github.com/prepstack/examprep-service/internal/validator"
)

type practiceService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewPracticeService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
) PracticeService {
	return &practiceService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== TOPIC BROWSING =====

func (s *practiceService) GetTopics(ctx context.Context, examType string, userID string) ([]*TopicWithProgress, error) {
	s.logger.Info("Getting practice topics", "exam_type", examType, "user_id", userID)

	exam, err := getActiveExam(ctx, s.repo, examType)
	if err != nil {
		return nil, err
	}

	topics, err := s.repo.Topic().ListByExam(ctx, exam.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	progressRows, err := s.repo.Progress().ListByUserAndExam(ctx, userID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	progressByTopic := make(map[uint]*models.UserProgress, len(progressRows))
	for _, row := range progressRows {
		progressByTopic[row.TopicID] = row
	}

	result := make([]*TopicWithProgress, 0, len(topics))
	for _, topic := range topics {
		entry := &TopicWithProgress{Topic: topic}
		if row, ok := progressByTopic[topic.ID]; ok {
			lastPracticed := row.LastPracticedAt
			entry.Progress = &TopicProgressSummary{
				QuestionsAttempted: row.QuestionsAttempted,
				QuestionsCorrect:   row.QuestionsCorrect,
				AccuracyPercentage: row.AccuracyPercentage,
				LastPracticedAt:    &lastPracticed,
			}
		}
		result = append(result, entry)
	}

	return result, nil
}

// ===== QUESTION DRAWING =====

func (s *practiceService) GetQuestions(ctx context.Context, req *PracticeQuestionsRequest, userID string) ([]*QuestionView, error) {
	s.logger.Info("Getting practice questions",
		"exam_type", req.ExamType, "topic", req.Topic, "count", req.Count, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := getActiveExam(ctx, s.repo, req.ExamType)
	if err != nil {
		return nil, err
	}

	tier, err := lookupTier(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	params := selectionParams{
		ExamID:          exam.ID,
		Count:           req.Count,
		Difficulty:      req.Difficulty,
		ExcludeAnswered: req.ExcludeAnswered,
		UserID:          userID,
		Tier:            tier,
	}
	if req.Topic != "" {
		topic, err := resolveTopic(ctx, s.repo, exam.ID, req.Topic)
		if err != nil {
			return nil, err
		}
		params.TopicID = &topic.ID
	}

	seed := time.Now().UnixNano()
	questions, err := selectQuestions(ctx, s.repo, params, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to select questions: %w", err)
	}

	// An exhausted pool is a valid browse result, not an error: with
	// exclude_answered the user may simply have seen everything
	r := rand.New(rand.NewSource(seed))
	views := make([]*QuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, newQuestionView(question, shuffledAnswers(question, r), false))
	}

	return views, nil
}

// ===== ANSWER SUBMISSION =====

func (s *practiceService) SubmitAnswer(ctx context.Context, req *PracticeSubmitRequest, userID string) (*SubmissionResult, error) {
	s.logger.Info("Submitting practice answer",
		"question_id", req.QuestionID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if !question.IsActive {
		return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
	}

	// Premium gating is reported as not-found so gated content stays opaque
	tier, err := lookupTier(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if !IsQuestionVisible(question, tier) {
		s.logger.Warn("Premium question submission from free tier",
			"question_id", question.ID, "user_id", userID)
		return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
	}

	// Score before any write: an invalid selection persists nothing
	score, err := ScoreAnswer(question, req.SelectedAnswerIDs)
	if err != nil {
		return nil, err
	}

	answeredAt := time.Now().UTC()
	userAnswer := &models.UserAnswer{
		UserID:            userID,
		QuestionID:        question.ID,
		SelectedAnswerIDs: dedupeAnswerIDs(req.SelectedAnswerIDs),
		IsCorrect:         score.IsCorrect,
		Context:           models.ContextPractice,
		AnsweredAt:        answeredAt,
		TimeSpent:         req.TimeSpent,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.UserAnswer().Create(ctx, userAnswer); err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}
		if _, err := txRepo.Progress().RecordAnswer(ctx, userID, question.ExamID, question.TopicID, score.IsCorrect, answeredAt); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishAnswerSubmitted(ctx, events.AnswerSubmittedEvent{
		UserID:     userID,
		QuestionID: question.ID,
		ExamID:     question.ExamID,
		TopicID:    question.TopicID,
		Context:    models.ContextPractice,
		IsCorrect:  score.IsCorrect,
		AnsweredAt: answeredAt,
	}); err != nil {
		s.logger.Warn("Failed to publish answer event", "error", err, "question_id", question.ID)
	}

	s.logger.Info("Practice answer recorded",
		"question_id", question.ID, "user_id", userID, "is_correct", score.IsCorrect)

	return &SubmissionResult{
		IsCorrect:        score.IsCorrect,
		CorrectAnswerIDs: score.CorrectAnswerIDs,
		Explanation:      question.Explanation,
		ReferenceURL:     question.ReferenceURL,
	}, nil
}

// ===== HELPERS =====

// getActiveExam resolves an exam by its public type code, treating
// inactive exams the same as missing ones.
func getActiveExam(ctx context.Context, repo repositories.Repository, examType string) (*models.Exam, error) {
	exam, err := repo.Exam().GetByType(ctx, examType)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrExamNotFound, examType)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if !exam.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrExamNotFound, examType)
	}
	return exam, nil
}
