package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/prepstack/examprep-service/internal/events"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
	"github.com/prepstack/examprep-service/internal/validator"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAttemptService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== ATTEMPT LIFECYCLE =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*StartAttemptResponse, error) {
	s.logger.Info("Starting exam attempt", "exam_type", req.ExamType, "user_id", userID)

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

	// One seed drives both the question draw and the per-attempt option
	// order; storing it makes every later read render identically
	seed := time.Now().UnixNano()
	questions, err := selectQuestions(ctx, s.repo, selectionParams{
		ExamID: exam.ID,
		Count:  exam.QuestionCount,
		UserID: userID,
		Tier:   tier,
	}, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to select questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: exam %s", ErrNoQuestionsAvailable, req.ExamType)
	}

	attempt := &models.ExamAttempt{
		UserID:            userID,
		ExamID:            exam.ID,
		Status:            models.AttemptInProgress,
		QuestionCount:     len(questions),
		DurationMinutes:   exam.DurationMinutes,
		OptionShuffleSeed: seed,
		StartedAt:         time.Now().UTC(),
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Attempt().Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}

		attemptQuestions := make([]*models.ExamAttemptQuestion, 0, len(questions))
		for i, question := range questions {
			attemptQuestions = append(attemptQuestions, &models.ExamAttemptQuestion{
				ExamAttemptID: attempt.ID,
				QuestionID:    question.ID,
				SortOrder:     i + 1,
			})
		}
		if err := txRepo.Attempt().CreateQuestions(ctx, attemptQuestions); err != nil {
			return fmt.Errorf("failed to create attempt questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam attempt started",
		"attempt_id", attempt.ID, "user_id", userID, "question_count", len(questions))

	r := rand.New(rand.NewSource(attempt.OptionShuffleSeed))
	first := &AttemptQuestionResponse{
		QuestionID: questions[0].ID,
		SortOrder:  1,
		Question:   newQuestionView(questions[0], shuffledAnswers(questions[0], r), false),
	}

	return &StartAttemptResponse{
		AttemptID:            attempt.ID,
		QuestionCount:        attempt.QuestionCount,
		DurationMinutes:      attempt.DurationMinutes,
		TimeRemainingMinutes: attempt.DurationMinutes,
		FirstQuestion:        first,
	}, nil
}

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetWithQuestions(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %d", ErrAttemptNotFound, attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.UserID != userID {
		s.logger.Warn("Attempt access denied",
			"attempt_id", attemptID, "user_id", userID, "owner_id", attempt.UserID)
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "not the owner")
	}

	reveal := attempt.IsCompleted()

	// Replaying the stored seed over questions in sort order reproduces
	// the exact option order of every earlier read of this attempt
	r := rand.New(rand.NewSource(attempt.OptionShuffleSeed))
	questions := make([]*AttemptQuestionResponse, 0, len(attempt.Questions))
	for i := range attempt.Questions {
		aq := &attempt.Questions[i]
		entry := &AttemptQuestionResponse{
			QuestionID: aq.QuestionID,
			SortOrder:  aq.SortOrder,
			IsFlagged:  aq.IsFlagged,
			IsAnswered: aq.UserAnswerID != nil,
		}
		if aq.Question != nil {
			entry.Question = newQuestionView(aq.Question, shuffledAnswers(aq.Question, r), reveal)
		}
		if reveal && aq.UserAnswer != nil {
			entry.SelectedAnswerIDs = aq.UserAnswer.SelectedAnswerIDs
		}
		questions = append(questions, entry)
	}

	remaining := 0
	if !attempt.IsCompleted() {
		remaining = attempt.TimeRemainingMinutes(time.Now().UTC())
	}

	return &AttemptResponse{
		ExamAttempt:          attempt,
		TimeRemainingMinutes: remaining,
		Questions:            questions,
	}, nil
}

// ===== ANSWERING =====

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitExamAnswerRequest, userID string) error {
	s.logger.Info("Submitting exam answer",
		"attempt_id", attemptID, "question_id", req.QuestionID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.getOwnedActiveAttempt(ctx, attemptID, userID, "answer")
	if err != nil {
		return err
	}

	attemptQuestion, err := s.repo.Attempt().GetQuestion(ctx, attemptID, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
		}
		return fmt.Errorf("failed to get attempt question: %w", err)
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	// Score before any write: an invalid selection persists nothing
	score, err := ScoreAnswer(question, req.SelectedAnswerIDs)
	if err != nil {
		return err
	}

	answeredAt := time.Now().UTC()
	userAnswer := &models.UserAnswer{
		UserID:            userID,
		QuestionID:        question.ID,
		SelectedAnswerIDs: dedupeAnswerIDs(req.SelectedAnswerIDs),
		IsCorrect:         score.IsCorrect,
		Context:           models.ContextExam,
		ExamAttemptID:     &attempt.ID,
		AnsweredAt:        answeredAt,
		TimeSpent:         req.TimeSpent,
	}

	// Re-submission appends a fresh row and re-points the link; the
	// superseded answer stays in the history
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.UserAnswer().Create(ctx, userAnswer); err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}
		if err := txRepo.Attempt().LinkAnswer(ctx, attemptQuestion.ID, userAnswer.ID); err != nil {
			return fmt.Errorf("failed to link answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Exam answers never feed topic progress; only the final attempt
	// result speaks for exam performance
	if err := s.publisher.PublishAnswerSubmitted(ctx, events.AnswerSubmittedEvent{
		UserID:     userID,
		QuestionID: question.ID,
		ExamID:     question.ExamID,
		TopicID:    question.TopicID,
		Context:    models.ContextExam,
		IsCorrect:  score.IsCorrect,
		AnsweredAt: answeredAt,
	}); err != nil {
		s.logger.Warn("Failed to publish answer event", "error", err, "attempt_id", attemptID)
	}

	return nil
}

func (s *attemptService) FlagQuestion(ctx context.Context, attemptID uint, req *FlagQuestionRequest, userID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	if _, err := s.getOwnedActiveAttempt(ctx, attemptID, userID, "flag"); err != nil {
		return err
	}

	attemptQuestion, err := s.repo.Attempt().GetQuestion(ctx, attemptID, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
		}
		return fmt.Errorf("failed to get attempt question: %w", err)
	}

	// Idempotent: setting the current value is a no-op
	if err := s.repo.Attempt().SetFlag(ctx, attemptQuestion.ID, req.IsFlagged); err != nil {
		return fmt.Errorf("failed to set flag: %w", err)
	}
	return nil
}

// ===== COMPLETION =====

func (s *attemptService) Complete(ctx context.Context, attemptID uint, userID string) (*CompleteAttemptResponse, error) {
	s.logger.Info("Completing exam attempt", "attempt_id", attemptID, "user_id", userID)

	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID, "complete")
	if err != nil {
		return nil, err
	}

	// Completing twice returns the recorded result unchanged
	if attempt.IsCompleted() {
		return &CompleteAttemptResponse{
			Score:  derefInt(attempt.Score),
			Passed: derefBool(attempt.Passed),
		}, nil
	}

	exam, err := s.repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	answers, err := s.repo.UserAnswer().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt answers: %w", err)
	}

	// Rows arrive in submission order, so the map keeps the latest
	// answer per question; unanswered questions simply count as wrong
	latest := make(map[uint]*models.UserAnswer, len(answers))
	for _, answer := range answers {
		latest[answer.QuestionID] = answer
	}
	correct := 0
	for _, answer := range latest {
		if answer.IsCorrect {
			correct++
		}
	}

	score := int(math.Round(float64(correct) * 100 / float64(attempt.QuestionCount)))
	passed := score >= exam.PassingScore
	completedAt := time.Now().UTC()

	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &completedAt
	attempt.Score = &score
	attempt.Passed = &passed

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}

	s.logger.Info("Exam attempt completed",
		"attempt_id", attempt.ID, "user_id", userID, "score", score, "passed", passed)

	if err := s.publisher.PublishAttemptCompleted(ctx, events.AttemptCompletedEvent{
		UserID:      userID,
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		Score:       score,
		Passed:      passed,
		CompletedAt: completedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish completion event", "error", err, "attempt_id", attempt.ID)
	}

	return &CompleteAttemptResponse{Score: score, Passed: passed}, nil
}

// ===== HISTORY =====

func (s *attemptService) GetHistory(ctx context.Context, userID string, examType string, limit int) ([]*AttemptHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	filters := repositories.AttemptFilters{
		Limit:     limit,
		SortBy:    "started_at",
		SortOrder: "desc",
	}
	if examType != "" {
		exam, err := getActiveExam(ctx, s.repo, examType)
		if err != nil {
			return nil, err
		}
		filters.ExamID = &exam.ID
	}

	attempts, err := s.repo.Attempt().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	history := make([]*AttemptHistoryEntry, 0, len(attempts))
	for _, attempt := range attempts {
		entry := &AttemptHistoryEntry{
			ID:              attempt.ID,
			Status:          attempt.Status,
			QuestionCount:   attempt.QuestionCount,
			Score:           attempt.Score,
			Passed:          attempt.Passed,
			StartedAt:       attempt.StartedAt,
			CompletedAt:     attempt.CompletedAt,
			DurationMinutes: attempt.DurationMinutes,
		}
		if attempt.Exam != nil {
			entry.ExamType = attempt.Exam.Type
		}
		history = append(history, entry)
	}

	return history, nil
}

// ===== HELPERS =====

// getOwnedAttempt loads the attempt and enforces ownership. Foreign
// attempts come back as a permission error that callers surface as
// not-found, so other users' attempt ids stay unguessable.
func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uint, userID, action string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %d", ErrAttemptNotFound, attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.UserID != userID {
		s.logger.Warn("Attempt access denied",
			"attempt_id", attemptID, "user_id", userID, "owner_id", attempt.UserID, "action", action)
		return nil, NewPermissionError(userID, attemptID, "attempt", action, "not the owner")
	}
	return attempt, nil
}

func (s *attemptService) getOwnedActiveAttempt(ctx context.Context, attemptID uint, userID, action string) (*models.ExamAttempt, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID, action)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted() {
		return nil, fmt.Errorf("%w: %d", ErrAttemptNotActive, attemptID)
	}
	return attempt, nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefBool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}
