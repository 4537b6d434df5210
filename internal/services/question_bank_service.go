package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
	"github.com/prepstack/examprep-service/internal/validator"
)

type questionBankService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionBankService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
) QuestionBankService {
	return &questionBankService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== EXAMS =====

func (s *questionBankService) CreateExam(ctx context.Context, req *CreateExamRequest) (*models.Exam, error) {
	s.logger.Info("Creating exam", "type", req.Type)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.Exam().GetByType(ctx, req.Type)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check exam type: %w", err)
	}
	if existing != nil {
		return nil, NewBusinessRuleError("exam_type_unique",
			fmt.Sprintf("exam type '%s' already exists", req.Type))
	}

	exam := &models.Exam{
		Type:            req.Type,
		Name:            req.Name,
		QuestionCount:   req.QuestionCount,
		PassingScore:    req.PassingScore,
		DurationMinutes: req.DurationMinutes,
		IsActive:        boolOrDefault(req.IsActive, true),
	}
	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	return exam, nil
}

func (s *questionBankService) UpdateExam(ctx context.Context, examType string, req *UpdateExamRequest) (*models.Exam, error) {
	s.logger.Info("Updating exam", "type", examType)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByType(ctx, examType)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrExamNotFound, examType)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if req.Name != nil {
		exam.Name = *req.Name
	}
	if req.QuestionCount != nil {
		exam.QuestionCount = *req.QuestionCount
	}
	if req.PassingScore != nil {
		exam.PassingScore = *req.PassingScore
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}

	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	return exam, nil
}

func (s *questionBankService) ListExams(ctx context.Context) ([]*models.Exam, error) {
	exams, err := s.repo.Exam().List(ctx, repositories.ExamFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

// ===== TOPICS =====

func (s *questionBankService) CreateTopic(ctx context.Context, req *CreateTopicRequest) (*models.Topic, error) {
	s.logger.Info("Creating topic", "exam_type", req.ExamType, "slug", req.Slug)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExamByType(ctx, req.ExamType)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Topic().GetBySlug(ctx, exam.ID, req.Slug)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check topic slug: %w", err)
	}
	if existing != nil {
		return nil, NewBusinessRuleError("topic_slug_unique",
			fmt.Sprintf("topic slug '%s' already exists for exam '%s'", req.Slug, req.ExamType))
	}

	topic := &models.Topic{
		ExamID:    exam.ID,
		Name:      req.Name,
		Slug:      req.Slug,
		Weight:    req.Weight,
		SortOrder: req.SortOrder,
		IsActive:  boolOrDefault(req.IsActive, true),
	}
	if err := s.repo.Topic().Create(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return topic, nil
}

func (s *questionBankService) UpdateTopic(ctx context.Context, topicID uint, req *UpdateTopicRequest) (*models.Topic, error) {
	s.logger.Info("Updating topic", "topic_id", topicID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	topic, err := s.repo.Topic().GetByID(ctx, topicID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %d", ErrTopicNotFound, topicID)
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	if req.Name != nil {
		topic.Name = *req.Name
	}
	if req.Weight != nil {
		topic.Weight = *req.Weight
	}
	if req.SortOrder != nil {
		topic.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		topic.IsActive = *req.IsActive
	}

	if err := s.repo.Topic().Update(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to update topic: %w", err)
	}
	return topic, nil
}

// ===== QUESTIONS =====

func (s *questionBankService) CreateQuestion(ctx context.Context, req *CreateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Creating question", "exam_type", req.ExamType, "topic", req.Topic)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExamByType(ctx, req.ExamType)
	if err != nil {
		return nil, err
	}
	topic, err := resolveTopic(ctx, s.repo, exam.ID, req.Topic)
	if err != nil {
		return nil, err
	}

	answers := make([]models.Answer, 0, len(req.Answers))
	for i, a := range req.Answers {
		sortOrder := a.SortOrder
		if sortOrder == 0 {
			sortOrder = i + 1
		}
		answers = append(answers, models.Answer{
			Content:   a.Content,
			IsCorrect: a.IsCorrect,
			SortOrder: sortOrder,
		})
	}
	if err := validateAnswerSet(req.Type, answers); err != nil {
		return nil, err
	}

	question := &models.Question{
		ExamID:       exam.ID,
		TopicID:      topic.ID,
		Type:         req.Type,
		Content:      req.Content,
		CodeSnippet:  req.CodeSnippet,
		Difficulty:   req.Difficulty,
		Explanation:  req.Explanation,
		ReferenceURL: req.ReferenceURL,
		IsPremium:    req.IsPremium,
		IsActive:     boolOrDefault(req.IsActive, true),
		Answers:      answers,
	}
	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created", "question_id", question.ID, "topic_id", topic.ID)
	return question, nil
}

func (s *questionBankService) UpdateQuestion(ctx context.Context, questionID uint, req *UpdateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Updating question", "question_id", questionID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		question.Content = *req.Content
	}
	if req.CodeSnippet != nil {
		question.CodeSnippet = req.CodeSnippet
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Explanation != nil {
		question.Explanation = *req.Explanation
	}
	if req.ReferenceURL != nil {
		question.ReferenceURL = req.ReferenceURL
	}
	if req.IsPremium != nil {
		question.IsPremium = *req.IsPremium
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}

	var newAnswers []models.Answer
	if req.Answers != nil {
		newAnswers = make([]models.Answer, 0, len(req.Answers))
		for i, a := range req.Answers {
			sortOrder := a.SortOrder
			if sortOrder == 0 {
				sortOrder = i + 1
			}
			newAnswers = append(newAnswers, models.Answer{
				Content:   a.Content,
				IsCorrect: a.IsCorrect,
				SortOrder: sortOrder,
			})
		}
		if err := validateAnswerSet(question.Type, newAnswers); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Question().Update(ctx, question); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}
		if newAnswers != nil {
			if err := txRepo.Question().ReplaceAnswers(ctx, question.ID, newAnswers); err != nil {
				return fmt.Errorf("failed to replace answers: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetQuestion(ctx, questionID)
}

func (s *questionBankService) DeleteQuestion(ctx context.Context, questionID uint) error {
	s.logger.Info("Deleting question", "question_id", questionID)

	if err := s.repo.Question().Delete(ctx, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, questionID)
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

func (s *questionBankService) GetQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, questionID)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// ===== HELPERS =====

func (s *questionBankService) getExamByType(ctx context.Context, examType string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByType(ctx, examType)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrExamNotFound, examType)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// validateAnswerSet enforces the correctness shape per question type:
// SINGLE_CHOICE has exactly one correct answer, MULTIPLE_CHOICE at least one.
func validateAnswerSet(questionType models.QuestionType, answers []models.Answer) error {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	switch questionType {
	case models.SingleChoice:
		if correct != 1 {
			return NewBusinessRuleError("single_choice_one_correct",
				fmt.Sprintf("SINGLE_CHOICE questions need exactly one correct answer, got %d", correct))
		}
	case models.MultipleChoice:
		if correct < 1 {
			return NewBusinessRuleError("multiple_choice_min_correct",
				"MULTIPLE_CHOICE questions need at least one correct answer")
		}
	}
	return nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
