package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests.
type fakeRepository struct {
	mu sync.Mutex

	exams            map[uint]*models.Exam
	topics           map[uint]*models.Topic
	questions        map[uint]*models.Question
	attempts         map[uint]*models.ExamAttempt
	attemptQuestions map[uint]*models.ExamAttemptQuestion
	userAnswers      []*models.UserAnswer
	progress         map[string]*models.UserProgress
	subscriptions    map[string]*models.Subscription

	nextID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		exams:            make(map[uint]*models.Exam),
		topics:           make(map[uint]*models.Topic),
		questions:        make(map[uint]*models.Question),
		attempts:         make(map[uint]*models.ExamAttempt),
		attemptQuestions: make(map[uint]*models.ExamAttemptQuestion),
		progress:         make(map[string]*models.UserProgress),
		subscriptions:    make(map[string]*models.Subscription),
	}
}

func (f *fakeRepository) id() uint {
	f.nextID++
	return f.nextID
}

func progressKey(userID string, examID, topicID uint) string {
	return fmt.Sprintf("%s/%d/%d", userID, examID, topicID)
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, gorm.ErrRecordNotFound)
}

// ===== AGGREGATE =====

func (f *fakeRepository) Exam() repositories.ExamRepository                 { return &fakeExamRepo{f} }
func (f *fakeRepository) Topic() repositories.TopicRepository               { return &fakeTopicRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository        { return &fakeQuestionRepo{f} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository          { return &fakeAttemptRepo{f} }
func (f *fakeRepository) UserAnswer() repositories.UserAnswerRepository    { return &fakeUserAnswerRepo{f} }
func (f *fakeRepository) Progress() repositories.ProgressRepository        { return &fakeProgressRepo{f} }
func (f *fakeRepository) Subscription() repositories.SubscriptionRepository { return &fakeSubscriptionRepo{f} }
func (f *fakeRepository) User() repositories.UserRepository                { return &fakeUserRepo{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== SEED HELPERS =====

func (f *fakeRepository) seedExam(examType string, questionCount, passingScore, durationMinutes int) *models.Exam {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam := &models.Exam{
		ID:              f.id(),
		Type:            examType,
		Name:            examType + " Certification",
		QuestionCount:   questionCount,
		PassingScore:    passingScore,
		DurationMinutes: durationMinutes,
		IsActive:        true,
	}
	f.exams[exam.ID] = exam
	return exam
}

func (f *fakeRepository) seedTopic(examID uint, slug string) *models.Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	topic := &models.Topic{
		ID:       f.id(),
		ExamID:   examID,
		Name:     slug,
		Slug:     slug,
		IsActive: true,
	}
	f.topics[topic.ID] = topic
	return topic
}

// seedQuestion creates a question with the given answer contents; indexes
// listed in correct are marked as the right options.
func (f *fakeRepository) seedQuestion(examID, topicID uint, questionType models.QuestionType, premium bool, answerCount int, correct ...int) *models.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	question := &models.Question{
		ID:          f.id(),
		ExamID:      examID,
		TopicID:     topicID,
		Type:        questionType,
		Content:     fmt.Sprintf("question %d", f.nextID),
		Difficulty:  3,
		Explanation: "because",
		IsPremium:   premium,
		IsActive:    true,
	}
	correctSet := make(map[int]bool, len(correct))
	for _, idx := range correct {
		correctSet[idx] = true
	}
	for i := 0; i < answerCount; i++ {
		question.Answers = append(question.Answers, models.Answer{
			ID:         f.id(),
			QuestionID: question.ID,
			Content:    fmt.Sprintf("option %d", i),
			IsCorrect:  correctSet[i],
			SortOrder:  i + 1,
		})
	}
	f.questions[question.ID] = question
	return question
}

// ===== EXAMS =====

type fakeExamRepo struct{ f *fakeRepository }

func (r *fakeExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exam.ID = r.f.id()
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExamRepo) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if exam, ok := r.f.exams[id]; ok {
		return exam, nil
	}
	return nil, notFound("exam")
}

func (r *fakeExamRepo) GetByType(ctx context.Context, examType string) (*models.Exam, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, exam := range r.f.exams {
		if exam.Type == examType {
			return exam, nil
		}
	}
	return nil, notFound("exam")
}

func (r *fakeExamRepo) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var exams []*models.Exam
	for _, exam := range r.f.exams {
		if filters.ActiveOnly && !exam.IsActive {
			continue
		}
		exams = append(exams, exam)
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].Type < exams[j].Type })
	return exams, nil
}

// ===== TOPICS =====

type fakeTopicRepo struct{ f *fakeRepository }

func (r *fakeTopicRepo) Create(ctx context.Context, topic *models.Topic) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	topic.ID = r.f.id()
	r.f.topics[topic.ID] = topic
	return nil
}

func (r *fakeTopicRepo) Update(ctx context.Context, topic *models.Topic) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.topics[topic.ID] = topic
	return nil
}

func (r *fakeTopicRepo) GetByID(ctx context.Context, id uint) (*models.Topic, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if topic, ok := r.f.topics[id]; ok {
		return topic, nil
	}
	return nil, notFound("topic")
}

func (r *fakeTopicRepo) GetBySlug(ctx context.Context, examID uint, slug string) (*models.Topic, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, topic := range r.f.topics {
		if topic.ExamID == examID && topic.Slug == slug {
			return topic, nil
		}
	}
	return nil, notFound("topic")
}

func (r *fakeTopicRepo) ListByExam(ctx context.Context, examID uint, activeOnly bool) ([]*models.Topic, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var topics []*models.Topic
	for _, topic := range r.f.topics {
		if topic.ExamID != examID {
			continue
		}
		if activeOnly && !topic.IsActive {
			continue
		}
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo struct{ f *fakeRepository }

func (r *fakeQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	question.ID = r.f.id()
	for i := range question.Answers {
		question.Answers[i].ID = r.f.id()
		question.Answers[i].QuestionID = question.ID
	}
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) Update(ctx context.Context, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.questions[question.ID]; !ok {
		return notFound("question")
	}
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.questions[id]; !ok {
		return notFound("question")
	}
	delete(r.f.questions, id)
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if question, ok := r.f.questions[id]; ok {
		return question, nil
	}
	return nil, notFound("question")
}

func (r *fakeQuestionRepo) ListPool(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exclude := make(map[uint]bool, len(filters.ExcludeIDs))
	for _, id := range filters.ExcludeIDs {
		exclude[id] = true
	}
	var pool []*models.Question
	for _, q := range r.f.questions {
		if q.ExamID != filters.ExamID || !q.IsActive {
			continue
		}
		if filters.TopicID != nil && q.TopicID != *filters.TopicID {
			continue
		}
		if !filters.IncludePremium && q.IsPremium {
			continue
		}
		if filters.Difficulty != nil && q.Difficulty != *filters.Difficulty {
			continue
		}
		if exclude[q.ID] {
			continue
		}
		pool = append(pool, q)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool, nil
}

func (r *fakeQuestionRepo) ListByExam(ctx context.Context, examID uint) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var questions []*models.Question
	for _, q := range r.f.questions {
		if q.ExamID == examID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (r *fakeQuestionRepo) ReplaceAnswers(ctx context.Context, questionID uint, answers []models.Answer) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	question, ok := r.f.questions[questionID]
	if !ok {
		return notFound("question")
	}
	question.Answers = nil
	for i := range answers {
		answers[i].ID = r.f.id()
		answers[i].QuestionID = questionID
		question.Answers = append(question.Answers, answers[i])
	}
	return nil
}

// ===== ATTEMPTS =====

type fakeAttemptRepo struct{ f *fakeRepository }

func (r *fakeAttemptRepo) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	attempt.ID = r.f.id()
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttemptRepo) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.attempts[attempt.ID]; !ok {
		return notFound("attempt")
	}
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttemptRepo) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if attempt, ok := r.f.attempts[id]; ok {
		return attempt, nil
	}
	return nil, notFound("attempt")
}

func (r *fakeAttemptRepo) GetWithQuestions(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	attempt, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	copied := *attempt
	copied.Exam = r.f.exams[attempt.ExamID]
	copied.Questions = nil
	for _, aq := range r.f.attemptQuestions {
		if aq.ExamAttemptID != id {
			continue
		}
		loaded := *aq
		loaded.Question = r.f.questions[aq.QuestionID]
		if aq.UserAnswerID != nil {
			for _, ua := range r.f.userAnswers {
				if ua.ID == *aq.UserAnswerID {
					loaded.UserAnswer = ua
				}
			}
		}
		copied.Questions = append(copied.Questions, loaded)
	}
	sort.Slice(copied.Questions, func(i, j int) bool {
		return copied.Questions[i].SortOrder < copied.Questions[j].SortOrder
	})
	return &copied, nil
}

func (r *fakeAttemptRepo) ListByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var attempts []*models.ExamAttempt
	for _, attempt := range r.f.attempts {
		if attempt.UserID != userID {
			continue
		}
		if filters.ExamID != nil && attempt.ExamID != *filters.ExamID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		copied := *attempt
		copied.Exam = r.f.exams[attempt.ExamID]
		attempts = append(attempts, &copied)
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})
	if filters.Limit > 0 && len(attempts) > filters.Limit {
		attempts = attempts[:filters.Limit]
	}
	return attempts, nil
}

func (r *fakeAttemptRepo) CreateQuestions(ctx context.Context, questions []*models.ExamAttemptQuestion) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, aq := range questions {
		aq.ID = r.f.id()
		r.f.attemptQuestions[aq.ID] = aq
	}
	return nil
}

func (r *fakeAttemptRepo) GetQuestion(ctx context.Context, attemptID, questionID uint) (*models.ExamAttemptQuestion, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, aq := range r.f.attemptQuestions {
		if aq.ExamAttemptID == attemptID && aq.QuestionID == questionID {
			return aq, nil
		}
	}
	return nil, notFound("attempt question")
}

func (r *fakeAttemptRepo) LinkAnswer(ctx context.Context, attemptQuestionID, userAnswerID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	aq, ok := r.f.attemptQuestions[attemptQuestionID]
	if !ok {
		return notFound("attempt question")
	}
	id := userAnswerID
	aq.UserAnswerID = &id
	return nil
}

func (r *fakeAttemptRepo) SetFlag(ctx context.Context, attemptQuestionID uint, isFlagged bool) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	aq, ok := r.f.attemptQuestions[attemptQuestionID]
	if !ok {
		return notFound("attempt question")
	}
	aq.IsFlagged = isFlagged
	return nil
}

// ===== USER ANSWERS =====

type fakeUserAnswerRepo struct{ f *fakeRepository }

func (r *fakeUserAnswerRepo) Create(ctx context.Context, answer *models.UserAnswer) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	answer.ID = r.f.id()
	r.f.userAnswers = append(r.f.userAnswers, answer)
	return nil
}

func (r *fakeUserAnswerRepo) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.UserAnswer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var answers []*models.UserAnswer
	for _, answer := range r.f.userAnswers {
		if answer.ExamAttemptID != nil && *answer.ExamAttemptID == attemptID {
			answers = append(answers, answer)
		}
	}
	return answers, nil
}

func (r *fakeUserAnswerRepo) AnsweredQuestionIDs(ctx context.Context, userID string, examID uint) ([]uint, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	seen := make(map[uint]bool)
	var ids []uint
	for _, answer := range r.f.userAnswers {
		if answer.UserID != userID || seen[answer.QuestionID] {
			continue
		}
		question, ok := r.f.questions[answer.QuestionID]
		if !ok || question.ExamID != examID {
			continue
		}
		seen[answer.QuestionID] = true
		ids = append(ids, answer.QuestionID)
	}
	return ids, nil
}

// ===== PROGRESS =====

type fakeProgressRepo struct{ f *fakeRepository }

func (r *fakeProgressRepo) RecordAnswer(ctx context.Context, userID string, examID, topicID uint, isCorrect bool, answeredAt time.Time) (*models.UserProgress, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	key := progressKey(userID, examID, topicID)
	row, ok := r.f.progress[key]
	if !ok {
		row = &models.UserProgress{
			ID:      r.f.id(),
			UserID:  userID,
			ExamID:  examID,
			TopicID: topicID,
		}
		r.f.progress[key] = row
	}
	row.QuestionsAttempted++
	if isCorrect {
		row.QuestionsCorrect++
	}
	row.AccuracyPercentage = math.Round(float64(row.QuestionsCorrect)*10000/float64(row.QuestionsAttempted)) / 100
	row.LastPracticedAt = answeredAt
	return row, nil
}

func (r *fakeProgressRepo) Get(ctx context.Context, userID string, examID, topicID uint) (*models.UserProgress, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if row, ok := r.f.progress[progressKey(userID, examID, topicID)]; ok {
		return row, nil
	}
	return nil, notFound("progress")
}

func (r *fakeProgressRepo) ListByUserAndExam(ctx context.Context, userID string, examID uint) ([]*models.UserProgress, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var rows []*models.UserProgress
	for _, row := range r.f.progress {
		if row.UserID == userID && row.ExamID == examID {
			copied := *row
			copied.Topic = r.f.topics[row.TopicID]
			rows = append(rows, &copied)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TopicID < rows[j].TopicID })
	return rows, nil
}

func (r *fakeProgressRepo) Totals(ctx context.Context, userID string, examID uint) (*repositories.ProgressTotals, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	totals := &repositories.ProgressTotals{}
	for _, row := range r.f.progress {
		if row.UserID == userID && row.ExamID == examID {
			totals.TotalAttempted += row.QuestionsAttempted
			totals.TotalCorrect += row.QuestionsCorrect
		}
	}
	return totals, nil
}

// ===== SUBSCRIPTIONS =====

type fakeSubscriptionRepo struct{ f *fakeRepository }

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.subscriptions[userID], nil
}

// ===== USERS =====

type fakeUserRepo struct{ f *fakeRepository }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleStudent}, nil
}

func (r *fakeUserRepo) GetRole(ctx context.Context, id string) (models.UserRole, error) {
	return models.RoleStudent, nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	return true, nil
}

var _ repositories.Repository = (*fakeRepository)(nil)
