package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prepstack/examprep-service/internal/events"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/validator"
)

func newTestAttemptService(repo *fakeRepository) (AttemptService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher()
	return NewAttemptService(repo, testLogger(), validator.New(), publisher), publisher
}

// seedAttemptFixture sets up a 3-question exam with a bank of bankSize
// single-choice questions whose second option is correct.
func seedAttemptFixture(t *testing.T, repo *fakeRepository, bankSize int) *models.Exam {
	t.Helper()
	exam := repo.seedExam("PD1", 3, 65, 105)
	topic := repo.seedTopic(exam.ID, "apex-basics")
	for i := 0; i < bankSize; i++ {
		repo.seedQuestion(exam.ID, topic.ID, models.SingleChoice, false, 4, 1)
	}
	return exam
}

func TestStartAttempt(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	exam := seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	resp, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if resp.QuestionCount != exam.QuestionCount {
		t.Errorf("QuestionCount = %d, want %d", resp.QuestionCount, exam.QuestionCount)
	}
	if resp.DurationMinutes != exam.DurationMinutes {
		t.Errorf("DurationMinutes = %d, want %d", resp.DurationMinutes, exam.DurationMinutes)
	}
	if resp.TimeRemainingMinutes != exam.DurationMinutes {
		t.Errorf("TimeRemainingMinutes = %d, want %d", resp.TimeRemainingMinutes, exam.DurationMinutes)
	}
	if resp.FirstQuestion == nil || resp.FirstQuestion.SortOrder != 1 {
		t.Fatalf("FirstQuestion = %+v, want sort order 1", resp.FirstQuestion)
	}

	attempt := repo.attempts[resp.AttemptID]
	if attempt == nil {
		t.Fatal("attempt not persisted")
	}
	if attempt.Status != models.AttemptInProgress {
		t.Errorf("Status = %s, want IN_PROGRESS", attempt.Status)
	}
	if attempt.OptionShuffleSeed == 0 {
		t.Error("shuffle seed not stored")
	}

	orders := make(map[int]bool)
	seen := make(map[uint]bool)
	for _, aq := range repo.attemptQuestions {
		if aq.ExamAttemptID != resp.AttemptID {
			continue
		}
		if orders[aq.SortOrder] {
			t.Errorf("duplicate sort order %d", aq.SortOrder)
		}
		orders[aq.SortOrder] = true
		if seen[aq.QuestionID] {
			t.Errorf("question %d drawn twice", aq.QuestionID)
		}
		seen[aq.QuestionID] = true
	}
	if len(orders) != exam.QuestionCount {
		t.Errorf("created %d question rows, want %d", len(orders), exam.QuestionCount)
	}
	for i := 1; i <= exam.QuestionCount; i++ {
		if !orders[i] {
			t.Errorf("sort order %d missing", i)
		}
	}
}

func TestStartAttemptEmptyPool(t *testing.T) {
	repo := newFakeRepository()
	repo.seedExam("PD1", 3, 65, 105)
	svc, _ := newTestAttemptService(repo)

	_, err := svc.Start(context.Background(), &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Fatalf("error = %v, want ErrNoQuestionsAvailable", err)
	}
}

func TestStartAttemptPremiumOnlyPool(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	exam := repo.seedExam("PD1", 3, 65, 105)
	topic := repo.seedTopic(exam.ID, "apex-basics")
	for i := 0; i < 5; i++ {
		repo.seedQuestion(exam.ID, topic.ID, models.SingleChoice, true, 4, 1)
	}
	svc, _ := newTestAttemptService(repo)

	// a free user sees nothing in an all-premium bank
	_, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "free-user")
	if !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Fatalf("free user error = %v, want ErrNoQuestionsAvailable", err)
	}

	repo.subscriptions["premium-user"] = &models.Subscription{
		UserID: "premium-user",
		Status: models.SubscriptionActive,
		Plan:   "PREMIUM_MONTHLY",
	}
	resp, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "premium-user")
	if err != nil {
		t.Fatalf("premium user error = %v", err)
	}
	if resp.QuestionCount != 3 {
		t.Errorf("QuestionCount = %d, want 3", resp.QuestionCount)
	}
}

func TestGetAttemptOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	resp, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "owner")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, err = svc.GetByID(ctx, resp.AttemptID, "intruder")
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("error = %v, want PermissionError", err)
	}

	_, err = svc.GetByID(ctx, 99999, "owner")
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("error = %v, want ErrAttemptNotFound", err)
	}
}

func TestGetAttemptHidesCorrectnessUntilCompleted(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	inProgress, err := svc.GetByID(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	for _, q := range inProgress.Questions {
		if q.Question.Explanation != "" {
			t.Error("explanation leaked while in progress")
		}
		for _, a := range q.Question.Answers {
			if a.IsCorrect != nil {
				t.Error("correctness leaked while in progress")
			}
		}
	}

	if _, err := svc.Complete(ctx, started.AttemptID, "user-1"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	completed, err := svc.GetByID(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if completed.TimeRemainingMinutes != 0 {
		t.Errorf("TimeRemainingMinutes = %d after completion, want 0", completed.TimeRemainingMinutes)
	}
	for _, q := range completed.Questions {
		revealed := false
		for _, a := range q.Question.Answers {
			if a.IsCorrect != nil {
				revealed = true
			}
		}
		if !revealed {
			t.Errorf("question %d correctness still hidden after completion", q.QuestionID)
		}
	}
}

func TestGetAttemptStableOptionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	first, err := svc.GetByID(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	second, err := svc.GetByID(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	// the start response renders the first question from the same seed
	firstQ := first.Questions[0].Question
	for i, a := range started.FirstQuestion.Question.Answers {
		if firstQ.Answers[i].ID != a.ID {
			t.Fatalf("first question option order diverged from start response at %d", i)
		}
	}

	for qi := range first.Questions {
		a := first.Questions[qi].Question.Answers
		b := second.Questions[qi].Question.Answers
		for i := range a {
			if a[i].ID != b[i].ID {
				t.Fatalf("question %d option order diverged at %d", first.Questions[qi].QuestionID, i)
			}
		}
	}
}

func TestSubmitExamAnswer(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	questionID := started.FirstQuestion.QuestionID
	question := repo.questions[questionID]
	correctID := question.CorrectAnswerIDs()[0]
	wrongID := question.Answers[0].ID

	// first submission: wrong
	if err := svc.SubmitAnswer(ctx, started.AttemptID, &SubmitExamAnswerRequest{
		QuestionID:        questionID,
		SelectedAnswerIDs: []uint{wrongID},
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	// overwrite: correct. A fresh row is appended, the link re-pointed.
	if err := svc.SubmitAnswer(ctx, started.AttemptID, &SubmitExamAnswerRequest{
		QuestionID:        questionID,
		SelectedAnswerIDs: []uint{correctID},
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	if len(repo.userAnswers) != 2 {
		t.Fatalf("persisted %d answer rows, want 2 (append, never overwrite)", len(repo.userAnswers))
	}

	aq, err := repo.Attempt().GetQuestion(ctx, started.AttemptID, questionID)
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if aq.UserAnswerID == nil || *aq.UserAnswerID != repo.userAnswers[1].ID {
		t.Error("link does not point at the latest answer")
	}

	// exam answers never feed topic progress
	if len(repo.progress) != 0 {
		t.Errorf("exam answer updated progress: %d rows", len(repo.progress))
	}

	resp, err := svc.GetByID(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	for _, q := range resp.Questions {
		if q.QuestionID == questionID && !q.IsAnswered {
			t.Error("answered question not marked as answered")
		}
	}
}

func TestSubmitExamAnswerOnCompletedAttempt(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := svc.Complete(ctx, started.AttemptID, "user-1"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	question := repo.questions[started.FirstQuestion.QuestionID]
	err = svc.SubmitAnswer(ctx, started.AttemptID, &SubmitExamAnswerRequest{
		QuestionID:        question.ID,
		SelectedAnswerIDs: []uint{question.Answers[0].ID},
	}, "user-1")
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("error = %v, want ErrAttemptNotActive", err)
	}
}

func TestFlagQuestion(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	questionID := started.FirstQuestion.QuestionID

	for i := 0; i < 2; i++ { // setting twice is a no-op
		if err := svc.FlagQuestion(ctx, started.AttemptID, &FlagQuestionRequest{
			QuestionID: questionID,
			IsFlagged:  true,
		}, "user-1"); err != nil {
			t.Fatalf("FlagQuestion() error = %v", err)
		}
	}

	aq, err := repo.Attempt().GetQuestion(ctx, started.AttemptID, questionID)
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if !aq.IsFlagged {
		t.Error("question not flagged")
	}

	if err := svc.FlagQuestion(ctx, started.AttemptID, &FlagQuestionRequest{
		QuestionID: questionID,
		IsFlagged:  false,
	}, "user-1"); err != nil {
		t.Fatalf("FlagQuestion() error = %v", err)
	}
	aq, _ = repo.Attempt().GetQuestion(ctx, started.AttemptID, questionID)
	if aq.IsFlagged {
		t.Error("flag not cleared")
	}
}

func TestCompleteAttemptScoring(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 3)
	svc, publisher := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// answer two of three correctly, leave the third unanswered
	var questionIDs []uint
	for _, aq := range repo.attemptQuestions {
		if aq.ExamAttemptID == started.AttemptID {
			questionIDs = append(questionIDs, aq.QuestionID)
		}
	}
	if len(questionIDs) != 3 {
		t.Fatalf("attempt has %d questions, want 3", len(questionIDs))
	}
	for _, qid := range questionIDs[:2] {
		question := repo.questions[qid]
		if err := svc.SubmitAnswer(ctx, started.AttemptID, &SubmitExamAnswerRequest{
			QuestionID:        qid,
			SelectedAnswerIDs: question.CorrectAnswerIDs(),
		}, "user-1"); err != nil {
			t.Fatalf("SubmitAnswer() error = %v", err)
		}
	}

	result, err := svc.Complete(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// round(2/3 * 100) = 67, passing score 65
	if result.Score != 67 {
		t.Errorf("Score = %d, want 67", result.Score)
	}
	if !result.Passed {
		t.Error("expected a pass at 67 against passing score 65")
	}

	attempt := repo.attempts[started.AttemptID]
	if attempt.Status != models.AttemptCompleted {
		t.Errorf("Status = %s, want COMPLETED", attempt.Status)
	}
	if attempt.Score == nil || *attempt.Score != 67 {
		t.Error("score not recorded on the attempt")
	}
	if attempt.CompletedAt == nil {
		t.Error("completion time not recorded")
	}

	if len(publisher.AttemptCompleted) != 1 {
		t.Fatalf("published %d completion events, want 1", len(publisher.AttemptCompleted))
	}
	event := publisher.AttemptCompleted[0]
	if event.AttemptID != started.AttemptID || event.Score != 67 || !event.Passed {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestCompleteAttemptLatestAnswerWins(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 3)
	svc, _ := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	questionID := started.FirstQuestion.QuestionID
	question := repo.questions[questionID]

	// correct first, then overwrite with a wrong answer
	if err := svc.SubmitAnswer(ctx, started.AttemptID, &SubmitExamAnswerRequest{
		QuestionID:        questionID,
		SelectedAnswerIDs: question.CorrectAnswerIDs(),
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if err := svc.SubmitAnswer(ctx, started.AttemptID, &SubmitExamAnswerRequest{
		QuestionID:        questionID,
		SelectedAnswerIDs: []uint{question.Answers[0].ID},
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	result, err := svc.Complete(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.Score != 0 {
		t.Errorf("Score = %d, want 0: the superseded correct answer must not count", result.Score)
	}
}

func TestCompleteAttemptIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 3)
	svc, publisher := newTestAttemptService(repo)

	started, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	first, err := svc.Complete(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	second, err := svc.Complete(ctx, started.AttemptID, "user-1")
	if err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}

	if first.Score != second.Score || first.Passed != second.Passed {
		t.Errorf("repeat completion changed the result: %+v vs %+v", first, second)
	}
	if len(publisher.AttemptCompleted) != 1 {
		t.Errorf("published %d completion events, want 1", len(publisher.AttemptCompleted))
	}
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedAttemptFixture(t, repo, 5)
	svc, _ := newTestAttemptService(repo)

	for i := 0; i < 3; i++ {
		if _, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "user-1"); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}
	if _, err := svc.Start(ctx, &StartAttemptRequest{ExamType: "PD1"}, "someone-else"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	history, err := svc.GetHistory(ctx, "user-1", "", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d entries, want 3", len(history))
	}
	for _, entry := range history {
		if entry.ExamType != "PD1" {
			t.Errorf("ExamType = %q, want PD1", entry.ExamType)
		}
		if entry.Status != models.AttemptInProgress {
			t.Errorf("Status = %s, want IN_PROGRESS", entry.Status)
		}
	}

	limited, err := svc.GetHistory(ctx, "user-1", "PD1", 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("got %d entries with limit 2", len(limited))
	}
}
