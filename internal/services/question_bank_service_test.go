package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/validator"
)

func newTestQuestionBankService(repo *fakeRepository) QuestionBankService {
	return NewQuestionBankService(repo, testLogger(), validator.New())
}

func TestValidateAnswerSet(t *testing.T) {
	correct := models.Answer{Content: "right", IsCorrect: true}
	wrong := models.Answer{Content: "wrong"}

	tests := []struct {
		name         string
		questionType models.QuestionType
		answers      []models.Answer
		wantRule     string
	}{
		{
			name:         "single choice one correct",
			questionType: models.SingleChoice,
			answers:      []models.Answer{correct, wrong, wrong},
		},
		{
			name:         "single choice zero correct",
			questionType: models.SingleChoice,
			answers:      []models.Answer{wrong, wrong},
			wantRule:     "single_choice_one_correct",
		},
		{
			name:         "single choice two correct",
			questionType: models.SingleChoice,
			answers:      []models.Answer{correct, correct},
			wantRule:     "single_choice_one_correct",
		},
		{
			name:         "multiple choice several correct",
			questionType: models.MultipleChoice,
			answers:      []models.Answer{correct, correct, wrong},
		},
		{
			name:         "multiple choice zero correct",
			questionType: models.MultipleChoice,
			answers:      []models.Answer{wrong, wrong},
			wantRule:     "multiple_choice_min_correct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAnswerSet(tt.questionType, tt.answers)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("validateAnswerSet() error = %v", err)
				}
				return
			}
			var ruleErr *BusinessRuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("error = %v, want BusinessRuleError", err)
			}
			if ruleErr.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", ruleErr.Rule, tt.wantRule)
			}
		})
	}
}

func TestCreateExamUniqueType(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := newTestQuestionBankService(repo)

	req := &CreateExamRequest{
		Type:            "PD1",
		Name:            "Platform Developer I",
		QuestionCount:   60,
		PassingScore:    68,
		DurationMinutes: 105,
	}
	if _, err := svc.CreateExam(ctx, req); err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}

	_, err := svc.CreateExam(ctx, req)
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("error = %v, want BusinessRuleError", err)
	}
	if ruleErr.Rule != "exam_type_unique" {
		t.Errorf("Rule = %q, want exam_type_unique", ruleErr.Rule)
	}
}

func TestCreateQuestion(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	exam := repo.seedExam("PD1", 60, 65, 105)
	repo.seedTopic(exam.ID, "apex-basics")
	svc := newTestQuestionBankService(repo)

	question, err := svc.CreateQuestion(ctx, &CreateQuestionRequest{
		ExamType:   "PD1",
		Topic:      "apex-basics",
		Type:       models.SingleChoice,
		Content:    "Which statement runs after insert?",
		Difficulty: 2,
		Answers: []CreateAnswerRequest{
			{Content: "after insert trigger", IsCorrect: true},
			{Content: "before insert trigger"},
			{Content: "validation rule"},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuestion() error = %v", err)
	}
	if question.ID == 0 {
		t.Fatal("question not persisted")
	}
	if len(question.Answers) != 3 {
		t.Fatalf("question has %d answers, want 3", len(question.Answers))
	}
	for i, a := range question.Answers {
		if a.SortOrder != i+1 {
			t.Errorf("answer %d sort order = %d, want %d", i, a.SortOrder, i+1)
		}
	}

	t.Run("rejects zero correct answers", func(t *testing.T) {
		_, err := svc.CreateQuestion(ctx, &CreateQuestionRequest{
			ExamType:   "PD1",
			Topic:      "apex-basics",
			Type:       models.SingleChoice,
			Content:    "Broken question",
			Difficulty: 2,
			Answers: []CreateAnswerRequest{
				{Content: "a"},
				{Content: "b"},
			},
		})
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Fatalf("error = %v, want BusinessRuleError", err)
		}
	})

	t.Run("rejects unknown topic", func(t *testing.T) {
		_, err := svc.CreateQuestion(ctx, &CreateQuestionRequest{
			ExamType:   "PD1",
			Topic:      "no-such-topic",
			Type:       models.SingleChoice,
			Content:    "Orphan question",
			Difficulty: 2,
			Answers: []CreateAnswerRequest{
				{Content: "a", IsCorrect: true},
				{Content: "b"},
			},
		})
		if !errors.Is(err, ErrTopicNotFound) {
			t.Fatalf("error = %v, want ErrTopicNotFound", err)
		}
	})
}

func TestAnswerCellRoundTrip(t *testing.T) {
	answers := []models.Answer{
		{Content: "Platform events", IsCorrect: true, SortOrder: 1},
		{Content: "Apex triggers", SortOrder: 2},
		{Content: "Scheduled jobs", SortOrder: 3},
	}

	cell := formatAnswerCell(answers)
	if cell != "*Platform events|Apex triggers|Scheduled jobs" {
		t.Fatalf("formatAnswerCell() = %q", cell)
	}

	parsed, err := parseAnswerCell(cell)
	if err != nil {
		t.Fatalf("parseAnswerCell() error = %v", err)
	}
	if len(parsed) != len(answers) {
		t.Fatalf("parsed %d answers, want %d", len(parsed), len(answers))
	}
	for i := range answers {
		if parsed[i].Content != answers[i].Content {
			t.Errorf("answer %d content = %q, want %q", i, parsed[i].Content, answers[i].Content)
		}
		if parsed[i].IsCorrect != answers[i].IsCorrect {
			t.Errorf("answer %d correctness = %v, want %v", i, parsed[i].IsCorrect, answers[i].IsCorrect)
		}
		if parsed[i].SortOrder != i+1 {
			t.Errorf("answer %d sort order = %d, want %d", i, parsed[i].SortOrder, i+1)
		}
	}
}

func TestParseAnswerCellErrors(t *testing.T) {
	tests := []struct {
		name string
		cell string
	}{
		{name: "empty cell", cell: ""},
		{name: "single answer", cell: "*only one"},
		{name: "blank answer", cell: "*a| |b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseAnswerCell(tt.cell); err == nil {
				t.Errorf("parseAnswerCell(%q) succeeded, want error", tt.cell)
			}
		})
	}
}
