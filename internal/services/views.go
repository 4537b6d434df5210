package services

import "github.com/prepstack/examprep-service/internal/models"

// newQuestionView renders a question for API consumers. The answers slice
// is passed separately so callers control the option order (per-request
// shuffle for practice, seeded per-attempt shuffle for exams).
//
// While reveal is false the view hides everything that would give the
// answer away: correctness markers, the explanation and the reference
// link. After reveal (practice feedback, completed attempts) all of it
// is included.
func newQuestionView(question *models.Question, answers []models.Answer, reveal bool) *QuestionView {
	view := &QuestionView{
		ID:          question.ID,
		TopicID:     question.TopicID,
		Type:        question.Type,
		Content:     question.Content,
		CodeSnippet: question.CodeSnippet,
		Difficulty:  question.Difficulty,
		Answers:     make([]AnswerView, 0, len(answers)),
	}

	if reveal {
		view.Explanation = question.Explanation
		view.ReferenceURL = question.ReferenceURL
	}

	for _, answer := range answers {
		av := AnswerView{
			ID:      answer.ID,
			Content: answer.Content,
		}
		if reveal {
			isCorrect := answer.IsCorrect
			av.IsCorrect = &isCorrect
		}
		view.Answers = append(view.Answers, av)
	}

	return view
}
