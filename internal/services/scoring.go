package services

import (
	"fmt"

	"github.com/prepstack/examprep-service/internal/models"
)

// ScoreResult is the outcome of evaluating one submission.
type ScoreResult struct {
	IsCorrect        bool   `json:"is_correct"`
	CorrectAnswerIDs []uint `json:"correct_answer_ids"`
}

// ScoreAnswer evaluates a selection against the question's answer set.
// Selections are treated as sets: order is irrelevant and duplicates
// collapse. The submission is correct only when the selected set equals
// the correct set exactly; partial credit is never awarded, for
// MULTIPLE_CHOICE just as for SINGLE_CHOICE.
//
// Pure function, no side effects. Ids that do not belong to the question
// fail with ErrInvalidSelection before anything is persisted.
func ScoreAnswer(question *models.Question, selectedAnswerIDs []uint) (*ScoreResult, error) {
	selected := make(map[uint]struct{}, len(selectedAnswerIDs))
	for _, id := range selectedAnswerIDs {
		if !question.HasAnswer(id) {
			return nil, fmt.Errorf("%w: answer %d, question %d", ErrInvalidSelection, id, question.ID)
		}
		selected[id] = struct{}{}
	}

	correctIDs := question.CorrectAnswerIDs()
	isCorrect := len(selected) == len(correctIDs)
	if isCorrect {
		for _, id := range correctIDs {
			if _, ok := selected[id]; !ok {
				isCorrect = false
				break
			}
		}
	}

	return &ScoreResult{
		IsCorrect:        isCorrect,
		CorrectAnswerIDs: correctIDs,
	}, nil
}

// dedupeAnswerIDs collapses a selection to a set, preserving first-seen order.
func dedupeAnswerIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
