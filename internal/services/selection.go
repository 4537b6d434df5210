package services

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// selectionParams constrains one draw from the question bank.
type selectionParams struct {
	ExamID          uint
	TopicID         *uint
	Count           int
	Difficulty      *int
	ExcludeAnswered bool
	UserID          string
	Tier            models.UserTier
}

// selectQuestions draws a randomized subset of the filtered pool: active
// questions of the exam (optionally one topic), gated by the access
// policy, optionally difficulty-filtered, optionally excluding anything
// the user has ever answered, then uniformly shuffled and cut to Count.
// The result may be shorter than Count; empty pools are the caller's
// call to treat as an error or an empty browse result.
func selectQuestions(ctx context.Context, repo repositories.Repository, params selectionParams, seed int64) ([]*models.Question, error) {
	filters := repositories.QuestionFilters{
		ExamID:         params.ExamID,
		TopicID:        params.TopicID,
		Difficulty:     params.Difficulty,
		IncludePremium: params.Tier == models.TierPremium,
	}

	if params.ExcludeAnswered {
		answeredIDs, err := repo.UserAnswer().AnsweredQuestionIDs(ctx, params.UserID, params.ExamID)
		if err != nil {
			return nil, err
		}
		filters.ExcludeIDs = answeredIDs
	}

	pool, err := repo.Question().ListPool(ctx, filters)
	if err != nil {
		return nil, err
	}

	// The pool query already excludes premium rows for free users; keep
	// the policy check anyway so a stale cache never leaks gated content
	pool = FilterVisible(pool, params.Tier)

	return takeRandom(pool, params.Count, seed), nil
}

// takeRandom returns up to count elements of pool in uniformly random
// order (Fisher-Yates). The input slice is not modified.
func takeRandom(pool []*models.Question, count int, seed int64) []*models.Question {
	shuffled := make([]*models.Question, len(pool))
	copy(shuffled, pool)

	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count < len(shuffled) {
		shuffled = shuffled[:count]
	}
	return shuffled
}

// shuffledAnswers returns the question's answer options in randomized
// order without touching the stored slice. Decorrelates the
// first-option-is-right pattern across fetches.
func shuffledAnswers(question *models.Question, r *rand.Rand) []models.Answer {
	answers := make([]models.Answer, len(question.Answers))
	copy(answers, question.Answers)
	r.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	return answers
}

// resolveTopic accepts a slug or a numeric id, slug tried first. Callers
// may pass either; a slug like "42" that matches no topic falls through
// to the id lookup.
func resolveTopic(ctx context.Context, repo repositories.Repository, examID uint, ref string) (*models.Topic, error) {
	topic, err := repo.Topic().GetBySlug(ctx, examID, ref)
	if err == nil {
		return topic, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	id, parseErr := strconv.ParseUint(ref, 10, 32)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, ref)
	}

	topic, err = repo.Topic().GetByID(ctx, uint(id))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, ref)
		}
		return nil, err
	}
	if topic.ExamID != examID {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, ref)
	}
	return topic, nil
}
