package services

import (
	"context"
	"fmt"

	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// IsQuestionVisible is the access policy: premium questions are gated to
// the premium tier, everything else is open. Pure function.
func IsQuestionVisible(question *models.Question, tier models.UserTier) bool {
	return !question.IsPremium || tier == models.TierPremium
}

// FilterVisible keeps only the questions the tier may draw from.
func FilterVisible(questions []*models.Question, tier models.UserTier) []*models.Question {
	visible := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		if IsQuestionVisible(q, tier) {
			visible = append(visible, q)
		}
	}
	return visible
}

// lookupTier resolves the user's access tier from subscription state.
// Missing rows mean free; the billing lifecycle is out of scope here.
func lookupTier(ctx context.Context, repo repositories.Repository, userID string) (models.UserTier, error) {
	subscription, err := repo.Subscription().GetByUserID(ctx, userID)
	if err != nil {
		return models.TierFree, fmt.Errorf("failed to resolve user tier: %w", err)
	}
	return subscription.Tier(), nil
}
