package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/prepstack/examprep-service/internal/cache"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
)

// SubscriptionPostgreSQL implements SubscriptionRepository. Subscription
// rows are written by the billing pipeline, never by this service.
type SubscriptionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSubscriptionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SubscriptionRepository {
	return &SubscriptionPostgreSQL{db: db, cacheManager: cacheManager}
}

// GetByUserID returns nil for users without a subscription row; callers
// treat that as the free tier.
func (r *SubscriptionPostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var subscription models.Subscription
	cacheKey := fmt.Sprintf("subscription:%s", userID)

	err := r.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &subscription, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var fetched models.Subscription
		if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&fetched).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Cache the free-tier default to spare repeated misses
				return &models.Subscription{UserID: userID, Status: models.SubscriptionFree, Plan: "FREE"}, nil
			}
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription for user %s: %w", userID, err)
	}

	if subscription.ID == 0 && subscription.Status == models.SubscriptionFree {
		return nil, nil
	}
	return &subscription, nil
}
