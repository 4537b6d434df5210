package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateQuestionCache invalidates a question plus every selection pool
// that might contain it.
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID, examID uint) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("pool:exam:%d:*", examID))
}

// InvalidateExamCache invalidates exam reference data and its topic list
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint, examType string) {
	SafeDelete(ctx, cm.Exam,
		fmt.Sprintf("id:%d", examID),
		fmt.Sprintf("type:%s", examType))
	SafeInvalidatePattern(ctx, cm.Topic, fmt.Sprintf("exam:%d:*", examID))
}

// InvalidateProgressCache invalidates one user's aggregates for an exam
func InvalidateProgressCache(ctx context.Context, cm *CacheManager, userID string, examID uint) {
	SafeInvalidatePattern(ctx, cm.Progress, fmt.Sprintf("user:%s:exam:%d:*", userID, examID))
}
