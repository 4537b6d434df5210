package repositories

import "context"

// Repository aggregates every entity repository behind one handle.
type Repository interface {
	// Question bank (admin-edited reference data)
	Exam() ExamRepository
	Topic() TopicRepository
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository
	UserAnswer() UserAnswerRepository

	// Progress domain
	Progress() ProgressRepository

	// External collaborators (read-only here)
	Subscription() SubscriptionRepository
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
