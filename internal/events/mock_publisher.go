package events

import (
	"context"
	"sync"
)

// MockEventPublisher records published events for assertions in tests.
type MockEventPublisher struct {
	mu sync.Mutex

	AnswerSubmitted  []AnswerSubmittedEvent
	AttemptCompleted []AttemptCompletedEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (p *MockEventPublisher) PublishAnswerSubmitted(ctx context.Context, event AnswerSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnswerSubmitted = append(p.AnswerSubmitted, event)
	return nil
}

func (p *MockEventPublisher) PublishAttemptCompleted(ctx context.Context, event AttemptCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AttemptCompleted = append(p.AttemptCompleted, event)
	return nil
}

func (p *MockEventPublisher) Close() error {
	return nil
}
