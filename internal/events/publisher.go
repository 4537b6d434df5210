package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/prepstack/examprep-service/internal/models"
)

const (
	TopicAnswers  = "examprep.answers"
	TopicAttempts = "examprep.attempts"

	EventAnswerSubmitted  = "answer.submitted"
	EventAttemptCompleted = "attempt.completed"
)

// AnswerSubmittedEvent is emitted after a scored answer is persisted.
type AnswerSubmittedEvent struct {
	UserID     string               `json:"user_id"`
	QuestionID uint                 `json:"question_id"`
	ExamID     uint                 `json:"exam_id"`
	TopicID    uint                 `json:"topic_id"`
	Context    models.AnswerContext `json:"context"`
	IsCorrect  bool                 `json:"is_correct"`
	AnsweredAt time.Time            `json:"answered_at"`
}

// AttemptCompletedEvent is emitted when an exam attempt reaches COMPLETED.
type AttemptCompletedEvent struct {
	UserID      string    `json:"user_id"`
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
}

// envelope is the wire shape shared by all events.
type envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// EventPublisher publishes domain events. Publishing is best-effort:
// callers log failures and never fail the request over them.
type EventPublisher interface {
	PublishAnswerSubmitted(ctx context.Context, event AnswerSubmittedEvent) error
	PublishAttemptCompleted(ctx context.Context, event AttemptCompletedEvent) error
	Close() error
}

// KafkaEventPublisher publishes events to Kafka via Watermill.
type KafkaEventPublisher struct {
	publisher message.Publisher
}

// NewKafkaEventPublisher connects a Watermill Kafka publisher.
func NewKafkaEventPublisher(brokers []string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{publisher: publisher}, nil
}

func (p *KafkaEventPublisher) PublishAnswerSubmitted(ctx context.Context, event AnswerSubmittedEvent) error {
	return p.publish(TopicAnswers, EventAnswerSubmitted, event)
}

func (p *KafkaEventPublisher) PublishAttemptCompleted(ctx context.Context, event AttemptCompletedEvent) error {
	return p.publish(TopicAttempts, EventAttemptCompleted, event)
}

func (p *KafkaEventPublisher) publish(topic, eventType string, payload interface{}) error {
	data, err := json.Marshal(envelope{
		ID:         watermill.NewUUID(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", eventType)

	return p.publisher.Publish(topic, msg)
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// NoopEventPublisher drops all events. Used when no brokers are configured.
type NoopEventPublisher struct{}

func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

func (p *NoopEventPublisher) PublishAnswerSubmitted(ctx context.Context, event AnswerSubmittedEvent) error {
	return nil
}

func (p *NoopEventPublisher) PublishAttemptCompleted(ctx context.Context, event AttemptCompletedEvent) error {
	return nil
}

func (p *NoopEventPublisher) Close() error {
	return nil
}
