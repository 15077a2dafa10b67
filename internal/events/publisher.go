package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/DartonStaker/appapost/internal/dispatch"
	"github.com/DartonStaker/appapost/pkg/kafka"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const attemptsTopic = "post.attempts"

// AttemptEvent is the wire shape emitted for every terminal publish
// outcome. Downstream analytics and billing consume these.
type AttemptEvent struct {
	EventID   string    `json:"event_id"`
	PostID    string    `json:"post_id"`
	Platform  string    `json:"platform"`
	Status    string    `json:"status"`
	PostURL   string    `json:"post_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits publish outcomes to Kafka. A nil Publisher or one
// without a producer is a no-op, so event delivery stays optional.
type Publisher struct {
	producer *kafka.Producer
	logger   logging.Logger
}

func NewPublisher(producer *kafka.Producer, logger logging.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// PublishAttempt emits one outcome event. Event delivery is
// best-effort; a broker outage never fails the posting path.
func (p *Publisher) PublishAttempt(attempt dispatch.PostAttempt) {
	if p == nil || p.producer == nil {
		return
	}

	event := AttemptEvent{
		EventID:   uuid.New().String(),
		PostID:    attempt.PostID,
		Platform:  string(attempt.Platform),
		Status:    string(attempt.Status),
		PostURL:   attempt.PostURL,
		Error:     attempt.Error,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	headers := map[string]string{
		"status":   event.Status,
		"platform": event.Platform,
	}
	if err := p.producer.ProduceMessage(attemptsTopic, []byte(attempt.PostID), payload, headers); err != nil && p.logger != nil {
		p.logger.WithError(err).WithField("post_id", attempt.PostID).Warn("Failed to publish attempt event")
	}
}

// PublishBatch emits events for a whole dispatch result set.
func (p *Publisher) PublishBatch(attempts []dispatch.PostAttempt) {
	for _, attempt := range attempts {
		p.PublishAttempt(attempt)
	}
}
