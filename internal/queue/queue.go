// Package queue is the fire-and-forget side channel for auxiliary message
// processing (analytics, moderation review). Delivery is at most once with
// no ordering guarantee relative to the room broadcast; failures are logged
// and counted, never surfaced to the sender.
package queue

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"market-chat-service/internal/models"
	"market-chat-service/internal/observability"
	"market-chat-service/internal/rabbitmq"
)

const enqueueTimeout = 5 * time.Second

// Envelope wraps a queued message with emission metadata.
type Envelope struct {
	Meta Meta           `json:"meta"`
	Data models.Message `json:"data"`
}

// Meta identifies one emitted event.
type Meta struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Producer string    `json:"producer"`
	Time     time.Time `json:"time"`
}

// SecondaryQueue publishes persisted messages for downstream processing.
type SecondaryQueue struct {
	publisher  rabbitmq.Publisher
	routingKey string
	producer   string
}

// NewSecondaryQueue builds a SecondaryQueue on top of a publisher.
func NewSecondaryQueue(publisher rabbitmq.Publisher, routingKey, producer string) *SecondaryQueue {
	return &SecondaryQueue{publisher: publisher, routingKey: routingKey, producer: producer}
}

// Enqueue hands the message off in a goroutine and returns immediately; the
// sender's response never waits on the broker.
func (q *SecondaryQueue) Enqueue(msg models.Message) {
	if q == nil || q.publisher == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()

		envelope := Envelope{
			Meta: Meta{
				ID:       uuid.NewString(),
				Type:     "chat.message.created.v1",
				Producer: q.producer,
				Time:     time.Now().UTC(),
			},
			Data: msg,
		}
		if err := q.publisher.Publish(ctx, q.routingKey, envelope); err != nil {
			observability.IncQueueEnqueueError()
			log.Printf("secondary queue enqueue failed message_id=%s: %v", msg.ID, err)
		}
	}()
}
