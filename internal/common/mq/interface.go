package mq

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one event published to a topic.
type Message struct {
	ID        string
	Body      []byte
	Timestamp time.Time
}

// NewMessage creates a message with a generated id and current timestamp.
func NewMessage(body []byte) Message {
	return Message{
		ID:        uuid.NewString(),
		Body:      body,
		Timestamp: time.Now(),
	}
}

// Publisher defines the producer side of the message queue.
// Consumers live in downstream services and are out of scope here.
type Publisher interface {
	// Publish sends one message to a topic.
	Publish(ctx context.Context, topic string, message Message) error

	// Close flushes and releases producer resources.
	Close() error
}
