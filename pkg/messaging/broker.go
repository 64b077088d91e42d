package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the payload shape carried over a broker channel.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
