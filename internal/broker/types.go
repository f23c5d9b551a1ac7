package broker

import (
	"context"
)

// Producer publishes raw payloads to a topic. Key is the partition
// key; transports without a partition concept ignore it.
type Producer interface {
	Publish(ctx context.Context, topic string, key, payload []byte) error
	Close() error
}

// Consumer feeds every payload read from a topic to the handler. A
// handler error is a per-message failure; the read loop logs it and
// continues.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
}

type HandlerFunc func(ctx context.Context, key, payload []byte) error

// Prober is implemented by adapters that can report transport
// liveness for the health endpoint.
type Prober interface {
	Probe(ctx context.Context) error
}
