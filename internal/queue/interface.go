package queue

import (
	"context"
	"time"
)

// MessageInterface abstracts a delivered message so workers can be tested
// without a broker
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the broker-facing interface for background jobs
type JobQueue interface {
	// Enqueue publishes a job. A job with NotBefore set is delayed until
	// that time.
	Enqueue(ctx context.Context, job *Job) error

	// Consume starts delivering messages. The caller must Ack or Nack every
	// message; prefetchCount bounds unacknowledged messages per consumer.
	// Both channels close when the context is cancelled.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the broker connection
	Close() error

	// HealthCheck verifies the broker connection is usable
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than a retention window
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
