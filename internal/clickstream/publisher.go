// Package clickstream provides click event publishing and consumption.
// It carries click events from the redirect path to the hit store over a
// Redis stream with at-least-once delivery.
package clickstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/model"
)

const (
	// StreamKey is the Redis stream for click events.
	StreamKey = "stream:click_events"

	// DeadLetterStreamKey is the Redis stream for parked messages.
	DeadLetterStreamKey = "stream:click_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishAttempts is the bounded number of delivery attempts to the
	// broker before the event is dropped.
	PublishAttempts = 5

	// PublishRetryDelay is the fixed spacing between delivery attempts.
	PublishRetryDelay = 2 * time.Second

	// PublishAttemptTimeout bounds a single XADD call.
	PublishAttemptTimeout = time.Second
)

// Publisher enqueues click events to the Redis stream.
type Publisher struct {
	redis      *redis.Client
	logger     *slog.Logger
	metrics    metrics.Recorder
	attempts   int
	retryDelay time.Duration
}

// NewPublisher creates a new click event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:      client,
		logger:     logger.With("component", "clickstream.publisher"),
		metrics:    recorder,
		attempts:   PublishAttempts,
		retryDelay: PublishRetryDelay,
	}
}

// SetRetryPolicy overrides the delivery attempt count and spacing.
func (p *Publisher) SetRetryPolicy(attempts int, delay time.Duration) {
	if attempts > 0 {
		p.attempts = attempts
	}
	if delay >= 0 {
		p.retryDelay = delay
	}
}

// Publish adds a click event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event model.ClickEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync hands the event to the broker on a detached goroutine.
// The caller's redirect response never waits on the outcome, and
// cancellation of the inbound request cannot cancel the dispatch: the
// goroutine runs off context.Background. Delivery is attempted a bounded
// number of times with fixed spacing; exhausting the retries drops the
// event with a logged warning and no further escalation.
func (p *Publisher) PublishAsync(event model.ClickEvent) {
	go func() {
		var lastErr error

		for attempt := 1; attempt <= p.attempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), PublishAttemptTimeout)
			streamID, err := p.Publish(ctx, event)
			cancel()

			if err == nil {
				p.logger.Debug("click event published",
					"short_code", event.ShortCode,
					"stream_id", streamID,
					"attempt", attempt,
				)
				p.metrics.IncClickEventPublished("success")
				return
			}

			lastErr = err
			if attempt < p.attempts {
				time.Sleep(p.retryDelay)
			}
		}

		p.logger.Warn("dropping click event after exhausting publish attempts",
			"short_code", event.ShortCode,
			"attempts", p.attempts,
			"error", lastErr,
		)
		p.metrics.IncClickEventPublished("dropped")
	}()
}
