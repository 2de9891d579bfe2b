package clickstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/model"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "hit_writers"

	// DefaultBlockTimeout is how long a read blocks waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxDeliveries is the delivery budget per message before it
	// is parked on the dead-letter stream.
	DefaultMaxDeliveries = 5

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 10 * time.Second

	// DefaultClaimIdle is the idle time before a pending message is
	// reclaimed from a stalled consumer.
	DefaultClaimIdle = 30 * time.Second
)

// HitStore persists hit records built from click events.
type HitStore interface {
	InsertHit(ctx context.Context, hit *model.HitRecord) error
}

// Consumer drains click events from the stream into the hit store.
// Each message is processed individually: persisted then acknowledged,
// or left pending for broker redelivery on failure. No deduplication is
// performed; a redelivered message appends another hit record.
type Consumer struct {
	redis         *redis.Client
	store         HitStore
	logger        *slog.Logger
	metrics       metrics.Recorder
	consumerID    string
	blockTimeout  time.Duration
	maxDeliveries int64
	claimInterval time.Duration
	claimIdle     time.Duration
	lastClaim     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewConsumer creates a click event consumer.
func NewConsumer(client *redis.Client, store HitStore, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Consumer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Consumer{
		redis:         client,
		store:         store,
		logger:        logger.With("component", "clickstream.consumer", "consumer_id", consumerID),
		metrics:       recorder,
		consumerID:    consumerID,
		blockTimeout:  DefaultBlockTimeout,
		maxDeliveries: DefaultMaxDeliveries,
		claimInterval: DefaultClaimInterval,
		claimIdle:     DefaultClaimIdle,
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (c *Consumer) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.blockTimeout = timeout
	}
}

// SetMaxDeliveries overrides the per-message delivery budget.
func (c *Consumer) SetMaxDeliveries(max int64) {
	if max > 0 {
		c.maxDeliveries = max
	}
}

// SetClaimInterval overrides the default pending-claim interval.
func (c *Consumer) SetClaimInterval(interval time.Duration) {
	if interval > 0 {
		c.claimInterval = interval
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (c *Consumer) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		c.claimIdle = idle
	}
}

// Run starts the consumer loop. Blocks until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("consumer already started")
	}
	c.started = true
	c.done = make(chan struct{})
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	defer close(c.done)

	if err := c.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	c.logger.Info("click event consumer started")

	for {
		c.mu.Lock()
		draining := c.draining
		c.mu.Unlock()

		if draining {
			c.logger.Info("consumer draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping")
			return ctx.Err()
		default:
			if err := c.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				c.logger.Error("process error", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// Shutdown gracefully stops the consumer, completing any in-flight message.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (c *Consumer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.draining = true
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	c.logger.Info("consumer shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			c.logger.Info("consumer shutdown complete")
			return nil
		case <-ctx.Done():
			c.logger.Warn("consumer shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist.
func (c *Consumer) ensureConsumerGroup(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

// processOnce handles at most one new message, after sweeping stale
// pending entries back into circulation.
func (c *Consumer) processOnce(ctx context.Context) error {
	if err := c.maybeReclaimPending(ctx); err != nil {
		c.logger.Warn("failed to reclaim pending messages", "error", err)
	}

	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: c.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    1, // one message at a time per worker
		Block:    c.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("xreadgroup: %w", err)
	}

	for _, msg := range streams[0].Messages {
		// A persist failure leaves the message pending for redelivery;
		// the loop continues so one poison message cannot stall reads.
		_ = c.handleMessage(ctx, msg)
	}

	return nil
}

// maybeReclaimPending scans the group's pending list on an interval.
// Entries idle past the claim threshold are either parked (delivery
// budget exhausted) or claimed by this consumer and retried.
func (c *Consumer) maybeReclaimPending(ctx context.Context) error {
	if c.claimInterval <= 0 || c.claimIdle <= 0 {
		return nil
	}
	if !c.lastClaim.IsZero() && time.Since(c.lastClaim) < c.claimInterval {
		return nil
	}
	c.lastClaim = time.Now()

	pending, err := c.redis.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamKey,
		Group:  ConsumerGroup,
		Idle:   c.claimIdle,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("xpending: %w", err)
	}

	for _, entry := range pending {
		if entry.RetryCount >= c.maxDeliveries {
			c.parkByID(ctx, entry.ID, "delivery_budget_exhausted",
				fmt.Sprintf("delivered %d times", entry.RetryCount))
			continue
		}

		claimed, err := c.redis.XClaim(ctx, &redis.XClaimArgs{
			Stream:   StreamKey,
			Group:    ConsumerGroup,
			Consumer: c.consumerID,
			MinIdle:  c.claimIdle,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil && err != redis.Nil {
			c.logger.Warn("xclaim failed", "message_id", entry.ID, "error", err)
			continue
		}

		for _, msg := range claimed {
			_ = c.handleMessage(ctx, msg)
		}
	}

	return nil
}

// handleMessage processes a single delivery: decode, persist, ack.
// Malformed payloads are parked immediately. A hit store failure returns
// the error without acking so the broker redelivers.
func (c *Consumer) handleMessage(ctx context.Context, msg redis.XMessage) error {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.park(ctx, msg, "invalid_format", "payload field missing or not a string")
		return c.ack(ctx, msg.ID)
	}

	var event model.ClickEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.park(ctx, msg, "unmarshal_error", err.Error())
		return c.ack(ctx, msg.ID)
	}
	if event.ShortCode == "" {
		c.park(ctx, msg, "validation_error", "short_code is required")
		return c.ack(ctx, msg.ID)
	}

	// Fresh identifier and receive timestamp per delivery, not the
	// event's occurred_at.
	hit := &model.HitRecord{
		ID:        uuid.NewString(),
		ShortCode: event.ShortCode,
		IPAddress: event.ClientIP,
		UserAgent: event.UserAgent,
		Referrer:  event.Referrer,
		Timestamp: time.Now().UTC(),
	}

	if err := c.store.InsertHit(ctx, hit); err != nil {
		c.logger.Error("failed to persist hit, leaving message pending",
			"message_id", msg.ID,
			"short_code", event.ShortCode,
			"error", err,
		)
		c.metrics.IncClickEventConsumed("failed")
		return err
	}

	if err := c.ack(ctx, msg.ID); err != nil {
		// Persisted but unacked: the broker will redeliver and a
		// duplicate hit row will be written. Accepted at-least-once
		// behavior.
		return err
	}

	c.logger.Debug("hit recorded",
		"message_id", msg.ID,
		"short_code", event.ShortCode,
		"hit_id", hit.ID,
	)
	c.metrics.IncClickEventConsumed("success")
	if !event.OccurredAt.IsZero() {
		c.metrics.ObserveConsumeLag(time.Since(event.OccurredAt))
	}

	return nil
}

// park moves a message to the dead-letter stream and records why.
func (c *Consumer) park(ctx context.Context, msg redis.XMessage, reason, detail string) {
	c.logger.Warn("parking message",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	_, err := c.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":     msg.ID,
			"original_stream": StreamKey,
			"reason":          reason,
			"detail":          detail,
			"payload":         msg.Values["payload"],
			"parked_at":       time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		c.logger.Error("failed to write to dead-letter stream",
			"message_id", msg.ID,
			"error", err,
		)
	}

	c.metrics.IncClickEventConsumed("parked")
}

// parkByID parks a pending message by stream ID, then acks it.
func (c *Consumer) parkByID(ctx context.Context, id, reason, detail string) {
	msgs, err := c.redis.XRangeN(ctx, StreamKey, id, id, 1).Result()
	if err != nil || len(msgs) == 0 {
		// Trimmed out of the stream already; just release the pending entry.
		_ = c.ack(ctx, id)
		return
	}

	c.park(ctx, msgs[0], reason, detail)
	_ = c.ack(ctx, id)
}

// ack acknowledges a processed message.
func (c *Consumer) ack(ctx context.Context, id string) error {
	if err := c.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && (err.Error() == "BUSYGROUP Consumer Group name already exists" ||
		err.Error() == "BUSYGROUP")
}
