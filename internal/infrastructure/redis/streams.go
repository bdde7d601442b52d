package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DeliveryStream carries freshly dispatched webhook delivery IDs to the
	// send workers.
	DeliveryStream = "webhooks:delivery"
)

// DeliveryProducer publishes dispatched deliveries onto the delivery stream.
type DeliveryProducer struct {
	client *redis.Client
}

func NewDeliveryProducer(client *redis.Client) *DeliveryProducer {
	return &DeliveryProducer{client: client}
}

// Enqueue implements the dispatcher's DeliveryQueue port.
func (p *DeliveryProducer) Enqueue(ctx context.Context, deliveryID uuid.UUID, eventType string) error {
	args := &redis.XAddArgs{
		Stream: DeliveryStream,
		Values: map[string]any{
			"delivery_id": deliveryID.String(),
			"event_type":  eventType,
			"timestamp":   time.Now().Unix(),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish delivery: %w", err)
	}
	return nil
}

// StreamConsumer reads delivery messages as part of a consumer group.
type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	// Create stream if it doesn't exist
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			// No new messages
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.stream, c.group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// ClaimStale takes over messages that sat unacked in the group's pending list
// longer than minIdle, scanning from the start of the list. A consumer that
// skipped a message (or died holding one) leaves it pending; this is the
// rescue path that brings it back into circulation.
func (c *StreamConsumer) ClaimStale(ctx context.Context, minIdle time.Duration) ([]redis.XMessage, error) {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    c.batchSize,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to claim stale messages: %w", err)
	}

	return messages, nil
}
