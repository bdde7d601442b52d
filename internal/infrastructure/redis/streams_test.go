package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamFixture(t *testing.T, consumerName string) (*goredis.Client, *StreamConsumer) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	consumer := NewStreamConsumer(client, DeliveryStream, "pesaflow-workers", consumerName, 10, 10*time.Millisecond)
	require.NoError(t, consumer.CreateGroup(context.Background()))
	return client, consumer
}

func TestStreamConsumer_ReadDelivery(t *testing.T) {
	client, consumer := newStreamFixture(t, "worker-a")
	ctx := context.Background()

	deliveryID := uuid.New()
	producer := NewDeliveryProducer(client)
	require.NoError(t, producer.Enqueue(ctx, deliveryID, "payment.succeeded"))

	streams, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)

	msg := streams[0].Messages[0]
	assert.Equal(t, deliveryID.String(), msg.Values["delivery_id"])
	assert.Equal(t, "payment.succeeded", msg.Values["event_type"])
	require.NoError(t, consumer.Ack(ctx, msg.ID))
}

func TestStreamConsumer_ClaimStale_RescuesUnackedMessage(t *testing.T) {
	client, first := newStreamFixture(t, "worker-a")
	ctx := context.Background()

	deliveryID := uuid.New()
	producer := NewDeliveryProducer(client)
	require.NoError(t, producer.Enqueue(ctx, deliveryID, "payment.failed"))

	// First consumer reads the message but never acks it, the way a worker
	// that loses the per-delivery lock leaves it.
	streams, err := first.Read(ctx)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)

	second := NewStreamConsumer(client, DeliveryStream, "pesaflow-workers", "worker-b", 10, 10*time.Millisecond)
	claimed, err := second.ClaimStale(ctx, 0)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, deliveryID.String(), claimed[0].Values["delivery_id"])

	// Once acked the message leaves the pending list for good.
	require.NoError(t, second.Ack(ctx, claimed[0].ID))
	claimed, err = second.ClaimStale(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestStreamConsumer_ClaimStale_RespectsMinIdle(t *testing.T) {
	client, first := newStreamFixture(t, "worker-a")
	ctx := context.Background()

	producer := NewDeliveryProducer(client)
	require.NoError(t, producer.Enqueue(ctx, uuid.New(), "payment.succeeded"))

	_, err := first.Read(ctx)
	require.NoError(t, err)

	// A message read moments ago is not stale yet.
	second := NewStreamConsumer(client, DeliveryStream, "pesaflow-workers", "worker-b", 10, 10*time.Millisecond)
	claimed, err := second.ClaimStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
