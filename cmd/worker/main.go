package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/bootstrap"
	domainWebhook "github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	infraRedis "github.com/odhiambodaniel/pesaflow/internal/infrastructure/redis"
	"github.com/odhiambodaniel/pesaflow/internal/repository/postgres"
	"github.com/odhiambodaniel/pesaflow/internal/webhook"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "pesaflow-worker", "pesaflow_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	endpointRepo := postgres.NewEndpointRepository(app.Pool)
	deliveryRepo := postgres.NewDeliveryRepository(app.Pool)

	// --- Webhook sender ---
	producer := infraRedis.NewDeliveryProducer(app.Redis)
	policy := domainWebhook.ExponentialBackoff(
		app.Config.Webhook.MaxAttempts,
		app.Config.Webhook.InitialBackoff,
		app.Config.Webhook.BackoffMultiplier,
		app.Config.Webhook.MaxBackoff,
	)
	client := webhook.NewHTTPClient(app.Config.Webhook.ConnectTimeout)
	txManager := postgres.NewTxManager(app.Pool)
	dispatcher := webhook.NewDispatcher(deliveryRepo, endpointRepo, producer, client, policy, app.Config.Webhook.SendTimeout, txManager, app.Logger)
	scheduler := webhook.NewRetryScheduler(deliveryRepo, dispatcher, int(app.Config.Worker.BatchSize), app.Logger)

	// --- Delivery stream consumer ---
	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.DeliveryStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	app.Logger.Info().
		Str("stream", infraRedis.DeliveryStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Delivery sender (reads from Redis Streams).
	g.Go(func() error {
		return runDeliverySender(gCtx, app, consumer, dispatcher, deliveryRepo)
	})

	// 2. Retry scheduler (polls for due retries).
	g.Go(func() error {
		return runRetryScheduler(gCtx, app, scheduler, workerCfg.RetryScanInterval)
	})

	// 3. Stale reclaimer (rescues messages left unacked by skipped or dead
	// consumers).
	g.Go(func() error {
		return runStaleReclaimer(gCtx, app, consumer, dispatcher, deliveryRepo, workerCfg.RetryScanInterval, workerCfg.LockTTL)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runDeliverySender(
	ctx context.Context,
	app *bootstrap.App,
	consumer *infraRedis.StreamConsumer,
	dispatcher *webhook.Dispatcher,
	deliveries *postgres.DeliveryRepository,
) error {
	logger := app.Logger
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				processDeliveryMessage(ctx, app, consumer, dispatcher, deliveries, msg.ID, msg.Values)
			}
		}
	}
}

func processDeliveryMessage(
	ctx context.Context,
	app *bootstrap.App,
	consumer *infraRedis.StreamConsumer,
	dispatcher *webhook.Dispatcher,
	deliveries *postgres.DeliveryRepository,
	messageID string,
	values map[string]any,
) {
	logger := app.Logger

	deliveryIDStr, _ := values["delivery_id"].(string)
	deliveryID, err := uuid.Parse(deliveryIDStr)
	if err != nil {
		logger.Error().Str("raw", deliveryIDStr).Msg("Invalid delivery ID in stream message")
		consumer.Ack(ctx, messageID)
		return
	}

	// Serialize attempts on this delivery across worker instances. The
	// compare-and-set claim inside AttemptSend is the correctness gate; the
	// lock just avoids wasted work.
	lock := infraRedis.NewDistributedLock(app.Redis, "delivery:"+deliveryID.String(), app.Config.Worker.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		// Leave the message unacked; the stale reclaimer picks it up once it
		// has sat idle past the lock TTL.
		logger.Warn().Str("delivery_id", deliveryID.String()).Msg("Could not acquire lock, skipping")
		return
	}
	defer lock.Release(ctx)

	delivery, err := deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		logger.Error().Err(err).Str("delivery_id", deliveryID.String()).Msg("Failed to load delivery")
		consumer.Ack(ctx, messageID)
		return
	}

	start := time.Now()
	outcome, err := dispatcher.AttemptSend(ctx, delivery, time.Now().UTC())
	if err != nil {
		logger.Error().Err(err).Str("delivery_id", deliveryID.String()).Msg("Failed to attempt delivery")
		app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.DeliveryStream, "error").Inc()
		// The retry scheduler will pick the delivery up; drop the message.
		consumer.Ack(ctx, messageID)
		return
	}

	result := "failure"
	switch {
	case outcome.Skipped:
		result = "skipped"
	case outcome.Success:
		result = "success"
	}
	app.Metrics.DeliveryAttempts.WithLabelValues(result).Inc()
	app.Metrics.DeliveryDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.DeliveryStream, result).Inc()
	app.Metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.DeliveryStream).Observe(time.Since(start).Seconds())

	consumer.Ack(ctx, messageID)
}

func runStaleReclaimer(
	ctx context.Context,
	app *bootstrap.App,
	consumer *infraRedis.StreamConsumer,
	dispatcher *webhook.Dispatcher,
	deliveries *postgres.DeliveryRepository,
	interval time.Duration,
	minIdle time.Duration,
) error {
	logger := app.Logger
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		messages, err := consumer.ClaimStale(ctx, minIdle)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to claim stale messages")
			continue
		}
		for _, msg := range messages {
			processDeliveryMessage(ctx, app, consumer, dispatcher, deliveries, msg.ID, msg.Values)
		}
	}
}

func runRetryScheduler(
	ctx context.Context,
	app *bootstrap.App,
	scheduler *webhook.RetryScheduler,
	interval time.Duration,
) error {
	logger := app.Logger
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		app.Metrics.RetryScans.Inc()
		attempted, err := scheduler.Scan(ctx, time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Msg("Retry scan error")
			continue
		}
		if attempted > 0 {
			app.Metrics.RetriesAttempted.Add(float64(attempted))
			logRetries(logger, attempted)
		}
	}
}

func logRetries(logger zerolog.Logger, attempted int) {
	logger.Info().Int("attempted", attempted).Msg("Retried due deliveries")
}
