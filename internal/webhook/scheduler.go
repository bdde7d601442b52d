package webhook

import (
	"context"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/rs/zerolog"
)

// RetryScheduler periodically re-dispatches deliveries whose retry window has
// elapsed. Each scan is idempotent: the dispatcher's sending CAS gate makes a
// delivery claimed by an overlapping scan a per-item no-op, so two quick
// successive scans never double-send.
type RetryScheduler struct {
	deliveries webhook.DeliveryRepository
	dispatcher *Dispatcher
	batchSize  int
	logger     zerolog.Logger
}

func NewRetryScheduler(deliveries webhook.DeliveryRepository, dispatcher *Dispatcher, batchSize int, logger zerolog.Logger) *RetryScheduler {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &RetryScheduler{
		deliveries: deliveries,
		dispatcher: dispatcher,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Scan finds retry-eligible deliveries and re-attempts each. Per-delivery
// faults are isolated: one delivery's failure never aborts the rest. Returns
// the number of deliveries for which a send was actually attempted.
func (s *RetryScheduler) Scan(ctx context.Context, now time.Time) (int, error) {
	eligible, err := s.deliveries.ListRetryEligible(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	attempted := 0
	for _, delivery := range eligible {
		select {
		case <-ctx.Done():
			return attempted, ctx.Err()
		default:
		}

		outcome, err := s.dispatcher.AttemptSend(ctx, delivery, now)
		if err != nil {
			s.logger.Error().Err(err).Str("delivery_id", delivery.ID.String()).Msg("retry attempt failed")
			continue
		}
		if !outcome.Skipped {
			attempted++
		}
	}
	return attempted, nil
}

// Run scans on a fixed interval until the context is cancelled.
func (s *RetryScheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		attempted, err := s.Scan(ctx, time.Now())
		if err != nil {
			s.logger.Error().Err(err).Msg("retry scan failed")
			continue
		}
		if attempted > 0 {
			s.logger.Info().Int("attempted", attempted).Msg("retry scan re-dispatched deliveries")
		}
	}
}
