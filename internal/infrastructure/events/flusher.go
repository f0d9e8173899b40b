package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/creditledger/ledger/internal/application/ports"
)

// Flusher periodically drains ports.OutboxRepository into a
// ports.EventPublisher. It is the consumer half of the Transactional
// Outbox Pattern: without it, rows written by the orchestrator would
// sit in Postgres forever.
type Flusher struct {
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	log       *slog.Logger
}

// NewFlusher builds a Flusher. interval and batchSize should come from
// config.EventsConfig.FlushInterval / FlushBatchSize.
func NewFlusher(outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int, log *slog.Logger) *Flusher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Flusher{outbox: outbox, publisher: publisher, interval: interval, batchSize: batchSize, log: log}
}

// Run polls on Flusher.interval until ctx is cancelled. Intended to be
// started in its own goroutine by the container.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.flushOnce(ctx); err != nil {
				f.log.Warn("outbox flush cycle failed", "error", err)
			}
		}
	}
}

// flushOnce drains up to one batch. A single event's publish failure
// marks that row failed (for retry on the next cycle) but does not
// stop the rest of the batch from flushing.
func (f *Flusher) flushOnce(ctx context.Context) error {
	records, err := f.outbox.FindUnpublished(ctx, f.batchSize)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := f.publisher.Publish(ctx, record.Event); err != nil {
			f.log.Warn("failed to publish outbox event", "event_id", record.EventID, "event_type", record.Event.EventType(), "error", err)
			if markErr := f.outbox.MarkFailed(ctx, record.EventID, err.Error()); markErr != nil {
				f.log.Warn("failed to mark outbox event failed", "event_id", record.EventID, "error", markErr)
			}
			continue
		}
		if err := f.outbox.MarkPublished(ctx, record.EventID); err != nil {
			f.log.Warn("failed to mark outbox event published", "event_id", record.EventID, "error", err)
		}
	}
	return nil
}
