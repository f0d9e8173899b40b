// Package ports - EventPublisher publishes domain events raised by the
// orchestrator once a unit of work commits.
package ports

import (
	"context"

	"github.com/creditledger/ledger/internal/domain/events"
)

// EventPublisher publishes domain events to whatever durable transport
// backs production (NATS JetStream subjects, one per event type).
//
// Delivery is at-least-once: consumers must be idempotent.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch publishes several events as one call. If any single
	// event fails to publish, the whole batch is considered failed.
	PublishBatch(ctx context.Context, batch []events.DomainEvent) error
}

// OutboxRepository backs the Transactional Outbox Pattern: the
// orchestrator writes each event to this table in the same DB
// transaction as the balance/transaction row mutations, and a
// background flusher drains unpublished rows to the EventPublisher.
// This guarantees an event is never lost to a crash between commit and
// publish, at the cost of at-least-once delivery.
type OutboxRepository interface {
	// Save persists an event row. Must run inside the caller's unit of
	// work so it commits atomically with the business mutation.
	Save(ctx context.Context, event events.DomainEvent) error

	// FindUnpublished returns up to limit rows the flusher has not yet
	// confirmed published, oldest first.
	FindUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)

	// MarkPublished records that an event was handed off to the
	// publisher successfully.
	MarkPublished(ctx context.Context, eventID string) error

	// MarkFailed records a publish attempt failure so the flusher can
	// back off and retry rather than hot-looping on a bad row.
	MarkFailed(ctx context.Context, eventID string, reason string) error
}

// OutboxRecord is a decoded outbox row: the event plus the delivery
// bookkeeping fields the flusher needs.
type OutboxRecord struct {
	EventID     string
	Event       events.DomainEvent
	Attempts    int
	LastError   string
}
