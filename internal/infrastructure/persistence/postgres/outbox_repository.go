// Package postgres - OutboxRepository for the Transactional Outbox
// Pattern.
//
// The orchestrator writes each domain event to this table in the same
// transaction as the balance/transaction mutation it narrates. A
// separate background flusher drains unpublished rows through an
// ports.EventPublisher (NATS). This guarantees an event survives a
// crash between commit and publish, at the cost of at-least-once
// delivery - consumers on the other end must be idempotent.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/events"
)

// Compile-time check
var _ ports.OutboxRepository = (*OutboxRepository)(nil)

// OutboxRepository implements ports.OutboxRepository over the outbox table.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Save persists an event row. Must run inside the caller's unit of
// work so it commits atomically with the business mutation.
func (r *OutboxRepository) Save(ctx context.Context, event events.DomainEvent) error {
	q := r.getQuerier(ctx)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	query := `
		INSERT INTO outbox (
			id, aggregate_type, aggregate_id, event_type, event_version,
			payload, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7)
	`
	_, err = q.Exec(ctx, query,
		event.EventID(),
		aggregateTypeOf(event.EventType()),
		event.AggregateID(),
		event.EventType(),
		1,
		payload,
		event.OccurredAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save event to outbox: %w", err)
	}
	return nil
}

// FindUnpublished returns up to limit rows the flusher has not yet
// confirmed published, oldest first. A row that fails to scan aborts
// the whole call with an error.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, event_type, aggregate_id, payload, created_at, retry_count, last_error
		FROM outbox
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find unpublished events: %w", err)
	}
	defer rows.Close()

	var records []ports.OutboxRecord
	for rows.Next() {
		var (
			id          uuid.UUID
			eventType   string
			aggregateID uuid.UUID
			payload     []byte
			createdAt   time.Time
			retryCount  int
			lastError   *string
		)

		if err := rows.Scan(&id, &eventType, &aggregateID, &payload, &createdAt, &retryCount, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}

		event := &genericEvent{
			id:          id,
			eventType:   eventType,
			occurredAt:  createdAt,
			aggregateID: aggregateID,
			payload:     payload,
		}

		rec := ports.OutboxRecord{EventID: id.String(), Event: event}
		rec.Attempts = retryCount
		if lastError != nil {
			rec.LastError = *lastError
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox rows: %w", err)
	}

	return records, nil
}

// MarkPublished records that an event was handed off to the publisher
// successfully.
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	q := r.getQuerier(ctx)

	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return fmt.Errorf("invalid event ID: %w", err)
	}

	query := `
		UPDATE outbox
		SET status = 'PUBLISHED', published_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := q.Exec(ctx, query, eventUUID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errors.New("event not found or already published")
	}
	return nil
}

// MarkFailed records a publish attempt failure so the flusher can back
// off and retry rather than hot-looping on a bad row.
func (r *OutboxRepository) MarkFailed(ctx context.Context, eventID string, reason string) error {
	q := r.getQuerier(ctx)

	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return fmt.Errorf("invalid event ID: %w", err)
	}

	query := `
		UPDATE outbox
		SET status = 'PENDING', failed_at = $2, last_error = $3, retry_count = retry_count + 1
		WHERE id = $1
	`
	_, err = q.Exec(ctx, query, eventUUID, time.Now(), reason)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

// CleanupPublished deletes published rows older than the given age.
// Not part of ports.OutboxRepository - called by a maintenance job
// rather than the flusher itself.
func (r *OutboxRepository) CleanupPublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	q := r.getQuerier(ctx)
	cutoff := time.Now().Add(-olderThan)

	query := `DELETE FROM outbox WHERE status = 'PUBLISHED' AND published_at < $1`
	result, err := q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup published events: %w", err)
	}
	return result.RowsAffected(), nil
}

// genericEvent wraps a row read back from the outbox: the flusher
// forwards it to the publisher without needing the concrete event type.
type genericEvent struct {
	id          uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID uuid.UUID
	payload     []byte
}

func (e *genericEvent) EventID() uuid.UUID     { return e.id }
func (e *genericEvent) EventType() string      { return e.eventType }
func (e *genericEvent) OccurredAt() time.Time  { return e.occurredAt }
func (e *genericEvent) AggregateID() uuid.UUID { return e.aggregateID }

// MarshalJSON re-serializes the original payload verbatim so
// re-publishing a flushed event looks identical to publishing it live.
func (e *genericEvent) MarshalJSON() ([]byte, error) {
	return e.payload, nil
}

func aggregateTypeOf(eventType string) string {
	switch {
	case len(eventType) >= 6 && eventType[:6] == "wallet":
		return "Wallet"
	case len(eventType) >= 11 && eventType[:11] == "transaction":
		return "Transaction"
	case len(eventType) >= 4 && eventType[:4] == "hold":
		return "Transaction"
	default:
		return "Unknown"
	}
}
