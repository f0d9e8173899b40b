// Package events adapts the domain's outbox pattern to NATS: a
// publisher that puts event payloads on subjects, and a flusher that
// drains the Postgres outbox table into that publisher on a timer.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/events"
)

// Compile-time check
var _ ports.EventPublisher = (*NATSPublisher)(nil)

// NATSPublisher publishes domain events as JSON payloads on subjects
// of the form "<prefix>.<event_type>", e.g. "ledger.transaction.completed".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher wraps an already-connected NATS connection.
func NewNATSPublisher(conn *nats.Conn, subjectPrefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: subjectPrefix}
}

// Connect dials the NATS server. Once connected, the client reconnects
// without limit, waiting one second between attempts.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func (p *NATSPublisher) subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish marshals the event and publishes it to its subject.
func (p *NATSPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject(event.EventType()), payload); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}
	return nil
}

// PublishBatch publishes each event in turn, stopping at the first
// failure; whatever already went out stays published (NATS has no
// multi-subject transaction to roll back).
func (p *NATSPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
