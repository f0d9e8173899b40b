// Package events defines domain events that represent significant business
// occurrences. Events are immutable facts about what happened in the past.
//
// Pattern: Domain Events.
// - Raised by the orchestrator and written to the outbox inside the same
//   DB transaction as the mutation they describe, then published
//   asynchronously.
// - EventStore is an in-memory collector for callers that gather
//   several events before handing them on.
package events

import (
	"time"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// DomainEvent is the base interface every event satisfies.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID // the transaction or wallet that raised this event
}

// BaseEvent holds the fields shared by every concrete event type.
type BaseEvent struct {
	eventID     uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID uuid.UUID
}

func newBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		eventType:   eventType,
		occurredAt:  time.Now(),
		aggregateID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID      { return e.eventID }
func (e BaseEvent) EventType() string       { return e.eventType }
func (e BaseEvent) OccurredAt() time.Time   { return e.occurredAt }
func (e BaseEvent) AggregateID() uuid.UUID  { return e.aggregateID }

const (
	EventTypeWalletCreated        = "wallet.created"
	EventTypeTransactionCreated   = "transaction.created"
	EventTypeTransactionCompleted = "transaction.completed"
	EventTypeTransactionFailed    = "transaction.failed"
	EventTypeHoldUsed             = "hold.used"
	EventTypeHoldReleased         = "hold.released"
)

// WalletCreated is raised when a new wallet is created.
type WalletCreated struct {
	BaseEvent
	Name string
}

func NewWalletCreated(walletID uuid.UUID, name string) *WalletCreated {
	return &WalletCreated{
		BaseEvent: newBaseEvent(EventTypeWalletCreated, walletID),
		Name:      name,
	}
}

// TransactionCreated is raised once the orchestrator's create phase
// commits the pending row, before the mutex is acquired.
type TransactionCreated struct {
	BaseEvent
	TransactionID   uuid.UUID
	WalletID        uuid.UUID
	CreditTypeID    uuid.UUID
	TransactionType entities.TransactionType
	ExternalID      *string
}

func NewTransactionCreated(tx *entities.Transaction) *TransactionCreated {
	return &TransactionCreated{
		BaseEvent:       newBaseEvent(EventTypeTransactionCreated, tx.ID()),
		TransactionID:   tx.ID(),
		WalletID:        tx.WalletID(),
		CreditTypeID:    tx.CreditTypeID(),
		TransactionType: tx.Type(),
		ExternalID:      tx.ExternalID(),
	}
}

// TransactionCompleted is raised once the handler's mutation and the
// transaction-row update both commit.
type TransactionCompleted struct {
	BaseEvent
	TransactionID   uuid.UUID
	WalletID        uuid.UUID
	CreditTypeID    uuid.UUID
	TransactionType entities.TransactionType
	Snapshot        entities.BalanceSnapshot
}

func NewTransactionCompleted(tx *entities.Transaction) *TransactionCompleted {
	var snap entities.BalanceSnapshot
	if s := tx.BalanceSnapshot(); s != nil {
		snap = *s
	}
	return &TransactionCompleted{
		BaseEvent:       newBaseEvent(EventTypeTransactionCompleted, tx.ID()),
		TransactionID:   tx.ID(),
		WalletID:        tx.WalletID(),
		CreditTypeID:    tx.CreditTypeID(),
		TransactionType: tx.Type(),
		Snapshot:        snap,
	}
}

// TransactionFailed is raised when the handler or the invariant check
// rejects a transaction and the orchestrator marks it failed.
type TransactionFailed struct {
	BaseEvent
	TransactionID   uuid.UUID
	WalletID        uuid.UUID
	CreditTypeID    uuid.UUID
	TransactionType entities.TransactionType
	Reason          string
}

func NewTransactionFailed(tx *entities.Transaction, reason string) *TransactionFailed {
	return &TransactionFailed{
		BaseEvent:       newBaseEvent(EventTypeTransactionFailed, tx.ID()),
		TransactionID:   tx.ID(),
		WalletID:        tx.WalletID(),
		CreditTypeID:    tx.CreditTypeID(),
		TransactionType: tx.Type(),
		Reason:          reason,
	}
}

// HoldUsed is raised when a debit successfully references an open
// hold, transitioning it to used.
type HoldUsed struct {
	BaseEvent
	HoldTransactionID  uuid.UUID
	DebitTransactionID uuid.UUID
	Amount             valueobjects.Decimal
}

func NewHoldUsed(holdID, debitID uuid.UUID, amount valueobjects.Decimal) *HoldUsed {
	return &HoldUsed{
		BaseEvent:          newBaseEvent(EventTypeHoldUsed, holdID),
		HoldTransactionID:  holdID,
		DebitTransactionID: debitID,
		Amount:             amount,
	}
}

// HoldReleased is raised when a release completes against an open hold.
type HoldReleased struct {
	BaseEvent
	HoldTransactionID    uuid.UUID
	ReleaseTransactionID uuid.UUID
	Amount               valueobjects.Decimal
}

func NewHoldReleased(holdID, releaseID uuid.UUID, amount valueobjects.Decimal) *HoldReleased {
	return &HoldReleased{
		BaseEvent:            newBaseEvent(EventTypeHoldReleased, holdID),
		HoldTransactionID:    holdID,
		ReleaseTransactionID: releaseID,
		Amount:               amount,
	}
}

// EventStore collects events raised during one unit of work so they can
// be handed to the outbox atomically with the row mutations that caused
// them.
type EventStore struct {
	events []DomainEvent
}

func NewEventStore() *EventStore {
	return &EventStore{events: make([]DomainEvent, 0)}
}

func (s *EventStore) Add(event DomainEvent) {
	s.events = append(s.events, event)
}

func (s *EventStore) GetAll() []DomainEvent {
	return s.events
}

func (s *EventStore) Clear() {
	s.events = make([]DomainEvent, 0)
}

func (s *EventStore) Count() int {
	return len(s.events)
}
