// Package orchestrator implements the two-phase transaction driver:
// insert a pending row (enforcing external-id idempotency), run the
// matching operation handler under the per-key mutex, and finalize the
// row completed or failed.
//
// This is a genuine departure from a typical credit/debit use case:
// there is no single aggregate being loaded and saved. The mutex
// substitutes for optimistic locking because the balance arithmetic
// isn't expressed as a conditional SQL update, so two concurrent
// writers on the same (wallet_id, credit_type_id) must be serialized
// externally rather than left to race and retry.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/creditledger/ledger/internal/application/handlers"
	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/events"
	"github.com/google/uuid"
)

// Orchestrator drives one transaction request from creation through
// completion or failure.
type Orchestrator struct {
	transactions ports.TransactionStore
	balances     ports.BalanceStore
	mutex        ports.PerKeyMutex
	uow          ports.UnitOfWork
	outbox       ports.OutboxRepository
	log          *slog.Logger
}

func New(
	transactions ports.TransactionStore,
	balances ports.BalanceStore,
	mutex ports.PerKeyMutex,
	uow ports.UnitOfWork,
	outbox ports.OutboxRepository,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		transactions: transactions,
		balances:     balances,
		mutex:        mutex,
		uow:          uow,
		outbox:       outbox,
		log:          log,
	}
}

// Request is the input to Submit: everything needed to build a
// pending transaction row before any balance mutation happens.
type Request struct {
	WalletID       uuid.UUID
	CreditTypeID   uuid.UUID
	Type           entities.TransactionType
	Payload        entities.Payload
	ExternalID     *string
	Issuer         string
	Description    string
	Context        map[string]any
	SubscriptionID *string
}

// Submit runs the full create -> lock -> apply -> finalize flow and
// returns the completed (or failed) transaction. A failed transaction
// is returned alongside its classifying error so callers can inspect
// the row even though the operation did not succeed.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*entities.Transaction, error) {
	tx, err := entities.NewTransaction(
		req.WalletID, req.CreditTypeID, req.Type, req.Payload,
		req.ExternalID, req.Issuer, req.Description, req.Context, req.SubscriptionID,
	)
	if err != nil {
		return nil, err
	}

	// Create phase: the unique (wallet_id, external_id) index is what
	// actually enforces idempotency; a violation here surfaces as
	// errors.KindDuplicateTransaction from the store and is returned
	// as-is, no rollback needed since nothing else was written. The
	// TransactionCreated event is written to the outbox in the same
	// transaction as the row insert so the two never disagree.
	createErr := o.uow.Execute(ctx, func(txCtx context.Context) error {
		if err := o.transactions.Create(txCtx, tx); err != nil {
			return err
		}
		return o.saveToOutbox(txCtx, events.NewTransactionCreated(tx))
	})
	if createErr != nil {
		return nil, createErr
	}

	release, err := o.mutex.Acquire(ctx, req.WalletID, req.CreditTypeID)
	if err != nil {
		o.markFailed(ctx, tx)
		return tx, err
	}
	defer func() {
		if releaseErr := release(ctx); releaseErr != nil {
			o.log.Warn("failed to release per-key mutex", "wallet_id", req.WalletID, "credit_type_id", req.CreditTypeID, "error", releaseErr)
		}
	}()

	handler, err := handlers.Dispatch(req.Type)
	if err != nil {
		o.markFailed(ctx, tx)
		return tx, err
	}

	deps := handlers.Dependencies{Balances: o.balances, Transactions: o.transactions}

	applyErr := o.uow.Execute(ctx, func(txCtx context.Context) error {
		snapshot, handlerErr := handler(txCtx, deps, tx)
		if handlerErr != nil {
			return handlerErr
		}
		if err := tx.MarkCompleted(snapshot); err != nil {
			return err
		}
		if err := o.transactions.Update(txCtx, tx); err != nil {
			return err
		}
		if err := o.saveToOutbox(txCtx, events.NewTransactionCompleted(tx)); err != nil {
			return err
		}
		if holdEvent := o.holdLifecycleEvent(tx); holdEvent != nil {
			if err := o.saveToOutbox(txCtx, holdEvent); err != nil {
				return err
			}
		}
		return nil
	})

	if applyErr != nil {
		o.markFailed(ctx, tx)
		o.publishFailureBestEffort(ctx, events.NewTransactionFailed(tx, applyErr.Error()))
		return tx, applyErr
	}

	return tx, nil
}

// markFailed transitions the pending row to failed in its own small
// transaction. This is best-effort: a failure here is logged but must
// never shadow the original error that triggered it.
func (o *Orchestrator) markFailed(ctx context.Context, tx *entities.Transaction) {
	if !tx.IsPending() {
		return
	}
	if err := tx.MarkFailed(); err != nil {
		o.log.Warn("could not transition transaction to failed", "transaction_id", tx.ID(), "error", err)
		return
	}
	if err := o.transactions.Update(ctx, tx); err != nil {
		o.log.Warn("could not persist failed transaction status", "transaction_id", tx.ID(), "error", err)
	}
}

// saveToOutbox writes an event row inside the caller's unit of work so
// it commits atomically with the mutation it narrates. The background
// flusher (internal/infrastructure/events) drains it to NATS afterward.
func (o *Orchestrator) saveToOutbox(txCtx context.Context, event events.DomainEvent) error {
	if o.outbox == nil {
		return nil
	}
	return o.outbox.Save(txCtx, event)
}

// publishFailureBestEffort handles the one event that cannot ride the
// applyErr transaction (it failed, so that transaction is rolling
// back): it gets its own small unit of work, logged rather than
// propagated if it fails.
func (o *Orchestrator) publishFailureBestEffort(ctx context.Context, event events.DomainEvent) {
	if o.outbox == nil {
		return
	}
	err := o.uow.Execute(ctx, func(txCtx context.Context) error {
		return o.outbox.Save(txCtx, event)
	})
	if err != nil {
		o.log.Warn("failed to record transaction-failed event", "event_type", event.EventType(), "error", err)
	}
}

// holdLifecycleEvent reports a HoldUsed/HoldReleased event for
// completed debit/release transactions that referenced a hold, since
// those transitions happen on a different row than the one Submit
// returns.
func (o *Orchestrator) holdLifecycleEvent(tx *entities.Transaction) events.DomainEvent {
	holdID := tx.Payload().HoldTransactionID
	if holdID == nil {
		return nil
	}
	switch tx.Type() {
	case entities.TransactionTypeDebit:
		return events.NewHoldUsed(*holdID, tx.ID(), tx.Payload().Amount)
	case entities.TransactionTypeRelease:
		return events.NewHoldReleased(*holdID, tx.ID(), tx.Payload().Amount)
	default:
		return nil
	}
}
