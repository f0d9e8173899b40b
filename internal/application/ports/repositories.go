// Package ports defines the interfaces the application layer depends on
// and the infrastructure layer implements — repositories, the balance
// store, the transaction store, the per-key mutex, the unit of work and
// the event publisher.
//
// SOLID principles:
// - DIP: application code depends on these abstractions, never on pgx,
//   go-redis or nats.go directly.
// - ISP: each interface is scoped to one aggregate or one concern.
// - SRP: a repository only persists; arithmetic and state transitions
//   stay in the domain entities and the handlers that call these ports.
package ports

import (
	"context"
	"time"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// WalletRepository persists wallet identity: name, context, status. It
// knows nothing about balances — those live behind BalanceStore, keyed
// independently per credit type.
type WalletRepository interface {
	Save(ctx context.Context, wallet *entities.Wallet) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	List(ctx context.Context, filter WalletFilter, offset, limit int) ([]*entities.Wallet, int, error)
}

// WalletFilter narrows List results.
type WalletFilter struct {
	Status *entities.WalletStatus
	Name   *string
}

// CreditTypeRepository persists credit type definitions. Name
// uniqueness is enforced by a DB constraint; Save surfaces the
// violation as errors.NewCreditTypeNameExists.
type CreditTypeRepository interface {
	Save(ctx context.Context, creditType *entities.CreditType) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.CreditType, error)
	FindByName(ctx context.Context, name string) (*entities.CreditType, error)
	List(ctx context.Context, offset, limit int) ([]*entities.CreditType, int, error)
}

// BalanceStore provides the five atomic arithmetic primitives a
// handler calls under the per-key mutex, inside the caller's unit of
// work. Every primitive returns the post-mutation row; callers check
// entities.Balance.IsValid() themselves and roll back on violation —
// the store does not reject negative results, since adjust is allowed
// to pass through an absolute target and the caller is responsible for
// classifying the invariant failure (insufficient balance vs. hold
// mismatch) with the right error kind.
type BalanceStore interface {
	// GetForUpdate fetches the balance row for (walletID, creditTypeID),
	// or nil if none exists yet. Intended to be called while already
	// holding the per-key mutex and inside the caller's transaction.
	GetForUpdate(ctx context.Context, walletID, creditTypeID uuid.UUID) (*entities.Balance, error)

	// Deposit upserts the row and adds amount to available.
	Deposit(ctx context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error)

	// Hold requires an existing row; moves amount from available to held.
	Hold(ctx context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error)

	// Release upserts (zero-valued) if needed, then moves amount from
	// held back to available.
	Release(ctx context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error)

	// Debit applies the three explicit deltas computed by the debit
	// handler, whether or not a hold was referenced.
	Debit(ctx context.Context, walletID, creditTypeID uuid.UUID, availDelta, heldDelta, spentDelta valueobjects.Decimal) (*entities.Balance, error)

	// Adjust upserts the row; sets available to target, zeroes held,
	// and conditionally resets spent.
	Adjust(ctx context.Context, walletID, creditTypeID uuid.UUID, target valueobjects.Decimal, resetSpent bool) (*entities.Balance, error)

	// ListByWallet returns every balance row a wallet holds, one per
	// credit type it has transacted in. Backs the wallet read surface.
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*entities.Balance, error)
}

// TransactionStore is the append-mostly log of transaction records.
type TransactionStore interface {
	// Create inserts a new pending row. A duplicate (wallet_id,
	// external_id) pair must surface as errors.NewDuplicateTransaction,
	// never silently replay the prior row.
	Create(ctx context.Context, tx *entities.Transaction) error

	// Get fetches by id, optionally constrained to a type and/or credit
	// type id — used by debit/release to resolve the referenced hold and
	// reject a mismatched reference instead of silently accepting it.
	Get(ctx context.Context, id uuid.UUID, wantType *entities.TransactionType, wantCreditTypeID *uuid.UUID) (*entities.Transaction, error)

	// Update persists the mutable fields of an existing row (status,
	// hold_status, balance_snapshot). The store performs no transition
	// validation; the orchestrator and handlers own legality.
	Update(ctx context.Context, tx *entities.Transaction) error

	// List returns a filtered, paginated page for the read surface.
	List(ctx context.Context, filter TransactionFilter, offset, limit int) ([]*entities.Transaction, int, error)
}

// TransactionFilter narrows List results.
type TransactionFilter struct {
	WalletID     *uuid.UUID
	CreditTypeID *uuid.UUID
	Type         *entities.TransactionType
	Status       *entities.TransactionStatus
	From         *time.Time
	To           *time.Time
}

// PerKeyMutex is the cross-process advisory lock keyed by (wallet_id,
// credit_type_id) that serializes every writer touching one balance
// row. Implementations must bound how long a lease can be held so a
// crashed holder cannot wedge a key forever.
type PerKeyMutex interface {
	// Acquire blocks (respecting ctx) until the lock is held or the
	// wait times out, in which case it returns errors.NewBusy. On
	// success it returns a release function the caller must call
	// exactly once, typically via defer.
	Acquire(ctx context.Context, walletID, creditTypeID uuid.UUID) (release func(context.Context) error, err error)
}
