// Package handlers holds the pure business logic for each transaction
// type: deposit, debit, hold, release, adjust. Each handler reads
// whatever prerequisite rows it needs (the referenced hold, for
// debit/release), calls the balance store's primitives, and validates
// the post-mutation invariants itself — the store never rejects a
// negative result on its own, since adjust legitimately writes an
// absolute target.
//
// Handlers run inside the orchestrator's unit of work, after the
// per-key mutex for (wallet_id, credit_type_id) has been acquired, so
// they never need their own locking.
package handlers

import (
	"context"
	"fmt"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
)

// Dependencies are the ports a handler needs. Handlers never talk to a
// concrete driver directly.
type Dependencies struct {
	Balances     ports.BalanceStore
	Transactions ports.TransactionStore
}

// Handler runs one transaction's business logic and returns the
// balance snapshot to stamp on the transaction row, or an error the
// orchestrator maps to failed.
type Handler func(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error)

// Dispatch resolves the handler for a transaction's type. The
// orchestrator is the only caller; it has already inserted the
// pending row and acquired the mutex by the time this runs.
func Dispatch(transactionType entities.TransactionType) (Handler, error) {
	switch transactionType {
	case entities.TransactionTypeDeposit:
		return HandleDeposit, nil
	case entities.TransactionTypeHold:
		return HandleHold, nil
	case entities.TransactionTypeRelease:
		return HandleRelease, nil
	case entities.TransactionTypeDebit:
		return HandleDebit, nil
	case entities.TransactionTypeAdjust:
		return HandleAdjust, nil
	default:
		return nil, errors.NewInvalidInput(fmt.Sprintf("no handler for transaction type %q", transactionType))
	}
}
