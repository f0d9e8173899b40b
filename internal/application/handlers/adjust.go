package handlers

import (
	"context"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
)

// HandleAdjust is the administrative override: it sets available to
// an absolute target (not a delta), zeroes held unconditionally, and
// resets spent only when the caller asked for it. overall_spent is
// never touched here — the store enforces that it only moves via
// Debit.
func HandleAdjust(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	payload := tx.Payload()
	if payload.Amount.IsNegative() {
		return entities.BalanceSnapshot{}, errors.NewInvalidInput("adjust target must not be negative")
	}

	balance, err := deps.Balances.Adjust(ctx, tx.WalletID(), tx.CreditTypeID(), payload.Amount, payload.ResetSpent)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if !balance.IsValid() {
		return entities.BalanceSnapshot{}, errors.NewInsufficientBalance(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	return balance.Snapshot(), nil
}
