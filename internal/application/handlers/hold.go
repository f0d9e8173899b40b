package handlers

import (
	"context"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
)

// HandleHold requires an existing balance row: moving available into
// held against a balance that has never received a deposit is always
// insufficient, so the missing-row case is reported as
// BalanceNotFound rather than silently creating a zeroed row that
// would immediately fail the non-negativity check.
func HandleHold(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	amount := tx.Payload().Amount
	if !amount.IsPositive() {
		return entities.BalanceSnapshot{}, errors.NewInvalidInput("hold amount must be positive")
	}

	existing, err := deps.Balances.GetForUpdate(ctx, tx.WalletID(), tx.CreditTypeID())
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if existing == nil {
		return entities.BalanceSnapshot{}, errors.NewBalanceNotFound(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	balance, err := deps.Balances.Hold(ctx, tx.WalletID(), tx.CreditTypeID(), amount)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if !balance.IsValid() {
		return entities.BalanceSnapshot{}, errors.NewInsufficientBalance(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	// The transaction row was already seeded with hold_status=held at
	// create time; nothing further to stamp on the hold itself here.
	return balance.Snapshot(), nil
}
