package handlers

import (
	"context"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
)

// HandleDeposit has no preconditions beyond amount > 0, already
// checked at the validation layer: it upserts the balance row and
// adds the deposited amount to available.
func HandleDeposit(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	amount := tx.Payload().Amount
	if !amount.IsPositive() {
		return entities.BalanceSnapshot{}, errors.NewInvalidInput("deposit amount must be positive")
	}

	balance, err := deps.Balances.Deposit(ctx, tx.WalletID(), tx.CreditTypeID(), amount)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if !balance.IsValid() {
		return entities.BalanceSnapshot{}, errors.NewInsufficientBalance(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	return balance.Snapshot(), nil
}
