package handlers

import (
	"context"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
)

// HandleRelease cancels an open hold, restoring its full amount to
// available. The referenced hold must exist, belong to the same
// credit type, and still be in the held state — a hold that was
// already used or released cannot be released again.
func HandleRelease(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	payload := tx.Payload()
	if payload.HoldTransactionID == nil {
		return entities.BalanceSnapshot{}, errors.NewInvalidInput("release requires hold_transaction_id")
	}
	holdType := entities.TransactionTypeHold
	creditTypeID := tx.CreditTypeID()

	hold, err := deps.Transactions.Get(ctx, *payload.HoldTransactionID, &holdType, &creditTypeID)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if hold == nil {
		return entities.BalanceSnapshot{}, errors.NewHoldNotFound(payload.HoldTransactionID.String())
	}
	if !hold.IsHeld() {
		return entities.BalanceSnapshot{}, errors.NewHoldNotHeld(hold.ID().String())
	}

	amount := hold.Payload().Amount
	balance, err := deps.Balances.Release(ctx, tx.WalletID(), tx.CreditTypeID(), amount)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if !balance.IsValid() {
		return entities.BalanceSnapshot{}, errors.NewInsufficientBalance(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	if err := hold.MarkHoldReleased(); err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if err := deps.Transactions.Update(ctx, hold); err != nil {
		return entities.BalanceSnapshot{}, err
	}

	return balance.Snapshot(), nil
}
