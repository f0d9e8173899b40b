package handlers

import (
	"context"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
)

// HandleDebit covers both the plain case (no hold referenced) and the
// hold-backed case, since both ultimately reduce to the same three
// explicit deltas passed to the balance store.
func HandleDebit(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	payload := tx.Payload()
	if !payload.Amount.IsPositive() {
		return entities.BalanceSnapshot{}, errors.NewInvalidInput("debit amount must be positive")
	}

	if payload.HoldTransactionID == nil {
		return handlePlainDebit(ctx, deps, tx)
	}
	return handleHoldBackedDebit(ctx, deps, tx)
}

// handlePlainDebit requires an existing balance row and simply
// subtracts the debit amount from available, recording it as spent.
func handlePlainDebit(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	existing, err := deps.Balances.GetForUpdate(ctx, tx.WalletID(), tx.CreditTypeID())
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if existing == nil {
		return entities.BalanceSnapshot{}, errors.NewBalanceNotFound(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	amount := tx.Payload().Amount
	balance, err := deps.Balances.Debit(ctx, tx.WalletID(), tx.CreditTypeID(), amount, valueobjects.Zero(), amount)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if !balance.IsValid() {
		return entities.BalanceSnapshot{}, errors.NewInsufficientBalance(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	return balance.Snapshot(), nil
}

// handleHoldBackedDebit consumes an open hold: the entire hold amount
// leaves held, the debit amount is recorded as spent, and whatever
// part of the hold the debit didn't use flows back to available.
func handleHoldBackedDebit(ctx context.Context, deps Dependencies, tx *entities.Transaction) (entities.BalanceSnapshot, error) {
	payload := tx.Payload()
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

	holdAmount := hold.Payload().Amount
	debitAmount := payload.Amount
	if holdAmount.LessThan(debitAmount) {
		return entities.BalanceSnapshot{}, errors.NewHoldAmountExceeds(hold.ID().String())
	}

	// held -= holdAmount (the whole hold is consumed); spent += debitAmount;
	// available -= (debitAmount - holdAmount), which is <= 0, so the
	// unspent remainder of the hold flows back to available.
	availDelta := debitAmount.Sub(holdAmount)
	heldDelta := holdAmount
	spentDelta := debitAmount

	balance, err := deps.Balances.Debit(ctx, tx.WalletID(), tx.CreditTypeID(), availDelta, heldDelta, spentDelta)
	if err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if !balance.IsValid() {
		return entities.BalanceSnapshot{}, errors.NewInsufficientBalance(tx.WalletID().String(), tx.CreditTypeID().String())
	}

	if err := hold.MarkHoldUsed(); err != nil {
		return entities.BalanceSnapshot{}, err
	}
	if err := deps.Transactions.Update(ctx, hold); err != nil {
		return entities.BalanceSnapshot{}, err
	}

	return balance.Snapshot(), nil
}
