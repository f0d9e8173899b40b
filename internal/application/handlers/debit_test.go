package handlers

import (
	"context"
	"testing"

	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/errors"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

func TestHandleDebit_PlainRequiresExistingBalance(t *testing.T) {
	deps, _, _ := newDeps()
	tx := newTx(t, uuid.New(), uuid.New(), entities.TransactionTypeDebit, entities.Payload{Amount: valueobjects.MustDecimal("10")})

	_, err := HandleDebit(context.Background(), deps, tx)
	if errors.KindOf(err) != errors.KindBalanceNotFound {
		t.Fatalf("KindOf(err) = %v, want BalanceNotFound", errors.KindOf(err))
	}
}

func TestHandleDebit_PlainInsufficientBalance(t *testing.T) {
	deps, bal, _ := newDeps()
	walletID, creditTypeID := uuid.New(), uuid.New()
	bal.seed(walletID, creditTypeID, valueobjects.MustDecimal("20"))

	tx := newTx(t, walletID, creditTypeID, entities.TransactionTypeDebit, entities.Payload{Amount: valueobjects.MustDecimal("50")})
	_, err := HandleDebit(context.Background(), deps, tx)
	if errors.KindOf(err) != errors.KindInsufficientBalance {
		t.Fatalf("KindOf(err) = %v, want InsufficientBalance", errors.KindOf(err))
	}
}

func TestHandleDebit_HoldBackedPartialConsumesRemainder(t *testing.T) {
	// Deposit 100, hold 30, debit 20 against the hold -> available 80,
	// held 0, spent 20: matches the worked example of a partial hold
	// consumption (the unused 10 flows back to available).
	deps, bal, txs := newDeps()
	walletID, creditTypeID := uuid.New(), uuid.New()
	bal.seed(walletID, creditTypeID, valueobjects.MustDecimal("100"))

	holdTx := newCompletedHold(t, deps, txs, walletID, creditTypeID, "30")
	holdID := holdTx.ID()

	debitTx := newTx(t, walletID, creditTypeID, entities.TransactionTypeDebit, entities.Payload{
		Amount:            valueobjects.MustDecimal("20"),
		HoldTransactionID: &holdID,
	})

	snap, err := HandleDebit(context.Background(), deps, debitTx)
	if err != nil {
		t.Fatalf("HandleDebit() error = %v", err)
	}
	if !snap.Available.Equals(valueobjects.MustDecimal("80")) {
		t.Errorf("Available = %v, want 80", snap.Available)
	}
	if !snap.Held.IsZero() {
		t.Errorf("Held = %v, want 0", snap.Held)
	}
	if !snap.Spent.Equals(valueobjects.MustDecimal("20")) {
		t.Errorf("Spent = %v, want 20", snap.Spent)
	}

	reloaded, _ := txs.Get(context.Background(), holdID, nil, nil)
	if *reloaded.HoldStatus() != entities.HoldStatusUsed {
		t.Errorf("hold status = %v, want used", *reloaded.HoldStatus())
	}
}

func TestHandleDebit_HoldAmountExceeded(t *testing.T) {
	deps, bal, txs := newDeps()
	walletID, creditTypeID := uuid.New(), uuid.New()
	bal.seed(walletID, creditTypeID, valueobjects.MustDecimal("100"))

	holdTx := newCompletedHold(t, deps, txs, walletID, creditTypeID, "30")
	holdID := holdTx.ID()

	debitTx := newTx(t, walletID, creditTypeID, entities.TransactionTypeDebit, entities.Payload{
		Amount:            valueobjects.MustDecimal("50"),
		HoldTransactionID: &holdID,
	})

	_, err := HandleDebit(context.Background(), deps, debitTx)
	if errors.KindOf(err) != errors.KindHoldAmountExceeds {
		t.Fatalf("KindOf(err) = %v, want HoldAmountExceeds", errors.KindOf(err))
	}
}

func TestHandleDebit_ReferencingUsedHoldFails(t *testing.T) {
	deps, bal, txs := newDeps()
	walletID, creditTypeID := uuid.New(), uuid.New()
	bal.seed(walletID, creditTypeID, valueobjects.MustDecimal("100"))

	holdTx := newCompletedHold(t, deps, txs, walletID, creditTypeID, "30")
	holdID := holdTx.ID()

	first := newTx(t, walletID, creditTypeID, entities.TransactionTypeDebit, entities.Payload{Amount: valueobjects.MustDecimal("10"), HoldTransactionID: &holdID})
	if _, err := HandleDebit(context.Background(), deps, first); err != nil {
		t.Fatalf("first debit failed: %v", err)
	}

	second := newTx(t, walletID, creditTypeID, entities.TransactionTypeDebit, entities.Payload{Amount: valueobjects.MustDecimal("5"), HoldTransactionID: &holdID})
	_, err := HandleDebit(context.Background(), deps, second)
	if errors.KindOf(err) != errors.KindHoldNotHeld {
		t.Fatalf("KindOf(err) = %v, want HoldNotHeld", errors.KindOf(err))
	}
}
