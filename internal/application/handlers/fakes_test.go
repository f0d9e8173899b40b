package handlers

import (
	"context"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// fakeBalanceStore is a minimal in-memory BalanceStore, keyed the same
// way the real store is: (wallet_id, credit_type_id).
type fakeBalanceStore struct {
	rows map[string]*entities.Balance
}

func newFakeBalanceStore() *fakeBalanceStore {
	return &fakeBalanceStore{rows: map[string]*entities.Balance{}}
}

func key(walletID, creditTypeID uuid.UUID) string {
	return walletID.String() + "|" + creditTypeID.String()
}

func (f *fakeBalanceStore) row(walletID, creditTypeID uuid.UUID) *entities.Balance {
	k := key(walletID, creditTypeID)
	if row, ok := f.rows[k]; ok {
		return row
	}
	row := entities.NewBalance(walletID, creditTypeID)
	f.rows[k] = row
	return row
}

func (f *fakeBalanceStore) seed(walletID, creditTypeID uuid.UUID, available valueobjects.Decimal) {
	row := f.row(walletID, creditTypeID)
	row.ApplyDeposit(available)
}

func (f *fakeBalanceStore) GetForUpdate(_ context.Context, walletID, creditTypeID uuid.UUID) (*entities.Balance, error) {
	k := key(walletID, creditTypeID)
	row, ok := f.rows[k]
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (f *fakeBalanceStore) Deposit(_ context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	row := f.row(walletID, creditTypeID)
	row.ApplyDeposit(amount)
	return row, nil
}

func (f *fakeBalanceStore) Hold(_ context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	row := f.row(walletID, creditTypeID)
	row.ApplyHold(amount)
	return row, nil
}

func (f *fakeBalanceStore) Release(_ context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	row := f.row(walletID, creditTypeID)
	row.ApplyRelease(amount)
	return row, nil
}

func (f *fakeBalanceStore) Debit(_ context.Context, walletID, creditTypeID uuid.UUID, availDelta, heldDelta, spentDelta valueobjects.Decimal) (*entities.Balance, error) {
	row := f.row(walletID, creditTypeID)
	row.ApplyDebit(availDelta, heldDelta, spentDelta)
	return row, nil
}

func (f *fakeBalanceStore) Adjust(_ context.Context, walletID, creditTypeID uuid.UUID, target valueobjects.Decimal, resetSpent bool) (*entities.Balance, error) {
	row := f.row(walletID, creditTypeID)
	row.ApplyAdjust(target, resetSpent)
	return row, nil
}

func (f *fakeBalanceStore) ListByWallet(_ context.Context, walletID uuid.UUID) ([]*entities.Balance, error) {
	var result []*entities.Balance
	for _, row := range f.rows {
		if row.WalletID() == walletID {
			result = append(result, row)
		}
	}
	return result, nil
}

// fakeTransactionStore is a minimal in-memory TransactionStore.
type fakeTransactionStore struct {
	rows map[uuid.UUID]*entities.Transaction
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{rows: map[uuid.UUID]*entities.Transaction{}}
}

func (f *fakeTransactionStore) Create(_ context.Context, tx *entities.Transaction) error {
	f.rows[tx.ID()] = tx
	return nil
}

func (f *fakeTransactionStore) Get(_ context.Context, id uuid.UUID, wantType *entities.TransactionType, wantCreditTypeID *uuid.UUID) (*entities.Transaction, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	if wantType != nil && row.Type() != *wantType {
		return nil, nil
	}
	if wantCreditTypeID != nil && row.CreditTypeID() != *wantCreditTypeID {
		return nil, nil
	}
	return row, nil
}

func (f *fakeTransactionStore) Update(_ context.Context, tx *entities.Transaction) error {
	f.rows[tx.ID()] = tx
	return nil
}

func (f *fakeTransactionStore) List(_ context.Context, _ ports.TransactionFilter, _, _ int) ([]*entities.Transaction, int, error) {
	return nil, 0, nil
}
