package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/creditledger/ledger/internal/application/orchestrator"
	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
	"github.com/creditledger/ledger/internal/domain/events"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
)

// mustDecimal parses a decimal literal, failing the test on error.
func mustDecimal(t *testing.T, s string) valueobjects.Decimal {
	t.Helper()
	d, err := valueobjects.NewDecimal(s)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", s, err)
	}
	return d
}

// fakeWalletRepository is a minimal in-memory ports.WalletRepository.
type fakeWalletRepository struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*entities.Wallet
}

func newFakeWalletRepository() *fakeWalletRepository {
	return &fakeWalletRepository{wallets: map[uuid.UUID]*entities.Wallet{}}
}

func (f *fakeWalletRepository) Save(_ context.Context, wallet *entities.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets[wallet.ID()] = wallet
	return nil
}

func (f *fakeWalletRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return nil, domainerrors.NewWalletNotFound(id.String())
	}
	return w, nil
}

func (f *fakeWalletRepository) List(_ context.Context, filter ports.WalletFilter, offset, limit int) ([]*entities.Wallet, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*entities.Wallet
	for _, w := range f.wallets {
		if filter.Name != nil && w.Name() != *filter.Name {
			continue
		}
		if filter.Status != nil && w.Status() != *filter.Status {
			continue
		}
		matched = append(matched, w)
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// fakeBalanceStore mirrors the application-layer fake: an in-memory
// map keyed by (wallet_id, credit_type_id).
type fakeBalanceStore struct {
	mu   sync.Mutex
	rows map[string]*entities.Balance
}

func newFakeBalanceStore() *fakeBalanceStore {
	return &fakeBalanceStore{rows: map[string]*entities.Balance{}}
}

func balanceKey(walletID, creditTypeID uuid.UUID) string {
	return walletID.String() + "|" + creditTypeID.String()
}

func (f *fakeBalanceStore) row(walletID, creditTypeID uuid.UUID) *entities.Balance {
	k := balanceKey(walletID, creditTypeID)
	if row, ok := f.rows[k]; ok {
		return row
	}
	row := entities.NewBalance(walletID, creditTypeID)
	f.rows[k] = row
	return row
}

func (f *fakeBalanceStore) seed(walletID, creditTypeID uuid.UUID, available valueobjects.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.row(walletID, creditTypeID).ApplyDeposit(available)
}

func (f *fakeBalanceStore) GetForUpdate(_ context.Context, walletID, creditTypeID uuid.UUID) (*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[balanceKey(walletID, creditTypeID)]
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (f *fakeBalanceStore) Deposit(_ context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.row(walletID, creditTypeID)
	row.ApplyDeposit(amount)
	return row, nil
}

func (f *fakeBalanceStore) Hold(_ context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.row(walletID, creditTypeID)
	row.ApplyHold(amount)
	return row, nil
}

func (f *fakeBalanceStore) Release(_ context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.row(walletID, creditTypeID)
	row.ApplyRelease(amount)
	return row, nil
}

func (f *fakeBalanceStore) Debit(_ context.Context, walletID, creditTypeID uuid.UUID, availDelta, heldDelta, spentDelta valueobjects.Decimal) (*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.row(walletID, creditTypeID)
	row.ApplyDebit(availDelta, heldDelta, spentDelta)
	return row, nil
}

func (f *fakeBalanceStore) Adjust(_ context.Context, walletID, creditTypeID uuid.UUID, target valueobjects.Decimal, resetSpent bool) (*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.row(walletID, creditTypeID)
	row.ApplyAdjust(target, resetSpent)
	return row, nil
}

func (f *fakeBalanceStore) ListByWallet(_ context.Context, walletID uuid.UUID) ([]*entities.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Balance
	for _, row := range f.rows {
		if row.WalletID() == walletID {
			out = append(out, row)
		}
	}
	return out, nil
}

// fakeTransactionStore is a minimal in-memory ports.TransactionStore.
type fakeTransactionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entities.Transaction
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{rows: map[uuid.UUID]*entities.Transaction{}}
}

func (f *fakeTransactionStore) Create(_ context.Context, tx *entities.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tx.ID()] = tx
	return nil
}

// Get mirrors the real repository's contract: a missing row or a
// type/credit-type constraint mismatch both return (nil, nil), never
// an error. Callers (the debit/release handlers) are responsible for
// turning a nil result into HoldNotFound.
func (f *fakeTransactionStore) Get(_ context.Context, id uuid.UUID, wantType *entities.TransactionType, wantCreditTypeID *uuid.UUID) (*entities.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tx.ID()] = tx
	return nil
}

func (f *fakeTransactionStore) List(_ context.Context, filter ports.TransactionFilter, offset, limit int) ([]*entities.Transaction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*entities.Transaction
	for _, tx := range f.rows {
		if filter.WalletID != nil && tx.WalletID() != *filter.WalletID {
			continue
		}
		if filter.CreditTypeID != nil && tx.CreditTypeID() != *filter.CreditTypeID {
			continue
		}
		if filter.Type != nil && tx.Type() != *filter.Type {
			continue
		}
		if filter.Status != nil && tx.Status() != *filter.Status {
			continue
		}
		matched = append(matched, tx)
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// fakeMutex never blocks: it satisfies ports.PerKeyMutex for tests
// that don't exercise lock contention.
type fakeMutex struct{}

func (fakeMutex) Acquire(_ context.Context, _, _ uuid.UUID) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// fakeUnitOfWork runs fn directly against the background context; no
// transaction isolation is needed since the fakes hold no real
// connection.
type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (fakeUnitOfWork) ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	return fn(ctx)
}

// fakeOutboxRepository discards every event it's handed; handler tests
// only assert on the HTTP response, not on what reaches the outbox.
type fakeOutboxRepository struct{}

func (fakeOutboxRepository) Save(context.Context, events.DomainEvent) error { return nil }

func (fakeOutboxRepository) FindUnpublished(context.Context, int) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (fakeOutboxRepository) MarkPublished(context.Context, string) error { return nil }

func (fakeOutboxRepository) MarkFailed(context.Context, string, string) error { return nil }

// newTestOrchestrator wires a real Orchestrator over the given fakes
// so handler tests exercise the actual two-phase submit flow instead
// of mocking it away.
func newTestOrchestrator(transactions ports.TransactionStore, balances ports.BalanceStore) *orchestrator.Orchestrator {
	return orchestrator.New(transactions, balances, fakeMutex{}, fakeUnitOfWork{}, fakeOutboxRepository{}, nil)
}

