// Package postgres - integration tests for the PostgreSQL repositories
// using testcontainers.
//
// Running the tests:
//
//	go test ./internal/infrastructure/persistence/postgres/...
//
// Requirements:
//   - Docker running locally
//   - testcontainers-go installed
package postgres

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/google/uuid"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	domerrors "github.com/creditledger/ledger/internal/domain/errors"
	"github.com/creditledger/ledger/internal/domain/events"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
)

// ============================================
// Test Helpers
// ============================================

// testContainer holds the container and pool for a test run.
type testContainer struct {
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
}

// Shared container for all tests (performance optimization)
var sharedTestContainer *testContainer

// setupSharedTestDB creates or returns a reusable PostgreSQL container.
// Optimization: one container for every test instead of one per test.
func setupSharedTestDB(t *testing.T) *testContainer {
	if sharedTestContainer != nil {
		cleanupTables(t, sharedTestContainer.pool)
		return sharedTestContainer
	}

	ctx := context.Background()

	migrationsPath := filepath.Join("..", "..", "..", "..", "migrations")

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.WithInitScripts(
			filepath.Join(migrationsPath, "000001_create_wallets.up.sql"),
			filepath.Join(migrationsPath, "000002_create_credit_types.up.sql"),
			filepath.Join(migrationsPath, "000003_create_balances.up.sql"),
			filepath.Join(migrationsPath, "000004_create_transactions.up.sql"),
			filepath.Join(migrationsPath, "000005_create_outbox.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	err = pool.Ping(ctx)
	require.NoError(t, err)

	sharedTestContainer = &testContainer{
		container: container,
		pool:      pool,
	}

	return sharedTestContainer
}

// cleanupTables truncates every table between tests.
func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	// transactions and balances before wallets/credit_types: they carry foreign keys to them
	tables := []string{"outbox", "transactions", "balances", "credit_types", "wallets"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
}

func mustDecimal(t *testing.T, s string) valueobjects.Decimal {
	d, err := valueobjects.NewDecimal(s)
	require.NoError(t, err)
	return d
}

// ============================================
// WalletRepository Tests
// ============================================

func TestWalletRepository_Integration_Save(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	ctx := context.Background()

	t.Run("SaveNewWallet", func(t *testing.T) {
		wallet, err := entities.NewWallet("alice", map[string]any{"tier": "gold"})
		require.NoError(t, err)

		err = walletRepo.Save(ctx, wallet)
		assert.NoError(t, err)

		loaded, err := walletRepo.FindByID(ctx, wallet.ID())
		require.NoError(t, err)
		assert.Equal(t, wallet.ID(), loaded.ID())
		assert.Equal(t, "alice", loaded.Name())
		assert.Equal(t, entities.WalletStatusActive, loaded.Status())
	})

	t.Run("UpdateMutableFields", func(t *testing.T) {
		wallet, _ := entities.NewWallet("bob", nil)
		require.NoError(t, walletRepo.Save(ctx, wallet))

		wallet.Deactivate()
		wallet.UpdateContext(map[string]any{"note": "flagged"})
		require.NoError(t, walletRepo.Save(ctx, wallet))

		loaded, err := walletRepo.FindByID(ctx, wallet.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.WalletStatusInactive, loaded.Status())
		assert.Equal(t, "flagged", loaded.Context()["note"])
	})
}

func TestWalletRepository_Integration_FindByID_NotFound(t *testing.T) {
	tc := setupSharedTestDB(t)
	walletRepo := NewWalletRepository(tc.pool)
	ctx := context.Background()

	_, err := walletRepo.FindByID(ctx, uuid.New())
	assert.Error(t, err)
	assert.Equal(t, domerrors.KindWalletNotFound, domerrors.KindOf(err))
}

func TestWalletRepository_Integration_List(t *testing.T) {
	tc := setupSharedTestDB(t)
	walletRepo := NewWalletRepository(tc.pool)
	ctx := context.Background()

	for _, name := range []string{"carol", "carolyn", "dave"} {
		wallet, _ := entities.NewWallet(name, nil)
		require.NoError(t, walletRepo.Save(ctx, wallet))
	}

	wallets, total, err := walletRepo.List(ctx, ports.WalletFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, wallets, 3)

	name := "carol"
	filtered, total, err := walletRepo.List(ctx, ports.WalletFilter{Name: &name}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, filtered, 2)
}

// ============================================
// CreditTypeRepository Tests
// ============================================

func TestCreditTypeRepository_Integration_SaveAndFind(t *testing.T) {
	tc := setupSharedTestDB(t)
	repo := NewCreditTypeRepository(tc.pool)
	ctx := context.Background()

	creditType, err := entities.NewCreditType("cashback", "cashback earned on purchases")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, creditType))

	byID, err := repo.FindByID(ctx, creditType.ID())
	require.NoError(t, err)
	assert.Equal(t, "cashback", byID.Name())

	byName, err := repo.FindByName(ctx, "cashback")
	require.NoError(t, err)
	assert.Equal(t, creditType.ID(), byName.ID())
}

func TestCreditTypeRepository_Integration_DuplicateName(t *testing.T) {
	tc := setupSharedTestDB(t)
	repo := NewCreditTypeRepository(tc.pool)
	ctx := context.Background()

	ct1, _ := entities.NewCreditType("promo_credits", "promotional credits")
	require.NoError(t, repo.Save(ctx, ct1))

	ct2, _ := entities.NewCreditType("promo_credits", "a second row")
	err := repo.Save(ctx, ct2)
	assert.Error(t, err)
	assert.Equal(t, domerrors.KindCreditTypeNameExists, domerrors.KindOf(err))
}

// ============================================
// BalanceStore Tests
// ============================================

func TestBalanceStore_Integration_Lifecycle(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	store := NewBalanceStore(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("store-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))
	creditType, _ := entities.NewCreditType("points", "loyalty points")
	require.NoError(t, creditTypeRepo.Save(ctx, creditType))

	t.Run("DepositCreatesRow", func(t *testing.T) {
		balance, err := store.Deposit(ctx, wallet.ID(), creditType.ID(), mustDecimal(t, "200"))
		require.NoError(t, err)
		assert.Equal(t, "200", balance.Available().String())
		assert.Equal(t, "0", balance.Held().String())
	})

	t.Run("HoldMovesAvailableToHeld", func(t *testing.T) {
		balance, err := store.Hold(ctx, wallet.ID(), creditType.ID(), mustDecimal(t, "50"))
		require.NoError(t, err)
		assert.Equal(t, "150", balance.Available().String())
		assert.Equal(t, "50", balance.Held().String())
	})

	t.Run("DebitAppliesDeltas", func(t *testing.T) {
		balance, err := store.Debit(ctx, wallet.ID(), creditType.ID(),
			mustDecimal(t, "0"), mustDecimal(t, "50"), mustDecimal(t, "50"))
		require.NoError(t, err)
		assert.Equal(t, "0", balance.Held().String())
		assert.Equal(t, "50", balance.Spent().String())
		assert.Equal(t, "50", balance.OverallSpent().String())
	})

	t.Run("AdjustSetsAbsoluteTarget", func(t *testing.T) {
		balance, err := store.Adjust(ctx, wallet.ID(), creditType.ID(), mustDecimal(t, "1000"), true)
		require.NoError(t, err)
		assert.Equal(t, "1000", balance.Available().String())
		assert.Equal(t, "0", balance.Held().String())
		assert.Equal(t, "0", balance.Spent().String())
	})

	t.Run("GetForUpdateReturnsNilWhenMissing", func(t *testing.T) {
		balance, err := store.GetForUpdate(ctx, uuid.New(), creditType.ID())
		require.NoError(t, err)
		assert.Nil(t, balance)
	})
}

func TestBalanceStore_Integration_ListByWallet(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	store := NewBalanceStore(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("multi-balance-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))

	for _, name := range []string{"points", "credits"} {
		creditType, _ := entities.NewCreditType(name, name)
		require.NoError(t, creditTypeRepo.Save(ctx, creditType))
		_, err := store.Deposit(ctx, wallet.ID(), creditType.ID(), mustDecimal(t, "10"))
		require.NoError(t, err)
	}

	balances, err := store.ListByWallet(ctx, wallet.ID())
	require.NoError(t, err)
	assert.Len(t, balances, 2)
}

// ============================================
// TransactionRepository Tests
// ============================================

func TestTransactionRepository_Integration_CreateAndGet(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	txRepo := NewTransactionRepository(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("tx-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))
	creditType, _ := entities.NewCreditType("tx-points", "tx points")
	require.NoError(t, creditTypeRepo.Save(ctx, creditType))

	externalID := uuid.New().String()
	tx, err := entities.NewTransaction(
		wallet.ID(), creditType.ID(), entities.TransactionTypeDeposit,
		entities.Payload{Amount: mustDecimal(t, "75")},
		&externalID, "billing-service", "initial deposit", nil, nil,
	)
	require.NoError(t, err)

	require.NoError(t, txRepo.Create(ctx, tx))

	loaded, err := txRepo.Get(ctx, tx.ID(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusPending, loaded.Status())
	assert.Equal(t, "75", loaded.Payload().Amount.String())
}

func TestTransactionRepository_Integration_DuplicateExternalID(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	txRepo := NewTransactionRepository(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("dup-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))
	creditType, _ := entities.NewCreditType("dup-points", "dup points")
	require.NoError(t, creditTypeRepo.Save(ctx, creditType))

	externalID := "order-42"
	tx1, _ := entities.NewTransaction(
		wallet.ID(), creditType.ID(), entities.TransactionTypeDeposit,
		entities.Payload{Amount: mustDecimal(t, "10")}, &externalID, "billing", "", nil, nil,
	)
	require.NoError(t, txRepo.Create(ctx, tx1))

	tx2, _ := entities.NewTransaction(
		wallet.ID(), creditType.ID(), entities.TransactionTypeDeposit,
		entities.Payload{Amount: mustDecimal(t, "10")}, &externalID, "billing", "", nil, nil,
	)
	err := txRepo.Create(ctx, tx2)
	assert.Error(t, err)
	assert.Equal(t, domerrors.KindDuplicateTransaction, domerrors.KindOf(err))
}

func TestTransactionRepository_Integration_UpdateToCompleted(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	txRepo := NewTransactionRepository(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("complete-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))
	creditType, _ := entities.NewCreditType("complete-points", "complete points")
	require.NoError(t, creditTypeRepo.Save(ctx, creditType))

	tx, _ := entities.NewTransaction(
		wallet.ID(), creditType.ID(), entities.TransactionTypeDeposit,
		entities.Payload{Amount: mustDecimal(t, "40")}, nil, "billing", "", nil, nil,
	)
	require.NoError(t, txRepo.Create(ctx, tx))

	snapshot := entities.BalanceSnapshot{
		Available:    mustDecimal(t, "40"),
		Held:         mustDecimal(t, "0"),
		Spent:        mustDecimal(t, "0"),
		OverallSpent: mustDecimal(t, "0"),
	}
	require.NoError(t, tx.MarkCompleted(snapshot))
	require.NoError(t, txRepo.Update(ctx, tx))

	loaded, err := txRepo.Get(ctx, tx.ID(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusCompleted, loaded.Status())
	require.NotNil(t, loaded.BalanceSnapshot())
	assert.Equal(t, "40", loaded.BalanceSnapshot().Available.String())
}

func TestTransactionRepository_Integration_List(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	txRepo := NewTransactionRepository(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("list-tx-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))
	creditType, _ := entities.NewCreditType("list-tx-points", "points")
	require.NoError(t, creditTypeRepo.Save(ctx, creditType))

	for i := 0; i < 5; i++ {
		tx, _ := entities.NewTransaction(
			wallet.ID(), creditType.ID(), entities.TransactionTypeDeposit,
			entities.Payload{Amount: mustDecimal(t, fmt.Sprintf("%d", i+1))}, nil, "billing", "", nil, nil,
		)
		require.NoError(t, txRepo.Create(ctx, tx))
	}

	walletID := wallet.ID()
	txs, total, err := txRepo.List(ctx, ports.TransactionFilter{WalletID: &walletID}, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, txs, 3)
}

// ============================================
// OutboxRepository Tests
// ============================================

func TestOutboxRepository_Integration_SaveAndFindUnpublished(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	outboxRepo := NewOutboxRepository(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("event-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))

	event := events.NewWalletCreated(wallet.ID(), wallet.Name())
	require.NoError(t, outboxRepo.Save(ctx, event))

	records, err := outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, event.EventID().String(), records[0].EventID)

	require.NoError(t, outboxRepo.MarkPublished(ctx, records[0].EventID))

	remaining, err := outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 0)
}

func TestOutboxRepository_Integration_MarkFailedIncrementsRetryCount(t *testing.T) {
	tc := setupSharedTestDB(t)

	walletRepo := NewWalletRepository(tc.pool)
	outboxRepo := NewOutboxRepository(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("retry-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))

	event := events.NewWalletCreated(wallet.ID(), wallet.Name())
	require.NoError(t, outboxRepo.Save(ctx, event))

	records, err := outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, outboxRepo.MarkFailed(ctx, records[0].EventID, "nats unavailable"))

	retried, err := outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	assert.Equal(t, 1, retried[0].Attempts)
	assert.Equal(t, "nats unavailable", retried[0].LastError)
}

// ============================================
// UnitOfWork Tests
// ============================================

func TestUnitOfWork_Integration_Commit(t *testing.T) {
	tc := setupSharedTestDB(t)

	uow := NewUnitOfWork(tc.pool)
	walletRepo := NewWalletRepository(tc.pool)
	ctx := context.Background()

	var walletID uuid.UUID

	err := uow.Execute(ctx, func(txCtx context.Context) error {
		wallet, _ := entities.NewWallet("uow-commit-wallet", nil)
		walletID = wallet.ID()
		return walletRepo.Save(txCtx, wallet)
	})
	require.NoError(t, err)

	_, err = walletRepo.FindByID(ctx, walletID)
	assert.NoError(t, err)
}

func TestUnitOfWork_Integration_RollbackOnError(t *testing.T) {
	tc := setupSharedTestDB(t)

	uow := NewUnitOfWork(tc.pool)
	walletRepo := NewWalletRepository(tc.pool)
	ctx := context.Background()

	var walletID uuid.UUID

	err := uow.Execute(ctx, func(txCtx context.Context) error {
		wallet, _ := entities.NewWallet("uow-rollback-wallet", nil)
		walletID = wallet.ID()
		if err := walletRepo.Save(txCtx, wallet); err != nil {
			return err
		}
		return fmt.Errorf("intentional error")
	})
	assert.Error(t, err)

	_, err = walletRepo.FindByID(ctx, walletID)
	assert.Error(t, err)
	assert.Equal(t, domerrors.KindWalletNotFound, domerrors.KindOf(err))
}

// TestUnitOfWork_Integration_AtomicDepositAndHold exercises the two
// primitives a real deposit-then-hold flow chains together inside one
// unit of work, verifying the balance row reflects both mutations or
// neither.
func TestUnitOfWork_Integration_AtomicDepositAndHold(t *testing.T) {
	tc := setupSharedTestDB(t)

	uow := NewUnitOfWork(tc.pool)
	walletRepo := NewWalletRepository(tc.pool)
	creditTypeRepo := NewCreditTypeRepository(tc.pool)
	store := NewBalanceStore(tc.pool)
	ctx := context.Background()

	wallet, _ := entities.NewWallet("atomic-wallet", nil)
	require.NoError(t, walletRepo.Save(ctx, wallet))
	creditType, _ := entities.NewCreditType("atomic-points", "points")
	require.NoError(t, creditTypeRepo.Save(ctx, creditType))

	err := uow.Execute(ctx, func(txCtx context.Context) error {
		if _, err := store.Deposit(txCtx, wallet.ID(), creditType.ID(), mustDecimal(t, "500")); err != nil {
			return err
		}
		_, err := store.Hold(txCtx, wallet.ID(), creditType.ID(), mustDecimal(t, "200"))
		return err
	})
	require.NoError(t, err, "deposit and hold should commit atomically")

	balance, err := store.GetForUpdate(ctx, wallet.ID(), creditType.ID())
	require.NoError(t, err)
	assert.Equal(t, "300", balance.Available().String())
	assert.Equal(t, "200", balance.Held().String())
}
