// Package postgres - UnitOfWork implementation for PostgreSQL.
//
// Unit of Work Pattern:
// - Manages transaction boundaries
// - Guarantees atomicity of operations
// - Automatic ROLLBACK on error
// - Automatic COMMIT on success
//
// Usage:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    // all repository calls inside fn must use txCtx
//	    bal, _ := balanceStore.GetForUpdate(txCtx, walletID, creditTypeID)
//	    return txnRepo.Update(txCtx, txn)
//	    // return err // ROLLBACK
//	})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditledger/ledger/internal/application/ports"
)

// Compile-time check
var _ ports.UnitOfWork = (*UnitOfWork)(nil)
var _ ports.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)

// UnitOfWork implements ports.UnitOfWork over PostgreSQL transactions.
//
// Thread-safe: uses the connection pool.
// Transaction isolation: READ COMMITTED by default.
type UnitOfWork struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{
			IsoLevel: pgx.ReadCommitted, // Default isolation level
		},
	}
}

// NewUnitOfWorkWithIsolation creates a UnitOfWork with the given isolation level.
//
// Isolation levels:
// - pgx.ReadCommitted (default): standard level, fits most cases
// - pgx.RepeatableRead: guarantees read consistency within the transaction
// - pgx.Serializable: strictest isolation (may trigger retries on conflict)
func NewUnitOfWorkWithIsolation(pool *pgxpool.Pool, isolation pgx.TxIsoLevel) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{
			IsoLevel: isolation,
		},
	}
}

// Execute runs fn inside a transaction.
//
// Behavior:
// - begins a transaction
// - injects it into the context
// - runs fn with the new context
// - fn returns nil: COMMIT
// - fn returns error: ROLLBACK
// - panic: ROLLBACK + re-panic
//
// Every repository call inside fn must use the passed txCtx.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		// already inside a transaction - just run fn.
		// PostgreSQL has no true nested transactions, only savepoints.
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	txCtx := injectTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ExecuteWithResult runs fn and returns its result.
//
// Like Execute, but lets the caller return a value from the transaction -
// useful when the caller needs the entity that was created or updated.
func (u *UnitOfWork) ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	var result interface{}

	err := u.Execute(ctx, func(txCtx context.Context) error {
		var fnErr error
		result, fnErr = fn(txCtx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExecuteWithRetry runs a transaction, retrying automatically on conflict.
//
// Useful for optimistic locking and serialization failures.
// maxRetries: number of retries after the first attempt (0 = no retry).
func (u *UnitOfWork) ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := u.Execute(ctx, fn)
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return err
		}

		lastErr = err
		// could add exponential backoff here
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// UnitOfWorkFactory creates new UnitOfWork instances.
// Useful when different transaction settings are needed per call site.
type UnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

// NewUnitOfWorkFactory creates a UnitOfWork factory.
func NewUnitOfWorkFactory(pool *pgxpool.Pool) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{pool: pool}
}

// New creates a UnitOfWork with default settings.
func (f *UnitOfWorkFactory) New() ports.UnitOfWork {
	return NewUnitOfWork(f.pool)
}

// NewWithIsolation creates a UnitOfWork with the given isolation level.
func (f *UnitOfWorkFactory) NewWithIsolation(isolation pgx.TxIsoLevel) *UnitOfWork {
	return NewUnitOfWorkWithIsolation(f.pool, isolation)
}

// NewSerializable creates a UnitOfWork with SERIALIZABLE isolation.
// Use for critical financial operations.
func (f *UnitOfWorkFactory) NewSerializable() *UnitOfWork {
	return NewUnitOfWorkWithIsolation(f.pool, pgx.Serializable)
}
