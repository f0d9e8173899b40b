// Package ports - UnitOfWork wraps one database transaction boundary.
//
// Pattern: Unit of Work.
// - One UnitOfWork.Execute call = one DB transaction.
// - fn returning a non-nil error rolls the transaction back.
// - fn returning nil commits it.
package ports

import "context"

// UnitOfWork runs a function inside a single database transaction.
//
// The context passed into fn carries the transaction; every repository
// and store call inside fn must use that context, not the outer one,
// or it will run outside the transaction.
//
// Example:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    bal, err := balanceStore.Deposit(txCtx, walletID, creditTypeID, amount)
//	    if err != nil {
//	        return err // triggers rollback
//	    }
//	    tx.MarkCompleted(bal.Snapshot())
//	    return transactionStore.Update(txCtx, tx)
//	})
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(context.Context) error) error

	// ExecuteWithResult is Execute for callers that need to return a
	// value alongside the error, e.g. the mutated balance row.
	ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error)
}

// UnitOfWorkFactory creates UnitOfWork instances. Most call sites share
// one instance for the process lifetime; the factory exists for tests
// that need an isolated transaction per case.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}
