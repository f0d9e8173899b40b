// Package postgres - BalanceStore implementation: the five atomic
// arithmetic primitives the operation handlers call under the per-key
// mutex, inside the caller's unit of work.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.BalanceStore = (*BalanceStore)(nil)

// BalanceStore implements ports.BalanceStore over the balances table.
//
// Each primitive runs inside the caller's transaction (via extractTx)
// so the commit lands atomically with the transaction row update. The
// balances row itself is not locked - serialization comes from the
// external per-key mutex.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

func (s *BalanceStore) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return s.pool
}

const balanceColumns = `id, wallet_id, credit_type_id, available, held, spent, overall_spent, created_at, updated_at`

func (s *BalanceStore) scanBalance(row pgx.Row) (*entities.Balance, error) {
	var (
		id, walletID, creditTypeID                  uuid.UUID
		availableStr, heldStr, spentStr, overallStr string
		createdAt, updatedAt                        time.Time
	)

	if err := row.Scan(&id, &walletID, &creditTypeID, &availableStr, &heldStr, &spentStr, &overallStr, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	available, err := valueobjects.NewDecimal(availableStr)
	if err != nil {
		return nil, fmt.Errorf("invalid available in database: %w", err)
	}
	held, err := valueobjects.NewDecimal(heldStr)
	if err != nil {
		return nil, fmt.Errorf("invalid held in database: %w", err)
	}
	spent, err := valueobjects.NewDecimal(spentStr)
	if err != nil {
		return nil, fmt.Errorf("invalid spent in database: %w", err)
	}
	overallSpent, err := valueobjects.NewDecimal(overallStr)
	if err != nil {
		return nil, fmt.Errorf("invalid overall_spent in database: %w", err)
	}

	return entities.ReconstructBalance(id, walletID, creditTypeID, available, held, spent, overallSpent, createdAt, updatedAt), nil
}

// GetForUpdate fetches the balance row, or nil if none exists.
func (s *BalanceStore) GetForUpdate(ctx context.Context, walletID, creditTypeID uuid.UUID) (*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE wallet_id = $1 AND credit_type_id = $2`

	balance, err := s.scanBalance(q.QueryRow(ctx, query, walletID, creditTypeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Deposit upserts the row and adds amount to available.
func (s *BalanceStore) Deposit(ctx context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `
		INSERT INTO balances (id, wallet_id, credit_type_id, available, held, spent, overall_spent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, now(), now())
		ON CONFLICT (wallet_id, credit_type_id) DO UPDATE
		SET available = balances.available + EXCLUDED.available, updated_at = now()
		RETURNING ` + balanceColumns

	balance, err := s.scanBalance(q.QueryRow(ctx, query, uuid.New(), walletID, creditTypeID, amount.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}
	return balance, nil
}

// Hold requires an existing row; moves amount from available to held.
func (s *BalanceStore) Hold(ctx context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `
		UPDATE balances
		SET available = available - $3, held = held + $3, updated_at = now()
		WHERE wallet_id = $1 AND credit_type_id = $2
		RETURNING ` + balanceColumns

	balance, err := s.scanBalance(q.QueryRow(ctx, query, walletID, creditTypeID, amount.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to hold: %w", err)
	}
	return balance, nil
}

// Release upserts (zero-valued) if needed, then moves amount from held
// back to available.
func (s *BalanceStore) Release(ctx context.Context, walletID, creditTypeID uuid.UUID, amount valueobjects.Decimal) (*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `
		INSERT INTO balances (id, wallet_id, credit_type_id, available, held, spent, overall_spent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, -$4, 0, 0, now(), now())
		ON CONFLICT (wallet_id, credit_type_id) DO UPDATE
		SET available = balances.available + EXCLUDED.available,
			held = balances.held - EXCLUDED.available,
			updated_at = now()
		RETURNING ` + balanceColumns

	balance, err := s.scanBalance(q.QueryRow(ctx, query, uuid.New(), walletID, creditTypeID, amount.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to release: %w", err)
	}
	return balance, nil
}

// Debit applies the three explicit deltas computed by the debit
// handler, whether or not a hold was referenced.
func (s *BalanceStore) Debit(ctx context.Context, walletID, creditTypeID uuid.UUID, availDelta, heldDelta, spentDelta valueobjects.Decimal) (*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `
		UPDATE balances
		SET available = available - $3,
			held = held - $4,
			spent = spent + $5,
			overall_spent = overall_spent + $5,
			updated_at = now()
		WHERE wallet_id = $1 AND credit_type_id = $2
		RETURNING ` + balanceColumns

	balance, err := s.scanBalance(q.QueryRow(ctx, query, walletID, creditTypeID, availDelta.String(), heldDelta.String(), spentDelta.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to debit: %w", err)
	}
	return balance, nil
}

// Adjust upserts the row: sets available to an absolute target,
// zeroes held, and conditionally resets spent. overall_spent is never
// touched here.
func (s *BalanceStore) Adjust(ctx context.Context, walletID, creditTypeID uuid.UUID, target valueobjects.Decimal, resetSpent bool) (*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `
		INSERT INTO balances (id, wallet_id, credit_type_id, available, held, spent, overall_spent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, CASE WHEN $5 THEN 0 ELSE 0 END, 0, now(), now())
		ON CONFLICT (wallet_id, credit_type_id) DO UPDATE
		SET available = EXCLUDED.available,
			held = 0,
			spent = CASE WHEN $5 THEN 0 ELSE balances.spent END,
			updated_at = now()
		RETURNING ` + balanceColumns

	balance, err := s.scanBalance(q.QueryRow(ctx, query, uuid.New(), walletID, creditTypeID, target.String(), resetSpent))
	if err != nil {
		return nil, fmt.Errorf("failed to adjust: %w", err)
	}
	return balance, nil
}

// ListByWallet returns every balance row for a wallet, one per credit
// type it has transacted in, ordered for stable pagination-free output.
func (s *BalanceStore) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*entities.Balance, error) {
	q := s.getQuerier(ctx)
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE wallet_id = $1 ORDER BY credit_type_id`

	rows, err := q.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var result []*entities.Balance
	for rows.Next() {
		balance, err := s.scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		result = append(result, balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return result, nil
}
