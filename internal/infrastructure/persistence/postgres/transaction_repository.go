// Package postgres - TransactionRepository implementation: the
// append-mostly log of transaction records.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/domain/entities"
	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
)

// Compile-time check
var _ ports.TransactionStore = (*TransactionRepository)(nil)

// TransactionRepository implements ports.TransactionStore over the
// transactions table.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transactionColumns = `
	id, type, external_id, wallet_id, credit_type_id, issuer, description,
	context, payload, hold_status, status, balance_snapshot, subscription_id,
	created_at, updated_at
`

func (r *TransactionRepository) scan(row pgx.Row) (*entities.Transaction, error) {
	var (
		id, walletID, creditTypeID uuid.UUID
		typeStr, statusStr         string
		externalID, subscriptionID *string
		issuer, description        string
		contextRaw, payloadRaw     []byte
		holdStatusStr              *string
		balanceSnapshotRaw         []byte
		createdAt, updatedAt       time.Time
	)

	if err := row.Scan(
		&id, &typeStr, &externalID, &walletID, &creditTypeID, &issuer, &description,
		&contextRaw, &payloadRaw, &holdStatusStr, &statusStr, &balanceSnapshotRaw, &subscriptionID,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	ctxMap := map[string]any{}
	if len(contextRaw) > 0 {
		if err := json.Unmarshal(contextRaw, &ctxMap); err != nil {
			return nil, fmt.Errorf("invalid context json in database: %w", err)
		}
	}

	var payload entities.Payload
	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &payload); err != nil {
			return nil, fmt.Errorf("invalid payload json in database: %w", err)
		}
	}

	var holdStatus *entities.HoldStatus
	if holdStatusStr != nil {
		hs := entities.HoldStatus(*holdStatusStr)
		holdStatus = &hs
	}

	var snapshot *entities.BalanceSnapshot
	if len(balanceSnapshotRaw) > 0 {
		var s entities.BalanceSnapshot
		if err := json.Unmarshal(balanceSnapshotRaw, &s); err != nil {
			return nil, fmt.Errorf("invalid balance_snapshot json in database: %w", err)
		}
		snapshot = &s
	}

	return entities.ReconstructTransaction(
		id, walletID, creditTypeID,
		entities.TransactionType(typeStr), entities.TransactionStatus(statusStr), holdStatus,
		payload, externalID, issuer, description, ctxMap, subscriptionID,
		snapshot, createdAt, updatedAt,
	), nil
}

// Create inserts a new pending transaction row. A duplicate
// (wallet_id, external_id) pair surfaces as
// errors.NewDuplicateTransaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	q := r.getQuerier(ctx)

	contextJSON, err := json.Marshal(tx.Context())
	if err != nil {
		return fmt.Errorf("failed to marshal transaction context: %w", err)
	}
	payloadJSON, err := json.Marshal(tx.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal transaction payload: %w", err)
	}

	var holdStatusStr *string
	if hs := tx.HoldStatus(); hs != nil {
		s := string(*hs)
		holdStatusStr = &s
	}

	query := `
		INSERT INTO transactions (
			id, type, external_id, wallet_id, credit_type_id, issuer, description,
			context, payload, hold_status, status, balance_snapshot, subscription_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, $12, $13, $14)
	`
	_, err = q.Exec(ctx, query,
		tx.ID(), string(tx.Type()), tx.ExternalID(), tx.WalletID(), tx.CreditTypeID(),
		tx.Issuer(), tx.Description(), contextJSON, payloadJSON, holdStatusStr,
		string(tx.Status()), tx.SubscriptionID(), tx.CreatedAt(), tx.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			externalID := ""
			if tx.ExternalID() != nil {
				externalID = *tx.ExternalID()
			}
			return domainerrors.NewDuplicateTransaction(tx.WalletID().String(), externalID)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// Get fetches by id, optionally constrained to a type and/or credit
// type id. A constraint mismatch is indistinguishable from a missing
// row: both return (nil, nil), matching the debit/release handlers'
// contract of treating a mismatched hold reference as not found
// rather than surfacing a separate error.
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID, wantType *entities.TransactionType, wantCreditTypeID *uuid.UUID) (*entities.Transaction, error) {
	q := r.getQuerier(ctx)

	conditions := []string{"id = $1"}
	args := []any{id}

	if wantType != nil {
		args = append(args, string(*wantType))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if wantCreditTypeID != nil {
		args = append(args, *wantCreditTypeID)
		conditions = append(conditions, fmt.Sprintf("credit_type_id = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(conditions, " AND ")

	result, err := r.scan(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return result, nil
}

// Update persists the mutable fields of an existing row (status,
// hold_status, balance_snapshot, updated_at). No status transition
// validation happens here: the orchestrator and handlers own legality.
func (r *TransactionRepository) Update(ctx context.Context, tx *entities.Transaction) error {
	q := r.getQuerier(ctx)

	var snapshotJSON []byte
	if snap := tx.BalanceSnapshot(); snap != nil {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal balance snapshot: %w", err)
		}
		snapshotJSON = data
	}

	var holdStatusStr *string
	if hs := tx.HoldStatus(); hs != nil {
		s := string(*hs)
		holdStatusStr = &s
	}

	query := `
		UPDATE transactions
		SET status = $2, hold_status = $3, balance_snapshot = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := q.Exec(ctx, query, tx.ID(), string(tx.Status()), holdStatusStr, snapshotJSON, tx.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not found", tx.ID())
	}
	return nil
}

// List returns a filtered, paginated page for the read surface.
func (r *TransactionRepository) List(ctx context.Context, filter ports.TransactionFilter, offset, limit int) ([]*entities.Transaction, int, error) {
	q := r.getQuerier(ctx)

	var (
		conditions []string
		args       []any
	)

	if filter.WalletID != nil {
		args = append(args, *filter.WalletID)
		conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", len(args)))
	}
	if filter.CreditTypeID != nil {
		args = append(args, *filter.CreditTypeID)
		conditions = append(conditions, fmt.Sprintf("credit_type_id = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT count(*) FROM transactions ` + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	args = append(args, offset, limit)
	query := fmt.Sprintf(
		`SELECT %s FROM transactions %s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		transactionColumns, whereClause, len(args)-1, len(args),
	)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []*entities.Transaction
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return result, total, nil
}
