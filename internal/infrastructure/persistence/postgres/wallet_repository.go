// Package postgres - WalletRepository implementation.
//
// A wallet here is identity-only: name, opaque context, status. It
// carries no balance fields - those live in their own aggregate,
// keyed by (wallet_id, credit_type_id), behind BalanceStore.
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
var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository implements ports.WalletRepository over the wallets table.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const walletColumns = `id, name, context, status, created_at, updated_at`

func (r *WalletRepository) scan(row pgx.Row) (*entities.Wallet, error) {
	var (
		id                   uuid.UUID
		name, statusStr      string
		contextRaw           []byte
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &name, &contextRaw, &statusStr, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	ctxMap := map[string]any{}
	if len(contextRaw) > 0 {
		if err := json.Unmarshal(contextRaw, &ctxMap); err != nil {
			return nil, fmt.Errorf("invalid context json in database: %w", err)
		}
	}

	return entities.ReconstructWallet(id, name, ctxMap, entities.WalletStatus(statusStr), createdAt, updatedAt), nil
}

// Save inserts a new wallet or updates an existing one's mutable
// fields (context, status).
func (r *WalletRepository) Save(ctx context.Context, wallet *entities.Wallet) error {
	q := r.getQuerier(ctx)

	contextJSON, err := json.Marshal(wallet.Context())
	if err != nil {
		return fmt.Errorf("failed to marshal wallet context: %w", err)
	}

	query := `
		INSERT INTO wallets (id, name, context, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			context = EXCLUDED.context,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	_, err = q.Exec(ctx, query,
		wallet.ID(), wallet.Name(), contextJSON, string(wallet.Status()),
		wallet.CreatedAt(), wallet.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

// FindByID fetches a wallet by id.
func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	wallet, err := r.scan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NewWalletNotFound(id.String())
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return wallet, nil
}

// List returns a filtered, paginated page of wallets.
func (r *WalletRepository) List(ctx context.Context, filter ports.WalletFilter, offset, limit int) ([]*entities.Wallet, int, error) {
	q := r.getQuerier(ctx)

	var (
		conditions []string
		args       []any
	)

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Name != nil {
		args = append(args, "%"+*filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT count(*) FROM wallets ` + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count wallets: %w", err)
	}

	args = append(args, offset, limit)
	query := fmt.Sprintf(
		`SELECT %s FROM wallets %s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		walletColumns, whereClause, len(args)-1, len(args),
	)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var result []*entities.Wallet
	for rows.Next() {
		wallet, err := r.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan wallet: %w", err)
		}
		result = append(result, wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating wallet rows: %w", err)
	}

	return result, total, nil
}
