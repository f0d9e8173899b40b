// Package postgres - CreditTypeRepository implementation.
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
	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
)

// Compile-time check
var _ ports.CreditTypeRepository = (*CreditTypeRepository)(nil)

// CreditTypeRepository implements ports.CreditTypeRepository over the
// credit_types table. Uniqueness of name is enforced by a database
// constraint rather than checked here - a round trip to check first
// would just be a redundant race.
type CreditTypeRepository struct {
	pool *pgxpool.Pool
}

// NewCreditTypeRepository creates a new CreditTypeRepository.
func NewCreditTypeRepository(pool *pgxpool.Pool) *CreditTypeRepository {
	return &CreditTypeRepository{pool: pool}
}

func (r *CreditTypeRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const creditTypeColumns = `id, name, description, created_at, updated_at`

func (r *CreditTypeRepository) scan(row pgx.Row) (*entities.CreditType, error) {
	var (
		id                     uuid.UUID
		name, description      string
		createdAt, updatedAt   time.Time
	)
	if err := row.Scan(&id, &name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return entities.ReconstructCreditType(id, name, description, createdAt, updatedAt), nil
}

// Save inserts a new credit type or updates its description if it
// already exists. A unique-name violation on insert surfaces as
// errors.NewCreditTypeNameExists.
func (r *CreditTypeRepository) Save(ctx context.Context, creditType *entities.CreditType) error {
	q := r.getQuerier(ctx)
	query := `
		INSERT INTO credit_types (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
	`
	_, err := q.Exec(ctx, query,
		creditType.ID(), creditType.Name(), creditType.Description(),
		creditType.CreatedAt(), creditType.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domainerrors.NewCreditTypeNameExists(creditType.Name())
		}
		return fmt.Errorf("failed to save credit type: %w", err)
	}
	return nil
}

// FindByID fetches a credit type by id.
func (r *CreditTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.CreditType, error) {
	q := r.getQuerier(ctx)
	query := `SELECT ` + creditTypeColumns + ` FROM credit_types WHERE id = $1`

	ct, err := r.scan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NewCreditTypeNotFound(id.String())
		}
		return nil, fmt.Errorf("failed to find credit type: %w", err)
	}
	return ct, nil
}

// FindByName fetches a credit type by its unique name.
func (r *CreditTypeRepository) FindByName(ctx context.Context, name string) (*entities.CreditType, error) {
	q := r.getQuerier(ctx)
	query := `SELECT ` + creditTypeColumns + ` FROM credit_types WHERE name = $1`

	ct, err := r.scan(q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NewCreditTypeNotFound(name)
		}
		return nil, fmt.Errorf("failed to find credit type by name: %w", err)
	}
	return ct, nil
}

// List returns a paginated page of credit types ordered by name.
func (r *CreditTypeRepository) List(ctx context.Context, offset, limit int) ([]*entities.CreditType, int, error) {
	q := r.getQuerier(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM credit_types`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count credit types: %w", err)
	}

	query := `SELECT ` + creditTypeColumns + ` FROM credit_types ORDER BY name ASC OFFSET $1 LIMIT $2`
	rows, err := q.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list credit types: %w", err)
	}
	defer rows.Close()

	var result []*entities.CreditType
	for rows.Next() {
		ct, err := r.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan credit type: %w", err)
		}
		result = append(result, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating credit type rows: %w", err)
	}

	return result, total, nil
}
