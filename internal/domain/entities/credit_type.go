package entities

import (
	"time"

	"github.com/creditledger/ledger/internal/domain/errors"
	"github.com/google/uuid"
)

// CreditType is a user-defined kind of credit (e.g. "api_calls",
// "storage_gb", "support_tickets"). It replaces a closed currency
// whitelist: operators register whatever non-monetary units their
// product needs, and the name is unique so handlers can resolve a
// type by a human-readable slug instead of only by id.
type CreditType struct {
	id          uuid.UUID
	name        string
	description string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewCreditType creates a credit type. Uniqueness of name is enforced
// by the store, not here, since it requires a round trip.
func NewCreditType(name, description string) (*CreditType, error) {
	if name == "" {
		return nil, errors.ValidationError{
			Field:   "name",
			Message: "name is required",
		}
	}

	now := time.Now()
	return &CreditType{
		id:          uuid.New(),
		name:        name,
		description: description,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructCreditType rebuilds a CreditType from stored data.
func ReconstructCreditType(
	id uuid.UUID,
	name, description string,
	createdAt, updatedAt time.Time,
) *CreditType {
	return &CreditType{
		id:          id,
		name:        name,
		description: description,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (c *CreditType) ID() uuid.UUID         { return c.id }
func (c *CreditType) Name() string          { return c.name }
func (c *CreditType) Description() string   { return c.description }
func (c *CreditType) CreatedAt() time.Time  { return c.createdAt }
func (c *CreditType) UpdatedAt() time.Time  { return c.updatedAt }

// UpdateDescription changes the free-text description. Name is
// immutable once a credit type has been referenced by a balance, so
// there is deliberately no rename here.
func (c *CreditType) UpdateDescription(description string) {
	c.description = description
	c.updatedAt = time.Now()
}
