// Package entities holds the ledger's core domain types: Wallet,
// CreditType, Balance and Transaction. Entities carry identity and
// lifecycle; shared primitives (arbitrary-precision amounts) live in
// valueobjects.
package entities

import (
	"time"

	"github.com/creditledger/ledger/internal/domain/errors"
	"github.com/google/uuid"
)

// WalletStatus represents the operational status of a wallet.
type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "ACTIVE"
	WalletStatusInactive WalletStatus = "INACTIVE"
)

func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusInactive:
		return true
	default:
		return false
	}
}

// Wallet is a named holder of balances. Unlike a single-currency
// account, a wallet here does not own a balance directly: it fans out
// across every credit type it has ever touched, with one Balance row
// per (wallet, credit type) pair living in its own aggregate.
//
// Context is an opaque, caller-supplied map (tenant id, owner
// reference, free-form tags) the ledger itself never interprets.
type Wallet struct {
	id        uuid.UUID
	name      string
	context   map[string]any
	status    WalletStatus
	createdAt time.Time
	updatedAt time.Time
}

// NewWallet creates a new active wallet.
func NewWallet(name string, context map[string]any) (*Wallet, error) {
	if name == "" {
		return nil, errors.ValidationError{
			Field:   "name",
			Message: "name is required",
		}
	}
	if context == nil {
		context = map[string]any{}
	}

	now := time.Now()
	return &Wallet{
		id:        uuid.New(),
		name:      name,
		context:   context,
		status:    WalletStatusActive,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructWallet rebuilds a Wallet from stored data, skipping the
// validation that only applies at creation time.
func ReconstructWallet(
	id uuid.UUID,
	name string,
	context map[string]any,
	status WalletStatus,
	createdAt, updatedAt time.Time,
) *Wallet {
	if context == nil {
		context = map[string]any{}
	}
	return &Wallet{
		id:        id,
		name:      name,
		context:   context,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (w *Wallet) ID() uuid.UUID           { return w.id }
func (w *Wallet) Name() string            { return w.name }
func (w *Wallet) Context() map[string]any { return w.context }
func (w *Wallet) Status() WalletStatus    { return w.status }
func (w *Wallet) CreatedAt() time.Time    { return w.createdAt }
func (w *Wallet) UpdatedAt() time.Time    { return w.updatedAt }

// IsActive returns true if the wallet can currently transact.
func (w *Wallet) IsActive() bool {
	return w.status == WalletStatusActive
}

// CanTransact mirrors IsActive as an error-returning guard so handlers
// can check and propagate a typed error in one call.
func (w *Wallet) CanTransact() error {
	if !w.IsActive() {
		return errors.NewInvalidInput("wallet is not active")
	}
	return nil
}

// UpdateContext replaces the wallet's opaque context map.
func (w *Wallet) UpdateContext(context map[string]any) {
	if context == nil {
		context = map[string]any{}
	}
	w.context = context
	w.updatedAt = time.Now()
}

// Deactivate disables the wallet for new transactions. Existing
// balances and transaction history are untouched.
func (w *Wallet) Deactivate() {
	w.status = WalletStatusInactive
	w.updatedAt = time.Now()
}

// Activate re-enables a deactivated wallet.
func (w *Wallet) Activate() {
	w.status = WalletStatusActive
	w.updatedAt = time.Now()
}
