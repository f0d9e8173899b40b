package entities

import (
	"time"

	"github.com/creditledger/ledger/internal/domain/errors"
	"github.com/creditledger/ledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// TransactionType is the operation a transaction record represents.
type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeDebit   TransactionType = "debit"
	TransactionTypeHold    TransactionType = "hold"
	TransactionTypeRelease TransactionType = "release"
	TransactionTypeAdjust  TransactionType = "adjust"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeDebit, TransactionTypeHold,
		TransactionTypeRelease, TransactionTypeAdjust:
		return true
	default:
		return false
	}
}

// TransactionStatus is the coarse lifecycle state of a transaction
// record. Unlike the multi-state machine a payout or transfer needs,
// a ledger operation either finishes in one DB transaction or it
// doesn't: there is no PROCESSING or CANCELLED in between.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// HoldStatus is the sub-state-machine carried only by transactions of
// type=hold. It starts at HoldStatusHeld on create and moves to
// exactly one terminal state; there is no transition out of a
// terminal hold state.
type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "held"
	HoldStatusUsed     HoldStatus = "used"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusExpired  HoldStatus = "expired"
)

func (h HoldStatus) IsTerminal() bool {
	return h == HoldStatusUsed || h == HoldStatusReleased || h == HoldStatusExpired
}

// Payload is the typed body of a transaction, discriminated by its
// Type. Exactly one handler in the application layer knows how to
// read each shape; the entity itself only carries it.
type Payload struct {
	Amount            valueobjects.Decimal `json:"amount,omitempty"`
	HoldTransactionID *uuid.UUID           `json:"hold_transaction_id,omitempty"`
	ResetSpent        bool                 `json:"reset_spent,omitempty"`
}

// Transaction is an append-only log entry: one row per requested
// operation, created PENDING and transitioned exactly once to a
// terminal status by the orchestrator. Entries are never rewritten
// after that, only (for holds) followed by a hold_status transition
// on the very same row.
type Transaction struct {
	id              uuid.UUID
	walletID        uuid.UUID
	creditTypeID    uuid.UUID
	transactionType TransactionType
	status          TransactionStatus
	holdStatus      *HoldStatus

	payload Payload

	externalID     *string
	issuer         string
	description    string
	context        map[string]any
	subscriptionID *string

	balanceSnapshot *BalanceSnapshot

	createdAt time.Time
	updatedAt time.Time
}

// NewTransaction creates a PENDING transaction row. hold_status is
// seeded to held for type=hold and left nil for every other type, per
// the create-phase contract: the orchestrator inserts this row before
// acquiring the per-key mutex, so amount/precondition checks that need
// the balance row happen later, in the handler.
func NewTransaction(
	walletID, creditTypeID uuid.UUID,
	transactionType TransactionType,
	payload Payload,
	externalID *string,
	issuer, description string,
	context map[string]any,
	subscriptionID *string,
) (*Transaction, error) {
	if !transactionType.IsValid() {
		return nil, errors.NewInvalidInput("invalid transaction type")
	}
	if context == nil {
		context = map[string]any{}
	}

	var holdStatus *HoldStatus
	if transactionType == TransactionTypeHold {
		hs := HoldStatusHeld
		holdStatus = &hs
	}

	now := time.Now()
	return &Transaction{
		id:              uuid.New(),
		walletID:        walletID,
		creditTypeID:    creditTypeID,
		transactionType: transactionType,
		status:          TransactionStatusPending,
		holdStatus:      holdStatus,
		payload:         payload,
		externalID:      externalID,
		issuer:          issuer,
		description:     description,
		context:         context,
		subscriptionID:  subscriptionID,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructTransaction rebuilds a Transaction from stored data.
func ReconstructTransaction(
	id, walletID, creditTypeID uuid.UUID,
	transactionType TransactionType,
	status TransactionStatus,
	holdStatus *HoldStatus,
	payload Payload,
	externalID *string,
	issuer, description string,
	context map[string]any,
	subscriptionID *string,
	balanceSnapshot *BalanceSnapshot,
	createdAt, updatedAt time.Time,
) *Transaction {
	if context == nil {
		context = map[string]any{}
	}
	return &Transaction{
		id:              id,
		walletID:        walletID,
		creditTypeID:    creditTypeID,
		transactionType: transactionType,
		status:          status,
		holdStatus:      holdStatus,
		payload:         payload,
		externalID:      externalID,
		issuer:          issuer,
		description:     description,
		context:         context,
		subscriptionID:  subscriptionID,
		balanceSnapshot: balanceSnapshot,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (t *Transaction) ID() uuid.UUID                    { return t.id }
func (t *Transaction) WalletID() uuid.UUID               { return t.walletID }
func (t *Transaction) CreditTypeID() uuid.UUID           { return t.creditTypeID }
func (t *Transaction) Type() TransactionType             { return t.transactionType }
func (t *Transaction) Status() TransactionStatus         { return t.status }
func (t *Transaction) HoldStatus() *HoldStatus           { return t.holdStatus }
func (t *Transaction) Payload() Payload                  { return t.payload }
func (t *Transaction) ExternalID() *string               { return t.externalID }
func (t *Transaction) Issuer() string                    { return t.issuer }
func (t *Transaction) Description() string               { return t.description }
func (t *Transaction) Context() map[string]any           { return t.context }
func (t *Transaction) SubscriptionID() *string           { return t.subscriptionID }
func (t *Transaction) BalanceSnapshot() *BalanceSnapshot { return t.balanceSnapshot }
func (t *Transaction) CreatedAt() time.Time              { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time              { return t.updatedAt }

func (t *Transaction) IsPending() bool   { return t.status == TransactionStatusPending }
func (t *Transaction) IsCompleted() bool { return t.status == TransactionStatusCompleted }
func (t *Transaction) IsFailed() bool    { return t.status == TransactionStatusFailed }
func (t *Transaction) IsFinal() bool     { return t.status.IsFinal() }

// IsHeld reports whether this is a hold transaction still open for a
// debit or release to reference. A hold whose apply phase failed is
// excluded even though its hold_status is left at "held": only a
// completed hold ever reserved credits a later operation can consume.
func (t *Transaction) IsHeld() bool {
	return t.transactionType == TransactionTypeHold && t.IsCompleted() && t.holdStatus != nil && *t.holdStatus == HoldStatusHeld
}

// MarkCompleted transitions a pending transaction to completed and
// stamps the balance snapshot taken right after the handler's
// mutation. Business rule: only a pending transaction can complete.
func (t *Transaction) MarkCompleted(snapshot BalanceSnapshot) error {
	if !t.IsPending() {
		return errors.NewInvalidInput("only pending transactions can be completed")
	}
	t.status = TransactionStatusCompleted
	t.balanceSnapshot = &snapshot
	t.updatedAt = time.Now()
	return nil
}

// MarkFailed transitions a pending transaction to failed. Unlike the
// completed path, no snapshot is stamped: the balance was never
// mutated, or the mutation was rolled back with it.
func (t *Transaction) MarkFailed() error {
	if !t.IsPending() {
		return errors.NewInvalidInput("only pending transactions can be failed")
	}
	t.status = TransactionStatusFailed
	t.updatedAt = time.Now()
	return nil
}

// MarkHoldUsed transitions this hold transaction to used. Business
// rule: only an open hold can be consumed, and the transition is
// one-way.
func (t *Transaction) MarkHoldUsed() error {
	if !t.IsHeld() {
		return errors.NewHoldNotHeld(t.id.String())
	}
	used := HoldStatusUsed
	t.holdStatus = &used
	t.updatedAt = time.Now()
	return nil
}

// MarkHoldReleased transitions this hold transaction to released.
func (t *Transaction) MarkHoldReleased() error {
	if !t.IsHeld() {
		return errors.NewHoldNotHeld(t.id.String())
	}
	released := HoldStatusReleased
	t.holdStatus = &released
	t.updatedAt = time.Now()
	return nil
}
