package entities

import (
	"time"

	"github.com/creditledger/ledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// Balance is the four-counter row for one (wallet, credit type) pair.
// Unlike the teacher's embedded available/pending/version pair, a
// Balance here is its own aggregate: a wallet may hold many balances,
// one per credit type, and each is mutated in isolation under its own
// per-key lock rather than an optimistic-locking version field.
type Balance struct {
	id           uuid.UUID
	walletID     uuid.UUID
	creditTypeID uuid.UUID

	available    valueobjects.Decimal
	held         valueobjects.Decimal
	spent        valueobjects.Decimal
	overallSpent valueobjects.Decimal

	createdAt time.Time
	updatedAt time.Time
}

// NewBalance creates a zeroed balance row for a (wallet, credit type)
// pair. Stores upsert this on first deposit/release/adjust rather than
// requiring a separate creation step.
func NewBalance(walletID, creditTypeID uuid.UUID) *Balance {
	now := time.Now()
	zero := valueobjects.Zero()
	return &Balance{
		id:           uuid.New(),
		walletID:     walletID,
		creditTypeID: creditTypeID,
		available:    zero,
		held:         zero,
		spent:        zero,
		overallSpent: zero,
		createdAt:    now,
		updatedAt:    now,
	}
}

// ReconstructBalance rebuilds a Balance from stored data.
func ReconstructBalance(
	id, walletID, creditTypeID uuid.UUID,
	available, held, spent, overallSpent valueobjects.Decimal,
	createdAt, updatedAt time.Time,
) *Balance {
	return &Balance{
		id:           id,
		walletID:     walletID,
		creditTypeID: creditTypeID,
		available:    available,
		held:         held,
		spent:        spent,
		overallSpent: overallSpent,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (b *Balance) ID() uuid.UUID                    { return b.id }
func (b *Balance) WalletID() uuid.UUID              { return b.walletID }
func (b *Balance) CreditTypeID() uuid.UUID          { return b.creditTypeID }
func (b *Balance) Available() valueobjects.Decimal  { return b.available }
func (b *Balance) Held() valueobjects.Decimal       { return b.held }
func (b *Balance) Spent() valueobjects.Decimal      { return b.spent }
func (b *Balance) OverallSpent() valueobjects.Decimal {
	return b.overallSpent
}
func (b *Balance) CreatedAt() time.Time { return b.createdAt }
func (b *Balance) UpdatedAt() time.Time { return b.updatedAt }

// IsValid reports whether the two non-negativity invariants hold:
// available >= 0 and held >= 0. Callers check this after every
// mutation and roll back the enclosing transaction on failure rather
// than letting a negative row commit.
func (b *Balance) IsValid() bool {
	return !b.available.IsNegative() && !b.held.IsNegative()
}

// ApplyDeposit increases available by amount.
func (b *Balance) ApplyDeposit(amount valueobjects.Decimal) {
	b.available = b.available.Add(amount)
	b.updatedAt = time.Now()
}

// ApplyHold moves amount from available to held.
func (b *Balance) ApplyHold(amount valueobjects.Decimal) {
	b.available = b.available.Sub(amount)
	b.held = b.held.Add(amount)
	b.updatedAt = time.Now()
}

// ApplyRelease moves amount from held back to available.
func (b *Balance) ApplyRelease(amount valueobjects.Decimal) {
	b.held = b.held.Sub(amount)
	b.available = b.available.Add(amount)
	b.updatedAt = time.Now()
}

// ApplyDebit applies the three explicit deltas a debit computes,
// whether or not it references a hold: available -= availDelta,
// held -= heldDelta, spent/overallSpent += spentDelta. A plain debit
// with no hold passes heldDelta=0; a hold-backed debit passes the
// full hold amount as heldDelta and the difference between the hold
// and the debit as availDelta (the unspent remainder flowing back to
// available).
func (b *Balance) ApplyDebit(availDelta, heldDelta, spentDelta valueobjects.Decimal) {
	b.available = b.available.Sub(availDelta)
	b.held = b.held.Sub(heldDelta)
	b.spent = b.spent.Add(spentDelta)
	b.overallSpent = b.overallSpent.Add(spentDelta)
	b.updatedAt = time.Now()
}

// ApplyAdjust sets available to an absolute target and zeroes held.
// spent resets to zero only when resetSpent is true; overall_spent is
// never decreased by an adjust.
func (b *Balance) ApplyAdjust(target valueobjects.Decimal, resetSpent bool) {
	b.available = target
	b.held = valueobjects.Zero()
	if resetSpent {
		b.spent = valueobjects.Zero()
	}
	b.updatedAt = time.Now()
}

// Snapshot captures the four counters as they stand right now, to be
// stamped onto the transaction row that caused this mutation.
func (b *Balance) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{
		Available:    b.available,
		Held:         b.held,
		Spent:        b.spent,
		OverallSpent: b.overallSpent,
	}
}

// BalanceSnapshot is the immutable four-tuple stamped onto a
// completed transaction so its effect on the balance is visible
// without replaying the whole transaction log.
type BalanceSnapshot struct {
	Available    valueobjects.Decimal `json:"available"`
	Held         valueobjects.Decimal `json:"held"`
	Spent        valueobjects.Decimal `json:"spent"`
	OverallSpent valueobjects.Decimal `json:"overall_spent"`
}
