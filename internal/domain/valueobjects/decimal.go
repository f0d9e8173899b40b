// Package valueobjects holds immutable domain primitives shared across
// entities. They carry no identity of their own and are compared by value.
package valueobjects

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimal is an arbitrary-precision, non-negative-by-convention quantity of
// credits. It wraps big.Rat rather than float64 because balance arithmetic
// must never lose precision to binary rounding: a deposit of "0.1" three
// times must equal a deposit of "0.3" exactly.
type Decimal struct {
	v *big.Rat
}

var (
	ErrInvalidDecimal = errors.New("invalid decimal value")
)

// Zero is the additive identity.
func Zero() Decimal {
	return Decimal{v: new(big.Rat)}
}

// NewDecimal parses a decimal string such as "100" or "12.5000".
func NewDecimal(s string) (Decimal, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Decimal{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	return Decimal{v: r}, nil
}

// MustDecimal is NewDecimal for compile-time-known literals.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDecimalFromInt builds a Decimal from a whole number.
func NewDecimalFromInt(n int64) Decimal {
	return Decimal{v: new(big.Rat).SetInt64(n)}
}

// rat returns the underlying rational, defaulting to zero for the
// zero-value Decimal so callers never need a nil check.
func (d Decimal) rat() *big.Rat {
	if d.v == nil {
		return new(big.Rat)
	}
	return d.v
}

func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{v: new(big.Rat).Add(d.rat(), other.rat())}
}

func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{v: new(big.Rat).Sub(d.rat(), other.rat())}
}

func (d Decimal) Neg() Decimal {
	return Decimal{v: new(big.Rat).Neg(d.rat())}
}

func (d Decimal) IsZero() bool {
	return d.rat().Sign() == 0
}

func (d Decimal) IsPositive() bool {
	return d.rat().Sign() > 0
}

func (d Decimal) IsNegative() bool {
	return d.rat().Sign() < 0
}

func (d Decimal) Cmp(other Decimal) int {
	return d.rat().Cmp(other.rat())
}

func (d Decimal) GreaterThan(other Decimal) bool {
	return d.Cmp(other) > 0
}

func (d Decimal) GreaterThanOrEqual(other Decimal) bool {
	return d.Cmp(other) >= 0
}

func (d Decimal) LessThan(other Decimal) bool {
	return d.Cmp(other) < 0
}

func (d Decimal) Equals(other Decimal) bool {
	return d.Cmp(other) == 0
}

// String renders the decimal with up to 8 fractional digits, trimming
// trailing zeros, matching the fixed-precision wire format of the ledger.
func (d Decimal) String() string {
	s := d.rat().FloatString(8)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
