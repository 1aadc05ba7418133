// Package decimal wraps shopspring/decimal with the exactness rules the
// trading core requires: no binary floating point anywhere on the trading
// path, and a hard error instead of silent rounding when an operation
// would lose precision.
package decimal

import (
	"fmt"

	shopspring "github.com/shopspring/decimal"
)

// Scale is the number of fractional digits DivRoundForDisplay rounds to.
// shopspring/decimal tracks its own internal scale per value, and Add,
// Sub, Mul and Half never drop digits, so no other operation is bounded
// by it.
const Scale = 18

// ArithmeticError reports an operation that would overflow precision or
// otherwise can't be carried out exactly.
type ArithmeticError struct {
	Op  string
	Msg string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("decimal: %s: %s", e.Op, e.Msg)
}

// Decimal is an exact, base-10 rational number.
type Decimal struct {
	d shopspring.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: shopspring.Zero}

// NewFromString parses a decimal literal (e.g. "0.55", "27.50").
func NewFromString(s string) (Decimal, error) {
	v, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, &ArithmeticError{Op: "parse", Msg: err.Error()}
	}
	return Decimal{d: v}, nil
}

// MustNew parses a literal and panics on error; used for constants.
func MustNew(s string) Decimal {
	v, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NewFromInt builds an exact integer decimal (no fractional part).
func NewFromInt(n int64) Decimal {
	return Decimal{d: shopspring.NewFromInt(n)}
}

// String renders the canonical, minimal decimal representation: no
// trailing zeros beyond what the value actually carries, no scientific
// notation. This is the serialization spec.md §6 requires.
func (d Decimal) String() string {
	return d.d.String()
}

// Add returns d + other, exactly.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{d: d.d.Add(other.d)}
}

// Sub returns d - other, exactly.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{d: d.d.Sub(other.d)}
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	return Decimal{d: d.d.Neg()}
}

// Mul returns d * other, exactly (decimal multiplication never loses
// precision; the result's scale is the sum of the operands' scales).
func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{d: d.d.Mul(other.d)}
}

// Half returns d / 2, exactly. Division by 2 never produces a repeating
// decimal in base 10, so this never needs to round — the only division
// the matching/settlement path performs (the midpoint computation).
func (d Decimal) Half() Decimal {
	return Decimal{d: d.d.Mul(shopspring.New(5, -1))}
}

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	return d.d.Cmp(other.d)
}

func (d Decimal) LessThan(other Decimal) bool    { return d.Cmp(other) < 0 }
func (d Decimal) LessOrEqual(other Decimal) bool  { return d.Cmp(other) <= 0 }
func (d Decimal) GreaterThan(other Decimal) bool  { return d.Cmp(other) > 0 }
func (d Decimal) GreaterOrEqual(other Decimal) bool { return d.Cmp(other) >= 0 }
func (d Decimal) Equal(other Decimal) bool        { return d.Cmp(other) == 0 }
func (d Decimal) IsZero() bool                    { return d.d.IsZero() }
func (d Decimal) IsNegative() bool                { return d.d.Sign() < 0 }
func (d Decimal) IsPositive() bool                { return d.d.Sign() > 0 }

// DivRoundForDisplay divides d by other, rounding to Scale fractional
// digits. Unlike the rest of this package, this is not exact — it exists
// for figures like a weighted-average cost basis that are informational
// and never fed back into a ledger delta or trade price.
func (d Decimal) DivRoundForDisplay(other Decimal) Decimal {
	return Decimal{d: d.d.DivRound(other.d, Scale)}
}

// Float64 converts to a float64, for metrics and logging call sites where
// a small loss of precision is acceptable. Never use this for a value
// that feeds back into a ledger delta or trade price.
func (d Decimal) Float64() float64 {
	f, _ := d.d.Float64()
	return f
}

// Min returns the smaller of a and b.
func Min(a, b Decimal) Decimal {
	if a.LessOrEqual(b) {
		return a
	}
	return b
}

// MarshalJSON renders the value as a JSON string, never a JSON number —
// round-tripping through float64 would silently lose precision.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	var v shopspring.Decimal
	if err := v.UnmarshalJSON(b); err != nil {
		return &ArithmeticError{Op: "unmarshal", Msg: err.Error()}
	}
	d.d = v
	return nil
}
