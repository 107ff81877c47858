// Package money implements fixed-point monetary amounts in integer minor
// units. Decimal values appear only at the boundaries: parsing wire strings
// and formatting for display.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Amount is a monetary value in minor units (e.g. cents) of the configured
// currency. Arithmetic on Amount is exact.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

var centFactor = decimal.NewFromInt(100)

// ErrNegativeAmount is returned when a non-negative field carries a
// negative value.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Parse converts a decimal currency string (e.g. "12.50") to an Amount,
// rounding half-up to the nearest minor unit. Negative values are rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse amount %q", s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a non-negative decimal currency value to an Amount,
// rounding half-up to the nearest minor unit.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	return Amount(d.Mul(centFactor).Round(0).IntPart()), nil
}

// Decimal returns the amount in major currency units as a decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(centFactor)
}

// Mul returns the amount multiplied by an integer quantity.
func (a Amount) Mul(qty int) Amount {
	return a * Amount(qty)
}

// Percent returns rate% of the amount, rounded half-up to a minor unit.
// The rate may be fractional (e.g. 12.5).
func (a Amount) Percent(rate decimal.Decimal) Amount {
	d := decimal.NewFromInt(int64(a)).Mul(rate).Div(decimal.NewFromInt(100))
	return Amount(d.Round(0).IntPart())
}

// FloorAtZero clamps negative amounts to zero.
func (a Amount) FloorAtZero() Amount {
	if a < 0 {
		return Zero
	}
	return a
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }
