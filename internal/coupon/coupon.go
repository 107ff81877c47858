// Package coupon defines the discount descriptor produced by coupon
// verification and the rules for turning it into a discount amount.
package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-kart/internal/money"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage reduces the subtotal by a percentage rate.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed reduces the subtotal by a fixed monetary amount.
	DiscountFixed DiscountType = "fixed"
)

// ErrUnknownDiscountType is returned when a descriptor carries a discount
// type this client does not implement.
var ErrUnknownDiscountType = errors.New("unknown discount type")

// Descriptor is the result of a verified coupon. It lives only in
// checkout-session state for the duration of checkout and is never
// persisted; a reload loses it.
type Descriptor struct {
	// Code is the coupon code exactly as the user entered it. The client
	// never case-normalizes; equivalence is the backend's contract.
	Code string
	Type DiscountType
	// Rate is a fixed amount in major currency units when Type is fixed,
	// or a percentage when Type is percentage.
	Rate decimal.Decimal
	// Active reports whether the backend marked the coupon applicable.
	// An inactive descriptor must never produce a discount.
	Active bool
}

// DiscountAmount computes the discount this descriptor yields against the
// given subtotal. Inactive descriptors yield zero. The returned amount may
// exceed the subtotal; the pricing fold clamps at the total, not here.
func (d *Descriptor) DiscountAmount(subtotal money.Amount) (money.Amount, error) {
	if d == nil || !d.Active {
		return money.Zero, nil
	}

	switch d.Type {
	case DiscountFixed:
		amount, err := money.FromDecimal(d.Rate)
		if err != nil {
			return money.Zero, errors.Wrapf(err, "fixed rate for %q", d.Code)
		}
		return amount, nil
	case DiscountPercentage:
		if d.Rate.IsNegative() {
			return money.Zero, errors.Wrapf(money.ErrNegativeAmount, "percentage rate for %q", d.Code)
		}
		return subtotal.Percent(d.Rate), nil
	default:
		return money.Zero, errors.Wrapf(ErrUnknownDiscountType, "%q", d.Type)
	}
}
