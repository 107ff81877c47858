// Package pricing folds a cart snapshot and an optional discount descriptor
// into the derived totals. Totals are never stored; callers recompute them
// from the latest snapshot whenever they render.
package pricing

import (
	"github.com/go-faster/errors"

	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/coupon"
	"github.com/xenking/storefront-kart/internal/money"
)

// Totals holds the derived pricing figures for one cart snapshot.
type Totals struct {
	Subtotal money.Amount
	Discount money.Amount
	Shipping money.Amount
	Tax      money.Amount
	Total    money.Amount
}

// Compute derives totals from the given snapshot. It is pure: no I/O, no
// state, deterministic for the same inputs.
//
// Total = max(0, Subtotal - Discount) + Shipping + Tax. The discount is
// computed from the descriptor even when it exceeds the subtotal; the clamp
// happens at the total, so Total >= Shipping + Tax always holds.
func Compute(items []cart.LineItem, desc *coupon.Descriptor, shipping, tax money.Amount) (Totals, error) {
	subtotal := cart.Subtotal(items)

	discount, err := desc.DiscountAmount(subtotal)
	if err != nil {
		return Totals{}, errors.Wrap(err, "compute discount")
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    (subtotal - discount).FloorAtZero() + shipping + tax,
	}, nil
}
