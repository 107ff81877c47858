// Package cart implements the session shopping cart: the line-item
// collection, the store that owns all mutation of it, and the codec for the
// persisted slot payload.
package cart

import (
	"github.com/xenking/storefront-kart/internal/money"
)

// LineItem is one product entry in the cart. Display metadata (title, unit
// price, image) is snapshotted at add time; the catalog backend stays the
// source of truth for price changes, the cart does not re-fetch.
type LineItem struct {
	ID        int64
	Title     string
	UnitPrice money.Amount
	Image     string
	// Quantity is always >= 1 for items held by a Store.
	Quantity int
	// InStock is display-only and does not block mutation. Nil means the
	// catalog did not say.
	InStock *bool
}

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() money.Amount {
	return li.UnitPrice.Mul(li.Quantity)
}

// Subtotal folds line totals over the given items.
func Subtotal(items []LineItem) money.Amount {
	sum := money.Zero
	for _, li := range items {
		sum += li.LineTotal()
	}
	return sum
}
