package handler

import (
	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/checkout"
	"github.com/xenking/storefront-kart/internal/coupon"
	"github.com/xenking/storefront-kart/internal/pricing"
)

// lineView is one cart row. Prices appear twice: minor units for arithmetic
// on the client, formatted for direct display.
type lineView struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	Price              int64  `json:"price"`
	PriceFormatted     string `json:"price_formatted"`
	Image              string `json:"image,omitempty"`
	Quantity           int    `json:"qty"`
	Stock              *bool  `json:"stock,omitempty"`
	LineTotal          int64  `json:"line_total"`
	LineTotalFormatted string `json:"line_total_formatted"`
}

type totalsView struct {
	Subtotal          int64  `json:"subtotal"`
	SubtotalFormatted string `json:"subtotal_formatted"`
	Discount          int64  `json:"discount"`
	DiscountFormatted string `json:"discount_formatted"`
	Shipping          int64  `json:"shipping"`
	ShippingFormatted string `json:"shipping_formatted"`
	Tax               int64  `json:"tax"`
	TaxFormatted      string `json:"tax_formatted"`
	Total             int64  `json:"total"`
	TotalFormatted    string `json:"total_formatted"`
}

type couponView struct {
	Code string `json:"code"`
	Type string `json:"type"`
	Rate string `json:"rate"`
}

type cartView struct {
	Items  []lineView  `json:"items"`
	Coupon *couponView `json:"coupon,omitempty"`
	Totals totalsView  `json:"totals"`
}

func (h *Handler) lineView(li cart.LineItem) lineView {
	total := li.LineTotal()
	return lineView{
		ID:                 li.ID,
		Title:              li.Title,
		Price:              int64(li.UnitPrice),
		PriceFormatted:     h.formatter.Format(li.UnitPrice),
		Image:              li.Image,
		Quantity:           li.Quantity,
		Stock:              li.InStock,
		LineTotal:          int64(total),
		LineTotalFormatted: h.formatter.Format(total),
	}
}

func (h *Handler) totalsView(t pricing.Totals) totalsView {
	return totalsView{
		Subtotal:          int64(t.Subtotal),
		SubtotalFormatted: h.formatter.Format(t.Subtotal),
		Discount:          int64(t.Discount),
		DiscountFormatted: h.formatter.Format(t.Discount),
		Shipping:          int64(t.Shipping),
		ShippingFormatted: h.formatter.Format(t.Shipping),
		Tax:               int64(t.Tax),
		TaxFormatted:      h.formatter.Format(t.Tax),
		Total:             int64(t.Total),
		TotalFormatted:    h.formatter.Format(t.Total),
	}
}

func couponViewOf(desc *coupon.Descriptor) *couponView {
	if desc == nil {
		return nil
	}
	return &couponView{
		Code: desc.Code,
		Type: string(desc.Type),
		Rate: desc.Rate.String(),
	}
}

func (h *Handler) cartView(sess *checkout.Session) (cartView, error) {
	totals, err := sess.Totals()
	if err != nil {
		return cartView{}, err
	}
	items := sess.Cart().Items()
	view := cartView{
		Items:  make([]lineView, 0, len(items)),
		Coupon: couponViewOf(sess.AppliedCoupon()),
		Totals: h.totalsView(totals),
	}
	for _, li := range items {
		view.Items = append(view.Items, h.lineView(li))
	}
	return view, nil
}
