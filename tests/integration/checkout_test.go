//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// The compose stack points the server at an unreachable order backend, so
// these tests pin down the failure-side contract: verification fails closed
// and never invents a discount.

func TestCoupon_UnreachableBackendFailsClosed(t *testing.T) {
	const session = "it-coupon-closed"

	resp := doReq(t, http.MethodPost, "/cart/items", session,
		addItemRequest{ID: 1, Title: "Waffle", Price: "100.00", Qty: 1})
	resp.Body.Close()

	resp2 := doReq(t, http.MethodPost, "/checkout/coupon", session,
		map[string]string{"code": "HAPPYHRS"})
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp2.StatusCode)
	}

	// No discount leaked into the totals.
	resp3 := doReq(t, http.MethodGet, "/cart", session, nil)
	defer resp3.Body.Close()
	cart := decodeJSON[cartResponse](t, resp3)
	if cart.Totals.Discount != 0 {
		t.Errorf("discount: got %d, want 0", cart.Totals.Discount)
	}
	if cart.Totals.Total != 10000 {
		t.Errorf("total: got %d, want 10000", cart.Totals.Total)
	}
}

func TestCoupon_EmptyCodeRejectedLocally(t *testing.T) {
	const session = "it-coupon-empty"

	resp := doReq(t, http.MethodPost, "/checkout/coupon", session,
		map[string]string{"code": ""})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOrder_EmptyCartRejected(t *testing.T) {
	const session = "it-order-empty"

	resp := doReq(t, http.MethodPost, "/checkout/order", session, map[string]string{
		"firstname": "Ada",
		"lastname":  "Lovelace",
		"email":     "ada@example.com",
		"phone":     "+15550000",
		"country":   "US",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOrder_ValidationBeforeBoundary(t *testing.T) {
	const session = "it-order-validate"

	resp := doReq(t, http.MethodPost, "/cart/items", session,
		addItemRequest{ID: 1, Title: "Waffle", Price: "10.00", Qty: 1})
	resp.Body.Close()

	// Missing email: rejected locally even though the backend is down.
	resp2 := doReq(t, http.MethodPost, "/checkout/shipping", session, map[string]string{
		"firstname": "Ada",
		"lastname":  "Lovelace",
		"phone":     "+15550000",
		"country":   "US",
	})
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp2.StatusCode)
	}
}
