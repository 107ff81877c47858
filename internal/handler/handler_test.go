package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-kart/internal/backend"
	"github.com/xenking/storefront-kart/internal/coupon"
	"github.com/xenking/storefront-kart/internal/money"
	"github.com/xenking/storefront-kart/internal/session"
	"github.com/xenking/storefront-kart/internal/storage"
	"github.com/xenking/storefront-kart/pkg/httpmiddleware"
)

type scriptedBackend struct {
	verify func(ctx context.Context, code string) (*coupon.Descriptor, error)
	rate   money.Amount
	submit func(ctx context.Context, q backend.ShippingQuery) (*backend.SubmitResult, error)
}

func (b *scriptedBackend) VerifyCoupon(ctx context.Context, code string) (*coupon.Descriptor, error) {
	if b.verify == nil {
		return nil, &backend.RejectedError{Message: "invalid or expired coupon code"}
	}
	return b.verify(ctx, code)
}

func (b *scriptedBackend) ShippingRate(context.Context, backend.ShippingQuery) (money.Amount, error) {
	return b.rate, nil
}

func (b *scriptedBackend) SubmitOrder(ctx context.Context, q backend.ShippingQuery) (*backend.SubmitResult, error) {
	if b.submit == nil {
		return &backend.SubmitResult{RedirectLink: "https://pay.example.com/ok"}, nil
	}
	return b.submit(ctx, q)
}

func newTestServer(t *testing.T, api *scriptedBackend) *httptest.Server {
	t.Helper()

	mgr := session.NewManager(storage.NewMemory(), api, nil)
	t.Cleanup(mgr.Close)

	h := New(mgr, money.NewFormatter("$", 2))
	mux := httpmiddleware.Session(httpmiddleware.SessionConfig{
		NewKey: mgr.NewKey,
	})(h.Routes())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, cartView) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "kart_session", Value: "test-session"})

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var view cartView
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	}
	return resp, view
}

func TestHandler_AddAndMerge(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	resp, view := do(t, srv, http.MethodPost, "/cart/items",
		`{"id":1,"title":"Waffle","price":12.50,"qty":2,"stock":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1250), view.Items[0].Price)
	assert.Equal(t, "$12.50", view.Items[0].PriceFormatted)
	assert.Equal(t, 2, view.Items[0].Quantity)

	// Same id again merges quantities instead of adding a row.
	resp, view = do(t, srv, http.MethodPost, "/cart/items",
		`{"id":1,"title":"Waffle","price":"12.50","qty":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, int64(6250), view.Totals.Subtotal)
	assert.Equal(t, "$62.50", view.Totals.TotalFormatted)
}

func TestHandler_AddRejectsBadPayloads(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	for name, body := range map[string]string{
		"zero quantity":  `{"id":1,"title":"Waffle","price":"12.50","qty":0}`,
		"negative price": `{"id":1,"title":"Waffle","price":"-1.00","qty":1}`,
		"malformed":      `{"id":`,
	} {
		resp, _ := do(t, srv, http.MethodPost, "/cart/items", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestHandler_UpdateRemoveClear(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	_, _ = do(t, srv, http.MethodPost, "/cart/items",
		`{"id":1,"title":"Waffle","price":"10.00","qty":2}`)
	_, _ = do(t, srv, http.MethodPost, "/cart/items",
		`{"id":2,"title":"Cake","price":"5.00","qty":1}`)

	// Quantity below 1 clamps to 1.
	resp, view := do(t, srv, http.MethodPatch, "/cart/items/1", `{"qty":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, view.Items[0].Quantity)

	resp, view = do(t, srv, http.MethodDelete, "/cart/items/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, view.Items, 1)

	resp, view = do(t, srv, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, view.Items)
	assert.Equal(t, int64(0), view.Totals.Total)
}

func TestHandler_BadItemID(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	resp, _ := do(t, srv, http.MethodDelete, "/cart/items/waffle", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_CouponLifecycle(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{
		verify: func(_ context.Context, code string) (*coupon.Descriptor, error) {
			if code != "HAPPYHRS" {
				return nil, &backend.RejectedError{Message: "invalid or expired coupon code"}
			}
			return &coupon.Descriptor{
				Code:   code,
				Type:   coupon.DiscountPercentage,
				Rate:   decimal.NewFromInt(10),
				Active: true,
			}, nil
		},
	})

	_, _ = do(t, srv, http.MethodPost, "/cart/items",
		`{"id":1,"title":"Waffle","price":"100.00","qty":1}`)

	resp, view := do(t, srv, http.MethodPost, "/checkout/coupon", `{"code":"HAPPYHRS"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, view.Coupon)
	assert.Equal(t, "HAPPYHRS", view.Coupon.Code)
	assert.Equal(t, int64(1000), view.Totals.Discount)
	assert.Equal(t, int64(9000), view.Totals.Total)

	// A rejected code answers 422 with the backend's message and keeps
	// the previously applied discount.
	resp, _ = do(t, srv, http.MethodPost, "/checkout/coupon", `{"code":"NOPE"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_, view = do(t, srv, http.MethodGet, "/cart", "")
	require.NotNil(t, view.Coupon)
	assert.Equal(t, int64(1000), view.Totals.Discount)

	resp, view = do(t, srv, http.MethodDelete, "/checkout/coupon", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, view.Coupon)
	assert.Equal(t, int64(0), view.Totals.Discount)
}

func TestHandler_EmptyCouponCode(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	resp, _ := do(t, srv, http.MethodPost, "/checkout/coupon", `{"code":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_ShippingAndTaxOnEmptyCart(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{rate: money.Amount(40050)})

	resp, view := do(t, srv, http.MethodPost, "/checkout/shipping",
		`{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com",`+
			`"phone":"+1555","country":"US","tax":"50.15"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(40050), view.Totals.Shipping)
	assert.Equal(t, int64(5015), view.Totals.Tax)
	// Fees apply even with an empty cart.
	assert.Equal(t, int64(45065), view.Totals.Total)
	assert.Equal(t, "$450.65", view.Totals.TotalFormatted)
}

func TestHandler_ShippingValidation(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{rate: money.Amount(500)})

	resp, _ := do(t, srv, http.MethodPost, "/checkout/shipping",
		`{"firstname":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SubmitOrder(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	customer := `{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com",` +
		`"phone":"+1555","country":"US"}`

	// Empty cart cannot be submitted.
	resp, _ := do(t, srv, http.MethodPost, "/checkout/order", customer)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, _ = do(t, srv, http.MethodPost, "/cart/items",
		`{"id":1,"title":"Waffle","price":"10.00","qty":1}`)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/checkout/order", strings.NewReader(customer))
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "kart_session", Value: "test-session"})
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var order orderResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&order))
	assert.Equal(t, "https://pay.example.com/ok", order.RedirectLink)
	assert.Equal(t, int64(1000), order.Totals.Total)

	// The cart empties after a successful order.
	_, view := do(t, srv, http.MethodGet, "/cart", "")
	assert.Empty(t, view.Items)
}

func TestHandler_SessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, &scriptedBackend{})

	_, _ = do(t, srv, http.MethodPost, "/cart/items",
		`{"id":1,"title":"Waffle","price":"10.00","qty":1}`)

	// A different cookie sees an empty cart.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/cart", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "kart_session", Value: "other-session"})
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var view cartView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Empty(t, view.Items)
}
