// Package handler exposes the cart and checkout operations as a JSON API.
// Every response that touches the cart carries freshly recomputed totals so
// clients never cache a stale price.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/storefront-kart/internal/backend"
	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/checkout"
	"github.com/xenking/storefront-kart/internal/money"
	"github.com/xenking/storefront-kart/internal/session"
	"github.com/xenking/storefront-kart/pkg/httpmiddleware"
)

type Handler struct {
	sessions  *session.Manager
	formatter *money.Formatter
}

func New(sessions *session.Manager, formatter *money.Formatter) *Handler {
	return &Handler{
		sessions:  sessions,
		formatter: formatter,
	}
}

// Routes mounts the cart and checkout endpoints. Health endpoints are
// mounted separately by the app so they bypass the session middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{id}", h.updateQuantity)
	r.Delete("/cart/items/{id}", h.removeItem)
	r.Delete("/cart", h.clearCart)

	r.Post("/checkout/coupon", h.applyCoupon)
	r.Delete("/checkout/coupon", h.removeCoupon)
	r.Post("/checkout/shipping", h.quoteShipping)
	r.Post("/checkout/order", h.submitOrder)

	return r
}

// sessionOf resolves the checkout session bound to the request's cookie.
// A missing key means the session middleware is not mounted in front of us.
func (h *Handler) sessionOf(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	key := httpmiddleware.SessionKeyFromContext(r.Context())
	if key == "" {
		writeError(w, http.StatusInternalServerError, "internal", "no session")
		return nil, false
	}
	sess, err := h.sessions.Get(r.Context(), key)
	if err != nil {
		zctx.From(r.Context()).Error("resolve session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "session unavailable")
		return nil, false
	}
	return sess, true
}

func decodeBody(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Code: code, Message: message})
}

// writeFailure maps domain errors onto the error envelope. Anything not
// recognized as a client fault is treated as a boundary outage: the caller
// may retry, nothing changed on our side.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejected   *backend.RejectedError
		validation validator.ValidationErrors
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCode),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "invalid_request", validation.Error())
	case errors.As(err, &rejected):
		writeError(w, http.StatusUnprocessableEntity, "rejected", rejected.Message)
	case errors.Is(err, checkout.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded", "a newer request replaced this one")
	default:
		zctx.From(r.Context()).Info("boundary failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "unavailable", "upstream unavailable, try again")
	}
}
