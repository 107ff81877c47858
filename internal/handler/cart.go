package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/checkout"
	"github.com/xenking/storefront-kart/internal/money"
)

// addItemRequest mirrors the catalog's product shape. Price arrives in major
// units, as a JSON number or a string, and is converted exactly.
type addItemRequest struct {
	ID    int64       `json:"id"`
	Title string      `json:"title"`
	Price json.Number `json:"price"`
	Image string      `json:"image"`
	Qty   int         `json:"qty"`
	Stock *bool       `json:"stock"`
}

type updateQuantityRequest struct {
	Qty int `json:"qty"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	price, err := money.Parse(req.Price.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid price")
		return
	}
	item := cart.LineItem{
		ID:        req.ID,
		Title:     req.Title,
		UnitPrice: price,
		Image:     req.Image,
		Quantity:  req.Qty,
		InStock:   req.Stock,
	}
	if err := sess.Cart().Add(r.Context(), item); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid item id")
		return
	}
	var req updateQuantityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	sess.Cart().UpdateQty(r.Context(), id, req.Qty)
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid item id")
		return
	}
	sess.Cart().Remove(r.Context(), id)
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	sess.Cart().Clear(r.Context())
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, sess *checkout.Session, status int) {
	view, err := h.cartView(sess)
	if err != nil {
		zctx.From(r.Context()).Error("compute totals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to compute totals")
		return
	}
	writeJSON(w, status, view)
}

func itemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
