package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xenking/storefront-kart/internal/checkout"
	"github.com/xenking/storefront-kart/internal/money"
)

type applyCouponRequest struct {
	Code string `json:"code"`
}

// customerRequest is the address/contact payload shared by the shipping
// quote and order submission endpoints.
type customerRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Note      string `json:"note"`
}

type quoteShippingRequest struct {
	customerRequest
	// Tax is the destination tax in major units, established by the caller
	// together with the shipping quote. Optional.
	Tax json.Number `json:"tax"`
}

type orderResponse struct {
	RedirectLink string     `json:"redirect_link"`
	Totals       totalsView `json:"totals"`
}

func (c customerRequest) customer(remoteAddr string) checkout.Customer {
	return checkout.Customer{
		Firstname: c.Firstname,
		Lastname:  c.Lastname,
		Email:     c.Email,
		Phone:     c.Phone,
		Country:   c.Country,
		Street:    c.Street,
		City:      c.City,
		State:     c.State,
		Zip:       c.Zip,
		IP:        remoteAddr,
		Note:      c.Note,
	}
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	var req applyCouponRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	if _, err := sess.ApplyCoupon(r.Context(), req.Code); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	sess.RemoveCoupon()
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) quoteShipping(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	var req quoteShippingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	if req.Tax != "" {
		tax, err := money.Parse(req.Tax.String())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid tax")
			return
		}
		sess.SetTax(tax)
	}
	if _, err := sess.QuoteShipping(r.Context(), req.customer(clientIP(r))); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.respondCart(w, r, sess, http.StatusOK)
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	totals, err := sess.Totals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to compute totals")
		return
	}
	res, err := sess.Submit(r.Context(), req.customer(clientIP(r)))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{
		RedirectLink: res.RedirectLink,
		Totals:       h.totalsView(totals),
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
