// Package checkout holds per-session checkout state: the applied discount
// descriptor (never persisted — a reload loses it), the latest shipping
// quote, and the guards that keep stale boundary-call responses from
// overwriting newer state.
package checkout

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/storefront-kart/internal/backend"
	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/coupon"
	"github.com/xenking/storefront-kart/internal/money"
	"github.com/xenking/storefront-kart/internal/pricing"
)

// Backend is the slice of the remote commerce API the checkout flow needs.
type Backend interface {
	VerifyCoupon(ctx context.Context, code string) (*coupon.Descriptor, error)
	ShippingRate(ctx context.Context, q backend.ShippingQuery) (money.Amount, error)
	SubmitOrder(ctx context.Context, q backend.ShippingQuery) (*backend.SubmitResult, error)
}

var (
	// ErrEmptyCode rejects a blank coupon code before any boundary call.
	ErrEmptyCode = errors.New("coupon code is required")
	// ErrSuperseded marks a response that lost the race to a newer request
	// for the same logical slot; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrEmptyCart rejects order submission with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// Customer carries the fields the order endpoints need. Validation happens
// before any boundary call.
type Customer struct {
	Firstname string `validate:"required"`
	Lastname  string `validate:"required"`
	Email     string `validate:"required,email"`
	Phone     string `validate:"required"`
	Country   string `validate:"required"`
	Street    string
	City      string
	State     string
	Zip       string
	IP        string
	Note      string
}

// slot serializes logically-competing boundary calls: starting a new call
// cancels the previous in-flight one, and only the newest generation may
// commit its result.
type slot struct {
	gen    uint64
	cancel context.CancelFunc
}

// begin cancels any in-flight call and opens a new generation. Callers hold
// the session lock.
func (s *slot) begin(ctx context.Context) (context.Context, uint64) {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.gen++
	return ctx, s.gen
}

// current reports whether gen is still the newest generation.
func (s *slot) current(gen uint64) bool { return s.gen == gen }

// invalidate cancels any in-flight call and supersedes its generation
// without starting a new one.
func (s *slot) invalidate() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Session is the checkout state for one cart store.
type Session struct {
	api      Backend
	cart     *cart.Store
	validate *validator.Validate
	lg       *zap.Logger

	mu           sync.Mutex
	desc         *coupon.Descriptor
	shipping     money.Amount
	tax          money.Amount
	couponSlot   slot
	shippingSlot slot
	submitSlot   slot
}

// NewSession creates a checkout session bound to the given cart store.
func NewSession(api Backend, store *cart.Store, lg *zap.Logger) *Session {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Session{
		api:      api,
		cart:     store,
		validate: validator.New(),
		lg:       lg,
	}
}

// Cart returns the cart store this session prices.
func (s *Session) Cart() *cart.Store { return s.cart }

// ApplyCoupon verifies the code and, on success, makes its descriptor the
// session's applied discount. A newer ApplyCoupon for the session cancels
// this one; a response that comes back superseded is discarded and reported
// as ErrSuperseded. Rejections leave the previously applied descriptor
// untouched.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (*coupon.Descriptor, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}

	s.mu.Lock()
	callCtx, gen := s.couponSlot.begin(ctx)
	s.mu.Unlock()

	desc, err := s.api.VerifyCoupon(callCtx, code)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.couponSlot.current(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		s.lg.Info("coupon application failed", zap.String("code", code), zap.Error(err))
		return nil, err
	}

	s.desc = desc
	return desc, nil
}

// RemoveCoupon drops the applied descriptor and invalidates any in-flight
// verification so a late success cannot resurrect it.
func (s *Session) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couponSlot.invalidate()
	s.desc = nil
}

// QuoteShipping fetches the shipping fee for the customer address against
// the current cart, with the same newest-wins slot semantics as ApplyCoupon.
func (s *Session) QuoteShipping(ctx context.Context, customer Customer) (money.Amount, error) {
	if err := s.validate.Struct(customer); err != nil {
		return money.Zero, errors.Wrap(err, "validate customer")
	}

	s.mu.Lock()
	callCtx, gen := s.shippingSlot.begin(ctx)
	s.mu.Unlock()

	fee, err := s.api.ShippingRate(callCtx, s.query(customer))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shippingSlot.current(gen) {
		return money.Zero, ErrSuperseded
	}
	if err != nil {
		s.lg.Info("shipping quote failed", zap.Error(err))
		return money.Zero, err
	}

	s.shipping = fee
	return fee, nil
}

// SetTax records the externally supplied tax amount.
func (s *Session) SetTax(tax money.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tax = tax
}

// Submit validates the customer fields and submits the order. On success
// the cart is cleared and the session's checkout state reset; on any
// failure the cart is left exactly as it was.
func (s *Session) Submit(ctx context.Context, customer Customer) (*backend.SubmitResult, error) {
	if err := s.validate.Struct(customer); err != nil {
		return nil, errors.Wrap(err, "validate customer")
	}
	if s.cart.Len() == 0 {
		return nil, ErrEmptyCart
	}

	s.mu.Lock()
	callCtx, gen := s.submitSlot.begin(ctx)
	s.mu.Unlock()

	result, err := s.api.SubmitOrder(callCtx, s.query(customer))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.submitSlot.current(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		s.lg.Info("order submission failed", zap.Error(err))
		return nil, err
	}

	s.cart.Clear(ctx)
	s.desc = nil
	s.shipping = money.Zero
	s.tax = money.Zero
	return result, nil
}

// Totals recomputes the derived totals from the latest cart snapshot and
// the session's applied discount, shipping fee, and tax.
func (s *Session) Totals() (pricing.Totals, error) {
	s.mu.Lock()
	desc, shipping, tax := s.desc, s.shipping, s.tax
	s.mu.Unlock()

	return pricing.Compute(s.cart.Items(), desc, shipping, tax)
}

// AppliedCoupon returns the currently applied descriptor, or nil.
func (s *Session) AppliedCoupon() *coupon.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Close cancels all in-flight boundary calls. Late resolutions after Close
// cannot mutate session state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couponSlot.invalidate()
	s.shippingSlot.invalidate()
	s.submitSlot.invalidate()
}

// query maps the customer and cart snapshot onto the wire payload.
func (s *Session) query(customer Customer) backend.ShippingQuery {
	items := s.cart.Items()
	refs := make([]backend.ProductRef, len(items))
	for i, li := range items {
		refs[i] = backend.ProductRef{ID: li.ID, Quantity: li.Quantity}
	}
	return backend.ShippingQuery{
		Street:    customer.Street,
		City:      customer.City,
		State:     customer.State,
		Zip:       customer.Zip,
		Firstname: customer.Firstname,
		Lastname:  customer.Lastname,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Country:   customer.Country,
		IP:        customer.IP,
		Note:      customer.Note,
		Products:  refs,
	}
}
