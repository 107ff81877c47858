package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-kart/internal/backend"
	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/checkout"
	"github.com/xenking/storefront-kart/internal/coupon"
	"github.com/xenking/storefront-kart/internal/money"
	"github.com/xenking/storefront-kart/internal/storage"
)

type stubBackend struct{}

func (stubBackend) VerifyCoupon(context.Context, string) (*coupon.Descriptor, error) {
	return nil, &backend.RejectedError{Message: "invalid or expired coupon code"}
}

func (stubBackend) ShippingRate(context.Context, backend.ShippingQuery) (money.Amount, error) {
	return money.Zero, nil
}

func (stubBackend) SubmitOrder(context.Context, backend.ShippingQuery) (*backend.SubmitResult, error) {
	return &backend.SubmitResult{}, nil
}

func TestManager_RoundTripPersistence(t *testing.T) {
	ctx := context.Background()
	slots := storage.NewMemory()

	m := NewManager(slots, stubBackend{}, nil)
	key := m.NewKey()

	sess, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.NoError(t, sess.Cart().Add(ctx, cart.LineItem{
		ID: 1, Title: "Kart", UnitPrice: 1250, Quantity: 2,
	}))
	require.NoError(t, sess.Cart().Add(ctx, cart.LineItem{
		ID: 2, Title: "Helmet", UnitPrice: 300, Quantity: 1,
	}))

	// A fresh manager simulates a new process: the cart must rehydrate
	// element-wise equal from the slot.
	m2 := NewManager(slots, stubBackend{}, nil)
	sess2, err := m2.Get(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, sess.Cart().Items(), sess2.Cart().Items())
}

func TestManager_SameKeySameSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), stubBackend{}, nil)

	a, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	b, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := m.Get(ctx, "k2")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestManager_EmptyKeyRejected(t *testing.T) {
	m := NewManager(storage.NewMemory(), stubBackend{}, nil)
	_, err := m.Get(context.Background(), "")
	require.Error(t, err)
}

func TestManager_CorruptSlotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	slots := storage.NewMemory()
	require.NoError(t, slots.Save(ctx, "bad", []byte(`{"not":"an array"`)))

	m := NewManager(slots, stubBackend{}, nil)
	sess, err := m.Get(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, sess.Cart().Items())
}

func TestManager_DropForgetsLiveState(t *testing.T) {
	ctx := context.Background()
	slots := storage.NewMemory()
	m := NewManager(slots, stubBackend{}, nil)

	sess, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, sess.Cart().Add(ctx, cart.LineItem{ID: 1, UnitPrice: 100, Quantity: 1}))

	m.Drop("k")

	// Slot survived; a new Get rehydrates from it.
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotSame(t, sess, again)
	require.Len(t, again.Cart().Items(), 1)
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	slots := storage.NewMemory()
	m := NewManager(slots, stubBackend{}, nil, WithIdleTTL(time.Minute))

	sess, err := m.Get(ctx, "idle")
	require.NoError(t, err)
	require.NoError(t, sess.Cart().Add(ctx, cart.LineItem{ID: 1, UnitPrice: 100, Quantity: 1}))

	m.mu.Lock()
	m.sessions["idle"].lastTouch = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()

	assert.Equal(t, 1, m.evictIdle(time.Now()))
	m.mu.Lock()
	assert.Empty(t, m.sessions)
	m.mu.Unlock()

	// Only in-memory state is gone; the cart rehydrates from its slot.
	again, err := m.Get(ctx, "idle")
	require.NoError(t, err)
	assert.NotSame(t, sess, again)
	require.Len(t, again.Cart().Items(), 1)
}

func TestManager_SweepSparesActiveSessions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), stubBackend{}, nil, WithIdleTTL(time.Minute))

	sess, err := m.Get(ctx, "active")
	require.NoError(t, err)

	assert.Equal(t, 0, m.evictIdle(time.Now()))

	again, err := m.Get(ctx, "active")
	require.NoError(t, err)
	assert.Same(t, sess, again)
}

func TestManager_GetTouchesIdleClock(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), stubBackend{}, nil, WithIdleTTL(time.Minute))

	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	m.mu.Lock()
	m.sessions["k"].lastTouch = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()

	// A Get resets the clock, so the next sweep spares the session.
	_, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, m.evictIdle(time.Now()))
}

// blockingSlots parks Load calls for one key until released, so tests can
// hold a rehydration in flight.
type blockingSlots struct {
	storage.SlotStore
	key     string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSlots) Load(ctx context.Context, key string) ([]byte, error) {
	if key == b.key {
		b.entered <- struct{}{}
		<-b.release
	}
	return b.SlotStore.Load(ctx, key)
}

func TestManager_SlowRehydrationDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	slots := &blockingSlots{
		SlotStore: storage.NewMemory(),
		key:       "slow",
		entered:   make(chan struct{}, 2),
		release:   make(chan struct{}),
	}
	m := NewManager(slots, stubBackend{}, nil)

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_, err := m.Get(ctx, "slow")
		assert.NoError(t, err)
	}()
	<-slots.entered

	// With "slow" parked inside its slot load, an unrelated session must
	// still come up.
	fast, err := m.Get(ctx, "fast")
	require.NoError(t, err)
	require.NotNil(t, fast)

	close(slots.release)
	<-slowDone
}

func TestManager_RacingFirstTouchSharesSession(t *testing.T) {
	ctx := context.Background()
	slots := &blockingSlots{
		SlotStore: storage.NewMemory(),
		key:       "k",
		entered:   make(chan struct{}, 2),
		release:   make(chan struct{}),
	}
	m := NewManager(slots, stubBackend{}, nil)

	results := make(chan *checkout.Session, 2)
	for range 2 {
		go func() {
			sess, err := m.Get(ctx, "k")
			assert.NoError(t, err)
			results <- sess
		}()
	}

	// Both callers are mid-rehydration before either inserts.
	<-slots.entered
	<-slots.entered
	close(slots.release)

	a, b := <-results, <-results
	assert.Same(t, a, b)
}
