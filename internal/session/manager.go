// Package session maps opaque session keys to checkout sessions, lazily
// rehydrating each cart from its durable slot on first touch.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/checkout"
	"github.com/xenking/storefront-kart/internal/storage"
)

const defaultIdleTTL = 30 * time.Minute

// entry pairs a live session with its last-touch time for idle eviction.
type entry struct {
	sess      *checkout.Session
	lastTouch time.Time
}

// Manager owns the live checkout sessions for this process. Each session's
// cart persists through the slot store under the session key, so evicting
// an idle session loses only in-memory checkout state (applied coupon,
// shipping quote); the cart itself rehydrates on the next Get.
type Manager struct {
	slots   storage.SlotStore
	api     checkout.Backend
	lg      *zap.Logger
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTTL sets how long a session may go untouched before the eviction
// sweep drops it.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) { m.idleTTL = d }
}

// NewManager creates a Manager over the given slot store and backend client.
func NewManager(slots storage.SlotStore, api checkout.Backend, lg *zap.Logger, opts ...Option) *Manager {
	if lg == nil {
		lg = zap.NewNop()
	}
	m := &Manager{
		slots:    slots,
		api:      api,
		lg:       lg,
		idleTTL:  defaultIdleTTL,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewKey issues a fresh opaque session key.
func (m *Manager) NewKey() string {
	return uuid.New().String()
}

// Get returns the checkout session for key, creating and rehydrating it on
// first touch. A missing slot starts an empty cart; a corrupt slot payload
// is discarded with a warning rather than failing the session.
//
// The slot load runs outside the registry lock so one slow backend read
// cannot stall other sessions. Two racing first touches may both load; the
// second to finish adopts the first one's session and discards its own.
func (m *Manager) Get(ctx context.Context, key string) (*checkout.Session, error) {
	if key == "" {
		return nil, errors.New("empty session key")
	}

	m.mu.Lock()
	if e, ok := m.sessions[key]; ok {
		e.lastTouch = time.Now()
		m.mu.Unlock()
		return e.sess, nil
	}
	m.mu.Unlock()

	items, err := m.rehydrate(ctx, key)
	if err != nil {
		return nil, err
	}

	store := cart.NewStore(items,
		cart.WithLogger(m.lg),
		cart.WithPersistence(func(ctx context.Context, items []cart.LineItem) error {
			return m.slots.Save(ctx, key, cart.Encode(items))
		}),
	)
	sess := checkout.NewSession(m.api, store, m.lg.With(zap.String("session", key)))

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[key]; ok {
		e.lastTouch = time.Now()
		return e.sess, nil
	}
	m.sessions[key] = &entry{sess: sess, lastTouch: time.Now()}
	return sess, nil
}

// Drop closes the session's in-flight calls and forgets it. The slot is
// left alone; the cart rehydrates on the next Get.
func (m *Manager) Drop(key string) {
	m.mu.Lock()
	e, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		e.sess.Close()
	}
}

// StartEviction sweeps idle sessions on the given interval until ctx is
// cancelled. Without it the registry grows one live session per distinct
// cookie value for the life of the process.
func (m *Manager) StartEviction(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.evictIdle(time.Now()); n > 0 {
					m.lg.Info("evicted idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

func (m *Manager) evictIdle(now time.Time) int {
	m.mu.Lock()
	var victims []*checkout.Session
	for key, e := range m.sessions {
		if now.Sub(e.lastTouch) >= m.idleTTL {
			victims = append(victims, e.sess)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, sess := range victims {
		sess.Close()
	}
	return len(victims)
}

// Close drops every live session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.sess.Close()
	}
}

func (m *Manager) rehydrate(ctx context.Context, key string) ([]cart.LineItem, error) {
	payload, err := m.slots.Load(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load slot %s", key)
	}

	items, err := cart.Decode(payload)
	if err != nil {
		m.lg.Warn("discarding corrupt cart slot",
			zap.String("session", key), zap.Error(err))
		return nil, nil
	}
	return items, nil
}
