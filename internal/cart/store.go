package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrInvalidQuantity is returned when an added item carries a quantity
// below the floor.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// PersistFunc writes the full line-item collection to the session's durable
// slot. It is called after every successful mutation.
type PersistFunc func(ctx context.Context, items []LineItem) error

// Store is the sole owner of a session's line-item collection. All mutation
// goes through its methods, which enforce the id-uniqueness and quantity
// invariants at a single chokepoint. Mutations are atomic: each applies
// against the latest state under the store lock.
//
// Persistence is best-effort. A failed slot write is logged and swallowed;
// the in-memory collection stays authoritative for the session.
type Store struct {
	mu      sync.Mutex
	items   []LineItem
	persist PersistFunc
	lg      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence sets the slot writer invoked after every mutation.
func WithPersistence(fn PersistFunc) Option {
	return func(s *Store) { s.persist = fn }
}

// WithLogger sets the logger used for swallowed persistence failures.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// NewStore creates a Store rehydrated with the given items. Items with a
// quantity below the floor are clamped to 1; later duplicates of an id
// merge into the first occurrence.
func NewStore(items []LineItem, opts ...Option) *Store {
	s := &Store{lg: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	for _, li := range items {
		if li.Quantity < 1 {
			li.Quantity = 1
		}
		if i := s.index(li.ID); i >= 0 {
			s.items[i].Quantity += li.Quantity
			continue
		}
		s.items = append(s.items, li)
	}
	return s
}

// Add appends the item, or merges quantities when an item with the same id
// already exists. The stored display metadata wins on merge. Quantities
// accumulate deliberately: adding twice with quantity 1 yields 2.
func (s *Store) Add(ctx context.Context, item LineItem) error {
	if item.Quantity < 1 {
		return errors.Wrapf(ErrInvalidQuantity, "add item %d", item.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(item.ID); i >= 0 {
		s.items[i].Quantity += item.Quantity
	} else {
		s.items = append(s.items, item)
	}
	s.persistLocked(ctx)
	return nil
}

// Remove deletes the item with the given id. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.persistLocked(ctx)
}

// UpdateQty sets the item's quantity to max(1, qty). This is the only path
// by which a quantity decreases; it never removes the item. Absent ids are
// a no-op.
func (s *Store) UpdateQty(ctx context.Context, id int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return
	}
	if qty < 1 {
		qty = 1
	}
	s.items[i].Quantity = qty
	s.persistLocked(ctx)
}

// Clear empties the collection. Called only after confirmed order
// submission.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persistLocked(ctx)
}

// Items returns a snapshot of the collection in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of distinct line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// index returns the position of id, or -1. Callers hold the lock.
func (s *Store) index(id int64) int {
	return slices.IndexFunc(s.items, func(li LineItem) bool { return li.ID == id })
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.persist == nil {
		return
	}
	if err := s.persist(ctx, slices.Clone(s.items)); err != nil {
		s.lg.Warn("cart slot write failed", zap.Error(err))
	}
}
