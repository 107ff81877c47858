package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-kart/internal/cart"
	"github.com/xenking/storefront-kart/internal/storage"
)

const (
	loadSlotSQL = `SELECT payload FROM cart_sessions WHERE session_key = $1`

	// The denormalized subtotal column exists for ops queries only; the
	// payload stays the single source of truth for the cart itself.
	saveSlotSQL = `INSERT INTO cart_sessions (session_key, payload, subtotal, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_key)
		DO UPDATE SET payload = EXCLUDED.payload, subtotal = EXCLUDED.subtotal, updated_at = now()`

	deleteSlotSQL = `DELETE FROM cart_sessions WHERE session_key = $1`
)

// SlotStore is a PostgreSQL-backed storage.SlotStore.
type SlotStore struct {
	pool *pgxpool.Pool
}

var _ storage.SlotStore = (*SlotStore)(nil)

// NewSlotStore returns a SlotStore using the given pool.
func NewSlotStore(pool *pgxpool.Pool) *SlotStore {
	return &SlotStore{pool: pool}
}

// Load returns the payload for key, or storage.ErrNotFound.
func (s *SlotStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, loadSlotSQL, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "load slot %s", key)
	}
	return payload, nil
}

// Save upserts the payload for key. The subtotal column is derived from the
// payload on every write; an undecodable payload stores a zero subtotal
// rather than failing the write.
func (s *SlotStore) Save(ctx context.Context, key string, payload []byte) error {
	subtotal := cart.Subtotal(decodeOrEmpty(payload))
	if _, err := s.pool.Exec(ctx, saveSlotSQL, key, payload, subtotal.Decimal()); err != nil {
		return errors.Wrapf(err, "save slot %s", key)
	}
	return nil
}

// Delete removes the slot row. Absent keys are a no-op.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteSlotSQL, key); err != nil {
		return errors.Wrapf(err, "delete slot %s", key)
	}
	return nil
}

func decodeOrEmpty(payload []byte) []cart.LineItem {
	items, err := cart.Decode(payload)
	if err != nil {
		return nil
	}
	return items
}
