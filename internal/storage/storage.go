// Package storage defines the durable per-session slot the cart persists
// to, plus the in-memory and filesystem backends. Redis and PostgreSQL
// backends live in subpackages.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Load when no slot exists for the key.
var ErrNotFound = errors.New("slot not found")

// SlotStore holds one opaque serialized cart payload per session key.
// Writers replace the whole payload; there is no partial update.
type SlotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}
