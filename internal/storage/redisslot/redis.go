// Package redisslot implements the session slot store on Redis. Slots get
// a TTL so abandoned sessions expire on their own, mirroring the lifetime
// a browser session slot has.
package redisslot

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront-kart/internal/storage"
)

const keyPrefix = "kart:session:"

// Store is a Redis-backed storage.SlotStore.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ storage.SlotStore = (*Store)(nil)

// New connects to Redis using the given URL and verifies connectivity.
// A non-positive ttl disables expiry.
func New(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Store{client: client, ttl: ttl}, nil
}

// Load returns the payload for key, or storage.ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "load slot %s", key)
	}
	return payload, nil
}

// Save replaces the payload for key and refreshes its TTL.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, payload, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save slot %s", key)
	}
	return nil
}

// Delete removes the slot for key. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrapf(err, "delete slot %s", key)
	}
	return nil
}

// Ping reports Redis connectivity; used by the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
