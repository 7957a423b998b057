package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value store. Get returns (nil, nil) on a miss so
// callers can tell "absent" from "broken" without sentinel errors.
//
// Session and access-code entries rely entirely on the store's TTL for
// expiry; there is no cleanup sweep anywhere else.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
