// Package session keeps short-lived per-chat conversation state.
package session

import (
	"context"
	"time"
)

// Store is an expiring byte store. Get returns nil, nil for a missing or
// expired key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
