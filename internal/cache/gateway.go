// Package cache provides the key/value store used by the metrics engine.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Gateway is a key/value store with expiry. Delete accepts either an exact
// key or a pattern ending in '*', which removes every key with that prefix.
type Gateway interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keyOrPattern string) error
}

// IsPattern reports whether keyOrPattern selects a prefix
func IsPattern(keyOrPattern string) bool {
	return strings.HasSuffix(keyOrPattern, "*")
}
