// Package cache is the content-addressed store of previously computed
// extraction results. Keys are a pure function of the exact input text, so
// re-submitting byte-identical content is guaranteed to hit.
package cache

import (
	"context"
	"time"

	"menuflow-backend/internal/extract"
)

// DefaultTTL is how long a cached extraction stays servable.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists extraction results keyed by content hash. Get returns
// (nil, nil) on a miss; an entry read past its expiry is deleted and counts
// as a miss, as does one whose stored value no longer deserializes. A
// corrupt cache must never fail an extraction.
type Store interface {
	Get(ctx context.Context, key string) (*extract.Result, error)
	Set(ctx context.Context, key string, result *extract.Result, ttl time.Duration) error
}
