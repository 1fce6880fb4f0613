package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache is a two-level BytesCache: a local L1 in front of a shared L2
// (typically TTLCache over RedisCache). Writes go to L2 first.
type LayeredCache struct {
	l1    BytesCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayeredCache creates a layered cache. Entries promoted from L2 live in
// L1 for l1TTL (0 keeps them until evicted).
func NewLayeredCache(l1, l2 BytesCache, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := lc.l1.GetBytes(ctx, key); err == nil && ok {
		return b, true, nil
	}

	b, ok, err := lc.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = lc.l1.SetBytes(ctx, key, b, lc.l1TTL)
	return b, true, nil
}

func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	l1TTL := ttl
	if lc.l1TTL > 0 && (l1TTL <= 0 || lc.l1TTL < l1TTL) {
		l1TTL = lc.l1TTL
	}
	return lc.l1.SetBytes(ctx, key, value, l1TTL)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}
