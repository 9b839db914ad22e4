package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "ledger:version"
	statusKeyPrefix = "ledger:status"
)

// Cache is a versioned Redis read cache for the dashboard view of the ledger.
// The budget gate never reads from it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper. A nil client yields a pass-through cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) statusKey(ctx context.Context) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", statusKeyPrefix, ver), nil
}

// FetchStatus returns the cached status, computing it with loader on a miss.
// Concurrent misses share one loader call.
func (c *Cache) FetchStatus(ctx context.Context, loader func(context.Context) (Status, error)) (Status, error) {
	if loader == nil {
		return Status{}, errors.New("ledger cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.statusKey(ctx)
	if err != nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var status Status
		if err := json.Unmarshal(payload, &status); err == nil {
			return status, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	fillCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		status, err := loader(fillCtx)
		if err != nil {
			return Status{}, err
		}
		// A failed write only costs a recompute on the next read.
		_ = c.store(fillCtx, key, status)
		return status, nil
	})
	select {
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Status{}, res.Err
		}
		return res.Val.(Status), nil
	}
}

// Refresh recomputes the status with loader and stores it under the version
// read before loading. A bump during the load leaves the result under the old
// version, so it is never served as current.
func (c *Cache) Refresh(ctx context.Context, loader func(context.Context) (Status, error)) (Status, error) {
	if loader == nil {
		return Status{}, errors.New("ledger cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.statusKey(ctx)
	if err != nil {
		return Status{}, err
	}
	status, err := loader(ctx)
	if err != nil {
		return Status{}, err
	}
	return status, c.store(ctx, key, status)
}

func (c *Cache) store(ctx context.Context, key string, status Status) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates the cache by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
