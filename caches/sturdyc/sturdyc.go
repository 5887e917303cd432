// Package sturdyc keeps bundles in a viccon/sturdyc client. Values stay typed,
// so no codec is involved.
package sturdyc

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
)

// Config holds the sturdyc client parameters.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is the client-wide lifetime. sturdyc has no per-entry ttl; keep it at
	// least as long as the transport's expire.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when Capacity is hit.
	EvictionPercentage int
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	switch {
	case c.Capacity <= 0:
		return caches.ValidationError{Reason: "Capacity must be greater than 0"}
	case c.NumShards <= 0:
		return caches.ValidationError{Reason: "NumShards must be greater than 0"}
	case c.TTL <= 0:
		return caches.ValidationError{Reason: "TTL must be greater than 0"}
	case c.EvictionPercentage < 1 || c.EvictionPercentage > 100:
		return caches.ValidationError{Reason: "EvictionPercentage must be between 1 and 100"}
	}
	return nil
}

type Cache struct {
	client *sturdyc.Client[*goasidecache.Bundle]
}

var _ goasidecache.Cache = (*Cache)(nil)

func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Cache{
		client: sturdyc.New[*goasidecache.Bundle](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage),
	}, nil
}

func (c *Cache) Contains(_ context.Context, key string) (bool, error) {
	_, ok := c.client.Get(key)
	return ok, nil
}

func (c *Cache) Fetch(_ context.Context, key string) (*goasidecache.Bundle, error) {
	b, ok := c.client.Get(key)
	if !ok {
		return nil, caches.ErrNotFound
	}
	return b, nil
}

func (c *Cache) Save(_ context.Context, key string, b *goasidecache.Bundle, _ time.Duration) error {
	c.client.Set(key, b)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.client.Delete(key)
	return nil
}
