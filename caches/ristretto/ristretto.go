// Package ristretto keeps encoded bundles in a dgraph-io/ristretto cache.
package ristretto

import (
	"context"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/caches/kv"
	"github.com/dgduncan/go-aside-cache/codec"
)

type Config struct {
	NumCounters int64
	MaxCost     int64 // in bytes of encoded bundles
	BufferItems int64
	// Metrics turns on ristretto's counters, exported by Provider.Collectors.
	Metrics bool

	Codec codec.Codec
}

type Provider struct {
	c *rc.Cache
}

var _ kv.Provider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, caches.ValidationError{Reason: "ristretto: NumCounters, MaxCost and BufferItems must be positive"}
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

// New returns a cache backed by ristretto. Use NewProvider with kv.New to keep
// hold of the Provider for Wait or Collectors.
func New(cfg Config) (*kv.Store, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return kv.New(p, cfg.Codec), nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set admits value with its length as cost. Ristretto applies writes
// asynchronously; a false result means the write was dropped.
func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return p.c.SetWithTTL(key, value, int64(len(value)), ttl), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// Wait blocks until pending writes are applied.
func (p *Provider) Wait() {
	p.c.Wait()
}

func (p *Provider) Close() error {
	p.c.Wait()
	p.c.Close()
	return nil
}
