// Package redis stores bundles in Redis, or any server speaking its protocol,
// through go-redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/caches/kv"
	"github.com/dgduncan/go-aside-cache/codec"
)

type Config struct {
	Client goredis.UniversalClient

	// Prefix namespaces every key written by this store, eg. "svc-a:".
	Prefix string

	// Codec defaults to codec.Default.
	Codec codec.Codec

	CloseClient bool // set true only if this store exclusively owns the client
}

// Provider is the kv.Provider over a redis client.
type Provider struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var (
	_ kv.Provider = (*Provider)(nil)
	_ kv.Haser    = (*Provider)(nil)
)

func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Client == nil {
		return nil, caches.ValidationError{Reason: "nil client"}
	}
	return &Provider{rdb: cfg.Client, prefix: cfg.Prefix, closeClient: cfg.CloseClient}, nil
}

// New returns a cache backed by redis.
func New(cfg Config) (*kv.Store, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return kv.New(p, cfg.Codec), nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

// Has checks the key with EXISTS, leaving the value on the server.
func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, p.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Set stores value with ttl. A non-positive ttl means no expiry on the redis
// side.
func (p *Provider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}

	if err := p.rdb.Set(ctx, p.prefix+key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.prefix+key).Err()
}

// Close releases the underlying redis client only when this store owns it.
func (p *Provider) Close() error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
