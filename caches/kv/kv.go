// Package kv turns a byte store with TTLs into a goasidecache.Cache.
//
// Providers must be byte-for-byte transparent: Get returns exactly the bytes
// previously passed to Set for the key.
package kv

import (
	"context"
	"fmt"
	"io"
	"time"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/codec"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL.
	// Returns ok=false when the store rejected the write.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key.
	Del(ctx context.Context, key string) error
}

// Haser is implemented by providers that can answer an existence check
// without transferring the value.
type Haser interface {
	Has(ctx context.Context, key string) (bool, error)
}

// Store adapts a Provider and a Codec to goasidecache.Cache.
type Store struct {
	p     Provider
	codec codec.Codec
}

var _ goasidecache.Cache = (*Store)(nil)

// New returns a Store. A nil codec selects codec.Default.
func New(p Provider, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{p: p, codec: c}
}

func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	if h, ok := s.p.(Haser); ok {
		return h.Has(ctx, key)
	}
	_, ok, err := s.p.Get(ctx, key)
	return ok, err
}

func (s *Store) Fetch(ctx context.Context, key string) (*goasidecache.Bundle, error) {
	b, ok, err := s.p.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, caches.ErrNotFound
	}

	bundle, err := s.codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return bundle, nil
}

func (s *Store) Save(ctx context.Context, key string, b *goasidecache.Bundle, ttl time.Duration) error {
	data, err := s.codec.Encode(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	ok, err := s.p.Set(ctx, key, data, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return caches.ErrRejected
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.p.Del(ctx, key)
}

// Close closes the provider if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
