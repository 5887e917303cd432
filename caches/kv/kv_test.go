package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/codec"
)

type memProvider struct {
	m       map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	reject  bool
	setErrs error
}

func newMemProvider() *memProvider {
	return &memProvider{m: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if p.setErrs != nil {
		return false, p.setErrs
	}
	if p.reject {
		return false, nil
	}
	p.m[key] = value
	p.ttls[key] = ttl
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	delete(p.m, key)
	return nil
}

func testBundle() *goasidecache.Bundle {
	return &goasidecache.Bundle{
		StatusCode: 200,
		Body:       []byte("hello"),
		ExpiresAt:  time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	p := newMemProvider()
	s := New(p, codec.JSON{})

	found, err := s.Contains(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Fetch(ctx, "k")
	assert.ErrorIs(t, err, caches.ErrNotFound)

	require.NoError(t, s.Save(ctx, "k", testBundle(), time.Minute))
	assert.Equal(t, time.Minute, p.ttls["k"])

	found, err = s.Contains(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := s.Fetch(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got.Body))

	require.NoError(t, s.Delete(ctx, "k"))
	found, err = s.Contains(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	backend := errors.New("backend down")

	t.Run("get error is not a miss", func(t *testing.T) {
		p := newMemProvider()
		p.getErr = backend
		s := New(p, nil)

		_, err := s.Fetch(ctx, "k")
		assert.ErrorIs(t, err, backend)
		assert.NotErrorIs(t, err, caches.ErrNotFound)

		_, err = s.Contains(ctx, "k")
		assert.ErrorIs(t, err, backend)
	})

	t.Run("undecodable value", func(t *testing.T) {
		p := newMemProvider()
		p.m["k"] = []byte("not gob")
		s := New(p, nil)

		_, err := s.Fetch(ctx, "k")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, caches.ErrNotFound)
	})

	t.Run("rejected write", func(t *testing.T) {
		p := newMemProvider()
		p.reject = true
		s := New(p, nil)

		assert.ErrorIs(t, s.Save(ctx, "k", testBundle(), time.Minute), caches.ErrRejected)
	})

	t.Run("write error", func(t *testing.T) {
		p := newMemProvider()
		p.setErrs = backend
		s := New(p, nil)

		assert.ErrorIs(t, s.Save(ctx, "k", testBundle(), time.Minute), backend)
	})
}

type closingProvider struct {
	*memProvider
	closed bool
}

func (p *closingProvider) Close() error {
	p.closed = true
	return nil
}

func TestStoreClose(t *testing.T) {
	p := &closingProvider{memProvider: newMemProvider()}
	require.NoError(t, New(p, nil).Close())
	assert.True(t, p.closed)

	require.NoError(t, New(newMemProvider(), nil).Close())
}

type hasProvider struct {
	*memProvider
	gets, hases int
}

func (p *hasProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	p.gets++
	return p.memProvider.Get(ctx, key)
}

func (p *hasProvider) Has(_ context.Context, key string) (bool, error) {
	p.hases++
	_, ok := p.m[key]
	return ok, nil
}

func TestContainsUsesHas(t *testing.T) {
	ctx := context.Background()
	p := &hasProvider{memProvider: newMemProvider()}
	s := New(p, nil)

	require.NoError(t, s.Save(ctx, "k", testBundle(), time.Minute))

	found, err := s.Contains(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, p.hases)
	assert.Zero(t, p.gets)

	_, err = s.Fetch(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, p.gets)
}
