//go:build !integration

package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/codec"
)

type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(k map[string]types.AttributeValue) string {
	return k["url"].(*types.AttributeValueMemberS).Value
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestNewDynamoDBCache(t *testing.T) {
	tests := []struct {
		name          string
		client        API
		config        *Config
		expectedCache *Cache
		expectedErr   error
	}{
		{
			name:   "nil client returns error",
			client: nil,
			config: &Config{
				Table:          "test-table",
				ItemExpiration: time.Hour,
			},
			expectedCache: nil,
			expectedErr:   caches.ErrValidation,
		},
		{
			name:          "missing table returns error",
			client:        &dynamodb.Client{},
			config:        &Config{},
			expectedCache: nil,
			expectedErr:   caches.ErrValidation,
		},
		{
			name:   "zero item expiration uses default",
			client: &dynamodb.Client{},
			config: &Config{
				Table:          "test-table",
				ItemExpiration: 0,
			},
			expectedCache: &Cache{
				table:      "test-table",
				expiration: caches.DefaultExpiredDuration,
			},
			expectedErr: nil,
		},
		{
			name:   "custom item expiration",
			client: &dynamodb.Client{},
			config: &Config{
				Table:          "test-table",
				ItemExpiration: time.Hour,
			},
			expectedCache: &Cache{
				table:      "test-table",
				expiration: time.Hour,
			},
			expectedErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, err := New(context.Background(), tt.client, tt.config)

			if !errors.Is(err, tt.expectedErr) {
				t.Errorf("expected error %v, got %v", tt.expectedErr, err)
			}

			if tt.expectedCache == nil {
				if cache != nil {
					t.Error("expected nil cache")
				}
				return
			}

			if cache.table != tt.expectedCache.table {
				t.Errorf("expected table %s, got %s", tt.expectedCache.table, cache.table)
			}

			if cache.expiration != tt.expectedCache.expiration {
				t.Errorf("expected expiration %v, got %v", tt.expectedCache.expiration, cache.expiration)
			}
		})
	}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()

	now := time.Unix(1_700_000_000, 0)
	c, err := New(ctx, api, &Config{Table: "test", Codec: codec.JSON{}})
	require.NoError(t, err)
	c.now = func() time.Time { return now }

	found, err := c.Contains(ctx, "GET:/:0")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = c.Fetch(ctx, "GET:/:0")
	assert.ErrorIs(t, err, caches.ErrNotFound)

	require.NoError(t, c.Save(ctx, "GET:/:0", &goasidecache.Bundle{
		StatusCode: 200,
		Body:       []byte("dynamo"),
		ExpiresAt:  now.Add(time.Minute),
	}, time.Minute))

	found, err = c.Contains(ctx, "GET:/:0")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := c.Fetch(ctx, "GET:/:0")
	require.NoError(t, err)
	assert.Equal(t, "dynamo", string(got.Body))

	require.NoError(t, c.Delete(ctx, "GET:/:0"))
	assert.Empty(t, api.items)
}

func TestExpiredLookupDeletesItem(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()

	now := time.Unix(1_700_000_000, 0)
	c, err := New(ctx, api, &Config{Table: "test"})
	require.NoError(t, err)
	c.now = func() time.Time { return now }

	b := &goasidecache.Bundle{StatusCode: 200, Body: []byte("stale")}
	require.NoError(t, c.Save(ctx, "a", b, time.Second))
	require.NoError(t, c.Save(ctx, "b", b, time.Second))

	now = now.Add(time.Second)

	_, err = c.Fetch(ctx, "a")
	assert.ErrorIs(t, err, caches.ErrNotFound)
	assert.NotContains(t, api.items, "a")

	found, err := c.Contains(ctx, "b")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, api.items)
}

func TestSubSecondExpiry(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()

	now := time.Unix(100, 900*int64(time.Millisecond))
	c, err := New(ctx, api, &Config{Table: "test"})
	require.NoError(t, err)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Save(ctx, "k", &goasidecache.Bundle{StatusCode: 200, Body: []byte("x")}, time.Second))

	now = now.Add(200 * time.Millisecond)
	got, err := c.Fetch(ctx, "k")
	require.NoError(t, err, "item must live for its whole ttl")
	assert.Equal(t, "x", string(got.Body))

	now = now.Add(800 * time.Millisecond)
	_, err = c.Fetch(ctx, "k")
	assert.ErrorIs(t, err, caches.ErrNotFound)
}

func TestTTLAttributeRoundsUp(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()

	c, err := New(ctx, api, &Config{Table: "test"})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Unix(100, 900*int64(time.Millisecond)) }

	require.NoError(t, c.Save(ctx, "k", &goasidecache.Bundle{StatusCode: 200}, time.Second))

	var item cacheItem
	require.NoError(t, attributevalue.UnmarshalMap(api.items["k"], &item))
	assert.Equal(t, int64(102), item.ExpiredAt)
	assert.Equal(t, time.Unix(101, 900*int64(time.Millisecond)).UnixNano(), item.ExpiresAtNano)
}

func TestCacheBackendError(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.err = errors.New("throttled")

	c, err := New(ctx, api, &Config{Table: "test"})
	require.NoError(t, err)

	_, err = c.Contains(ctx, "k")
	assert.EqualError(t, err, "throttled")

	_, err = c.Fetch(ctx, "k")
	assert.EqualError(t, err, "throttled")
	assert.NotErrorIs(t, err, caches.ErrNotFound)
}
