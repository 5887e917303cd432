package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/codec"
)

// API is the subset of *dynamodb.Client the cache uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Config defines the configuration options for the DynamoDB cache implementation.
type Config struct {
	// ItemExpiration is how long an item stays in the table when Save is
	// given no ttl. The expired_at attribute can back a DynamoDB TTL rule.
	ItemExpiration time.Duration
	Table          string

	Codec codec.Codec
}

// Cache implements the goasidecache.Cache interface using Amazon DynamoDB as the storage backend.
// Items past their expired_at are treated as absent even before DynamoDB removes them.
type Cache struct {
	client API

	table      string
	expiration time.Duration
	codec      codec.Codec
	now        func() time.Time
}

var _ goasidecache.Cache = (*Cache)(nil)

// cacheItem is one table row. ExpiredAt is whole epoch seconds, rounded up,
// for DynamoDB's TTL feature; ExpiresAtNano is what reads compare against.
type cacheItem struct {
	URL           string `json:"url" dynamodbav:"url"`
	Response      []byte `json:"response" dynamodbav:"response"`
	CreatedAt     int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiredAt     int64  `json:"expired_at" dynamodbav:"expired_at"`
	ExpiresAtNano int64  `json:"expires_at_ns" dynamodbav:"expires_at_ns"`
}

func (i *cacheItem) expired(now time.Time) bool {
	if i.ExpiresAtNano != 0 {
		return now.UnixNano() >= i.ExpiresAtNano
	}
	return i.ExpiredAt != 0 && now.Unix() >= i.ExpiredAt
}

func ceilUnix(t time.Time) int64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return s
}

func (c *Cache) key(k string) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.Marshal(k)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{"url": av}, nil
}

// get reads the item under k. Without withResponse only the expiry
// attributes are fetched.
func (c *Cache) get(ctx context.Context, k string, withResponse bool) (*cacheItem, error) {
	key, err := c.key(k)
	if err != nil {
		return nil, err
	}

	in := &dynamodb.GetItemInput{
		Key:            key,
		ConsistentRead: aws.Bool(true),
		TableName:      aws.String(c.table),
	}
	if !withResponse {
		in.ProjectionExpression = aws.String("#e, #n")
		in.ExpressionAttributeNames = map[string]string{"#e": "expired_at", "#n": "expires_at_ns"}
	}

	output, err := c.client.GetItem(ctx, in)
	if err != nil {
		return nil, err
	}

	if output.Item == nil {
		return nil, caches.ErrNotFound
	}

	var item cacheItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, err
	}

	if item.expired(c.now()) {
		if err := c.deleteExpired(ctx, key, item.ExpiresAtNano); err != nil {
			return nil, err
		}
		return nil, caches.ErrNotFound
	}

	return &item, nil
}

func (c *Cache) Contains(ctx context.Context, k string) (bool, error) {
	_, err := c.get(ctx, k, false)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, caches.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Fetch retrieves a bundle from DynamoDB by its key. Returns
// caches.ErrNotFound if the item is missing or past its expired_at.
func (c *Cache) Fetch(ctx context.Context, k string) (*goasidecache.Bundle, error) {
	item, err := c.get(ctx, k, true)
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(item.Response)
}

// Save stores the bundle with the provided key, replacing any previous item.
func (c *Cache) Save(ctx context.Context, k string, v *goasidecache.Bundle, ttl time.Duration) error {
	createdAt := c.now()

	enc, err := c.codec.Encode(v)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = c.expiration
	}
	expiresAt := createdAt.Add(ttl)

	av, err := attributevalue.MarshalMap(cacheItem{
		URL:           k,
		Response:      enc,
		CreatedAt:     createdAt.Unix(),
		ExpiredAt:     ceilUnix(expiresAt),
		ExpiresAtNano: expiresAt.UnixNano(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      av,
	})
	return err
}

// deleteExpired removes an item observed past its expiry. The condition keeps
// an item that a concurrent Save replaced in the meantime.
func (c *Cache) deleteExpired(ctx context.Context, key map[string]types.AttributeValue, expiresAtNano int64) error {
	in := &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key:       key,
	}
	if expiresAtNano != 0 {
		in.ConditionExpression = aws.String("expires_at_ns = :ns")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":ns": &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAtNano, 10)},
		}
	}

	_, err := c.client.DeleteItem(ctx, in)

	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return nil
	}
	return err
}

func (c *Cache) Delete(ctx context.Context, k string) error {
	key, err := c.key(k)
	if err != nil {
		return err
	}

	_, err = c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key:       key,
	})
	return err
}

// New creates a new DynamoDB cache instance with the provided configuration.
// It validates the configuration and sets default values where appropriate.
// Returns an error if the client is nil or if the configuration is invalid.
func New(_ context.Context, client API, config *Config) (*Cache, error) {
	if client == nil {
		return nil, caches.ValidationError{
			Reason: "nil client",
		}
	}

	if config == nil || config.Table == "" {
		return nil, caches.ValidationError{
			Reason: "table is required",
		}
	}

	itemExpiration := config.ItemExpiration
	if itemExpiration <= 0 {
		itemExpiration = caches.DefaultExpiredDuration
	}

	cdc := config.Codec
	if cdc == nil {
		cdc = codec.Default
	}

	return &Cache{
		client: client,

		table:      config.Table,
		expiration: itemExpiration,
		codec:      cdc,
		now:        time.Now,
	}, nil
}
