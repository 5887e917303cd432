package goasidecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/promise"
	"github.com/dgduncan/go-aside-cache/replay"
)

var errNilBundle = errors.New("cache returned no bundle and no error")

// HeaderCacheStatus is set on responses served from the cache, in the
// RFC 9211 Cache-Status form "go-aside-cache; hit; ttl=<seconds>".
const HeaderCacheStatus = "Cache-Status"

const cacheStatusName = "go-aside-cache"

// FetchedFromCache reports whether resp was served from the cache. Unlike
// CacheTransport.LastRequestWasFetchedFromCache it is safe with concurrent
// requests.
func FetchedFromCache(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	return strings.HasPrefix(resp.Header.Get(HeaderCacheStatus), cacheStatusName+"; hit")
}

// CacheTransport decorates a downstream handler with cache-aside behaviour:
// cacheable requests are answered from the Cache while a fresh bundle exists,
// and successful responses from the downstream handler are stored for reuse.
//
// Concurrent misses on the same key all reach the downstream handler; the
// last write wins.
type CacheTransport struct {
	Wrapped promise.Handler

	cache  Cache
	logger Logger
	now    func() time.Time

	c Config

	lastFetched atomic.Bool
}

// RoundTrip implements http.RoundTripper. Request options are read from the
// request context, see WithRequestOptions.
func (c *CacheTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	return c.Invoke(r, RequestOptionsFrom(ctx)).Wait(ctx)
}

// Invoke implements promise.Handler and is the cache-aside flow proper.
//
// The process follows these steps:
// 1. Bypasses the cache for methods not configured or requests the filter rejects
// 2. Returns the stored response if a fresh bundle exists, deleting stale ones
// 3. Forwards misses to the wrapped handler
// 4. Stores responses with a status below 400 once the wrapped handler settles.
func (c *CacheTransport) Invoke(r *http.Request, opts map[string]any) *promise.Promise {
	c.lastFetched.Store(false)

	if !c.shouldCacheRequest(r) {
		c.record(EventBypassed)
		return c.Wrapped.Invoke(r, opts)
	}

	ctx := r.Context()
	key := Key(r.Method, r.URL.String(), opts)

	resp, err := c.fetch(ctx, r, key)
	if err != nil {
		c.record(EventFetchFailed)
		return promise.Resolved(nil, err)
	}
	if resp != nil {
		c.lastFetched.Store(true)
		c.record(EventFetched)
		return promise.Resolved(resp, nil)
	}

	c.record(EventMissed)
	p := c.Wrapped.Invoke(r, opts)

	// Don't store if the expire time isn't positive.
	expire := c.c.expireFor(r)
	if expire <= 0 {
		return p
	}

	storeCtx := context.WithoutCancel(ctx)
	return p.Then(func(resp *http.Response, err error) (*http.Response, error) {
		if err != nil || !shouldCacheResponse(resp) {
			c.record(EventSkipped)
			return resp, err
		}
		return c.store(storeCtx, r, resp, key, expire)
	})
}

// LastRequestWasFetchedFromCache reports whether the most recent Invoke was
// answered from the cache. The flag is shared by every request going through
// c, so it is only meaningful when requests are issued one at a time; use
// FetchedFromCache on the response otherwise.
func (c *CacheTransport) LastRequestWasFetchedFromCache() bool {
	return c.lastFetched.Load()
}

// Config returns the configuration in use.
func (c *CacheTransport) Config() Config {
	return c.c.With()
}

func (c *CacheTransport) shouldCacheRequest(r *http.Request) bool {
	return c.c.methodAllowed(r.Method) && c.c.filter(r)
}

func shouldCacheResponse(resp *http.Response) bool {
	return resp != nil && resp.StatusCode < 400
}

// fetch returns the stored response for key, nil on a miss. Expired bundles
// are deleted so Contains stops reporting them.
func (c *CacheTransport) fetch(ctx context.Context, r *http.Request, key string) (*http.Response, error) {
	found, err := c.cache.Contains(ctx, key)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	if !found {
		return nil, nil
	}

	bundle, err := c.cache.Fetch(ctx, key)
	if errors.Is(err, caches.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	if bundle == nil {
		return nil, &FetchError{Key: key, Err: errNilBundle}
	}

	if bundle.Expired(c.now()) {
		if delErr := c.cache.Delete(ctx, key); delErr != nil {
			c.logger.Log(ctx, slog.LevelWarn, "error deleting expired cache item", Fields{"key": key, "error": delErr})
		}
		c.record(EventExpired)
		return nil, nil
	}

	resp := bundle.Response(r)
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	ttl := int64(bundle.Remaining(c.now()) / time.Second)
	resp.Header.Set(HeaderCacheStatus, fmt.Sprintf("%s; hit; ttl=%d", cacheStatusName, ttl))
	c.logEvent(ctx, EventFetchedMessage, r, resp, bundle, key)
	return resp, nil
}

// store reads the body into a replayable buffer, swaps it into resp and saves
// the bundle.
func (c *CacheTransport) store(ctx context.Context, r *http.Request, resp *http.Response, key string, expire time.Duration) (*http.Response, error) {
	body, err := replay.FromReader(resp.Body)
	closeBody(resp.Body)
	if err != nil {
		return nil, err
	}

	resp.Body = body.NewReader()
	resp.ContentLength = int64(body.Size())

	bundle := NewBundle(resp, body, c.now().Add(expire))
	if err := c.cache.Save(ctx, key, bundle, expire); err != nil {
		c.record(EventStoreFailed)
		return nil, &StoreError{Key: key, Err: err, Response: resp}
	}

	c.logEvent(ctx, EventStoredMessage, r, resp, bundle, key)
	c.record(EventStored)
	return resp, nil
}

func closeBody(b io.ReadCloser) {
	if b != nil {
		_ = b.Close()
	}
}

func (c *CacheTransport) logEvent(ctx context.Context, event string, r *http.Request, resp *http.Response, b *Bundle, key string) {
	if _, ok := c.logger.(NopLogger); ok {
		return
	}

	now := c.now()
	remaining := b.Remaining(now)
	msg := formatLogMessage(c.c.LogTemplate, event, r, resp, remaining, now)

	c.logger.Log(ctx, c.c.logLevel(resp), msg, Fields{
		"response": resp,
		"expires":  int64(remaining / time.Second),
		"key":      key,
		"url":      r.URL.String(),
	})
}

func (c *CacheTransport) record(e Event) {
	if c.c.Recorder != nil {
		c.c.Recorder.Record(e)
	}
}

// NewHandler wraps next with caching backed by cache.
//
// If 'now' is nil, time.Now is used. If 'logger' is nil, logging is disabled.
// Options are applied over DefaultConfig, so only the fields they name change.
func NewHandler(
	next promise.Handler,
	cache Cache,
	now func() time.Time,
	logger Logger,
	opts ...Option,
) *CacheTransport {
	if now == nil {
		now = time.Now
	}

	if logger == nil {
		logger = NopLogger{}
	}

	return &CacheTransport{
		Wrapped: next,
		cache:   cache,
		now:     now,
		logger:  logger,
		c:       DefaultConfig().With(opts...),
	}
}

// New creates a transport middleware that adds cache-aside behaviour to an
// HTTP RoundTripper.
//
// The returned function wraps the given http.RoundTripper:
//   - Caches responses to GET, HEAD and OPTIONS requests by default
//   - Serves stored responses until their expire time passes
//   - Never stores responses with a status of 400 or above
//   - Logs cache operations when a logger is provided
func New(
	cache Cache,
	now func() time.Time,
	logger Logger,
	opts ...Option,
) func(http.RoundTripper) http.RoundTripper {
	return func(rt http.RoundTripper) http.RoundTripper {
		return NewHandler(promise.FromRoundTripper(rt), cache, now, logger, opts...)
	}
}
