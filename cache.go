package goasidecache

import (
	"context"
	"net/http"
	"time"

	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/replay"
)

// Bundle is the unit of storage: a response with a fully read body and the
// moment it stops being servable.
type Bundle struct {
	StatusCode int
	Status     string
	Proto      string
	ProtoMajor int
	ProtoMinor int
	Header     http.Header
	Body       []byte
	ExpiresAt  time.Time
}

// NewBundle captures resp with the given replayable body.
func NewBundle(resp *http.Response, body *replay.Body, expiresAt time.Time) *Bundle {
	return &Bundle{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		ProtoMajor: resp.ProtoMajor,
		ProtoMinor: resp.ProtoMinor,
		Header:     resp.Header.Clone(),
		Body:       body.Contents(),
		ExpiresAt:  expiresAt,
	}
}

// Expired reports whether the bundle may no longer be served at now.
func (b *Bundle) Expired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// Remaining is the time left before the bundle expires.
func (b *Bundle) Remaining(now time.Time) time.Duration {
	return b.ExpiresAt.Sub(now)
}

// Replay returns the stored body as a replayable buffer.
func (b *Bundle) Replay() *replay.Body {
	return replay.New(b.Body)
}

// Response rebuilds an *http.Response for req. Each call gets its own body
// reader, so the bundle can be served any number of times.
func (b *Bundle) Response(req *http.Request) *http.Response {
	body := b.Replay()

	proto, major, minor := b.Proto, b.ProtoMajor, b.ProtoMinor
	if proto == "" {
		proto, major, minor = "HTTP/1.1", 1, 1
	}

	status := b.Status
	if status == "" {
		status = http.StatusText(b.StatusCode)
	}

	return &http.Response{
		Status:        status,
		StatusCode:    b.StatusCode,
		Proto:         proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        b.Header.Clone(),
		Body:          body.NewReader(),
		ContentLength: int64(body.Size()),
		Request:       req,
	}
}

// Cache is the backing store capability the transport depends on.
//
// Fetch must return caches.ErrNotFound when nothing is stored under the key;
// any other error is treated as a backend failure. Save overwrites.
type Cache interface {
	Contains(ctx context.Context, key string) (bool, error)
	Fetch(ctx context.Context, key string) (*Bundle, error)
	Save(ctx context.Context, key string, b *Bundle, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is re-exported for callers that only import the root package.
var ErrNotFound = caches.ErrNotFound
