package goasidecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator joins the segments of a cache key.
const KeySeparator = ":"

// RequestOptions are request-scoped settings (timeouts, auth profile, ...)
// that change what a request means and therefore take part in its key.
type RequestOptions map[string]any

type requestOptionsKey struct{}

// WithRequestOptions attaches opts to ctx for the RoundTrip path.
func WithRequestOptions(ctx context.Context, opts RequestOptions) context.Context {
	return context.WithValue(ctx, requestOptionsKey{}, opts)
}

// RequestOptionsFrom returns the options attached with WithRequestOptions.
func RequestOptionsFrom(ctx context.Context) RequestOptions {
	opts, _ := ctx.Value(requestOptionsKey{}).(RequestOptions)
	return opts
}

// Key derives the cache key "<METHOD>:<URI>:<hash>" where hash is the xxhash64
// of the JSON encoding of opts. encoding/json sorts map keys, so equal options
// always hash the same. Options that cannot be encoded fall back to their
// fmt representation.
func Key(method, uri string, opts RequestOptions) string {
	return strings.Join([]string{method, uri, hashOptions(opts)}, KeySeparator)
}

func hashOptions(opts RequestOptions) string {
	if opts == nil {
		opts = RequestOptions{}
	}

	b, err := json.Marshal(opts)
	if err != nil {
		b = []byte(fmt.Sprintf("%v", map[string]any(opts)))
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}
