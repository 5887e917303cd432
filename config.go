package goasidecache

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

// DefaultExpire is how long a stored response stays servable when no expire
// option is given.
const DefaultExpire = 30 * time.Second

type Config struct {
	// Methods lists the HTTP methods whose requests may be cached.
	Methods []string

	// Expire is how long a stored response stays servable. A value <= 0 turns
	// storing off; bundles stored earlier are still served until they expire.
	Expire time.Duration

	// ExpireOverrides replace Expire for requests whose host+path starts with
	// URI. The first matching override wins.
	ExpireOverrides []ExpireOverride

	// Filter, when set, must return true for a request to be cached.
	Filter func(*http.Request) bool

	// LogLevel is the level of "fetched" and "stored" events unless
	// LogLevelFunc is set.
	LogLevel slog.Level

	// LogLevelFunc computes the level per event from the response involved.
	LogLevelFunc func(*http.Response) slog.Level

	// LogTemplate is the message template for cache events, see
	// DefaultLogTemplate for the placeholders.
	LogTemplate string

	// Recorder receives an Event for every decision the transport takes.
	Recorder Recorder
}

type ExpireOverride struct {
	URI string // eg. misbehaving_caching_domain.com/api

	Expire time.Duration // eg. 1H
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Methods:     []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		Expire:      DefaultExpire,
		LogLevel:    slog.LevelDebug,
		LogTemplate: DefaultLogTemplate,
	}
}

// Option changes a single field of a Config.
type Option func(*Config)

// With returns a copy of c with opts applied. Fields no option touches keep
// their value.
func (c Config) With(opts ...Option) Config {
	c.Methods = slices.Clone(c.Methods)
	c.ExpireOverrides = slices.Clone(c.ExpireOverrides)
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

func WithMethods(methods ...string) Option {
	return func(c *Config) {
		c.Methods = make([]string, 0, len(methods))
		for _, m := range methods {
			c.Methods = append(c.Methods, strings.ToUpper(m))
		}
	}
}

func WithExpire(d time.Duration) Option {
	return func(c *Config) { c.Expire = d }
}

// WithExpireOverride appends an override for requests under uri.
func WithExpireOverride(uri string, d time.Duration) Option {
	return func(c *Config) {
		c.ExpireOverrides = append(c.ExpireOverrides, ExpireOverride{URI: uri, Expire: d})
	}
}

// WithFilter sets the request predicate. A nil filter lets every request
// through.
func WithFilter(f func(*http.Request) bool) Option {
	return func(c *Config) { c.Filter = f }
}

func WithLogLevel(l slog.Level) Option {
	return func(c *Config) { c.LogLevel = l }
}

func WithLogLevelFunc(f func(*http.Response) slog.Level) Option {
	return func(c *Config) { c.LogLevelFunc = f }
}

func WithLogTemplate(tmpl string) Option {
	return func(c *Config) { c.LogTemplate = tmpl }
}

func WithRecorder(r Recorder) Option {
	return func(c *Config) { c.Recorder = r }
}

func (c Config) methodAllowed(method string) bool {
	return slices.Contains(c.Methods, method)
}

func (c Config) filter(r *http.Request) bool {
	return c.Filter == nil || c.Filter(r)
}

// expireFor returns the expire duration that applies to r.
func (c Config) expireFor(r *http.Request) time.Duration {
	if r != nil && r.URL != nil {
		for _, o := range c.ExpireOverrides {
			if strings.HasPrefix(r.URL.Host+r.URL.Path, o.URI) {
				return o.Expire
			}
		}
	}
	return c.Expire
}

func (c Config) logLevel(resp *http.Response) slog.Level {
	if c.LogLevelFunc != nil {
		return c.LogLevelFunc(resp)
	}
	return c.LogLevel
}
