package goasidecache

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, []string{http.MethodGet, http.MethodHead, http.MethodOptions}, c.Methods)
	assert.Equal(t, 30*time.Second, c.Expire)
	assert.Nil(t, c.Filter)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, DefaultLogTemplate, c.LogTemplate)
}

func TestConfigWithKeepsUnspecifiedFields(t *testing.T) {
	base := DefaultConfig()
	c := base.With(WithExpire(5 * time.Second))

	assert.Equal(t, 5*time.Second, c.Expire)
	assert.Equal(t, base.Methods, c.Methods)
	assert.Equal(t, base.LogTemplate, c.LogTemplate)

	c = c.With(WithMethods("get", "post"))
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, c.Methods)
	assert.Equal(t, 5*time.Second, c.Expire)

	assert.Equal(t, []string{http.MethodGet, http.MethodHead, http.MethodOptions}, base.Methods, "With must not alias the receiver")
}

func TestCheckMethod(t *testing.T) {
	tests := []struct {
		expected bool
		method   string
		methods  []string
	}{
		{true, "GET", []string{"GET"}},
		{true, "GET", []string{"GET", "POST"}},
		{false, "GET", []string{"HEAD"}},
		{false, "GET", nil},
	}

	for _, tt := range tests {
		c := DefaultConfig().With(WithMethods(tt.methods...))
		if got := c.methodAllowed(tt.method); got != tt.expected {
			t.Errorf("methodAllowed(%q) with %v = %v, want %v", tt.method, tt.methods, got, tt.expected)
		}
	}
}

func TestFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tests := []struct {
		name     string
		expected bool
		filter   func(*http.Request) bool
	}{
		{name: "no filter", expected: true, filter: nil},
		{name: "accepts", expected: true, filter: func(*http.Request) bool { return true }},
		{name: "rejects", expected: false, filter: func(*http.Request) bool { return false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig().With(WithFilter(tt.filter))
			assert.Equal(t, tt.expected, c.filter(req))
		})
	}
}

func TestExpireFor(t *testing.T) {
	c := DefaultConfig().With(
		WithExpire(time.Minute),
		WithExpireOverride("api.example.com/v1", time.Hour),
		WithExpireOverride("api.example.com", 0),
	)

	tests := []struct {
		url  string
		want time.Duration
	}{
		{url: "http://api.example.com/v1/users", want: time.Hour},
		{url: "http://api.example.com/v2/users", want: 0},
		{url: "http://other.example.com/v1", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, c.expireFor(httptest.NewRequest(http.MethodGet, tt.url, nil)))
		})
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "empty file keeps defaults",
			yaml: "",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, DefaultConfig().Methods, c.Methods)
				assert.Equal(t, DefaultExpire, c.Expire)
			},
		},
		{
			name: "partial override",
			yaml: "expire: 10\n",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 10*time.Second, c.Expire)
				assert.Equal(t, DefaultConfig().Methods, c.Methods)
			},
		},
		{
			name: "ttl alias and zero disables storing",
			yaml: "ttl: 0\nmethods: [get]\n",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, time.Duration(0), c.Expire)
				assert.Equal(t, []string{"GET"}, c.Methods)
			},
		},
		{
			name: "logging and overrides",
			yaml: "log_level: warn\nlog_template: '{event}'\noverrides:\n  - uri: example.com/slow\n    expire: 600\n",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, slog.LevelWarn, c.LogLevel)
				assert.Equal(t, "{event}", c.LogTemplate)
				require.Len(t, c.ExpireOverrides, 1)
				assert.Equal(t, 10*time.Minute, c.ExpireOverrides[0].Expire)
			},
		},
		{name: "expire and ttl together", yaml: "expire: 1\nttl: 2\n", wantErr: true},
		{name: "bad level", yaml: "log_level: loud\n", wantErr: true},
		{name: "bad method", yaml: "methods: ['GET /']\n", wantErr: true},
		{name: "override without uri", yaml: "overrides:\n  - expire: 5\n", wantErr: true},
		{name: "not yaml", yaml: "methods: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, DefaultConfig().With(fc.Options()...))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("methods: [GET]\nexpire: 45\n"), 0o600))

	fc, err := LoadConfig(path)
	require.NoError(t, err)

	c := DefaultConfig().With(fc.Options()...)
	assert.Equal(t, 45*time.Second, c.Expire)
	assert.Equal(t, []string{"GET"}, c.Methods)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
