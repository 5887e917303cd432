package goasidecache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	EventFetchedMessage = "fetched from cache"
	EventStoredMessage  = "stored in cache"
)

// DefaultLogTemplate is used when no template is configured. Recognised
// placeholders: {event} {expires} {method} {uri} {target} {host} {version}
// {code} {phrase} {ts}.
const DefaultLogTemplate = `[{ts}] "{method} {target} HTTP/{version}" {code} {event} (expires in {expires}s)`

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger receives cache events. Adapters for common logging libraries live
// under the log/ directory.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, fields Fields)
}

// Plain returns a copy of f with HTTP messages and errors replaced by short
// strings. Adapters whose encoders reflect over values use it.
func (f Fields) Plain() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch v := v.(type) {
		case *http.Response:
			if v != nil {
				out[k] = v.Status
				if v.Status == "" {
					out[k] = strconv.Itoa(v.StatusCode)
				}
				continue
			}
			out[k] = nil
		case *http.Request:
			if v != nil && v.URL != nil {
				out[k] = v.Method + " " + v.URL.String()
				continue
			}
			out[k] = nil
		case error:
			out[k] = v.Error()
		default:
			out[k] = v
		}
	}
	return out
}

type NopLogger struct{}

func (NopLogger) Log(context.Context, slog.Level, string, Fields) {}

// formatLogMessage fills tmpl for a cache event.
func formatLogMessage(tmpl, event string, req *http.Request, resp *http.Response, remaining time.Duration, now time.Time) string {
	if tmpl == "" {
		tmpl = DefaultLogTemplate
	}

	var method, uri, target, host, version, code, phrase string
	if req != nil {
		method = req.Method
		host = req.Host
		if req.URL != nil {
			uri = req.URL.String()
			target = req.URL.RequestURI()
			if host == "" {
				host = req.URL.Host
			}
		}
	}
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode)
		phrase = http.StatusText(resp.StatusCode)
		version = fmt.Sprintf("%d.%d", resp.ProtoMajor, resp.ProtoMinor)
	}

	return strings.NewReplacer(
		"{event}", event,
		"{expires}", strconv.FormatInt(int64(remaining/time.Second), 10),
		"{method}", method,
		"{uri}", uri,
		"{target}", target,
		"{host}", host,
		"{version}", version,
		"{code}", code,
		"{phrase}", phrase,
		"{ts}", now.UTC().Format(time.RFC3339),
	).Replace(tmpl)
}
