// Package slog adapts a *slog.Logger to goasidecache.Logger.
package slog

import (
	"context"
	"log/slog"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

type Logger struct{ L *slog.Logger }

var _ goasidecache.Logger = Logger{}

// New returns l as a goasidecache.Logger; nil uses slog.Default().
func New(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return Logger{L: l}
}

func (s Logger) Log(ctx context.Context, level slog.Level, msg string, f goasidecache.Fields) {
	if !s.L.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(f))
	for k, v := range f {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.L.LogAttrs(ctx, level, msg, attrs...)
}
