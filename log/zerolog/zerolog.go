// Package zerolog adapts a zerolog.Logger to goasidecache.Logger.
package zerolog

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

type Logger struct{ L zerolog.Logger }

var _ goasidecache.Logger = Logger{}

func (z Logger) Log(_ context.Context, level slog.Level, msg string, f goasidecache.Fields) {
	z.L.WithLevel(zerologLevel(level)).Fields(map[string]any(f.Plain())).Msg(msg)
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l >= slog.LevelError:
		return zerolog.ErrorLevel
	case l >= slog.LevelWarn:
		return zerolog.WarnLevel
	case l >= slog.LevelInfo:
		return zerolog.InfoLevel
	case l >= slog.LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
