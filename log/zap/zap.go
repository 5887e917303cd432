package zap

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

type ZapLogger struct{ L *zap.Logger }

var _ goasidecache.Logger = ZapLogger{}

func (z ZapLogger) Log(_ context.Context, level slog.Level, msg string, f goasidecache.Fields) {
	if ce := z.L.Check(zapLevel(level), msg); ce != nil {
		ce.Write(zf(f)...)
	}
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func zf(f goasidecache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f.Plain() {
		out = append(out, zap.Any(k, v))
	}
	return out
}
