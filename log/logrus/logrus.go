package logrus

import (
	"context"
	"log/slog"

	"github.com/sirupsen/logrus"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ goasidecache.Logger = LogrusLogger{}

func (l LogrusLogger) Log(ctx context.Context, level slog.Level, msg string, f goasidecache.Fields) {
	l.E.WithContext(ctx).WithFields(logrus.Fields(f.Plain())).Log(logrusLevel(level), msg)
}

func logrusLevel(l slog.Level) logrus.Level {
	switch {
	case l >= slog.LevelError:
		return logrus.ErrorLevel
	case l >= slog.LevelWarn:
		return logrus.WarnLevel
	case l >= slog.LevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
