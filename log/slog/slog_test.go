package slog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	l.Log(context.Background(), slog.LevelDebug, "hidden", nil)
	assert.Zero(t, buf.Len())

	l.Log(context.Background(), slog.LevelWarn, "stored in cache", goasidecache.Fields{"key": "GET:/:0", "expires": int64(5)})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "stored in cache", rec["msg"])
	assert.Equal(t, "GET:/:0", rec["key"])
	assert.EqualValues(t, 5, rec["expires"])
}
