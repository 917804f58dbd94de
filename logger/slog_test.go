package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogLogger(slog.New(handler), Config{LogLevel: Info})

	logger.Debug(ctx, "hidden")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, "skipped %s", "Orders")
	assert.Contains(t, buf.String(), "skipped Orders")

	buf.Reset()
	logger.Trace(ctx, time.Now(), func() (string, int64) { return "select 1", 4 }, nil)
	assert.Contains(t, buf.String(), `"sql":"select 1"`)
	assert.Contains(t, buf.String(), `"rows":4`)
}
