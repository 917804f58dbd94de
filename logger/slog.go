package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/automap-go/automap/utils"
)

type slogLogger struct {
	Config
	Logger *slog.Logger
}

// NewSlogLogger creates a new logger using log/slog
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{Logger: logger, Config: config}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Debug(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Debug {
		l.log(ctx, slog.LevelDebug, fmt.Sprintf(msg, data...))
	}
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.log(ctx, slog.LevelInfo, fmt.Sprintf(msg, data...))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.log(ctx, slog.LevelWarn, fmt.Sprintf(msg, data...))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.log(ctx, slog.LevelError, fmt.Sprintf(msg, data...))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(begin, fc, err)
	if !ok {
		return
	}

	fields := []slog.Attr{
		slog.String("duration", fmt.Sprintf("%.3fms", float64(ev.elapsed.Nanoseconds())/1e6)),
		slog.String("sql", ev.sql),
	}
	if ev.rows != -1 {
		fields = append(fields, slog.Int64("rows", ev.rows))
	}

	level := slog.LevelInfo
	switch {
	case ev.err != nil:
		level = slog.LevelError
		fields = append(fields, slog.String("error", ev.err.Error()))
	case ev.slow:
		level = slog.LevelWarn
	}
	l.log(ctx, level, "SQL executed", slog.Attr{Key: "trace", Value: slog.GroupValue(fields...)})
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !l.Logger.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, utils.CallerFrame().PC)
	r.Add(args...)
	_ = l.Logger.Handler().Handle(ctx, r)
}
