package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/automap-go/automap/utils"
)

// ZerologLogger implements Interface using zerolog
type ZerologLogger struct {
	Config
	Logger zerolog.Logger
}

// NewZerologLogger creates a new logger using zerolog
func NewZerologLogger(logger zerolog.Logger, config Config) Interface {
	return &ZerologLogger{Logger: logger, Config: config}
}

// LogMode sets the log level
func (l *ZerologLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZerologLogger) event(ctx context.Context, level LogLevel) *zerolog.Event {
	var event *zerolog.Event
	switch level {
	case Debug:
		event = l.Logger.Debug()
	case Info:
		event = l.Logger.Info()
	case Warn:
		event = l.Logger.Warn()
	default:
		event = l.Logger.Error()
	}
	if ctx != nil {
		event = event.Ctx(ctx)
	}
	return event
}

func (l *ZerologLogger) log(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if l.LogLevel >= level {
		l.event(ctx, level).Str("file", utils.FileWithLineNum()).Msgf(msg, data...)
	}
}

// Debug logs resolution details
func (l *ZerologLogger) Debug(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Debug, msg, data)
}

// Info logs info messages
func (l *ZerologLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Info, msg, data)
}

// Warn logs warning messages
func (l *ZerologLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Warn, msg, data)
}

// Error logs error messages
func (l *ZerologLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Error, msg, data)
}

// Trace logs SQL execution details
func (l *ZerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(begin, fc, err)
	if !ok {
		return
	}

	var event *zerolog.Event
	switch {
	case ev.err != nil:
		event = l.event(ctx, Error).Err(ev.err)
	case ev.slow:
		event = l.event(ctx, Warn).Str("slow_threshold", l.SlowThreshold.String())
	default:
		event = l.event(ctx, Info)
	}

	event = event.
		Str("file", ev.file).
		Str("duration", fmt.Sprintf("%.3fms", float64(ev.elapsed.Nanoseconds())/1e6)).
		Str("sql", ev.sql)
	if ev.rows != -1 {
		event = event.Int64("rows", ev.rows)
	}
	event.Msg("SQL executed")
}

// ZerologLevel converts LogLevel to zerolog.Level
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	case Debug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
