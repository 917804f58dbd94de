package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/automap-go/automap/utils"
)

// ZapLogger implements Interface using zap
type ZapLogger struct {
	Config
	Logger *zap.Logger
}

// NewZapLogger creates a new logger using zap
func NewZapLogger(logger *zap.Logger, config Config) Interface {
	return &ZapLogger{Logger: logger, Config: config}
}

// LogMode sets the log level
func (l *ZapLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZapLogger) log(level LogLevel, msg string, data []interface{}) {
	if l.LogLevel < level {
		return
	}
	fields := []zap.Field{zap.String("file", utils.FileWithLineNum())}
	msg = fmt.Sprintf(msg, data...)
	switch level {
	case Debug:
		l.Logger.Debug(msg, fields...)
	case Info:
		l.Logger.Info(msg, fields...)
	case Warn:
		l.Logger.Warn(msg, fields...)
	default:
		l.Logger.Error(msg, fields...)
	}
}

// Debug logs resolution details
func (l *ZapLogger) Debug(ctx context.Context, msg string, data ...interface{}) {
	l.log(Debug, msg, data)
}

// Info logs info messages
func (l *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(Info, msg, data)
}

// Warn logs warning messages
func (l *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(Warn, msg, data)
}

// Error logs error messages
func (l *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(Error, msg, data)
}

// Trace logs SQL execution details
func (l *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(begin, fc, err)
	if !ok {
		return
	}

	fields := []zap.Field{
		zap.String("file", ev.file),
		zap.Duration("elapsed", ev.elapsed),
		zap.String("sql", ev.sql),
	}
	if ev.rows != -1 {
		fields = append(fields, zap.Int64("rows", ev.rows))
	}

	switch {
	case ev.err != nil:
		l.Logger.Error("SQL executed", append(fields, zap.Error(ev.err))...)
	case ev.slow:
		l.Logger.Warn("SLOW SQL executed", append(fields, zap.Duration("slow_threshold", l.SlowThreshold))...)
	default:
		l.Logger.Info("SQL executed", fields...)
	}
}

// ZapLevel converts LogLevel to zapcore.Level
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case Silent:
		return zapcore.DPanicLevel
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	case Debug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
