package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automap-go/automap/utils"
)

// LogrusLogger implements Interface using logrus
type LogrusLogger struct {
	Config
	Logger *logrus.Logger
}

// NewLogrusLogger creates a new logger using logrus
func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{Logger: logger, Config: config}
}

// LogMode sets the log level
func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *LogrusLogger) log(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if l.LogLevel < level {
		return
	}
	entry := l.Logger.WithContext(ctx).WithField("file", utils.FileWithLineNum())
	entry.Log(logrusLevel(level), fmt.Sprintf(msg, data...))
}

// Debug logs resolution details
func (l *LogrusLogger) Debug(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Debug, msg, data)
}

// Info logs info messages
func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Info, msg, data)
}

// Warn logs warning messages
func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Warn, msg, data)
}

// Error logs error messages
func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Error, msg, data)
}

// Trace logs SQL execution details
func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(begin, fc, err)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"file":     ev.file,
		"duration": fmt.Sprintf("%.3fms", float64(ev.elapsed.Nanoseconds())/1e6),
		"sql":      ev.sql,
	}
	if ev.rows != -1 {
		fields["rows"] = ev.rows
	}

	entry := l.Logger.WithContext(ctx).WithFields(fields)
	switch {
	case ev.err != nil:
		entry.WithError(ev.err).Error("SQL executed")
	case ev.slow:
		entry.WithField("slow_threshold", l.SlowThreshold.String()).Warn("SLOW SQL executed")
	default:
		entry.Info("SQL executed")
	}
}

func logrusLevel(level LogLevel) logrus.Level {
	switch level {
	case Debug:
		return logrus.DebugLevel
	case Info:
		return logrus.InfoLevel
	case Warn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
