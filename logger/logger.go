package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/automap-go/automap/utils"
)

// ErrRecordNotFound record not found error
var ErrRecordNotFound = errors.New("record not found")

// Colors
const (
	Reset       = "\033[0m"
	Red         = "\033[31m"
	Green       = "\033[32m"
	Yellow      = "\033[33m"
	Blue        = "\033[34m"
	Magenta     = "\033[35m"
	Cyan        = "\033[36m"
	White       = "\033[37m"
	BlueBold    = "\033[34;1m"
	MagentaBold = "\033[35;1m"
	RedBold     = "\033[31;1m"
	YellowBold  = "\033[33;1m"
)

// LogLevel log level
type LogLevel int

const (
	// Silent silent log level
	Silent LogLevel = iota + 1
	// Error error log level
	Error
	// Warn warn log level
	Warn
	// Info info log level
	Info
	// Debug also logs how names were resolved
	Debug
)

// ParseLevel maps "silent", "error", "warn", "info" and "debug" to a
// level, falling back to Warn.
func ParseLevel(s string) LogLevel {
	switch s {
	case "silent":
		return Silent
	case "error":
		return Error
	case "info":
		return Info
	case "debug":
		return Debug
	default:
		return Warn
	}
}

// Writer log writer interface
type Writer interface {
	Printf(string, ...interface{})
}

// Config logger config
type Config struct {
	SlowThreshold             time.Duration
	Colorful                  bool
	IgnoreRecordNotFoundError bool
	ParameterizedQueries      bool
	LogLevel                  LogLevel
}

// Interface logger interface
type Interface interface {
	LogMode(LogLevel) Interface
	Debug(context.Context, string, ...interface{})
	Info(context.Context, string, ...interface{})
	Warn(context.Context, string, ...interface{})
	Error(context.Context, string, ...interface{})
	Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error)
}

var (
	// Discard logger will print nothing
	Discard = New(log.New(io.Discard, "", log.LstdFlags), Config{LogLevel: Silent})
	// Default the default logger
	Default Interface
)

func init() {
	Default = New(log.New(os.Stdout, "\r\n", log.LstdFlags), Config{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      ParseLevel(os.Getenv("AUTOMAP_LOG_LEVEL")),
		Colorful:      true,
	})
}

// New initialize logger
func New(writer Writer, config Config) Interface {
	var (
		debugStr     = "%s\n[debug] "
		infoStr      = "%s\n[info] "
		warnStr      = "%s\n[warn] "
		errStr       = "%s\n[error] "
		traceStr     = "%s\n[%.3fms] [rows:%v] %s"
		traceWarnStr = "%s %s\n[%.3fms] [rows:%v] %s"
		traceErrStr  = "%s %s\n[%.3fms] [rows:%v] %s"
	)

	if config.Colorful {
		debugStr = Green + "%s\n" + Reset + Blue + "[debug] " + Reset
		infoStr = Green + "%s\n" + Reset + Green + "[info] " + Reset
		warnStr = BlueBold + "%s\n" + Reset + Magenta + "[warn] " + Reset
		errStr = Magenta + "%s\n" + Reset + Red + "[error] " + Reset
		traceStr = Green + "%s\n" + Reset + Yellow + "[%.3fms] " + BlueBold + "[rows:%v]" + Reset + " %s"
		traceWarnStr = Green + "%s " + Yellow + "%s\n" + Reset + RedBold + "[%.3fms] " + Yellow + "[rows:%v]" + Magenta + " %s" + Reset
		traceErrStr = RedBold + "%s " + MagentaBold + "%s\n" + Reset + Yellow + "[%.3fms] " + BlueBold + "[rows:%v]" + Reset + " %s"
	}

	return &logger{
		Writer:       writer,
		Config:       config,
		debugStr:     debugStr,
		infoStr:      infoStr,
		warnStr:      warnStr,
		errStr:       errStr,
		traceStr:     traceStr,
		traceWarnStr: traceWarnStr,
		traceErrStr:  traceErrStr,
	}
}

type logger struct {
	Writer
	Config
	debugStr, infoStr, warnStr, errStr  string
	traceStr, traceErrStr, traceWarnStr string
}

// LogMode log mode
func (l *logger) LogMode(level LogLevel) Interface {
	newlogger := *l
	newlogger.LogLevel = level
	return &newlogger
}

// Debug print resolution details
func (l *logger) Debug(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Debug {
		l.Printf(l.debugStr+msg, append([]interface{}{utils.FileWithLineNum()}, data...)...)
	}
}

// Info print info
func (l *logger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.Printf(l.infoStr+msg, append([]interface{}{utils.FileWithLineNum()}, data...)...)
	}
}

// Warn print warn messages
func (l *logger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.Printf(l.warnStr+msg, append([]interface{}{utils.FileWithLineNum()}, data...)...)
	}
}

// Error print error messages
func (l *logger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.Printf(l.errStr+msg, append([]interface{}{utils.FileWithLineNum()}, data...)...)
	}
}

// Trace print sql message
func (l *logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	ev, ok := l.traceEvent(begin, fc, err)
	if !ok {
		return
	}

	ms := float64(ev.elapsed.Nanoseconds()) / 1e6
	switch {
	case ev.err != nil:
		l.Printf(l.traceErrStr, ev.file, ev.err, ms, ev.rowsString(), ev.sql)
	case ev.slow:
		slowLog := fmt.Sprintf("SLOW SQL >= %v", l.SlowThreshold)
		l.Printf(l.traceWarnStr, ev.file, slowLog, ms, ev.rowsString(), ev.sql)
	default:
		l.Printf(l.traceStr, ev.file, ms, ev.rowsString(), ev.sql)
	}
}

// traceEvent is a statement worth logging at the configured level.
type traceEvent struct {
	file    string
	elapsed time.Duration
	sql     string
	rows    int64
	err     error
	slow    bool
}

func (e traceEvent) rowsString() string {
	if e.rows == -1 {
		return "-"
	}
	return fmt.Sprint(e.rows)
}

// traceEvent decides whether a statement is logged: errors at Error,
// slow statements at Warn, everything at Info.
func (c Config) traceEvent(begin time.Time, fc func() (string, int64), err error) (traceEvent, bool) {
	if c.LogLevel <= Silent {
		return traceEvent{}, false
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && c.LogLevel >= Error && (!errors.Is(err, ErrRecordNotFound) || !c.IgnoreRecordNotFoundError):
	case c.SlowThreshold != 0 && elapsed > c.SlowThreshold && c.LogLevel >= Warn:
	case c.LogLevel >= Info:
	default:
		return traceEvent{}, false
	}

	sql, rows := fc()
	if c.IgnoreRecordNotFoundError && errors.Is(err, ErrRecordNotFound) {
		err = nil
	}
	return traceEvent{
		file:    utils.FileWithLineNum(),
		elapsed: elapsed,
		sql:     sql,
		rows:    rows,
		err:     err,
		slow:    err == nil && c.SlowThreshold != 0 && elapsed > c.SlowThreshold,
	}, true
}

// ParamsFilter is implemented by loggers that can hide bound values.
type ParamsFilter interface {
	ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{})
}

// ParamsFilter drops the bound values when ParameterizedQueries is set.
func (c Config) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if c.ParameterizedQueries {
		return sql, nil
	}
	return sql, params
}
