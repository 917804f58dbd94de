package utils

import (
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var automapSourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get automap source directory with various operating systems
	automapSourceDir = sourceDir(file)
}

func sourceDir(file string) string {
	dir := filepath.Dir(filepath.Dir(file))
	return filepath.ToSlash(dir) + "/"
}

// CallerFrame returns the first frame outside the automap sources, or
// the frame of a test file.
func CallerFrame() runtime.Frame {
	pcs := [15]uintptr{}
	// the second caller usually from automap internal, so skip from 2
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.File, automapSourceDir) || strings.HasSuffix(frame.File, "_test.go") {
			return frame
		}
		if !more {
			break
		}
	}
	return runtime.Frame{}
}

// FileWithLineNum return the file name and line number of the current file
func FileWithLineNum() string {
	frame := CallerFrame()
	if frame.PC == 0 {
		return ""
	}
	return frame.File + ":" + strconv.FormatInt(int64(frame.Line), 10)
}

// ToStringKey joins values into a cache key.
func ToStringKey(values ...interface{}) string {
	results := make([]string, len(values))

	for idx, value := range values {
		if valuer, ok := value.(driver.Valuer); ok {
			value, _ = valuer.Value()
		}

		switch v := value.(type) {
		case string:
			results[idx] = v
		case []byte:
			results[idx] = string(v)
		case uint:
			results[idx] = strconv.FormatUint(uint64(v), 10)
		case nil:
			results[idx] = "<nil>"
		default:
			results[idx] = fmt.Sprint(reflect.Indirect(reflect.ValueOf(v)).Interface())
		}
	}

	return strings.Join(results, "_")
}

// HasPrefixFold is strings.HasPrefix ignoring case and leading space.
func HasPrefixFold(s, prefix string) bool {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// LowerFirst lowercases the first letter: CustomerID becomes customerID.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
