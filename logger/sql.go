package logger

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const tmFmt = "2006-01-02 15:04:05.999"

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// ExplainSQL interpolates vars into sql for logging. Placeholders are ?
// unless numericPlaceholder matches them ($1, @p1...). The result is for
// humans only and must never be executed.
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	formatted := make([]string, len(vars))
	for idx, v := range vars {
		formatted[idx] = formatVar(v, escaper)
	}

	if numericPlaceholder == nil {
		var (
			buf     strings.Builder
			next    int
			literal bool
		)
		for _, r := range sql {
			switch {
			case r == '\'':
				literal = !literal
			case r == '?' && !literal && next < len(formatted):
				buf.WriteString(formatted[next])
				next++
				continue
			}
			buf.WriteRune(r)
		}
		return buf.String()
	}

	return numericPlaceholder.ReplaceAllStringFunc(sql, func(m string) string {
		sub := numericPlaceholder.FindStringSubmatch(m)
		if len(sub) < 2 {
			return m
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil || n < 1 || n > len(formatted) {
			return m
		}
		return formatted[n-1]
	})
}

func formatVar(v interface{}, escaper string) string {
	if valuer, ok := v.(driver.Valuer); ok {
		v, _ = valuer.Value()
	}

	quote := func(s string) string {
		return escaper + strings.ReplaceAll(s, escaper, escaper+escaper) + escaper
	}

	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return quote("0000-00-00 00:00:00")
		}
		return quote(v.Format(tmFmt))
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return quote(v.Format(tmFmt))
	case []byte:
		if isPrintable(v) {
			return quote(string(v))
		}
		return quote("<binary>")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return quote(v)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL"
		}
		return formatVar(rv.Elem().Interface(), escaper)
	}
	return quote(fmt.Sprint(v))
}
