package model

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/jinzhu/now"
)

var timeType = reflect.TypeOf(time.Time{})

// Assign stores src into dst converting between the representations
// drivers return (int64, float64, bool, []byte, string, time.Time) and
// the field type.
func Assign(dst reflect.Value, src any) error {
	if !dst.CanSet() {
		return ErrUnaddressable
	}

	if rv, ok := src.(reflect.Value); ok {
		if !rv.IsValid() {
			src = nil
		} else {
			src = rv.Interface()
		}
	}

	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if scanner, ok := dst.Addr().Interface().(sql.Scanner); ok {
		return scanner.Scan(src)
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	if sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return Assign(dst, sv.Elem().Interface())
	}

	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := Assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch {
	case dst.Type() == timeType:
		t, err := toTime(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case dst.Kind() == reflect.String:
		dst.SetString(toString(src))
		return nil
	case dst.Kind() == reflect.Bool:
		b, err := toBool(sv)
		if err != nil {
			return err
		}
		dst.SetBool(b)
		return nil
	case isNumber(dst.Kind()) && (sv.Kind() == reflect.String || isBytes(sv)):
		return parseNumber(dst, toString(src))
	case isNumber(dst.Kind()) && sv.Kind() == reflect.Bool:
		if sv.Bool() {
			return convertNumber(dst, reflect.ValueOf(1))
		}
		return convertNumber(dst, reflect.ValueOf(0))
	case isNumber(dst.Kind()) && isNumber(sv.Kind()):
		return convertNumber(dst, sv)
	case sv.Type().ConvertibleTo(dst.Type()):
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, sv.Type(), dst.Type())
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isBytes(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func toString(src any) string {
	switch v := src.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(src)
}

func toBool(v reflect.Value) (bool, error) {
	switch {
	case v.Kind() == reflect.Bool:
		return v.Bool(), nil
	case isInt(v.Kind()):
		return v.Int() != 0, nil
	case isUint(v.Kind()):
		return v.Uint() != 0, nil
	case v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64:
		return v.Float() != 0, nil
	case v.Kind() == reflect.String || isBytes(v):
		return strconv.ParseBool(toString(v.Interface()))
	}
	return false, fmt.Errorf("%w: %s to bool", ErrUnsupportedConversion, v.Type())
}

func toTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case string:
		return now.Parse(v)
	case []byte:
		return now.Parse(string(v))
	case int64:
		return time.Unix(v, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: %T to time.Time", ErrUnsupportedConversion, src)
}

func parseNumber(dst reflect.Value, s string) error {
	var (
		n   any
		err error
	)
	switch k := dst.Kind(); {
	case isInt(k):
		n, err = strconv.ParseInt(s, 10, 64)
	case isUint(k):
		n, err = strconv.ParseUint(s, 10, 64)
	default:
		n, err = strconv.ParseFloat(s, 64)
	}
	if err != nil {
		return fmt.Errorf("%w: %q to %s: %w", ErrUnsupportedConversion, s, dst.Type(), err)
	}
	return convertNumber(dst, reflect.ValueOf(n))
}

// convertNumber stores the number sv into the number dst. Values that do
// not fit, negative values for unsigned fields and fractions for integer
// fields are rejected.
func convertNumber(dst, sv reflect.Value) error {
	fail := func(reason string) error {
		return fmt.Errorf("%w: %v to %s %s", ErrUnsupportedConversion, sv.Interface(), dst.Type(), reason)
	}

	switch k := dst.Kind(); {
	case isInt(k):
		var n int64
		switch {
		case isInt(sv.Kind()):
			n = sv.Int()
		case isUint(sv.Kind()):
			if sv.Uint() > math.MaxInt64 {
				return fail("overflows")
			}
			n = int64(sv.Uint())
		default:
			f := sv.Float()
			if f != math.Trunc(f) {
				return fail("loses the fraction")
			}
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return fail("overflows")
			}
			n = int64(f)
		}
		if dst.OverflowInt(n) {
			return fail("overflows")
		}
		dst.SetInt(n)
	case isUint(k):
		var n uint64
		switch {
		case isInt(sv.Kind()):
			if sv.Int() < 0 {
				return fail("is negative")
			}
			n = uint64(sv.Int())
		case isUint(sv.Kind()):
			n = sv.Uint()
		default:
			f := sv.Float()
			if f != math.Trunc(f) {
				return fail("loses the fraction")
			}
			if f < 0 {
				return fail("is negative")
			}
			if f >= math.MaxUint64 {
				return fail("overflows")
			}
			n = uint64(f)
		}
		if dst.OverflowUint(n) {
			return fail("overflows")
		}
		dst.SetUint(n)
	default:
		var f float64
		switch {
		case isInt(sv.Kind()):
			f = float64(sv.Int())
		case isUint(sv.Kind()):
			f = float64(sv.Uint())
		default:
			f = sv.Float()
		}
		if dst.OverflowFloat(f) {
			return fail("overflows")
		}
		dst.SetFloat(f)
	}
	return nil
}
