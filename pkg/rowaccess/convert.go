package rowaccess

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// KindOf reports the column kind able to hold v. Defined types are
// classified by their underlying type.
func KindOf(v any) (Kind, bool) {
	if v == nil {
		return KindInvalid, false
	}
	return kindOfType(reflect.TypeOf(v))
}

func kindOfType(t reflect.Type) (Kind, bool) {
	if t.ConvertibleTo(timeType) && t.Kind() == reflect.Struct {
		return KindTime, true
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, true
	case reflect.Bool:
		return KindBool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindUint, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, true
		}
	}
	return KindInvalid, false
}

// Normalize converts v to the canonical Go value stored for kind: string,
// bool, int64, uint64, float64, []byte (copied) or time.Time.
func Normalize(kind Kind, v any) (any, error) {
	got, ok := KindOf(v)
	if !ok || got != kind {
		return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, kind)
	}
	rv := reflect.ValueOf(v)
	switch kind {
	case KindString:
		return rv.String(), nil
	case KindBool:
		return rv.Bool(), nil
	case KindInt:
		return rv.Int(), nil
	case KindUint:
		return rv.Uint(), nil
	case KindFloat:
		return rv.Float(), nil
	case KindBytes:
		b := rv.Bytes()
		if b == nil {
			return []byte(nil), nil
		}
		return append([]byte(nil), b...), nil
	case KindTime:
		return rv.Convert(timeType).Interface(), nil
	}
	return nil, fmt.Errorf("%w: unsupported kind %s", ErrTypeMismatch, kind)
}

// convertTo turns a stored value into T. A nil stored value is the zero T.
func convertTo[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	if v, ok := raw.(T); ok {
		if b, isBytes := any(v).([]byte); isBytes {
			return any(append([]byte(nil), b...)).(T), nil
		}
		return v, nil
	}
	target := reflect.TypeOf(&zero).Elem()
	rv := reflect.ValueOf(raw)
	if !rv.Type().ConvertibleTo(target) {
		return zero, fmt.Errorf("%w: cannot read %T as %s", ErrTypeMismatch, raw, target)
	}
	if k, _ := kindOfType(target); k == KindString && rv.Kind() != reflect.String {
		// int -> string conversion is legal Go but never what storage means
		return zero, fmt.Errorf("%w: cannot read %T as %s", ErrTypeMismatch, raw, target)
	}
	if overflows(rv, target) {
		return zero, fmt.Errorf("%w: %v does not fit in %s", ErrTypeMismatch, raw, target)
	}
	return rv.Convert(target).Interface().(T), nil
}

// overflows reports whether converting the numeric value rv to target would
// change it.
func overflows(rv reflect.Value, target reflect.Type) bool {
	out := reflect.New(target).Elem()
	switch out.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return out.OverflowInt(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			u := rv.Uint()
			return u > math.MaxInt64 || out.OverflowInt(int64(u))
		case reflect.Float32, reflect.Float64:
			return true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i := rv.Int()
			return i < 0 || out.OverflowUint(uint64(i))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return out.OverflowUint(rv.Uint())
		case reflect.Float32, reflect.Float64:
			return true
		}
	case reflect.Float32, reflect.Float64:
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return out.OverflowFloat(rv.Float())
		}
	}
	return false
}
