package pin

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
)

// maxExactInt is the largest magnitude a float64 represents without loss.
const maxExactInt = 1 << 53

// normalize converts v to the canonical representation stored for kind:
// numeric values become int64 when integral and float64 otherwise, lists
// become a private []string, and named string or bool types collapse to
// their underlying type. Values arriving from JSON (float64, []any) are
// accepted the same way as native Go values.
func normalize(kind Kind, v any, options []string) (any, error) {
	switch kind {
	case KindNumeric:
		if n, ok := number(v); ok {
			return n, nil
		}
	case KindBoolean:
		if rv := reflect.ValueOf(v); v != nil && rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindString, KindImage:
		if s, ok := str(v); ok {
			return s, nil
		}
	case KindEnum:
		if s, ok := str(v); ok {
			if len(options) > 0 && !slices.Contains(options, s) {
				return nil, fmt.Errorf("%w: %q is not one of %v", ErrTypeMismatch, s, options)
			}
			return s, nil
		}
	case KindList:
		if l, ok := stringList(v); ok {
			return l, nil
		}
	case KindEvent:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s pin cannot hold %T", ErrTypeMismatch, kind, v)
}

func str(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if _, isNumber := v.(json.Number); isNumber {
		return "", false
	}
	if rv := reflect.ValueOf(v); v != nil && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func stringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return slices.Clone(l), true
	case []any:
		out := make([]string, len(l))
		for i, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// number returns v as int64 when it is integral and fits, float64 otherwise.
// NaN and infinities are rejected since they cannot cross the JSON wire.
func number(v any) (any, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return fromFloat(f)
	}
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), true
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	}
	return nil, false
}

func fromFloat(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return int64(f), true
	}
	return f, true
}

// Float64 returns a numeric pin value as float64.
func Float64(v any) (float64, bool) {
	n, ok := number(v)
	if !ok {
		return 0, false
	}
	switch n := n.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Equal reports whether two pin values are the same. Numbers compare by
// value regardless of Go type, so the int 42 written locally equals the
// 42.0 decoded from a JSON request. String lists compare element-wise
// whether they are []string or []any.
func Equal(a, b any) bool {
	if na, ok := number(a); ok {
		nb, ok := number(b)
		if !ok {
			return false
		}
		ia, aInt := na.(int64)
		ib, bInt := nb.(int64)
		if aInt && bInt {
			return ia == ib
		}
		fa, _ := Float64(na)
		fb, _ := Float64(nb)
		return fa == fb
	}
	if la, ok := stringList(a); ok {
		lb, ok := stringList(b)
		return ok && slices.Equal(la, lb)
	}
	return reflect.DeepEqual(a, b)
}

func clone(v any) any {
	if l, ok := v.([]string); ok {
		return slices.Clone(l)
	}
	return v
}
