package filter

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Compare orders two scalar values. Numbers of any Go representation compare
// exactly with each other, times compare with times or parseable date strings,
// strings and booleans compare with their own kind. The second result is false
// when the values are not comparable (including when either is nil).
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	_, aTime := a.(time.Time)
	_, bTime := b.(time.Time)
	if aTime || bTime {
		ta, okA := toTime(a)
		tb, okB := toTime(b)
		if !okA || !okB {
			return 0, false
		}
		return ta.Compare(tb), true
	}

	na, okA := toNumber(a)
	nb, okB := toNumber(b)
	switch {
	case okA && okB:
		return na.Cmp(nb), true
	case okA:
		if s, ok := b.(string); ok {
			if nb, ok := parseNumber(s); ok {
				return na.Cmp(nb), true
			}
		}
		return 0, false
	case okB:
		if s, ok := a.(string); ok {
			if na, ok := parseNumber(s); ok {
				return na.Cmp(nb), true
			}
		}
		return 0, false
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

// ValuesEqual reports whether a stored value equals a comparison value.
// Nil equals only nil.
func ValuesEqual(a, b any) bool {
	if c, ok := Compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := cast.ToTimeInDefaultLocationE(t, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func toNumber(v any) (*big.Float, bool) {
	switch n := v.(type) {
	case int:
		return new(big.Float).SetInt64(int64(n)), true
	case int8:
		return new(big.Float).SetInt64(int64(n)), true
	case int16:
		return new(big.Float).SetInt64(int64(n)), true
	case int32:
		return new(big.Float).SetInt64(int64(n)), true
	case int64:
		return new(big.Float).SetInt64(n), true
	case uint:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Float).SetUint64(n), true
	case float32:
		return floatNumber(float64(n))
	case float64:
		return floatNumber(n)
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Float).SetInt(n), true
	case json.Number:
		return parseNumber(string(n))
	}
	return nil, false
}

func floatNumber(f float64) (*big.Float, bool) {
	if math.IsNaN(f) {
		return nil, false
	}
	return new(big.Float).SetFloat64(f), true
}

func parseNumber(s string) (*big.Float, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok {
		return nil, false
	}
	return f, true
}
