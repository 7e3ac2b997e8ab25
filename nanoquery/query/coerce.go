package query

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/arthur-debert/nanoquery/nanoquery/parser"
	"github.com/arthur-debert/nanoquery/types"
)

const maxSafeInteger = 1<<53 - 1

var (
	maxSafe = big.NewInt(maxSafeInteger)
	minSafe = big.NewInt(-maxSafeInteger)
)

// coerceToken converts a value token to the field's declared type. String
// fields keep the token text verbatim so that 1.50 stays "1.50".
func coerceToken(field types.Field, tok parser.Token) (any, bool) {
	if tok.Kind == parser.Null {
		return nil, true
	}
	if field.Type == types.String {
		return tok.Text(), true
	}
	return Coerce(field.Type, tok.Value())
}

// Coerce converts a raw value to vt. The second result is false when the
// value has no representation in vt; nil is valid for every type.
//
//	string  -> string
//	number  -> float64 (NaN and infinities rejected)
//	bigint  -> int64, or *big.Int outside ±(2^53-1)
//	boolean -> bool, from bools or the literals true/false
//	date    -> time.Time in UTC
func Coerce(vt types.ValueType, raw any) (any, bool) {
	if raw == nil {
		return nil, true
	}
	switch vt {
	case types.String:
		return toString(raw)
	case types.Number:
		return toNumber(raw)
	case types.BigInt:
		return toBigInt(raw)
	case types.Boolean:
		return toBool(raw)
	case types.Date:
		return toDate(raw)
	}
	return nil, false
}

func toString(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), true
	case *big.Int:
		return v.String(), true
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil, false
	}
	return s, true
}

func toNumber(raw any) (any, bool) {
	var f float64
	switch v := raw.(type) {
	case bool:
		return nil, false
	case *big.Int:
		f, _ = new(big.Float).SetInt(v).Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, false
		}
		parsed, err := cast.ToFloat64E(s)
		if err != nil {
			return nil, false
		}
		f = parsed
	default:
		parsed, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func toBigInt(raw any) (any, bool) {
	var n *big.Int
	switch v := raw.(type) {
	case bool:
		return nil, false
	case *big.Int:
		n = new(big.Int).Set(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, false
		}
		n, _ = big.NewFloat(v).Int(nil)
	case float32:
		return toBigInt(float64(v))
	case string:
		return parseBigInt(v)
	case json.Number:
		return parseBigInt(string(v))
	default:
		i, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, false
		}
		n = big.NewInt(i)
	}
	return normalizeInt(n), true
}

func parseBigInt(s string) (any, bool) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, false
	}
	return normalizeInt(n), true
}

func normalizeInt(n *big.Int) any {
	if n.Cmp(maxSafe) > 0 || n.Cmp(minSafe) < 0 {
		return n
	}
	return n.Int64()
}

func toBool(raw any) (any, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return nil, false
}

func toDate(raw any) (any, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}
		t, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(v), time.UTC)
		if err != nil {
			return nil, false
		}
		return t.UTC(), true
	}
	return nil, false
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
