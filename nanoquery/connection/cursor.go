package connection

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

// Cursor is a resume position: the identity of a row and, when the
// connection is ordered by a field other than id, that row's sort value.
type Cursor struct {
	ID    any
	Value any
	// HasValue separates a null sort value from no sort value
	HasValue bool
}

// NewCursor creates a cursor for a row identity
func NewCursor(id any) Cursor {
	return Cursor{ID: normalize(id)}
}

// WithValue returns a copy of the cursor carrying a sort value
func (c Cursor) WithValue(v any) Cursor {
	c.Value = normalize(v)
	c.HasValue = true
	return c
}

type wireValue struct {
	Type string `json:"t"`
	Val  string `json:"v,omitempty"`
}

type wireCursor struct {
	ID    wireValue  `json:"id"`
	Value *wireValue `json:"value,omitempty"`
}

// EncodeCursor serialises a cursor into an opaque URL-safe string
func EncodeCursor(c Cursor) string {
	w := wireCursor{ID: encodeValue(normalize(c.ID))}
	if c.HasValue {
		v := encodeValue(normalize(c.Value))
		w.Value = &v
	}
	// wireCursor only holds strings, so Marshal cannot fail
	data, _ := json.Marshal(w)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a string produced by EncodeCursor. Any failure is a
// *CursorDecodeError.
func DecodeCursor(s string) (Cursor, error) {
	fail := func(err error) (Cursor, error) {
		return Cursor{}, &CursorDecodeError{Cursor: s, Err: err}
	}
	if s == "" {
		return fail(errors.New("empty cursor"))
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return fail(err)
	}

	var w wireCursor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return fail(err)
	}

	id, err := decodeValue(w.ID)
	if err != nil {
		return fail(fmt.Errorf("id: %w", err))
	}
	if id == nil {
		return fail(errors.New("missing id"))
	}

	c := Cursor{ID: id}
	if w.Value != nil {
		v, err := decodeValue(*w.Value)
		if err != nil {
			return fail(fmt.Errorf("value: %w", err))
		}
		c.Value = v
		c.HasValue = true
	}
	return c, nil
}

const (
	typeNull   = "null"
	typeString = "string"
	typeInt    = "int"
	typeBigInt = "bigint"
	typeFloat  = "float"
	typeBool   = "bool"
	typeTime   = "time"
)

func encodeValue(v any) wireValue {
	switch t := v.(type) {
	case nil:
		return wireValue{Type: typeNull}
	case string:
		return wireValue{Type: typeString, Val: t}
	case int64:
		return wireValue{Type: typeInt, Val: strconv.FormatInt(t, 10)}
	case *big.Int:
		return wireValue{Type: typeBigInt, Val: t.String()}
	case float64:
		return wireValue{Type: typeFloat, Val: strconv.FormatFloat(t, 'g', -1, 64)}
	case bool:
		return wireValue{Type: typeBool, Val: strconv.FormatBool(t)}
	case time.Time:
		return wireValue{Type: typeTime, Val: t.Format(time.RFC3339Nano)}
	}
	return wireValue{Type: typeString, Val: fmt.Sprint(v)}
}

func decodeValue(w wireValue) (any, error) {
	switch w.Type {
	case typeNull:
		return nil, nil
	case typeString:
		return w.Val, nil
	case typeInt:
		return strconv.ParseInt(w.Val, 10, 64)
	case typeBigInt:
		n, ok := new(big.Int).SetString(w.Val, 10)
		if !ok {
			return nil, fmt.Errorf("invalid bigint %q", w.Val)
		}
		return n, nil
	case typeFloat:
		return strconv.ParseFloat(w.Val, 64)
	case typeBool:
		return strconv.ParseBool(w.Val)
	case typeTime:
		t, err := time.Parse(time.RFC3339Nano, w.Val)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("unknown value type %q", w.Type)
}

// normalize maps a row value onto the small set of types a cursor carries,
// so a cursor built from a row compares equal to its decoded form
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return v
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case float32:
		return float64(t)
	case *big.Int:
		if t == nil {
			return nil
		}
		if t.IsInt64() {
			return t.Int64()
		}
		return new(big.Int).Set(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if n, ok := new(big.Int).SetString(string(t), 10); ok {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	case time.Time:
		return t.UTC().Round(0)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return new(big.Int).SetUint64(u)
	}
	return int64(u)
}
