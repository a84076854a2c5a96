package ir

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// Kind identifies the concrete type behind a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed interface representing a scalar substitution value.
// Only Null, String, Int, Float and Bool implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
	Kind() Kind
}

// Null represents a missing value.
type Null struct{}

func (Null) irValue()   {}
func (Null) Kind() Kind { return KindNull }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a text value.
type String string

func (String) irValue()   {}
func (String) Kind() Kind { return KindString }

// Int represents an integer value. Always int64.
type Int int64

func (Int) irValue()   {}
func (Int) Kind() Kind { return KindInt }

// Float represents a finite floating-point value.
type Float float64

func (Float) irValue()   {}
func (Float) Kind() Kind { return KindFloat }

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue()   {}
func (Bool) Kind() Kind { return KindBool }

// Row is a single result row: column name to scalar value.
// Use SortedKeys() for deterministic iteration.
type Row map[string]Value

// FromGo converts a native Go value into a Value.
//
// Accepted inputs are nil, Value, string, []byte, bool, every signed and
// unsigned integer type, float32/float64 and time.Time (RFC 3339 text).
// Non-finite floats and unsigned values above MaxInt64 are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		if f, ok := val.(Float); ok {
			return checkFloat(float64(f))
		}
		return val, nil
	case string:
		return String(val), nil
	case []byte:
		return String(string(val)), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint64:
		return fromUint(val)
	case float32:
		return checkFloat(float64(val))
	case float64:
		return checkFloat(val)
	case time.Time:
		return String(val.UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported scalar type: %T", v)
	}
}

// MustFromGo is like FromGo but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// ErrNonFinite is returned for NaN and infinite floats, which canonical
// JSON cannot represent.
var ErrNonFinite = errors.New("non-finite float is not a valid value")

func checkFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	return Float(f), nil
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Compare orders two values. Nulls sort first, numbers compare numerically
// across Int and Float, and otherwise values order by Kind and then by value.
func Compare(a, b Value) int {
	an, aNum := numeric(a)
	bn, bNum := numeric(b)
	if aNum && bNum {
		if ai, ok := a.(Int); ok {
			if bi, ok := b.(Int); ok {
				return cmp.Compare(ai, bi)
			}
		}
		return cmp.Compare(an, bn)
	}

	ak, bk := kindOf(a), kindOf(b)
	if ak != bk {
		return cmp.Compare(ak, bk)
	}

	switch av := a.(type) {
	case String:
		return strings.Compare(string(av), string(b.(String)))
	case Bool:
		bv := b.(Bool)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	}
	return 0
}

// Equal reports whether a and b hold the same kind and value.
func Equal(a, b Value) bool {
	return kindOf(a) == kindOf(b) && Compare(a, b) == 0
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// Format renders v for human-readable output: strings are quoted, floats
// use the canonical encoding, null prints as "null".
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return formatFloat(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatFloat produces the shortest round-trip representation and always
// keeps a fraction or exponent so the value decodes back to a Float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (r Row) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	return cmp.Compare(len(a16), len(b16))
}

// MarshalJSON implements json.Marshaler for Row with sorted keys.
// NOTE: Use MarshalCanonical for content-addressed hashing.
func (r Row) MarshalJSON() ([]byte, error) {
	return marshalCanonicalRow(r)
}

// UnmarshalJSON implements json.Unmarshaler for Row.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = make(Row, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("row key %q: %w", k, err)
		}
		(*r)[k] = val
	}
	return nil
}

// UnmarshalValue decodes a JSON scalar into a Value.
// Numbers with a fraction or exponent become Float, all others Int.
// Arrays and objects are rejected: values are scalars only.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("invalid float %s: %w", s, err)
			}
			return checkFloat(f)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	default:
		return nil, fmt.Errorf("non-scalar JSON value: %T", raw)
	}
}
