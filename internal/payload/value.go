package payload

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ErrUnsupported reports a Go value or YAML node with no payload representation.
var ErrUnsupported = errors.New("payload: unsupported value")

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed interface; only the types in this package implement it.
type Value interface {
	Kind() Kind
	payloadValue()
}

// Null is the absent value.
type Null struct{}

// String holds text.
type String string

// Int holds a signed 64-bit integer.
type Int int64

// Float holds a 64-bit float.
type Float float64

// Bool holds a boolean.
type Bool bool

// List is an ordered sequence of values.
type List []Value

// Pair is one entry of a Map.
type Pair struct {
	Key   Value
	Value Value
}

// Map is an ordered mapping. Keys may be any Value.
type Map []Pair

func (Null) Kind() Kind   { return KindNull }
func (String) Kind() Kind { return KindString }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (Bool) Kind() Kind   { return KindBool }
func (List) Kind() Kind   { return KindList }
func (Map) Kind() Kind    { return KindMap }

func (Null) payloadValue()   {}
func (String) payloadValue() {}
func (Int) payloadValue()    {}
func (Float) payloadValue()  {}
func (Bool) payloadValue()   {}
func (List) payloadValue()   {}
func (Map) payloadValue()    {}

// P is shorthand for a Pair with a string key.
func P(key string, value Value) Pair {
	return Pair{Key: String(key), Value: value}
}

// Get returns the value stored under key, comparing keys structurally.
func (m Map) Get(key Value) (Value, bool) {
	for _, pair := range m {
		if Equal(pair.Key, key) {
			return pair.Value, true
		}
	}
	return nil, false
}

// Equal reports whether two values are structurally identical. A nil Value
// equals Null. NaN floats compare equal to each other.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case String:
		return av == b.(String)
	case Int:
		return av == b.(Int)
	case Bool:
		return av == b.(Bool)
	case Float:
		bv := b.(Float)
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i].Key, bv[i].Key) || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// From converts a Go value into a Value. It accepts nil, Values, strings,
// booleans, every integer and float type, slices, arrays and maps built from
// those. Map entries are ordered by their encoded key so conversion is
// deterministic.
func From(v any) (Value, error) {
	switch tv := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return tv, nil
	case string:
		return String(tv), nil
	case bool:
		return Bool(tv), nil
	case int:
		return Int(tv), nil
	case int8:
		return Int(tv), nil
	case int16:
		return Int(tv), nil
	case int32:
		return Int(tv), nil
	case int64:
		return Int(tv), nil
	case uint8:
		return Int(tv), nil
	case uint16:
		return Int(tv), nil
	case uint32:
		return Int(tv), nil
	case float32:
		return Float(tv), nil
	case float64:
		return Float(tv), nil
	}
	return fromReflect(reflect.ValueOf(v))
}

// MustFrom is like From but panics on unsupported input. Intended for tests
// and literals.
func MustFrom(v any) Value {
	value, err := From(v)
	if err != nil {
		panic(err)
	}
	return value
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, u)
		}
		return Int(int64(u)), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return Int(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return From(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List{}, nil
		}
		list := make(List, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := From(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list = append(list, item)
		}
		return list, nil
	case reflect.Map:
		return fromMap(rv)
	case reflect.Invalid:
		return Null{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, rv.Type())
}

func fromMap(rv reflect.Value) (Value, error) {
	type entry struct {
		sortKey string
		pair    Pair
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := From(iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		value, err := From(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("map value for %v: %w", iter.Key().Interface(), err)
		}
		sortKey, err := Encode(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{sortKey: sortKey, pair: Pair{Key: key, Value: value}})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })
	out := make(Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.pair)
	}
	return out, nil
}

// Interface converts a Value back into plain Go data: nil, string, int64,
// float64, bool, []any, map[string]any when every key is a string, and
// map[any]any otherwise. Keys that are lists or maps are replaced by their
// encoded YAML text.
func Interface(v Value) any {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(tv)
	case Int:
		return int64(tv)
	case Float:
		return float64(tv)
	case Bool:
		return bool(tv)
	case List:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = Interface(item)
		}
		return out
	case Map:
		allStrings := true
		for _, pair := range tv {
			if pair.Key == nil || pair.Key.Kind() != KindString {
				allStrings = false
				break
			}
		}
		if allStrings {
			out := make(map[string]any, len(tv))
			for _, pair := range tv {
				out[string(pair.Key.(String))] = Interface(pair.Value)
			}
			return out
		}
		out := make(map[any]any, len(tv))
		for _, pair := range tv {
			key := Interface(pair.Key)
			switch key.(type) {
			case []any, map[string]any, map[any]any:
				encoded, err := Encode(pair.Key)
				if err != nil {
					encoded = fmt.Sprint(key)
				}
				key = encoded
			}
			out[key] = Interface(pair.Value)
		}
		return out
	}
	return nil
}
