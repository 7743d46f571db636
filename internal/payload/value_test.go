package payload_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"rowq/internal/payload"
)

func TestFromConvertsGoValues(t *testing.T) {
	type label string

	got, err := payload.From(map[string]any{
		"id":     uint16(7),
		"name":   label("mailer"),
		"weight": float32(0.25),
		"flags":  []bool{true, false},
		"owner":  (*string)(nil),
	})
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	want := payload.Map{
		payload.P("flags", payload.List{payload.Bool(true), payload.Bool(false)}),
		payload.P("id", payload.Int(7)),
		payload.P("name", payload.String("mailer")),
		payload.P("owner", payload.Null{}),
		payload.P("weight", payload.Float(0.25)),
	}
	if !payload.Equal(got, want) {
		t.Fatalf("unexpected conversion:\n got %#v\nwant %#v", got, want)
	}
}

func TestFromRejectsOverflowingUint(t *testing.T) {
	_, err := payload.From(uint64(math.MaxUint64))
	if !errors.Is(err, payload.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestInterfaceConvertsBack(t *testing.T) {
	value := payload.Map{
		payload.P("n", payload.Int(3)),
		payload.P("items", payload.List{payload.String("a"), payload.Float(1.5)}),
		payload.P("ok", payload.Bool(true)),
		payload.P("none", payload.Null{}),
	}
	got := payload.Interface(value)
	want := map[string]any{
		"n":     int64(3),
		"items": []any{"a", 1.5},
		"ok":    true,
		"none":  nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected interface value: %#v", got)
	}
}

func TestInterfaceUsesAnyKeysForMixedMaps(t *testing.T) {
	value := payload.Map{
		{Key: payload.Int(1), Value: payload.String("one")},
		{Key: payload.String("two"), Value: payload.Int(2)},
	}
	got, ok := payload.Interface(value).(map[any]any)
	if !ok {
		t.Fatalf("expected map[any]any, got %T", payload.Interface(value))
	}
	if got[int64(1)] != "one" || got["two"] != int64(2) {
		t.Fatalf("unexpected map: %#v", got)
	}
}

func TestEqualDistinguishesKinds(t *testing.T) {
	if payload.Equal(payload.String("1"), payload.Int(1)) {
		t.Fatal("string and int must differ")
	}
	if payload.Equal(payload.Int(1), payload.Float(1)) {
		t.Fatal("int and float must differ")
	}
	if !payload.Equal(nil, payload.Null{}) {
		t.Fatal("nil should equal Null")
	}
	if payload.Equal(payload.Map{payload.P("a", payload.Int(1))}, payload.Map{payload.P("b", payload.Int(1))}) {
		t.Fatal("maps with different keys must differ")
	}
}

func TestKindString(t *testing.T) {
	if payload.KindMap.String() != "map" || payload.Float(1).Kind().String() != "float" {
		t.Fatal("unexpected kind names")
	}
}
