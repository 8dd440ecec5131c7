package entities

import (
	"encoding/json"
	"testing"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null equals empty string", NullValue(), StringValue(""), true},
		{"null equals blank string", NullValue(), StringValue("   "), true},
		{"trimmed text", StringValue(" Val-Cit "), StringValue("Val-Cit"), true},
		{"case sensitive", StringValue("val-cit"), StringValue("Val-Cit"), false},
		{"numbers exact", NumberValue(3.5), NumberValue(3.5), true},
		{"numbers differ", NumberValue(3.5), NumberValue(3.50001), false},
		{"bools", BoolValue(true), BoolValue(false), false},
		{"kinds differ", StringValue("1"), NumberValue(1), false},
		{"null vs value", NullValue(), StringValue("ERBB2"), false},
		{"zero value is null", Value{}, NullValue(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal is not symmetric for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestValue_JSON(t *testing.T) {
	var fields Fields
	data := []byte(`{"a":"x","b":2.5,"c":true,"d":null}`)
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := fields.Get("a").AsString(); !ok || s != "x" {
		t.Errorf("expected string x, got %v", fields.Get("a"))
	}
	if n, ok := fields.Get("b").AsNumber(); !ok || n != 2.5 {
		t.Errorf("expected number 2.5, got %v", fields.Get("b"))
	}
	if !fields.Get("c").Truthy() {
		t.Errorf("expected c to be truthy")
	}
	if !fields.Get("d").IsNull() || !fields.Get("missing").IsNull() {
		t.Errorf("expected null for d and missing fields")
	}
}

func TestValue_JSONRejectsComposites(t *testing.T) {
	for _, raw := range []string{`{"a":{"nested":1}}`, `{"a":[1,2]}`} {
		var fields Fields
		if err := json.Unmarshal([]byte(raw), &fields); err == nil {
			t.Errorf("expected error decoding %s", raw)
		}
	}
}

func TestValue_Truthy(t *testing.T) {
	truthy := []Value{BoolValue(true), StringValue("true"), StringValue("Yes"), StringValue("1"), NumberValue(2)}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Errorf("expected %v to be truthy", v)
		}
	}
	falsy := []Value{NullValue(), BoolValue(false), StringValue("no"), StringValue(""), NumberValue(0)}
	for _, v := range falsy {
		if v.Truthy() {
			t.Errorf("expected %v to be falsy", v)
		}
	}
}

func TestFields_CloneIsIndependent(t *testing.T) {
	orig := Fields{"axis": StringValue("HER2")}
	clone := orig.Clone()
	clone["axis"] = StringValue("TROP2")
	if s, _ := orig.Get("axis").AsString(); s != "HER2" {
		t.Errorf("clone mutated original: %q", s)
	}
}
