// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package object

import (
	"testing"

	"github.com/probechain/ember/value"
)

func TestHashFNV1aDeterministic(t *testing.T) {
	if HashFNV1a("hello") != HashFNV1a("hello") {
		t.Error("HashFNV1a should be deterministic")
	}
	if HashFNV1a("hello") == HashFNV1a("world") {
		t.Error("HashFNV1a collided on distinct short inputs, suspiciously")
	}
}

func TestFunctionDisplayName(t *testing.T) {
	fn := NewFunction()
	if got := fn.DisplayName(); got != "<script>" {
		t.Errorf("unnamed function DisplayName = %q, want <script>", got)
	}
	fn.Name = NewString("add")
	if got := fn.DisplayName(); got != "<fn add>" {
		t.Errorf("named function DisplayName = %q, want <fn add>", got)
	}
}

func TestValueBoxingRoundTrip(t *testing.T) {
	s := NewString("hi")
	v := s.Value()
	if !v.IsObj() {
		t.Fatal("String.Value() should box as an object")
	}
	got := FromValue(v)
	if got.Type != TypeString || got.AsString() != s {
		t.Fatalf("FromValue round-trip broken: %+v", got)
	}
}

func TestTypeNameCoversEveryVariant(t *testing.T) {
	str := NewString("x")
	if got := TypeName(value.Nil); got != "nil" {
		t.Errorf("TypeName(nil) = %q", got)
	}
	if got := TypeName(value.True); got != "bool" {
		t.Errorf("TypeName(true) = %q", got)
	}
	if got := TypeName(value.Number(1)); got != "number" {
		t.Errorf("TypeName(number) = %q", got)
	}
	if got := TypeName(str.Value()); got != "string" {
		t.Errorf("TypeName(string) = %q", got)
	}
}

func TestUpvalueOpenAndClose(t *testing.T) {
	slot := value.Number(10)
	u := NewUpvalue(&slot)
	if !u.IsOpen() {
		t.Fatal("freshly created upvalue should be open")
	}
	slot = value.Number(20)
	u.Close()
	if u.IsOpen() {
		t.Fatal("closed upvalue should no longer report open")
	}
	if u.Closed.AsNumber() != 20 {
		t.Errorf("Close() should snapshot the current slot value, got %v", u.Closed.AsNumber())
	}
}

func TestListAndDictConstruction(t *testing.T) {
	l := NewList([]value.Value{value.Number(1), value.Number(2)})
	if len(l.Elements) != 2 {
		t.Fatalf("NewList elements = %d, want 2", len(l.Elements))
	}
	d := NewDict()
	key := NewString("k")
	d.Entries[key] = value.Number(5)
	if d.Entries[key].AsNumber() != 5 {
		t.Fatalf("dict entry not stored")
	}
}
