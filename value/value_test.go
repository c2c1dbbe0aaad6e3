// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package value

import (
	"math"
	"testing"
)

func TestSingletonsDistinct(t *testing.T) {
	vals := []Value{Nil, True, False, Sentinel}
	for i := range vals {
		for j := range vals {
			if i == j {
				continue
			}
			if vals[i] == vals[j] {
				t.Fatalf("singleton %d and %d collide", i, j)
			}
		}
	}
}

func TestNumberRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.5, -273.15, 1e300, -1e-300}
	for _, f := range cases {
		v := Number(f)
		if !v.IsNumber() {
			t.Fatalf("Number(%v) not IsNumber", f)
		}
		if got := v.AsNumber(); got != f {
			t.Errorf("Number(%v) round-trip = %v", f, got)
		}
	}
}

func TestNumberCanonicalizesNaN(t *testing.T) {
	zero := Number(0)
	if !zero.IsNumber() {
		t.Fatalf("Number(0) should be a number")
	}
	// every NaN payload boxes to the same word, which is still a number.
	nan := Number(math.NaN())
	if !nan.IsNumber() || !math.IsNaN(nan.AsNumber()) {
		t.Fatalf("Number(NaN) should box as a NaN number")
	}
	if other := Number(math.Float64frombits(0xfff8000000000123)); other != nan {
		t.Errorf("NaN payloads should canonicalize to one Value, got %x and %x", uint64(other), uint64(nan))
	}
}

func TestBoolRoundTrip(t *testing.T) {
	if !Bool(true).IsBool() || Bool(true).AsBool() != true {
		t.Error("Bool(true) broken")
	}
	if !Bool(false).IsBool() || Bool(false).AsBool() != false {
		t.Error("Bool(false) broken")
	}
	if Bool(true) != True || Bool(false) != False {
		t.Error("Bool should alias the True/False singletons")
	}
}

func TestIsFalsey(t *testing.T) {
	falsey := []Value{Nil, False}
	truthy := []Value{True, Number(0), Number(1), Number(-1)}
	for _, v := range falsey {
		if !v.IsFalsey() {
			t.Errorf("%v should be falsey", v)
		}
	}
	for _, v := range truthy {
		if v.IsFalsey() {
			t.Errorf("%v should be truthy", v)
		}
	}
}

func TestBoxUnboxRoundTrip(t *testing.T) {
	type payload struct{ N int }
	p := &payload{N: 42}
	v := Box(p)
	if !v.IsObj() {
		t.Fatalf("boxed value should report IsObj")
	}
	if v.IsNumber() || v.IsNil() || v.IsBool() {
		t.Fatalf("boxed value should not alias any other variant")
	}
	got := Unbox[payload](v)
	if got != p {
		t.Fatalf("Unbox returned %p, want %p", got, p)
	}
	if got.N != 42 {
		t.Fatalf("Unbox payload corrupted: %+v", got)
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Number(1), Number(1.0)) {
		t.Error("equal numbers should compare equal")
	}
	if Equal(Number(1), Number(2)) {
		t.Error("different numbers should not compare equal")
	}
	if !Equal(Nil, Nil) {
		t.Error("Nil should equal itself")
	}
	if Equal(Nil, False) {
		t.Error("Nil and False are distinct values")
	}
}

func TestRawPointerStableAcrossBoxings(t *testing.T) {
	type payload struct{ N int }
	p := &payload{N: 7}
	v1 := Box(p)
	v2 := Box(p)
	if v1 != v2 {
		t.Fatalf("boxing the same pointer twice should produce identical Values")
	}
	if v1.RawPointer() != v2.RawPointer() {
		t.Fatalf("RawPointer should be stable for the same underlying pointer")
	}
}
