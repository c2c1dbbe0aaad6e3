// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package object defines the heap object model: strings, functions,
// closures, upvalues, lists, dicts, natives, and coroutines. Every variant
// shares the Object header so the collector in package heap can walk one
// intrusive linked list regardless of concrete type.
package object

import (
	"github.com/probechain/ember/bytecode"
	"github.com/probechain/ember/value"
)

// Type tags the variant of a heap Object.
type Type uint8

const (
	TypeString Type = iota
	TypeFunction
	TypeClosure
	TypeUpvalue
	TypeList
	TypeDict
	TypeNative
	TypeCoroutine
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	case TypeClosure:
		return "closure"
	case TypeUpvalue:
		return "upvalue"
	case TypeList:
		return "list"
	case TypeDict:
		return "dict"
	case TypeNative:
		return "native"
	case TypeCoroutine:
		return "coroutine"
	}
	return "unknown"
}

// Object is the common header for every heap entity: its variant tag, the
// GC mark bit, the intrusive Next pointer threading it into the heap's
// global object list (see heap.Heap), and a typed payload pointer. Next
// being a real Go pointer is what keeps Payload reachable to Go's own
// garbage collector even though value.Value hides object pointers inside
// NaN-boxed bits (see package value's doc comment).
type Object struct {
	Type    Type
	Marked  bool
	Next    *Object
	Payload any
}

// Value boxes o back into a value.Value tagged as an object.
func (o *Object) Value() value.Value { return value.Box(o) }

// FromValue unboxes v (which must satisfy v.IsObj()) back to its Object
// header.
func FromValue(v value.Value) *Object { return value.Unbox[Object](v) }

func (o *Object) AsString() *String       { return o.Payload.(*String) }
func (o *Object) AsFunction() *Function   { return o.Payload.(*Function) }
func (o *Object) AsClosure() *Closure     { return o.Payload.(*Closure) }
func (o *Object) AsUpvalue() *Upvalue     { return o.Payload.(*Upvalue) }
func (o *Object) AsList() *List           { return o.Payload.(*List) }
func (o *Object) AsDict() *Dict           { return o.Payload.(*Dict) }
func (o *Object) AsNative() *Native       { return o.Payload.(*Native) }
func (o *Object) AsCoroutine() *Coroutine { return o.Payload.(*Coroutine) }

// String is an interned, FNV-1a-hashed character buffer. Any two Strings
// with equal hash and bytes share the same Object — see the intern set
// owned by package heap.
type String struct {
	Obj   *Object
	Chars string
	Hash  uint32
}

// NewString wraps chars in a freshly allocated, UNINTERNED Object/String
// pair. Callers normally go through heap.Heap.NewString instead so the
// interning invariant (equal bytes => same pointer) is maintained; this
// constructor exists for that intern path itself and for tests.
func NewString(chars string) *String {
	s := &String{Chars: chars, Hash: HashFNV1a(chars)}
	s.Obj = &Object{Type: TypeString, Payload: s}
	return s
}

// Value boxes s back into a value.Value tagged as an object, a convenience
// so callers holding a concrete *String need not reach through s.Obj.
func (s *String) Value() value.Value { return s.Obj.Value() }

// HashFNV1a computes the 32-bit FNV-1a hash used to key the intern set.
func HashFNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// Function is a compiled, callable unit: its arity, how many upvalues its
// closures must capture, an optional name (nil for the implicit top-level
// "<script>" function), and its bytecode chunk.
type Function struct {
	Obj          *Object
	Arity        int
	UpvalueCount int
	Name         *String // nil => "<script>"
	Chunk        *bytecode.Chunk

	// IsCoroutine marks a function declared with `coroutine name(...) {}`:
	// CALLing a Closure over such a Function produces a suspended
	// Coroutine rather than entering the body inline (see package vm's
	// call protocol).
	IsCoroutine bool
}

func NewFunction() *Function {
	f := &Function{Chunk: bytecode.NewChunk()}
	f.Obj = &Object{Type: TypeFunction, Payload: f}
	return f
}

// Value boxes f back into a value.Value tagged as an object.
func (f *Function) Value() value.Value { return f.Obj.Value() }

func (f *Function) DisplayName() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// Upvalue represents a captured local. While the enclosing frame is alive
// it is "open" and Location points at the owning VM stack slot; Close
// copies the value out and flips Location to &Closed so the reference
// remains valid after the frame returns.
type Upvalue struct {
	Obj      *Object
	Location *value.Value
	Closed   value.Value
	NextOpen *Upvalue // intrusive list, sorted by descending stack address
}

func NewUpvalue(slot *value.Value) *Upvalue {
	u := &Upvalue{Location: slot}
	u.Obj = &Object{Type: TypeUpvalue, Payload: u}
	return u
}

func (u *Upvalue) IsOpen() bool { return u.Location != &u.Closed }

func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Closure pairs a Function with the concrete Upvalues it closed over.
type Closure struct {
	Obj      *Object
	Function *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function) *Closure {
	c := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	c.Obj = &Object{Type: TypeClosure, Payload: c}
	return c
}

// Value boxes c back into a value.Value tagged as an object.
func (c *Closure) Value() value.Value { return c.Obj.Value() }

// List is a dynamic, heterogeneous sequence of Values.
type List struct {
	Obj      *Object
	Elements []value.Value
}

func NewList(elems []value.Value) *List {
	l := &List{Elements: elems}
	l.Obj = &Object{Type: TypeList, Payload: l}
	return l
}

// Value boxes l back into a value.Value tagged as an object.
func (l *List) Value() value.Value { return l.Obj.Value() }

// Dict is a hash map keyed by interned String pointers (identity-comparable
// because of interning) to Values. A duplicate key literal overwrites the
// earlier entry, retaining the last-written value per spec.
type Dict struct {
	Obj     *Object
	Entries map[*String]value.Value
}

func NewDict() *Dict {
	d := &Dict{Entries: make(map[*String]value.Value)}
	d.Obj = &Object{Type: TypeDict, Payload: d}
	return d
}

// Value boxes d back into a value.Value tagged as an object.
func (d *Dict) Value() value.Value { return d.Obj.Value() }

// NativeFn is the native-function calling convention: it receives the
// pushed arguments and returns either a result value or an error.
type NativeFn func(args []value.Value) (value.Value, error)

// Native wraps a host function pointer with its declared arity. Arity -1
// marks a variadic native (no arity check is performed even when
// NATIVE_ARITY_CHECKING is on).
type Native struct {
	Obj   *Object
	Name  string
	Arity int
	Fn    NativeFn
}

func NewNative(name string, arity int, fn NativeFn) *Native {
	n := &Native{Name: name, Arity: arity, Fn: fn}
	n.Obj = &Object{Type: TypeNative, Payload: n}
	return n
}

// Value boxes n back into a value.Value tagged as an object.
func (n *Native) Value() value.Value { return n.Obj.Value() }

// TypeName returns a short name used in runtime type-mismatch error
// messages.
func TypeName(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsObj():
		return FromValue(v).Type.String()
	}
	return "unknown"
}
