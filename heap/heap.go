// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package heap implements the precise tri-color mark-sweep collector: the
// allocation primitive every Object routes through, the weak string-intern
// set, and the mark/sweep traversal itself. It cooperates with the
// compiler (roots: in-flight functions) and the VM (roots: stack, frames,
// open upvalues, globals table) without depending on either package —
// both hand the collector a RootSet built from their own state.
package heap

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
)

// growFactor is how much next_gc multiplies by after each collection,
// amortizing collection cost against allocation volume (spec.md §4.A).
const growFactor = 2

// internKey identifies an interned string by its (hash, bytes) pair, which
// is exactly the invariant spec.md §3 requires for interning.
type internKey struct {
	hash  uint32
	chars string
}

// Heap owns every live Object (threaded through Object.Next) plus the weak
// string-intern table. A zero Heap is not usable; use New.
type Heap struct {
	head      *object.Object // head of the intrusive global object list
	bytes     uint64
	nextGC    uint64
	strings   map[internKey]*object.String // weak: swept after mark, before sweep
	count     int

	// StressGC, when true, forces a collection on every allocation
	// (spec.md §6 DEBUG_STRESS_GC).
	StressGC bool
	// LogGC, when true, reports each alloc/mark/free decision as a plain
	// text line through Log (spec.md §6 DEBUG_LOG_GC).
	LogGC bool
	// Log receives LogGC trace lines; defaults to a no-op in New.
	Log func(string)
}

const defaultNextGC = 1 << 20 // 1 MiB, matches clox's starting threshold

// New returns an empty Heap.
func New() *Heap {
	return &Heap{
		strings: make(map[internKey]*object.String),
		nextGC:  defaultNextGC,
		Log:     func(string) {},
	}
}

// BytesAllocated and NextGC expose the allocation accounting used by the
// VM's trigger discipline (spec.md §4.C "Trigger discipline").
func (h *Heap) BytesAllocated() uint64 { return h.bytes }
func (h *Heap) NextGC() uint64         { return h.nextGC }
func (h *Heap) ObjectCount() int       { return h.count }

// ShouldCollect reports whether an allocation-triggered collection is due,
// per spec.md §3 Lifecycle ("triggered when bytes_allocated > next_gc").
func (h *Heap) ShouldCollect() bool {
	return h.StressGC || h.bytes > h.nextGC
}

// track links a freshly built Object into the global list and accounts for
// its size, implementing the allocate() primitive of spec.md §4.A (minus
// the "maybe collect first" step, which callers perform via ShouldCollect
// before constructing the object, since Go object construction itself
// cannot be interrupted mid-allocation the way a manual allocator can).
func (h *Heap) track(o *object.Object, size uint64) {
	o.Marked = false
	o.Next = h.head
	h.head = o
	h.bytes += size
	h.count++
	if h.LogGC {
		h.Log("alloc " + o.Type.String() + " size=" + itoa(size))
	}
}

// NewString interns chars, returning the canonical *object.String for its
// bytes. This is the single entry point for string construction; it
// implements all three ownership modes described in spec.md §4.A (copy,
// take, ref) because in Go there is no separate "caller-owned buffer" to
// free or adopt — every Go string is already an immutable, safely shared
// value, so copy/take/ref collapse to the same operation here. On an
// intern hit, no new Object is allocated.
func (h *Heap) NewString(chars string) *object.String {
	key := internKey{hash: object.HashFNV1a(chars), chars: chars}
	if s, ok := h.strings[key]; ok {
		return s
	}
	s := object.NewString(chars)
	s.Hash = key.hash
	h.track(s.Obj, uint64(24+len(chars)))
	h.strings[key] = s
	return s
}

func (h *Heap) NewFunction() *object.Function {
	f := object.NewFunction()
	h.track(f.Obj, 64)
	return f
}

func (h *Heap) NewClosure(fn *object.Function) *object.Closure {
	c := object.NewClosure(fn)
	h.track(c.Obj, uint64(32+8*len(c.Upvalues)))
	return c
}

func (h *Heap) NewUpvalue(slot *value.Value) *object.Upvalue {
	u := object.NewUpvalue(slot)
	h.track(u.Obj, 24)
	return u
}

func (h *Heap) NewList(elems []value.Value) *object.List {
	l := object.NewList(elems)
	h.track(l.Obj, uint64(24+8*len(elems)))
	return l
}

func (h *Heap) NewDict() *object.Dict {
	d := object.NewDict()
	h.track(d.Obj, 48)
	return d
}

func (h *Heap) NewNative(name string, arity int, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, arity, fn)
	h.track(n.Obj, 48)
	return n
}

func (h *Heap) NewCoroutine(id string, main *object.Closure) *object.Coroutine {
	co := object.NewCoroutine(id, main)
	h.track(co.Obj, 256)
	return co
}

// DumpValue is used under DEBUG_PRINT_CODE / DEBUG_TRACE_EXECUTION to render a
// Value for tracing without the collector or VM needing a hand-rolled
// pretty-printer for every object kind.
func DumpValue(v value.Value) string {
	return spew.Sdump(v)
}
