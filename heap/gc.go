// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package heap

import (
	"strconv"

	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
)

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }

// RootSet is everything the VM and compiler consider a GC root at the
// moment Collect is called (spec.md §4.C, points 1-6). Point 7 — every
// suspended coroutine reachable via any of the above — is why package vm's
// rootSet() flattens the active coroutine's ResumedBy chain into Stack and
// the rest below before calling Collect: a coroutine suspended mid-AWAIT
// keeps its live state in a Caller snapshot rather than its own
// Stack/Frames/OpenUpvalues fields, so markChildren's Coroutine case alone
// would miss it.
type RootSet struct {
	// Stack is every Value live on the currently active execution
	// context's value stack, base to top.
	Stack []value.Value
	// FrameClosures is the Closure of every active CallFrame.
	FrameClosures []*object.Closure
	// OpenUpvalues is the currently active open-upvalue chain.
	OpenUpvalues []*object.Upvalue
	// Globals is the VM's global variable table.
	Globals map[*object.String]value.Value
	// CompilingFunctions walks the enclosing-compiler chain: every
	// Function currently under compilation.
	CompilingFunctions []*object.Function
}

// Collect runs one tri-color mark-sweep cycle rooted at roots, then doubles
// next_gc (spec.md §4.A "next_gc doubles after each collection").
func (h *Heap) Collect(roots RootSet) {
	if h.LogGC {
		h.Log("-- gc begin")
	}

	var gray []*object.Object
	mark := func(o *object.Object) {
		if o == nil || o.Marked {
			return
		}
		o.Marked = true
		gray = append(gray, o)
		if h.LogGC {
			h.Log("mark " + o.Type.String())
		}
	}
	markValue := func(v value.Value) {
		if v.IsObj() {
			mark(object.FromValue(v))
		}
	}

	for _, v := range roots.Stack {
		markValue(v)
	}
	for _, c := range roots.FrameClosures {
		if c != nil {
			mark(c.Obj)
		}
	}
	for _, u := range roots.OpenUpvalues {
		mark(u.Obj)
	}
	for k, v := range roots.Globals {
		mark(k.Obj)
		markValue(v)
	}
	for _, f := range roots.CompilingFunctions {
		if f != nil {
			mark(f.Obj)
		}
	}

	// Interned strings are weak roots: they are NOT marked here. Any
	// string also reachable through the roots above gets marked while we
	// drain the gray worklist; anything left unmarked afterward is pruned
	// from the intern table below, before sweep.
	for len(gray) > 0 {
		o := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		h.markChildren(o, mark, markValue)
	}

	// Drop weak references to now-dead strings so the intern table never
	// keeps a string alive on its own.
	for key, s := range h.strings {
		if !s.Obj.Marked {
			delete(h.strings, key)
		}
	}

	h.sweep()
	h.nextGC *= growFactor
	if h.nextGC < defaultNextGC {
		h.nextGC = defaultNextGC
	}

	if h.LogGC {
		h.Log("-- gc end")
	}
}

// markChildren pushes o's object-kind-specific children onto the gray
// worklist via mark/markValue, per the traversal table in spec.md §4.C.
func (h *Heap) markChildren(o *object.Object, mark func(*object.Object), markValue func(value.Value)) {
	switch o.Type {
	case object.TypeString, object.TypeNative:
		// no children
	case object.TypeFunction:
		fn := o.AsFunction()
		if fn.Name != nil {
			mark(fn.Name.Obj)
		}
		for _, c := range fn.Chunk.Constants {
			markValue(c)
		}
	case object.TypeClosure:
		cl := o.AsClosure()
		mark(cl.Function.Obj)
		for _, u := range cl.Upvalues {
			if u != nil {
				mark(u.Obj)
			}
		}
	case object.TypeUpvalue:
		u := o.AsUpvalue()
		if !u.IsOpen() {
			markValue(u.Closed)
		}
	case object.TypeList:
		for _, v := range o.AsList().Elements {
			markValue(v)
		}
	case object.TypeDict:
		d := o.AsDict()
		for k, v := range d.Entries {
			mark(k.Obj)
			markValue(v)
		}
	case object.TypeCoroutine:
		co := o.AsCoroutine()
		mark(co.Main.Obj)
		for _, v := range co.Stack {
			markValue(v)
		}
		for _, fr := range co.Frames {
			if fr.Closure != nil {
				mark(fr.Closure.Obj)
			}
		}
		for u := co.OpenUpvalues; u != nil; u = u.NextOpen {
			mark(u.Obj)
		}
		for _, v := range co.PendingArgs {
			markValue(v)
		}
		if !co.ResumeValue.IsSentinel() {
			markValue(co.ResumeValue)
		}
	}
}

// sweep walks the global object list, freeing every object left unmarked
// and clearing the mark bit on every survivor (spec.md §4.C Sweep).
func (h *Heap) sweep() {
	var prev *object.Object
	node := h.head
	for node != nil {
		if node.Marked {
			node.Marked = false
			prev = node
			node = node.Next
			continue
		}
		unreached := node
		node = node.Next
		if prev == nil {
			h.head = node
		} else {
			prev.Next = node
		}
		h.bytes -= objectSize(unreached)
		h.count--
		if h.LogGC {
			h.Log("free " + unreached.Type.String())
		}
	}
}

// objectSize estimates the byte cost accounted at allocation time, mirrored
// here so sweep can subtract it back out of bytesAllocated.
func objectSize(o *object.Object) uint64 {
	switch o.Type {
	case object.TypeString:
		return uint64(24 + len(o.AsString().Chars))
	case object.TypeFunction:
		return 64
	case object.TypeClosure:
		return uint64(32 + 8*len(o.AsClosure().Upvalues))
	case object.TypeUpvalue:
		return 24
	case object.TypeList:
		return uint64(24 + 8*len(o.AsList().Elements))
	case object.TypeDict:
		return 48
	case object.TypeNative:
		return 48
	case object.TypeCoroutine:
		return 256
	}
	return 0
}
