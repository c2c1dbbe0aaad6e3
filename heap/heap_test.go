// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package heap

import (
	"testing"

	"github.com/probechain/ember/value"
)

func TestNewStringInterns(t *testing.T) {
	h := New()
	a := h.NewString("hello")
	b := h.NewString("hello")
	if a != b {
		t.Fatalf("equal strings should intern to the same Object, got %p and %p", a, b)
	}
	c := h.NewString("goodbye")
	if a == c {
		t.Fatalf("distinct strings should not share an Object")
	}
}

func TestObjectCountAndBytesAccounting(t *testing.T) {
	h := New()
	before := h.ObjectCount()
	h.NewString("x")
	if h.ObjectCount() != before+1 {
		t.Errorf("ObjectCount after one allocation = %d, want %d", h.ObjectCount(), before+1)
	}
	if h.BytesAllocated() == 0 {
		t.Error("BytesAllocated should be nonzero after an allocation")
	}
}

func TestShouldCollectRespectsStressGC(t *testing.T) {
	h := New()
	if h.ShouldCollect() {
		t.Fatal("fresh heap should not need collection")
	}
	h.StressGC = true
	if !h.ShouldCollect() {
		t.Fatal("StressGC should force ShouldCollect true")
	}
}

func TestCollectSweepsUnreachableString(t *testing.T) {
	h := New()
	h.NewString("garbage")
	if h.ObjectCount() != 1 {
		t.Fatalf("expected one live object before collection, got %d", h.ObjectCount())
	}
	h.Collect(RootSet{})
	if h.ObjectCount() != 0 {
		t.Fatalf("unreachable string should be swept, ObjectCount = %d", h.ObjectCount())
	}
}

func TestCollectKeepsRootedString(t *testing.T) {
	h := New()
	s := h.NewString("kept")
	roots := RootSet{Stack: []value.Value{s.Value()}}
	h.Collect(roots)
	if h.ObjectCount() != 1 {
		t.Fatalf("rooted string should survive collection, ObjectCount = %d", h.ObjectCount())
	}
}

func TestCollectPrunesDeadInternEntryButKeepsLiveOne(t *testing.T) {
	h := New()
	dead := h.NewString("dead")
	live := h.NewString("live")
	roots := RootSet{Stack: []value.Value{live.Value()}}
	h.Collect(roots)

	if got := h.NewString("live"); got != live {
		t.Fatalf("live string should still be interned to the same object")
	}
	// Re-interning "dead" after it was swept must allocate a fresh Object,
	// not resurrect the collected one (the strings table must have been
	// pruned of entries whose Object didn't survive marking).
	resurrected := h.NewString("dead")
	if resurrected == dead {
		t.Fatalf("swept string should not still be reachable through the intern table")
	}
}

func TestCollectTraversesListAndDictChildren(t *testing.T) {
	h := New()
	inner := h.NewString("nested")
	l := h.NewList([]value.Value{inner.Value()})
	d := h.NewDict()
	key := h.NewString("key")
	d.Entries[key] = h.NewString("entry").Value()
	roots := RootSet{Stack: []value.Value{l.Value(), d.Value()}}
	h.Collect(roots)

	if h.ObjectCount() != 5 {
		t.Fatalf("list, dict, and their nested strings should all survive, ObjectCount = %d", h.ObjectCount())
	}
}

func TestCollectTraversesClosureUpvalues(t *testing.T) {
	h := New()
	fn := h.NewFunction()
	fn.UpvalueCount = 1
	closure := h.NewClosure(fn)
	slot := value.Nil
	up := h.NewUpvalue(&slot)
	closure.Upvalues[0] = up

	roots := RootSet{Stack: []value.Value{closure.Value()}}
	h.Collect(roots)

	if h.ObjectCount() != 3 {
		t.Fatalf("closure, function, and upvalue should all survive, ObjectCount = %d", h.ObjectCount())
	}
}

func TestNextGCDoublesAfterCollect(t *testing.T) {
	h := New()
	h.NewString("x")
	before := h.NextGC()
	h.Collect(RootSet{Stack: []value.Value{}})
	if h.NextGC() != before*2 {
		t.Errorf("NextGC should double after a collection, got %d, want %d", h.NextGC(), before*2)
	}
}

func TestNewCoroutineIsTracked(t *testing.T) {
	h := New()
	fn := h.NewFunction()
	closure := h.NewClosure(fn)
	co := h.NewCoroutine("test-id", closure)
	if co.ID != "test-id" {
		t.Errorf("coroutine id = %q", co.ID)
	}
	roots := RootSet{Stack: []value.Value{co.Value()}}
	h.Collect(roots)
	// coroutine + its Main closure + that closure's function should survive.
	if h.ObjectCount() != 3 {
		t.Fatalf("ObjectCount after collecting a rooted coroutine = %d, want 3", h.ObjectCount())
	}
}
