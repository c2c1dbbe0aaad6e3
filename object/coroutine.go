// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package object

import "github.com/probechain/ember/value"

// Frame is one call frame: which Closure is executing, where its bytecode
// instruction pointer currently sits, and the base stack slot its locals
// start at. It lives here (rather than in package vm) because a suspended
// Coroutine owns an array of these independent of any running VM.
type Frame struct {
	Closure *Closure
	IP      int
	Slots   int // base index into the owning stack
}

// Caller snapshots the state AWAIT must restore when the callee coroutine
// next yields or completes.
type Caller struct {
	Stack        []value.Value
	Frames       []Frame
	OpenUpvalues *Upvalue
	Coroutine    *Coroutine // nil if the caller was the root VM, not a coroutine
}

// Status is the lifecycle state of a Coroutine.
type Status uint8

const (
	StatusSuspended Status = iota
	StatusRunning
	StatusCompleted
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusErrored:
		return "errored"
	}
	return "unknown"
}

// Coroutine is an independent execution context: its own value stack, its
// own frame array, and its own open-upvalue chain, scheduled cooperatively
// by the VM (package vm) via spawn/yield/await.
type Coroutine struct {
	Obj *Object
	ID  string // debug-visible identity, stamped with google/uuid by package vm

	Main   *Closure
	Status Status

	Stack        []value.Value
	Frames       []Frame
	OpenUpvalues *Upvalue

	// ResumeValue holds the value most recently yielded or returned, read
	// by the awaiter once control transfers back to it.
	ResumeValue value.Value

	// ResumedBy is the caller record installed when this coroutine is
	// AWAITed; YIELD and a top-level RETURN both restore it.
	ResumedBy *Caller

	// Started is true once the coroutine's first resume has consumed its
	// initial argument list; further resumes do not rebind parameters.
	Started bool

	// PendingArgs holds the arguments of the call that created the
	// coroutine, consumed as its parameters on its first resume only.
	PendingArgs []value.Value
}

func NewCoroutine(id string, main *Closure) *Coroutine {
	co := &Coroutine{
		ID:     id,
		Main:   main,
		Status: StatusSuspended,
		Stack:  make([]value.Value, 0, 64),
		Frames: make([]Frame, 0, 8),
	}
	co.Obj = &Object{Type: TypeCoroutine, Payload: co}
	return co
}

// Value boxes co back into a value.Value tagged as an object.
func (co *Coroutine) Value() value.Value { return co.Obj.Value() }
