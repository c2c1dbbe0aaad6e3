// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"unsafe"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
)

func uintptrOf(v *value.Value) uintptr { return uintptr(unsafe.Pointer(v)) }

// newCoroutineID stamps a debug-visible identity (spec.md §4.F has no
// notion of coroutine identity itself; this is purely for trace/error
// output, never read by control flow, per SPEC_FULL.md's domain-stack
// note on google/uuid).
func newCoroutineID() string { return uuid.NewString() }

// opCoroutine implements OP_COROUTINE: wraps the Closure on top of the stack
// in a fresh suspended Coroutine with no bound arguments. AWAIT does not
// bind arguments either; only a coroutine created by calling a `coroutine`
// function carries PendingArgs (see spawnFromCall).
func (vm *VM) opCoroutine() error {
	v := vm.pop()
	if !v.IsObj() || object.FromValue(v).Type != object.TypeClosure {
		return errors.Wrap(ErrTypeMismatch, "spawn requires a closure")
	}
	closure := object.FromValue(v).AsClosure()
	co := vm.newCoroutine(closure)
	vm.push(co.Value())
	return nil
}

// snapshot captures the state AWAIT must restore once the callee yields or
// completes.
func (vm *VM) snapshot() *object.Caller {
	return &object.Caller{
		Stack:        vm.stack,
		Frames:       vm.frames,
		OpenUpvalues: vm.openUpvalues,
		Coroutine:    vm.current,
	}
}

func (vm *VM) restore(c *object.Caller) {
	vm.stack = c.Stack
	vm.frames = c.Frames
	vm.openUpvalues = c.OpenUpvalues
	vm.current = c.Coroutine
}

// awaitCoroutine implements AWAIT (spec.md §4.F): suspends the caller,
// installs callee as the active execution context, and resumes it.
func (vm *VM) awaitCoroutine(co *object.Coroutine) error {
	if co.Status == object.StatusCompleted {
		return ErrCoroutineDone
	}
	if co.Status == object.StatusErrored {
		return errors.Wrap(ErrCoroutineDone, "coroutine previously errored")
	}

	caller := vm.snapshot()
	co.ResumedBy = caller

	if !co.Started {
		co.Started = true
		// Bind pending args (populated by the coroutine-CALL path in
		// call.go; a plain `spawn`-ed coroutine has none) into the
		// parameter slots following the reserved closure slot 0, matching
		// the layout an ordinary CALL frame uses.
		for _, a := range co.PendingArgs {
			co.Stack = append(co.Stack, a)
		}
	} else {
		// Every resume past the first lands right after the OP_YIELD that
		// suspended this coroutine, which popped its operand without
		// leaving a result behind. Push the resume value (no explicit
		// "send" exists, so always nil) so `yield` still produces exactly
		// one value and the subsequent OP_POP from its expression
		// statement doesn't eat a live stack slot.
		co.Stack = append(co.Stack, value.Nil)
	}

	co.Status = object.StatusRunning
	vm.restore(&object.Caller{Stack: co.Stack, Frames: co.Frames, OpenUpvalues: co.OpenUpvalues})
	vm.current = co

	return nil
}

// opAwait implements the AWAIT opcode itself: pop the coroutine, hand
// control to it.
func (vm *VM) opAwait() error {
	v := vm.pop()
	if !v.IsObj() || object.FromValue(v).Type != object.TypeCoroutine {
		return errors.Wrap(ErrTypeMismatch, "await requires a coroutine")
	}
	co := object.FromValue(v).AsCoroutine()
	return vm.awaitCoroutine(co)
}

// opYield implements YIELD: stash the top-of-stack value as the resume
// value, suspend, and transfer control back to whoever awaited this
// coroutine.
func (vm *VM) opYield() error {
	v := vm.pop()
	co := vm.current
	if co == nil {
		return errors.New("yield outside of a coroutine")
	}
	co.ResumeValue = v
	co.Status = object.StatusSuspended
	co.Stack = vm.stack
	co.Frames = vm.frames
	co.OpenUpvalues = vm.openUpvalues

	caller := co.ResumedBy
	vm.restore(caller)
	vm.push(v)
	return nil
}

// completeCoroutine is called from RETURN when the returning frame is a
// coroutine's own frame 0 (i.e. vm.current != nil and this was its last
// frame): it sets status completed and transfers the return value back to
// the awaiter identically to YIELD.
func (vm *VM) completeCoroutine(result value.Value) {
	co := vm.current
	co.ResumeValue = result
	co.Status = object.StatusCompleted

	caller := co.ResumedBy
	vm.restore(caller)
	vm.push(result)
}
