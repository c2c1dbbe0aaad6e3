// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"github.com/pkg/errors"

	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
)

// stackMax bounds the value stack so its backing array never reallocates:
// open Upvalues hold raw *value.Value pointers into it (spec.md §3's
// invariant that growth must preserve those addresses), and in Go the only
// way to guarantee that is to never grow past the initial allocation.
const stackMax = maxFrames * 256

func newStack() []value.Value { return make([]value.Value, 0, stackMax) }

// call dispatches CALL's three receiver kinds against the value at
// stack[sp-argc-1] (already on the stack when this is invoked from the
// interpreter loop; Interpret's bootstrap call passes it explicitly).
func (vm *VM) call(callee value.Value, argc int) error {
	if !callee.IsObj() {
		return errors.Wrap(ErrBadCallTarget, object.TypeName(callee))
	}
	obj := object.FromValue(callee)
	switch obj.Type {
	case object.TypeClosure:
		closure := obj.AsClosure()
		if closure.Function.IsCoroutine {
			return vm.spawnFromCall(closure, argc)
		}
		return vm.callClosure(closure, argc)
	case object.TypeNative:
		return vm.callNative(obj.AsNative(), argc)
	default:
		return errors.Wrap(ErrBadCallTarget, object.TypeName(callee))
	}
}

func (vm *VM) callClosure(closure *object.Closure, argc int) error {
	if argc != closure.Function.Arity {
		return errors.Wrapf(ErrArityMismatch, "%s expects %d argument(s), got %d",
			closure.Function.DisplayName(), closure.Function.Arity, argc)
	}
	if len(vm.frames) == maxFrames {
		return ErrStackOverflow
	}
	vm.frames = append(vm.frames, object.Frame{
		Closure: closure,
		IP:      0,
		Slots:   len(vm.stack) - argc - 1,
	})
	return nil
}

func (vm *VM) callNative(n *object.Native, argc int) error {
	if vm.Config.NativeArityChecking && n.Arity >= 0 && argc != n.Arity {
		return errors.Wrapf(ErrArityMismatch, "%s expects %d argument(s), got %d", n.Name, n.Arity, argc)
	}
	base := len(vm.stack) - argc
	args := append([]value.Value(nil), vm.stack[base:]...)
	result, err := n.Fn(args)
	if err != nil {
		return err
	}
	vm.stack = vm.stack[:base-1]
	vm.push(result)
	return nil
}

// spawnFromCall implements Open Question resolution 5: calling a
// coroutine-flagged closure produces a fresh suspended Coroutine instead of
// entering the body, binding the call's arguments as the coroutine's
// PendingArgs to be consumed on its first resume. This is the only path
// that gives a coroutine arguments.
func (vm *VM) spawnFromCall(closure *object.Closure, argc int) error {
	if argc != closure.Function.Arity {
		return errors.Wrapf(ErrArityMismatch, "%s expects %d argument(s), got %d",
			closure.Function.DisplayName(), closure.Function.Arity, argc)
	}
	base := len(vm.stack) - argc
	args := append([]value.Value(nil), vm.stack[base:]...)
	vm.stack = vm.stack[:base-1] // drop callee + args

	vm.maybeCollect()
	co := vm.newCoroutine(closure)
	co.PendingArgs = args
	vm.push(co.Value())
	return nil
}

// newCoroutine allocates and seeds a fresh suspended Coroutine wrapping
// closure, per spec.md §4.F: its own stack/frames, frame 0 as if an
// initial zero-arg CALL had been performed (actual arguments, if any, are
// bound lazily on first resume — see coroutine.go).
func (vm *VM) newCoroutine(closure *object.Closure) *object.Coroutine {
	co := vm.Heap.NewCoroutine(newCoroutineID(), closure)
	co.Stack = newStack()
	co.Stack = append(co.Stack, closure.Value())
	co.Frames = append(co.Frames, object.Frame{Closure: closure, IP: 0, Slots: 0})
	return co
}

// --- upvalues ------------------------------------------------------------

// captureUpvalue returns the open Upvalue for the stack slot at local
// (a pointer into vm.stack, stable because the stack never reallocates),
// reusing an existing one if present, per spec.md §3's uniqueness
// invariant. The open list is kept sorted by descending slot address.
func (vm *VM) captureUpvalue(local *value.Value) *object.Upvalue {
	var prev *object.Upvalue
	cur := vm.openUpvalues
	for cur != nil && uintptrOf(cur.Location) > uintptrOf(local) {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Location == local {
		return cur
	}
	created := vm.Heap.NewUpvalue(local)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose slot address is >= from,
// called on scope exit and RETURN (spec.md §4.E).
func (vm *VM) closeUpvalues(from *value.Value) {
	for vm.openUpvalues != nil && uintptrOf(vm.openUpvalues.Location) >= uintptrOf(from) {
		u := vm.openUpvalues
		u.Close()
		vm.openUpvalues = u.NextOpen
	}
}
