// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vm implements the stack-based interpreter loop, call protocol,
// upvalue capture/close, and the cooperative coroutine scheduler. It is the
// sole consumer of bytecode.Chunk and the sole mutator of heap.Heap's roots
// at runtime.
package vm

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/probechain/ember/heap"
	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
)

const maxFrames = 64

// Sentinel errors, following the teacher's var Err... = errors.New(...)
// convention for well-known failure categories.
var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrUndefinedGlobal = errors.New("undefined variable")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrBadCallTarget   = errors.New("can only call functions")
	ErrArityMismatch   = errors.New("wrong number of arguments")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrCoroutineDone   = errors.New("coroutine already completed")
	ErrInvalidReceiver = errors.New("invalid member-access receiver")
)

// RuntimeError is returned by Interpret/run on an unrecovered VM fault. It
// carries the line-numbered frame trace described in spec.md §7.
type RuntimeError struct {
	Err   error
	Trace []string
}

func (e *RuntimeError) Error() string { return e.Err.Error() }
func (e *RuntimeError) Unwrap() error { return e.Err }

// Config mirrors the build-flag table of spec.md §6, loaded at runtime
// instead of compiled in (see package config).
type Config struct {
	DebugPrintCode      bool
	DebugTraceExecution bool
	DebugStressGC       bool
	DebugLogGC          bool
	DynamicTypeChecking bool
	NativeArityChecking bool
	AllowShadowing      bool
}

// VM is an explicit, non-global interpreter instance (spec.md §9's
// "replace the global VM singleton" redesign flag). Every piece of
// mutable execution state — the active stack, frames, and open-upvalue
// chain — lives here or, while a coroutine is running, on that
// coroutine's own fields; there is no package-level state anywhere in
// this package.
type VM struct {
	Heap    *heap.Heap
	Globals map[*object.String]value.Value
	Config  Config
	Stdout  io.Writer

	stack        []value.Value
	frames       []object.Frame
	openUpvalues *object.Upvalue

	// current is the coroutine presently executing on this VM's stack and
	// frames, or nil when the root script context is active.
	current *object.Coroutine

	errColor *color.Color
}

// New returns a VM with an empty stack, ready for Interpret. h must
// outlive the VM.
func New(h *heap.Heap, cfg Config) *VM {
	c := color.New(color.FgRed, color.Bold)
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		c.DisableColor()
	}
	return &VM{
		Heap:     h,
		Globals:  make(map[*object.String]value.Value),
		Config:   cfg,
		Stdout:   os.Stdout,
		stack:    newStack(),
		frames:   make([]object.Frame, 0, maxFrames),
		errColor: c,
	}
}

// DefineNative registers a native function under name in the globals
// table, the only way script code observes host functionality (spec.md §6
// Native-function ABI).
func (vm *VM) DefineNative(name string, arity int, fn object.NativeFn) {
	n := vm.Heap.NewNative(name, arity, fn)
	key := vm.Heap.NewString(name)
	vm.Globals[key] = n.Value()
}

// Interpret wraps fn in a Closure, pushes the initial frame, and runs it to
// completion.
func (vm *VM) Interpret(fn *object.Function) (value.Value, error) {
	closure := vm.Heap.NewClosure(fn)
	vm.push(closure.Value())
	if err := vm.call(closure.Value(), 0); err != nil {
		return value.Nil, vm.runtimeError(err)
	}
	return vm.run()
}

// --- stack helpers -----------------------------------------------------

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) resetStack() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

// frame returns the currently executing call frame.
func (vm *VM) frame() *object.Frame { return &vm.frames[len(vm.frames)-1] }
