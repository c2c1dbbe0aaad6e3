// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package compiler implements a single-pass, Pratt-precedence
// recursive-descent compiler: it translates a token stream directly into a
// bytecode.Chunk, resolving lexical scope, upvalue capture, and jump
// targets as it goes. There is no intermediate AST — each parse function
// emits bytecode as soon as it knows enough to do so, exactly like the
// reference clox compiler this spec is drawn from.
package compiler

import (
	"math"

	"github.com/probechain/ember/bytecode"
	"github.com/probechain/ember/heap"
	"github.com/probechain/ember/object"
	"github.com/probechain/ember/scanner"
	"github.com/probechain/ember/token"
	"github.com/probechain/ember/value"
)

const maxLocals = 256
const maxUpvalues = 256
const maxFrames = 64 // mirrors vm.maxFrames; no check in this package reads it

// FuncType distinguishes the kind of function currently being compiled,
// which only changes how the implicit trailing return and slot 0 naming
// behave.
type FuncType int

const (
	TypeScript FuncType = iota
	TypeFunction
	TypeAnonymous
)

// local is one entry of a Compiler's bounded locals array. depth == -1
// means "declared but its initializer is still being evaluated" — per
// spec.md §4.D, resolution of an identifier against a local in this state
// is skipped rather than treated as an error, so the initializer can fall
// through to a same-named variable in an enclosing scope.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// loopContext tracks break/continue bookkeeping for one enclosing loop,
// owned by the compiler invocation that parses that loop rather than kept
// in a fixed-size global table (see spec.md §9's design note on this).
type loopContext struct {
	continueTarget int // ip to OP_LOOP back to on `continue`
	scopeDepth     int // scope depth enclosing the loop body; break/continue pop locals deeper than this
	breakJumps     []int
}

// parserState is the token-stream side of compilation: shared by every
// Compiler in an enclosing-compiler chain (scanner is single-pass).
type parserState struct {
	scan      *scanner.Scanner
	cur, prev token.Token
	hadError  bool
	panicMode bool
	errs      []error
	heap      *heap.Heap
}

func (p *parserState) advance() {
	p.prev = p.cur
	for {
		p.cur = p.scan.Next()
		if p.cur.Type != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.cur.Literal)
	}
}

func (p *parserState) check(t token.Type) bool { return p.cur.Type == t }

func (p *parserState) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parserState) consume(t token.Type, msg string) {
	if p.cur.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// Compiler compiles one function body (the top-level script counts as a
// function). It keeps an explicit link to its enclosing Compiler instead of
// a global "current compiler" stack (spec.md §9).
type Compiler struct {
	enclosing *Compiler
	p         *parserState

	function *object.Function
	fnType   FuncType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int

	loops []*loopContext
}

// Compile compiles source into a top-level Function ("<script>"), ready to
// be wrapped in a Closure and run by the VM. It returns every compile error
// collected; per spec.md §7, a non-empty error slice means compilation
// produced "no function" and fn is nil.
func Compile(h *heap.Heap, file, source string) (fn *object.Function, errs []error) {
	p := &parserState{scan: scanner.New(file, source), heap: h}
	p.advance()

	c := newCompiler(p, nil, TypeScript)
	for !p.check(token.EOF) {
		c.declaration()
	}
	fn = c.end()

	if p.hadError {
		return nil, p.errs
	}
	return fn, p.errs
}

func newCompiler(p *parserState, enclosing *Compiler, fnType FuncType) *Compiler {
	c := &Compiler{
		enclosing: enclosing,
		p:         p,
		function:  p.heap.NewFunction(),
		fnType:    fnType,
	}
	// Slot 0 of every frame is reserved for the function/script itself,
	// per spec.md §4.D ("top-level script code is also compiled with a
	// single synthetic frame 0 local"). It is never resolvable by name.
	c.locals = append(c.locals, local{name: "", depth: 0})
	if fnType != TypeScript {
		c.function.Name = nil // set by caller after construction if named
	}
	return c
}

func (c *Compiler) end() *object.Function {
	c.emitReturn()
	return c.function
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.function.Chunk }

func (c *Compiler) line() int { return c.p.prev.Pos.Line }

// ---- emission helpers ------------------------------------------------------

func (c *Compiler) emitByte(op bytecode.OpCode) int { return c.chunk().WriteByte(op, c.line()) }

func (c *Compiler) emitBytes(op bytecode.OpCode, operand byte) {
	c.emitByte(op)
	c.chunk().Write(operand, c.line())
}

func (c *Compiler) emitReturn() {
	c.emitByte(bytecode.OpNil)
	c.emitByte(bytecode.OpReturn)
}

func (c *Compiler) emitConstantValue(v value.Value) {
	c.chunk().WriteConstant(v, c.line())
}

func (c *Compiler) internString(s string) *object.String {
	return c.p.heap.NewString(s)
}

// emitJump writes a jump opcode with a placeholder 4-byte offset and
// returns the offset of that placeholder for patchJump.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.emitByte(op)
	return c.chunk().WriteUint32(0xFFFFFFFF, c.line())
}

// patchJump back-fills the placeholder at offset with the distance from
// just after it to the current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	dist := len(c.chunk().Code) - (offset + 4)
	if dist < 0 {
		c.p.errorAtPrev("jump offset underflow")
		return
	}
	c.chunk().PatchUint32(offset, uint32(dist))
}

// emitLoop writes OP_LOOP with the backward distance to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitByte(bytecode.OpLoop)
	dist := len(c.chunk().Code) + 4 - loopStart
	if dist < 0 || uint64(dist) > math.MaxUint32 {
		c.p.errorAtPrev("loop body too large")
		dist = 0
	}
	c.chunk().WriteUint32(uint32(dist), c.line())
}

// ---- scopes -----------------------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			c.emitByte(bytecode.OpCloseUpvalue)
		} else {
			c.emitByte(bytecode.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// popToDepth emits (without removing from c.locals — the enclosing scope
// hasn't actually ended) the pops/closes needed to discard every local
// declared more deeply than depth. Used by break/continue, which jump out
// of a scope without formally ending it at parse time.
func (c *Compiler) popToDepth(depth int) {
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth > depth; i-- {
		if c.locals[i].isCaptured {
			c.emitByte(bytecode.OpCloseUpvalue)
		} else {
			c.emitByte(bytecode.OpPop)
		}
	}
}

// ---- locals & upvalues ------------------------------------------------------

func (c *Compiler) addLocal(name string) {
	if len(c.locals) >= maxLocals {
		c.p.errorAtPrev("too many local variables in one function")
		return
	}
	// depth -1 marks "declared, initializer not yet evaluated" so a
	// same-named outer variable remains visible during the initializer.
	c.locals = append(c.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if len(c.locals) == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

// resolveLocal searches c's own locals, top-down, skipping any whose
// initializer hasn't finished evaluating (depth == -1) — this is the
// deliberate divergence from the reference implementation noted in
// spec.md §4.D: it is a fallthrough to the next-outer scope, not an error.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth == -1 {
			continue
		}
		if c.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, u := range c.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		c.p.errorAtPrev("too many closure variables in one function")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// resolveUpvalue recursively searches enclosing compilers for name. A hit
// against an enclosing local marks that local captured and records a
// is_local=true upvalue; a hit against an enclosing upvalue propagates as
// is_local=false, chaining the capture through every nesting level.
func (c *Compiler) resolveUpvalue(name string) (int, bool) {
	if c.enclosing == nil {
		return -1, false
	}
	if idx, ok := c.enclosing.resolveLocal(name); ok {
		c.enclosing.locals[idx].isCaptured = true
		return c.addUpvalue(uint8(idx), true), true
	}
	if idx, ok := c.enclosing.resolveUpvalue(name); ok {
		return c.addUpvalue(uint8(idx), false), true
	}
	return -1, false
}

// declareVariable always records name as a local of the CURRENT compiler,
// at any scope depth including 0 — per spec.md's resolution of its first
// Open Question, there is no separate "global declaration"; top-level code
// is compiled as frame 0's locals. Shadowing (including at the same depth)
// is always permitted.
func (c *Compiler) declareVariable(name string) {
	c.addLocal(name)
}
