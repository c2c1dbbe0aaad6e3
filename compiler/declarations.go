// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package compiler

import (
	"github.com/probechain/ember/bytecode"
	"github.com/probechain/ember/object"
	"github.com/probechain/ember/token"
)

// declaration parses one top-level-or-block declaration, recovering via
// synchronize() if parsing it left the parser in panic mode.
func (c *Compiler) declaration() {
	switch {
	case c.p.match(token.VAR):
		c.varDeclaration()
	case c.p.match(token.FUN):
		c.funDeclaration()
	case c.p.match(token.COROUTINE):
		c.coroutineDeclaration()
	default:
		c.statement()
	}

	if c.p.panicMode {
		c.p.synchronize()
	}
}

// varDeclaration parses `var name [= expr] ;`. All vars — top-level
// included — become locals of the current compiler; there is no separate
// global-definition step (see compiler.go's declareVariable doc comment).
func (c *Compiler) varDeclaration() {
	c.p.consume(token.IDENT, "Expect variable name.")
	name := c.p.prev.Literal
	c.declareVariable(name)

	if c.p.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitByte(bytecode.OpNil)
	}
	c.p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.markInitialized()
}

// funDeclaration parses `fun name(params) { body }`. The function's own
// name is declared (and marked initialized) BEFORE the body is compiled so
// the function can recurse into itself by name.
func (c *Compiler) funDeclaration() {
	c.p.consume(token.IDENT, "Expect function name.")
	name := c.p.prev.Literal
	c.declareVariable(name)
	c.markInitialized()
	c.function(TypeFunction, name)
}

// coroutineDeclaration parses `coroutine name(params) { body }`. Unlike
// funDeclaration it is not itself wrapped in OP_COROUTINE at the
// declaration site: it compiles an ordinary closure but flags its Function
// IsCoroutine, so that CALLing it (see scenario 3: `var c = g();`) is what
// produces a fresh suspended Coroutine each time — OP_COROUTINE itself is
// reserved for the `spawn <closure-expr>` form (see expression.go).
func (c *Compiler) coroutineDeclaration() {
	c.p.consume(token.IDENT, "Expect coroutine name.")
	name := c.p.prev.Literal
	c.declareVariable(name)
	c.markInitialized()
	c.function(TypeFunction, name)
	c.markLastConstantAsCoroutine()
}

// markLastConstantAsCoroutine flags the Function most recently added to the
// enclosing chunk's constant pool (i.e. the one function() just emitted a
// CLOSURE for) as a coroutine template.
func (c *Compiler) markLastConstantAsCoroutine() {
	consts := c.chunk().Constants
	if len(consts) == 0 {
		return
	}
	last := consts[len(consts)-1]
	if last.IsObj() {
		object.FromValue(last).AsFunction().IsCoroutine = true
	}
}

// function compiles a nested function body in its own Compiler, then emits
// CLOSURE/CLOSURE_LONG in the enclosing compiler followed by one
// (is_local, index) byte pair per captured upvalue.
func (c *Compiler) function(fnType FuncType, name string) {
	inner := newCompiler(c.p, c, fnType)
	if name != "" {
		inner.function.Name = inner.internString(name)
	}
	inner.beginScope()

	c.p.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.p.check(token.RPAREN) {
		for {
			inner.function.Arity++
			if inner.function.Arity > 255 {
				c.p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			c.p.consume(token.IDENT, "Expect parameter name.")
			inner.declareVariable(c.p.prev.Literal)
			inner.markInitialized()
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RPAREN, "Expect ')' after parameters.")
	c.p.consume(token.LBRACE, "Expect '{' before function body.")
	inner.block()

	fn := inner.end()

	idx := c.chunk().AddConstant(fn.Value())
	if idx < 256 {
		c.emitBytes(bytecode.OpClosure, byte(idx))
	} else {
		c.emitByte(bytecode.OpClosureLong)
		c.chunk().Write(byte(idx), c.line())
		c.chunk().Write(byte(idx>>8), c.line())
		c.chunk().Write(byte(idx>>16), c.line())
	}
	for _, u := range inner.upvalues {
		var isLocal byte
		if u.isLocal {
			isLocal = 1
		}
		c.chunk().Write(isLocal, c.line())
		c.chunk().Write(u.index, c.line())
	}
}
