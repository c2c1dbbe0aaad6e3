// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package compiler

import (
	"github.com/probechain/ember/bytecode"
	"github.com/probechain/ember/token"
)

func (c *Compiler) statement() {
	switch {
	case c.p.match(token.IF):
		c.ifStatement()
	case c.p.match(token.WHILE):
		c.whileStatement()
	case c.p.match(token.FOR):
		c.forStatement()
	case c.p.match(token.RETURN):
		c.returnStatement()
	case c.p.match(token.BREAK):
		c.breakStatement()
	case c.p.match(token.CONTINUE):
		c.continueStatement()
	case c.p.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

// block consumes declarations until a closing '}'. The opening '{' has
// already been consumed by the caller.
func (c *Compiler) block() {
	for !c.p.check(token.RBRACE) && !c.p.check(token.EOF) {
		c.declaration()
	}
	c.p.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitByte(bytecode.OpPop)
}

// ifStatement: condition; JUMP_IF_FALSE; POP; then-branch; JUMP; patch
// false-jump; POP; optional else-branch; patch end-jump.
func (c *Compiler) ifStatement() {
	c.expression()

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitByte(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitByte(bytecode.OpPop)

	if c.p.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) pushLoop() *loopContext {
	lc := &loopContext{scopeDepth: c.scopeDepth}
	c.loops = append(c.loops, lc)
	return lc
}

func (c *Compiler) popLoop() {
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) currentLoop() *loopContext {
	if len(c.loops) == 0 {
		return nil
	}
	return c.loops[len(c.loops)-1]
}

// whileStatement: loop_start = ip; condition; JUMP_IF_FALSE; POP; body;
// LOOP back to loop_start; patch exit; POP.
func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	lc := c.pushLoop()
	lc.continueTarget = loopStart

	c.expression()

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitByte(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(bytecode.OpPop)
	c.patchBreaks(lc)
	c.popLoop()
}

// forStatement is parenthesis-free: `for <init>; <cond>; <post> { body }`,
// where each clause may be empty (`;`) and the brace block is mandatory.
// No parentheses wrap the clauses per spec.md §4.D.
func (c *Compiler) forStatement() {
	c.beginScope()

	switch {
	case c.p.match(token.SEMICOLON):
		// no initializer
	case c.p.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	lc := c.pushLoop()
	lc.continueTarget = loopStart

	exitJump := -1
	if !c.p.check(token.SEMICOLON) {
		c.expression()
		c.p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitByte(bytecode.OpPop)
	} else {
		c.p.advance() // consume ';'
	}

	if !c.p.check(token.LBRACE) {
		bodyJump := c.emitJump(bytecode.OpJump)

		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitByte(bytecode.OpPop)

		c.emitLoop(loopStart)
		loopStart = incrementStart
		lc.continueTarget = incrementStart
		c.patchJump(bodyJump)
	}

	c.p.consume(token.LBRACE, "Expect '{' to start for-loop body.")
	c.beginScope()
	c.block()
	c.endScope()

	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(bytecode.OpPop)
	}
	c.patchBreaks(lc)
	c.popLoop()
	c.endScope()
}

// patchBreaks back-fills every break jump recorded against lc to the
// current IP (the post-loop instruction).
func (c *Compiler) patchBreaks(lc *loopContext) {
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
}

func (c *Compiler) breakStatement() {
	lc := c.currentLoop()
	if lc == nil {
		c.p.errorAtPrev("Can't use 'break' outside of a loop.")
		return
	}
	c.p.consume(token.SEMICOLON, "Expect ';' after 'break'.")
	c.popToDepth(lc.scopeDepth)
	lc.breakJumps = append(lc.breakJumps, c.emitJump(bytecode.OpJump))
}

func (c *Compiler) continueStatement() {
	lc := c.currentLoop()
	if lc == nil {
		c.p.errorAtPrev("Can't use 'continue' outside of a loop.")
		return
	}
	c.p.consume(token.SEMICOLON, "Expect ';' after 'continue'.")
	c.popToDepth(lc.scopeDepth)
	c.emitLoop(lc.continueTarget)
}

func (c *Compiler) returnStatement() {
	if c.fnType == TypeScript {
		c.p.errorAtPrev("Can't return from top-level code.")
	}
	if c.p.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitByte(bytecode.OpReturn)
}
