// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package compiler

import (
	"strconv"

	"github.com/probechain/ember/bytecode"
	"github.com/probechain/ember/token"
	"github.com/probechain/ember/value"
)

// precedence is the Pratt ladder, lowest to highest.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . () []
	precPrimary
)

type (
	prefixFn func(c *Compiler, canAssign bool)
	infixFn  func(c *Compiler, canAssign bool)
)

type rule struct {
	prefix prefixFn
	infix  infixFn
	prec   precedence
}

// rules is the token -> {prefix, infix, precedence} table driving
// parsePrecedence. Built once; never mutated.
var rules map[token.Type]rule

func init() {
	rules = map[token.Type]rule{
		token.LPAREN:        {prefix: (*Compiler).grouping, infix: (*Compiler).call, prec: precCall},
		token.LBRACKET:      {prefix: (*Compiler).listLiteral, infix: (*Compiler).index, prec: precCall},
		token.LBRACE:        {prefix: (*Compiler).dictLiteral},
		token.DOT:           {infix: (*Compiler).dot, prec: precCall},
		token.MINUS:         {prefix: (*Compiler).unary, infix: (*Compiler).binary, prec: precTerm},
		token.PLUS:          {infix: (*Compiler).binary, prec: precTerm},
		token.SLASH:         {infix: (*Compiler).binary, prec: precFactor},
		token.STAR:          {infix: (*Compiler).binary, prec: precFactor},
		token.BANG:          {prefix: (*Compiler).unary},
		token.BANG_EQUAL:    {infix: (*Compiler).binary, prec: precEquality},
		token.EQUAL_EQUAL:   {infix: (*Compiler).binary, prec: precEquality},
		token.GREATER:       {infix: (*Compiler).binary, prec: precComparison},
		token.GREATER_EQUAL: {infix: (*Compiler).binary, prec: precComparison},
		token.LESS:          {infix: (*Compiler).binary, prec: precComparison},
		token.LESS_EQUAL:    {infix: (*Compiler).binary, prec: precComparison},
		token.IDENT:         {prefix: (*Compiler).variable},
		token.STRING:        {prefix: (*Compiler).stringLiteral},
		token.NUMBER:        {prefix: (*Compiler).number},
		token.AND:           {infix: (*Compiler).and_, prec: precAnd},
		token.OR:            {infix: (*Compiler).or_, prec: precOr},
		token.TRUE:          {prefix: (*Compiler).literal},
		token.FALSE:         {prefix: (*Compiler).literal},
		token.NIL:           {prefix: (*Compiler).literal},
		token.FUN:           {prefix: (*Compiler).anonymousFunction},
		token.SPAWN:         {prefix: (*Compiler).spawnExpr},
		token.YIELD:         {prefix: (*Compiler).yieldExpr},
		token.AWAIT:         {prefix: (*Compiler).awaitExpr},
	}
}

func ruleFor(t token.Type) rule { return rules[t] }

// expression parses one expression at precAssignment and below.
func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.p.advance()
	pf := ruleFor(c.p.prev.Type).prefix
	if pf == nil {
		c.p.errorAtPrev("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	pf(c, canAssign)

	for prec <= ruleFor(c.p.cur.Type).prec {
		c.p.advance()
		inf := ruleFor(c.p.prev.Type).infix
		inf(c, canAssign)
	}

	if canAssign && c.p.match(token.EQUAL) {
		c.p.errorAtPrev("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	f, _ := strconv.ParseFloat(c.p.prev.Literal, 64)
	c.emitConstantValue(value.Number(f))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	s := c.internString(c.p.prev.Literal)
	c.emitConstantValue(s.Value())
}

func (c *Compiler) literal(canAssign bool) {
	switch c.p.prev.Type {
	case token.TRUE:
		c.emitByte(bytecode.OpTrue)
	case token.FALSE:
		c.emitByte(bytecode.OpFalse)
	case token.NIL:
		c.emitByte(bytecode.OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.p.prev.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case token.MINUS:
		c.emitByte(bytecode.OpNegate)
	case token.BANG:
		c.emitByte(bytecode.OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.p.prev.Type
	r := ruleFor(opType)
	c.parsePrecedence(r.prec + 1)
	switch opType {
	case token.PLUS:
		c.emitByte(bytecode.OpAdd)
	case token.MINUS:
		c.emitByte(bytecode.OpSubtract)
	case token.STAR:
		c.emitByte(bytecode.OpMultiply)
	case token.SLASH:
		c.emitByte(bytecode.OpDivide)
	case token.EQUAL_EQUAL:
		c.emitByte(bytecode.OpEqual)
	case token.BANG_EQUAL:
		c.emitByte(bytecode.OpEqual)
		c.emitByte(bytecode.OpNot)
	case token.GREATER:
		c.emitByte(bytecode.OpGreater)
	case token.GREATER_EQUAL:
		c.emitByte(bytecode.OpLess)
		c.emitByte(bytecode.OpNot)
	case token.LESS:
		c.emitByte(bytecode.OpLess)
	case token.LESS_EQUAL:
		c.emitByte(bytecode.OpGreater)
		c.emitByte(bytecode.OpNot)
	}
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitByte(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitByte(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

// call compiles a parenthesized argument list following a callee already on
// the stack, emitting CALL argc.
func (c *Compiler) call(canAssign bool) {
	argc := c.argumentList()
	c.emitBytes(bytecode.OpCall, byte(argc))
}

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.p.check(token.RPAREN) {
		for {
			c.expression()
			if argc == 255 {
				c.p.errorAtPrev("Can't have more than 255 arguments.")
			}
			argc++
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RPAREN, "Expect ')' after arguments.")
	return argc
}

// dot compiles `.name` (optionally followed by `= expr` when canAssign),
// pushing the field-name string constant then emitting GET_FIELD/SET_FIELD —
// the same pair bracket indexing uses, per the receiver-type dispatch rule.
func (c *Compiler) dot(canAssign bool) {
	c.p.consume(token.IDENT, "Expect property name after '.'.")
	name := c.internString(c.p.prev.Literal)
	if canAssign && c.p.match(token.EQUAL) {
		c.emitConstantValue(name.Value())
		c.expression()
		c.emitByte(bytecode.OpSetField)
		return
	}
	c.emitConstantValue(name.Value())
	c.emitByte(bytecode.OpGetField)
}

// index compiles `[expr]` (optionally followed by `= expr`), again through
// GET_FIELD/SET_FIELD.
func (c *Compiler) index(canAssign bool) {
	c.expression()
	c.p.consume(token.RBRACKET, "Expect ']' after index.")
	if canAssign && c.p.match(token.EQUAL) {
		c.expression()
		c.emitByte(bytecode.OpSetField)
		return
	}
	c.emitByte(bytecode.OpGetField)
}

// listLiteral compiles `[e1, e2, ...]` into LIST/LIST_LONG count.
func (c *Compiler) listLiteral(canAssign bool) {
	count := 0
	if !c.p.check(token.RBRACKET) {
		for {
			c.expression()
			count++
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RBRACKET, "Expect ']' after list elements.")
	c.emitCount(bytecode.OpList, bytecode.OpListLong, count)
}

// dictLiteral compiles `{k: v, ...}` into DICT/DICT_LONG count, where count
// pairs of (key, value) precede it on the stack in declaration order.
func (c *Compiler) dictLiteral(canAssign bool) {
	count := 0
	if !c.p.check(token.RBRACE) {
		for {
			if c.p.check(token.STRING) {
				c.p.advance()
				c.stringLiteral(false)
			} else {
				c.p.consume(token.IDENT, "Expect dict key.")
				key := c.internString(c.p.prev.Literal)
				c.emitConstantValue(key.Value())
			}
			c.p.consume(token.COLON, "Expect ':' after dict key.")
			c.expression()
			count++
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RBRACE, "Expect '}' after dict entries.")
	c.emitCount(bytecode.OpDict, bytecode.OpDictLong, count)
}

func (c *Compiler) emitCount(short, long bytecode.OpCode, count int) {
	if count < 256 {
		c.emitBytes(short, byte(count))
		return
	}
	c.emitByte(long)
	c.chunk().Write(byte(count), c.line())
	c.chunk().Write(byte(count>>8), c.line())
	c.chunk().Write(byte(count>>16), c.line())
}

// variable resolves an identifier to a local, upvalue, or global and emits
// the matching GET_* (or SET_* when canAssign and '=' follows).
func (c *Compiler) variable(canAssign bool) {
	name := c.p.prev.Literal

	var getOp, setOp bytecode.OpCode
	var getLong, setLong bytecode.OpCode
	var arg int
	var long bool

	if idx, ok := c.resolveLocal(name); ok {
		arg, getOp, setOp, getLong, setLong = idx, bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpGetLocalLong, bytecode.OpSetLocalLong
	} else if idx, ok := c.resolveUpvalue(name); ok {
		arg, getOp, setOp = idx, bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		idx := c.chunk().AddConstant(c.internString(name).Value())
		arg, getOp, setOp, getLong, setLong = idx, bytecode.OpGetGlobal, bytecode.OpSetGlobal, bytecode.OpGetGlobalLong, bytecode.OpSetGlobalLong
		long = idx >= 256
	}

	if canAssign && c.p.match(token.EQUAL) {
		c.expression()
		if long {
			c.emitLongArg(setLong, arg)
		} else {
			c.emitShortArg(setOp, arg)
		}
		return
	}
	if long {
		c.emitLongArg(getLong, arg)
	} else {
		c.emitShortArg(getOp, arg)
	}
}

func (c *Compiler) emitShortArg(op bytecode.OpCode, arg int) {
	c.emitBytes(op, byte(arg))
}

func (c *Compiler) emitLongArg(op bytecode.OpCode, arg int) {
	c.emitByte(op)
	c.chunk().Write(byte(arg), c.line())
	c.chunk().Write(byte(arg>>8), c.line())
	c.chunk().Write(byte(arg>>16), c.line())
}

// anonymousFunction compiles `fun (params) { body }` used as an expression.
func (c *Compiler) anonymousFunction(canAssign bool) {
	c.function(TypeAnonymous, "")
}

// spawnExpr compiles `spawn expr`, where expr must evaluate to a closure;
// SPAWN itself is just sugar for compiling the operand then OP_COROUTINE.
func (c *Compiler) spawnExpr(canAssign bool) {
	c.parsePrecedence(precUnary)
	c.emitByte(bytecode.OpCoroutine)
}

func (c *Compiler) yieldExpr(canAssign bool) {
	c.parsePrecedence(precUnary)
	c.emitByte(bytecode.OpYield)
}

func (c *Compiler) awaitExpr(canAssign bool) {
	c.parsePrecedence(precUnary)
	c.emitByte(bytecode.OpAwait)
}
