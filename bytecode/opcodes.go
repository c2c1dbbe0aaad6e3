// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package bytecode implements the Chunk (instruction buffer + constant pool
// + line table) that the compiler emits into and the VM executes, and the
// OpCode enum shared by both.
package bytecode

// OpCode is a single-byte instruction code.
type OpCode byte

const (
	OpConstant     OpCode = iota // 1B index into the constant pool
	OpConstantLong               // 3B little-endian index, for pools > 256 entries
	OpNil
	OpTrue
	OpFalse

	OpNegate
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpEqual
	OpGreater
	OpLess

	OpPop

	OpGetLocal
	OpSetLocal
	OpGetLocalLong
	OpSetLocalLong

	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	OpGetGlobal
	OpSetGlobal
	OpGetGlobalLong
	OpSetGlobalLong

	OpJump
	OpJumpIfFalse
	OpLoop

	OpCall
	OpReturn

	OpClosure
	OpClosureLong

	OpList
	OpListLong
	OpDict
	OpDictLong

	OpGetField
	OpSetField

	OpCoroutine
	OpYield
	OpAwait
)

var opNames = [...]string{
	OpConstant:      "OP_CONSTANT",
	OpConstantLong:  "OP_CONSTANT_LONG",
	OpNil:           "OP_NIL",
	OpTrue:          "OP_TRUE",
	OpFalse:         "OP_FALSE",
	OpNegate:        "OP_NEGATE",
	OpNot:           "OP_NOT",
	OpAdd:           "OP_ADD",
	OpSubtract:      "OP_SUBTRACT",
	OpMultiply:      "OP_MULTIPLY",
	OpDivide:        "OP_DIVIDE",
	OpEqual:         "OP_EQUAL",
	OpGreater:       "OP_GREATER",
	OpLess:          "OP_LESS",
	OpPop:           "OP_POP",
	OpGetLocal:      "OP_GET_LOCAL",
	OpSetLocal:      "OP_SET_LOCAL",
	OpGetLocalLong:  "OP_GET_LOCAL_LONG",
	OpSetLocalLong:  "OP_SET_LOCAL_LONG",
	OpGetUpvalue:    "OP_GET_UPVALUE",
	OpSetUpvalue:    "OP_SET_UPVALUE",
	OpCloseUpvalue:  "OP_CLOSE_UPVALUE",
	OpGetGlobal:     "OP_GET_GLOBAL",
	OpSetGlobal:     "OP_SET_GLOBAL",
	OpGetGlobalLong: "OP_GET_GLOBAL_LONG",
	OpSetGlobalLong: "OP_SET_GLOBAL_LONG",
	OpJump:          "OP_JUMP",
	OpJumpIfFalse:   "OP_JUMP_IF_FALSE",
	OpLoop:          "OP_LOOP",
	OpCall:          "OP_CALL",
	OpReturn:        "OP_RETURN",
	OpClosure:       "OP_CLOSURE",
	OpClosureLong:   "OP_CLOSURE_LONG",
	OpList:          "OP_LIST",
	OpListLong:      "OP_LIST_LONG",
	OpDict:          "OP_DICT",
	OpDictLong:      "OP_DICT_LONG",
	OpGetField:      "OP_GET_FIELD",
	OpSetField:      "OP_SET_FIELD",
	OpCoroutine:     "OP_COROUTINE",
	OpYield:         "OP_YIELD",
	OpAwait:         "OP_AWAIT",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "OP_UNKNOWN"
}
