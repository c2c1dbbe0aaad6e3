// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package compiler

import (
	"github.com/pkg/errors"

	"github.com/probechain/ember/token"
)

// CompileError pairs a message with the source position that triggered it.
type CompileError struct {
	Pos token.Position
	Msg string
}

func (e *CompileError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// errorAt records a compile error at pos. Subsequent errors are suppressed
// while panicMode is set, until synchronize() finds a safe boundary — this
// is the standard "don't cascade one syntax error into fifty" strategy.
func (p *parserState) errorAt(pos token.Position, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = append(p.errs, errors.WithStack(&CompileError{Pos: pos, Msg: msg}))
}

func (p *parserState) errorAtCurrent(msg string) { p.errorAt(p.cur.Pos, msg) }
func (p *parserState) errorAtPrev(msg string)    { p.errorAt(p.prev.Pos, msg) }

// synchronize advances past tokens until after a ';' or until the next
// statement-starting keyword, re-establishing a safe point to resume
// parsing declarations after an error.
func (p *parserState) synchronize() {
	p.panicMode = false
	for p.cur.Type != token.EOF {
		if p.prev.Type == token.SEMICOLON {
			return
		}
		switch p.cur.Type {
		case token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.RETURN, token.COROUTINE:
			return
		}
		p.advance()
	}
}
