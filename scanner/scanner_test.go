// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package scanner

import (
	"testing"

	"github.com/probechain/ember/token"
)

func collect(source string) []token.Token {
	s := New("test.ember", source)
	var toks []token.Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestScansPunctuationAndOperators(t *testing.T) {
	toks := collect("( ) { } [ ] , . - + ; / * : ! != = == > >= < <=")
	want := []token.Type{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET,
		token.COMMA, token.DOT, token.MINUS, token.PLUS, token.SEMICOLON, token.SLASH, token.STAR,
		token.COLON, token.BANG, token.BANG_EQUAL, token.EQUAL, token.EQUAL_EQUAL,
		token.GREATER, token.GREATER_EQUAL, token.LESS, token.LESS_EQUAL, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, typ := range want {
		if toks[i].Type != typ {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, typ)
		}
	}
}

func TestScansKeywordsAndIdentifiers(t *testing.T) {
	toks := collect("var fun coroutine spawn yield await notAKeyword")
	wantTypes := []token.Type{
		token.VAR, token.FUN, token.COROUTINE, token.SPAWN, token.YIELD, token.AWAIT, token.IDENT, token.EOF,
	}
	for i, typ := range wantTypes {
		if toks[i].Type != typ {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, typ)
		}
	}
	if toks[6].Literal != "notAKeyword" {
		t.Errorf("identifier literal = %q", toks[6].Literal)
	}
}

func TestScansNumbers(t *testing.T) {
	toks := collect("42 3.14 0")
	want := []string{"42", "3.14", "0"}
	for i, w := range want {
		if toks[i].Type != token.NUMBER || toks[i].Literal != w {
			t.Errorf("token %d = %+v, want NUMBER %q", i, toks[i], w)
		}
	}
}

func TestScansStringsWithEscapes(t *testing.T) {
	toks := collect(`"hello\nworld\t\"quoted\"\\"`)
	if toks[0].Type != token.STRING {
		t.Fatalf("expected STRING, got %s", toks[0].Type)
	}
	want := "hello\nworld\t\"quoted\"\\"
	if toks[0].Literal != want {
		t.Errorf("string literal = %q, want %q", toks[0].Literal, want)
	}
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	toks := collect(`"unterminated`)
	if toks[0].Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", toks[0].Type)
	}
}

func TestSkipsLineComments(t *testing.T) {
	toks := collect("1 // a comment\n2")
	if toks[0].Type != token.NUMBER || toks[0].Literal != "1" {
		t.Fatalf("unexpected first token %+v", toks[0])
	}
	if toks[1].Type != token.NUMBER || toks[1].Literal != "2" {
		t.Fatalf("comment not skipped, got %+v", toks[1])
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := collect("a\nb")
	if toks[0].Pos.Line != 1 {
		t.Errorf("first token line = %d, want 1", toks[0].Pos.Line)
	}
	if toks[1].Pos.Line != 2 {
		t.Errorf("second token line = %d, want 2", toks[1].Pos.Line)
	}
}

func TestEOFIsSticky(t *testing.T) {
	s := New("t", "")
	a := s.Next()
	b := s.Next()
	if a.Type != token.EOF || b.Type != token.EOF {
		t.Fatalf("expected repeated EOF, got %s then %s", a.Type, b.Type)
	}
}
