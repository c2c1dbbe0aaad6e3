// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package token

import "testing"

func TestKeywordsMapBack(t *testing.T) {
	for word, typ := range Keywords {
		if got := typ.String(); got != word {
			t.Errorf("Keywords[%q] = %v, whose String() = %q", word, typ, got)
		}
	}
}

func TestTypeStringUnknown(t *testing.T) {
	var huge Type = 9999
	if got := huge.String(); got == "" {
		t.Error("String() on an out-of-range Type should not be empty")
	}
}

func TestPositionStringWithAndWithoutFile(t *testing.T) {
	p := Position{File: "main.ember", Line: 3, Column: 5}
	if got := p.String(); got != "main.ember:3:5" {
		t.Errorf("Position.String() = %q", got)
	}
	p2 := Position{Line: 1, Column: 1}
	if got := p2.String(); got != "1:1" {
		t.Errorf("Position.String() without file = %q", got)
	}
}
