// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package bytecode

import (
	"testing"

	"github.com/probechain/ember/value"
)

func TestWriteAndLineAt(t *testing.T) {
	c := NewChunk()
	c.Write(0x01, 1)
	c.Write(0x02, 1)
	c.Write(0x03, 2)
	c.Write(0x04, 2)
	c.Write(0x05, 2)

	cases := []struct {
		offset int
		line   int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 2}, {4, 2},
	}
	for _, tc := range cases {
		if got := c.LineAt(tc.offset); got != tc.line {
			t.Errorf("LineAt(%d) = %d, want %d", tc.offset, got, tc.line)
		}
	}
}

func TestLineAtPastEndClampsToLastRun(t *testing.T) {
	c := NewChunk()
	c.Write(0x01, 5)
	if got := c.LineAt(100); got != 5 {
		t.Errorf("LineAt past end = %d, want 5", got)
	}
}

func TestAddConstant(t *testing.T) {
	c := NewChunk()
	i0 := c.AddConstant(value.Number(1))
	i1 := c.AddConstant(value.Number(2))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("AddConstant indices = %d, %d, want 0, 1", i0, i1)
	}
	if c.Constants[0].AsNumber() != 1 || c.Constants[1].AsNumber() != 2 {
		t.Fatalf("constant pool contents wrong: %v", c.Constants)
	}
}

func TestWriteConstantEmitsShortForm(t *testing.T) {
	c := NewChunk()
	c.WriteConstant(value.Number(9), 1)
	if len(c.Code) != 2 {
		t.Fatalf("short constant should emit 2 bytes, got %d", len(c.Code))
	}
	if OpCode(c.Code[0]) != OpConstant {
		t.Errorf("expected OP_CONSTANT, got %s", OpCode(c.Code[0]))
	}
	if c.Code[1] != 0 {
		t.Errorf("expected index 0, got %d", c.Code[1])
	}
}

func TestWriteConstantIndexEmitsLongFormPast255(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 300; i++ {
		c.AddConstant(value.Number(float64(i)))
	}
	c.WriteConstantIndex(299, 1)
	if OpCode(c.Code[0]) != OpConstantLong {
		t.Fatalf("expected OP_CONSTANT_LONG past 256 constants, got %s", OpCode(c.Code[0]))
	}
	if got := c.ReadUint24(1); got != 299 {
		t.Errorf("ReadUint24 = %d, want 299", got)
	}
}

func TestUint32JumpPatch(t *testing.T) {
	c := NewChunk()
	at := c.WriteUint32(0xFFFFFFFF, 1)
	c.PatchUint32(at, 12345)
	if got := c.ReadUint32(at); got != 12345 {
		t.Errorf("patched jump offset = %d, want 12345", got)
	}
}

func TestWriteByteReturnsOffset(t *testing.T) {
	c := NewChunk()
	c.Write(0xAA, 1)
	off := c.WriteByte(OpReturn, 1)
	if off != 1 {
		t.Fatalf("WriteByte offset = %d, want 1", off)
	}
	if OpCode(c.Code[off]) != OpReturn {
		t.Errorf("WriteByte did not write the given opcode")
	}
}
