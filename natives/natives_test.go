// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package natives

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/ember/compiler"
	"github.com/probechain/ember/heap"
	"github.com/probechain/ember/vm"
)

func run(t *testing.T, source string) string {
	t.Helper()
	h := heap.New()
	v := vm.New(h, vm.Config{NativeArityChecking: true})
	var out bytes.Buffer
	v.Stdout = &out
	Register(v)

	fn, errs := compiler.Compile(h, "test.ember", source)
	require.Empty(t, errs)
	_, err := v.Interpret(fn)
	require.NoError(t, err)
	return out.String()
}

func TestPrintNumbersAndStrings(t *testing.T) {
	out := run(t, `
		print(1);
		print(1.5);
		print("hi");
		print(true);
		print(nil);
	`)
	require.Equal(t, "1\n1.5\nhi\ntrue\nnil\n", out)
}

func TestPrintList(t *testing.T) {
	out := run(t, `print([1, 2, 3]);`)
	require.Equal(t, "[1, 2, 3]\n", out)
}

func TestPrintFunctionAndNative(t *testing.T) {
	out := run(t, `
		fun add(a, b) { return a + b; }
		print(add);
		print(clock);
	`)
	require.Contains(t, out, "<fn add>")
	require.Contains(t, out, "<native fn clock>")
}

func TestClockReturnsANumber(t *testing.T) {
	h := heap.New()
	v := vm.New(h, vm.Config{})
	Register(v)

	fn, errs := compiler.Compile(h, "test.ember", `
		var t = clock();
		print(t >= 0);
	`)
	require.Empty(t, errs)
	var out bytes.Buffer
	v.Stdout = &out
	_, err := v.Interpret(fn)
	require.NoError(t, err)
	require.Equal(t, "true\n", out.String())
}

func TestPrintArityIsEnforced(t *testing.T) {
	h := heap.New()
	v := vm.New(h, vm.Config{NativeArityChecking: true})
	Register(v)

	fn, errs := compiler.Compile(h, "test.ember", `print(1, 2);`)
	require.Empty(t, errs)
	_, err := v.Interpret(fn)
	require.Error(t, err)
}
