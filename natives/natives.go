// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package natives provides the interpreter's native-function library: the
// small set of host functions a script can call through the ordinary CALL
// opcode, the same way the teacher module exposes host functionality to
// embedded code through its stdlib/* packages.
package natives

import (
	"fmt"
	"time"

	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
	"github.com/probechain/ember/vm"
)

// registry binds each VM, since a VM's Globals table and Stdout are
// instance state and natives must close over the specific VM they serve.
type registry struct {
	vm *vm.VM
}

// Register installs every native in this package into v's globals table,
// the single call site a CLI driver needs to make script code able to see
// clock() and print().
func Register(v *vm.VM) {
	r := &registry{vm: v}
	v.DefineNative("clock", 0, r.clock)
	v.DefineNative("print", 1, r.print)
}

// clock returns the number of seconds elapsed since the Unix epoch as a
// float, mirroring clox's clock native. No script behavior in this
// interpreter depends on its value; it exists to exercise the zero-arity
// native-call path.
func (r *registry) clock(args []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}

// print writes a human-readable rendering of its single argument followed
// by a newline to the VM's configured Stdout and returns nil.
func (r *registry) print(args []value.Value) (value.Value, error) {
	fmt.Fprintln(r.vm.Stdout, stringify(args[0]))
	return value.Nil, nil
}

// stringify renders v the way a script author would expect print to show
// it: bare numbers, bare booleans, unquoted strings, and a short tag for
// every other heap object.
func stringify(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return fmt.Sprint(v.AsBool())
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObj():
		return stringifyObject(object.FromValue(v))
	default:
		return "?"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

func stringifyObject(o *object.Object) string {
	switch o.Type {
	case object.TypeString:
		return o.AsString().Chars
	case object.TypeFunction:
		return o.AsFunction().DisplayName()
	case object.TypeClosure:
		return o.AsClosure().Function.DisplayName()
	case object.TypeNative:
		return fmt.Sprintf("<native fn %s>", o.AsNative().Name)
	case object.TypeList:
		return stringifyList(o.AsList())
	case object.TypeDict:
		return "<dict>"
	case object.TypeCoroutine:
		return fmt.Sprintf("<coroutine %s>", o.AsCoroutine().ID)
	default:
		return o.Type.String()
	}
}

func stringifyList(l *object.List) string {
	s := "["
	for i, el := range l.Elements {
		if i > 0 {
			s += ", "
		}
		s += stringify(el)
	}
	return s + "]"
}
