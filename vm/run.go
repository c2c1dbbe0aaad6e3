// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/probechain/ember/bytecode"
	"github.com/probechain/ember/heap"
	"github.com/probechain/ember/object"
	"github.com/probechain/ember/value"
)

// run is the single dispatch loop: read a byte from the current frame's
// ip, switch on opcode, repeat until the outermost frame returns or a
// runtime error unwinds everything.
func (vm *VM) run() (value.Value, error) {
	for {
		fr := vm.frame()
		chunk := fr.Closure.Function.Chunk

		if vm.Config.DebugTraceExecution {
			vm.traceStep(fr, chunk)
		}

		op := bytecode.OpCode(chunk.Code[fr.IP])
		fr.IP++

		switch op {
		case bytecode.OpConstant:
			idx := int(chunk.Code[fr.IP])
			fr.IP++
			vm.push(chunk.Constants[idx])

		case bytecode.OpConstantLong:
			idx := chunk.ReadUint24(fr.IP)
			fr.IP += 3
			vm.push(chunk.Constants[idx])

		case bytecode.OpNil:
			vm.push(value.Nil)
		case bytecode.OpTrue:
			vm.push(value.True)
		case bytecode.OpFalse:
			vm.push(value.False)

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpNegate:
			v := vm.peek(0)
			if !v.IsNumber() {
				return vm.fail(errors.Wrap(ErrTypeMismatch, "operand must be a number"))
			}
			vm.pop()
			vm.push(value.Number(-v.AsNumber()))

		case bytecode.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return vm.fail(err)
			}

		case bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide,
			bytecode.OpGreater, bytecode.OpLess:
			if err := vm.numericBinary(op); err != nil {
				return vm.fail(err)
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case bytecode.OpGetLocal:
			slot := int(chunk.Code[fr.IP])
			fr.IP++
			vm.push(vm.stack[fr.Slots+slot])
		case bytecode.OpSetLocal:
			slot := int(chunk.Code[fr.IP])
			fr.IP++
			vm.stack[fr.Slots+slot] = vm.peek(0)
		case bytecode.OpGetLocalLong:
			slot := chunk.ReadUint24(fr.IP)
			fr.IP += 3
			vm.push(vm.stack[fr.Slots+slot])
		case bytecode.OpSetLocalLong:
			slot := chunk.ReadUint24(fr.IP)
			fr.IP += 3
			vm.stack[fr.Slots+slot] = vm.peek(0)

		case bytecode.OpGetUpvalue:
			idx := int(chunk.Code[fr.IP])
			fr.IP++
			vm.push(*fr.Closure.Upvalues[idx].Location)
		case bytecode.OpSetUpvalue:
			idx := int(chunk.Code[fr.IP])
			fr.IP++
			*fr.Closure.Upvalues[idx].Location = vm.peek(0)
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[len(vm.stack)-1])
			vm.pop()

		case bytecode.OpGetGlobal, bytecode.OpGetGlobalLong:
			name := vm.readGlobalName(op, chunk, fr)
			v, ok := vm.Globals[name]
			if !ok {
				return vm.fail(errors.Wrapf(ErrUndefinedGlobal, "%s", name.Chars))
			}
			vm.push(v)
		case bytecode.OpSetGlobal, bytecode.OpSetGlobalLong:
			name := vm.readGlobalName(op, chunk, fr)
			vm.Globals[name] = vm.peek(0)

		case bytecode.OpJump:
			offset := chunk.ReadUint32(fr.IP)
			fr.IP += 4 + int(offset)
		case bytecode.OpJumpIfFalse:
			offset := chunk.ReadUint32(fr.IP)
			fr.IP += 4
			if vm.peek(0).IsFalsey() {
				fr.IP += int(offset)
			}
		case bytecode.OpLoop:
			offset := chunk.ReadUint32(fr.IP)
			fr.IP += 4 - int(offset)

		case bytecode.OpCall:
			argc := int(chunk.Code[fr.IP])
			fr.IP++
			callee := vm.peek(argc)
			if err := vm.call(callee, argc); err != nil {
				return vm.fail(err)
			}

		case bytecode.OpReturn:
			result := vm.pop()
			base := fr.Slots
			vm.closeUpvalues(&vm.stack[base])
			vm.frames = vm.frames[:len(vm.frames)-1]

			if len(vm.frames) == 0 {
				// Top-level RETURN inside a running coroutine completes it
				// and transfers control back to its awaiter; at the root
				// VM level (vm.current == nil) it ends interpretation.
				if vm.current != nil {
					vm.completeCoroutine(result)
					continue
				}
				vm.stack = vm.stack[:base]
				return result, nil
			}
			vm.stack = vm.stack[:base]
			vm.push(result)

		case bytecode.OpClosure, bytecode.OpClosureLong:
			if err := vm.opClosure(op, chunk, fr); err != nil {
				return vm.fail(err)
			}

		case bytecode.OpList, bytecode.OpListLong:
			count := vm.readCount(op, bytecode.OpList, chunk, fr)
			elems := append([]value.Value(nil), vm.stack[len(vm.stack)-count:]...)
			vm.stack = vm.stack[:len(vm.stack)-count]
			vm.maybeCollect()
			vm.push(vm.Heap.NewList(elems).Value())

		case bytecode.OpDict, bytecode.OpDictLong:
			count := vm.readCount(op, bytecode.OpDict, chunk, fr)
			vm.maybeCollect()
			d := vm.Heap.NewDict()
			base := len(vm.stack) - 2*count
			for i := 0; i < count; i++ {
				k := vm.stack[base+2*i]
				v := vm.stack[base+2*i+1]
				if !k.IsObj() || object.FromValue(k).Type != object.TypeString {
					return vm.fail(errors.Wrap(ErrTypeMismatch, "dict keys must be strings"))
				}
				d.Entries[object.FromValue(k).AsString()] = v
			}
			vm.stack = vm.stack[:base]
			vm.push(d.Value())

		case bytecode.OpGetField:
			if err := vm.opGetField(); err != nil {
				return vm.fail(err)
			}
		case bytecode.OpSetField:
			if err := vm.opSetField(); err != nil {
				return vm.fail(err)
			}

		case bytecode.OpCoroutine:
			vm.maybeCollect()
			if err := vm.opCoroutine(); err != nil {
				return vm.fail(err)
			}
		case bytecode.OpYield:
			if err := vm.opYield(); err != nil {
				return vm.fail(err)
			}
		case bytecode.OpAwait:
			if err := vm.opAwait(); err != nil {
				return vm.fail(err)
			}

		default:
			return vm.fail(errors.Errorf("unknown opcode %d", op))
		}
	}
}

func (vm *VM) readGlobalName(op bytecode.OpCode, chunk *bytecode.Chunk, fr *object.Frame) *object.String {
	var idx int
	switch op {
	case bytecode.OpGetGlobal, bytecode.OpSetGlobal:
		idx = int(chunk.Code[fr.IP])
		fr.IP++
	default:
		idx = chunk.ReadUint24(fr.IP)
		fr.IP += 3
	}
	return object.FromValue(chunk.Constants[idx]).AsString()
}

func (vm *VM) readCount(op, shortOp bytecode.OpCode, chunk *bytecode.Chunk, fr *object.Frame) int {
	if op == shortOp {
		n := int(chunk.Code[fr.IP])
		fr.IP++
		return n
	}
	n := int(chunk.Code[fr.IP]) | int(chunk.Code[fr.IP+1])<<8 | int(chunk.Code[fr.IP+2])<<16
	fr.IP += 3
	return n
}

func (vm *VM) opClosure(op bytecode.OpCode, chunk *bytecode.Chunk, fr *object.Frame) error {
	var idx int
	if op == bytecode.OpClosure {
		idx = int(chunk.Code[fr.IP])
		fr.IP++
	} else {
		idx = chunk.ReadUint24(fr.IP)
		fr.IP += 3
	}
	fn := object.FromValue(chunk.Constants[idx]).AsFunction()
	vm.maybeCollect()
	closure := vm.Heap.NewClosure(fn)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[fr.IP]
		index := chunk.Code[fr.IP+1]
		fr.IP += 2
		if isLocal == 1 {
			// The slot may not be pushed yet (a function capturing its own
			// name), so address it within the stack's full capacity.
			closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[:cap(vm.stack)][fr.Slots+int(index)])
		} else {
			closure.Upvalues[i] = fr.Closure.Upvalues[index]
		}
	}
	vm.push(closure.Value())
	return nil
}

func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	case isString(a) && isString(b):
		vm.pop()
		vm.pop()
		sa := object.FromValue(a).AsString()
		sb := object.FromValue(b).AsString()
		vm.maybeCollect()
		vm.push(vm.Heap.NewString(sa.Chars + sb.Chars).Value())
		return nil
	default:
		return errors.Wrap(ErrTypeMismatch, "operands must be two numbers or two strings")
	}
}

func isString(v value.Value) bool {
	return v.IsObj() && object.FromValue(v).Type == object.TypeString
}

func (vm *VM) numericBinary(op bytecode.OpCode) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return errors.Wrap(ErrTypeMismatch, "operands must be numbers")
	}
	vm.pop()
	vm.pop()
	x, y := a.AsNumber(), b.AsNumber()
	switch op {
	case bytecode.OpSubtract:
		vm.push(value.Number(x - y))
	case bytecode.OpMultiply:
		vm.push(value.Number(x * y))
	case bytecode.OpDivide:
		vm.push(value.Number(x / y))
	case bytecode.OpGreater:
		vm.push(value.Bool(x > y))
	case bytecode.OpLess:
		vm.push(value.Bool(x < y))
	}
	return nil
}

// opGetField dispatches on the receiver's type: string keys read a Dict
// entry, integer-valued numeric indices read a List element (spec.md §4.E).
func (vm *VM) opGetField() error {
	key := vm.pop()
	recv := vm.pop()
	if !recv.IsObj() {
		return errors.Wrap(ErrInvalidReceiver, object.TypeName(recv))
	}
	switch object.FromValue(recv).Type {
	case object.TypeDict:
		if !isString(key) {
			return errors.Wrap(ErrTypeMismatch, "dict keys must be strings")
		}
		d := object.FromValue(recv).AsDict()
		v, ok := d.Entries[object.FromValue(key).AsString()]
		if !ok {
			vm.push(value.Nil)
			return nil
		}
		vm.push(v)
		return nil
	case object.TypeList:
		idx, err := listIndex(key)
		if err != nil {
			return err
		}
		l := object.FromValue(recv).AsList()
		if idx < 0 || idx >= len(l.Elements) {
			return ErrIndexOutOfRange
		}
		vm.push(l.Elements[idx])
		return nil
	default:
		return errors.Wrap(ErrInvalidReceiver, object.FromValue(recv).Type.String())
	}
}

func (vm *VM) opSetField() error {
	val := vm.pop()
	key := vm.pop()
	recv := vm.pop()
	if !recv.IsObj() {
		return errors.Wrap(ErrInvalidReceiver, object.TypeName(recv))
	}
	switch object.FromValue(recv).Type {
	case object.TypeDict:
		if !isString(key) {
			return errors.Wrap(ErrTypeMismatch, "dict keys must be strings")
		}
		d := object.FromValue(recv).AsDict()
		d.Entries[object.FromValue(key).AsString()] = val
	case object.TypeList:
		idx, err := listIndex(key)
		if err != nil {
			return err
		}
		l := object.FromValue(recv).AsList()
		if idx < 0 || idx >= len(l.Elements) {
			return ErrIndexOutOfRange
		}
		l.Elements[idx] = val
	default:
		return errors.Wrap(ErrInvalidReceiver, object.FromValue(recv).Type.String())
	}
	vm.push(val)
	return nil
}

func listIndex(key value.Value) (int, error) {
	if !key.IsNumber() {
		return 0, errors.Wrap(ErrTypeMismatch, "list index must be a number")
	}
	f := key.AsNumber()
	if math.Trunc(f) != f {
		return 0, errors.Wrap(ErrTypeMismatch, "list index must be an integer-valued number")
	}
	return int(f), nil
}

// maybeCollect runs a GC cycle if the heap's trigger condition is met,
// gathering the currently active execution context as roots (spec.md
// §4.C point 7 falls out for free — see heap.RootSet's doc comment).
func (vm *VM) maybeCollect() {
	if !vm.Heap.ShouldCollect() {
		return
	}
	vm.Heap.Collect(vm.rootSet())
}

func (vm *VM) rootSet() heap.RootSet {
	closures := make([]*object.Closure, len(vm.frames))
	for i, f := range vm.frames {
		closures[i] = f.Closure
	}
	var opens []*object.Upvalue
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		opens = append(opens, u)
	}
	stack := append([]value.Value(nil), vm.stack...)

	// vm.current is the innermost active coroutine, reachable only through
	// this field while it runs. Its ResumedBy chain holds every ancestor
	// coroutine suspended mid-AWAIT: their state was captured into a
	// Caller rather than kept in their own Stack/Frames/OpenUpvalues
	// fields, and the Coroutine objects themselves may have no other live
	// reference while suspended this way (spec.md §4.C root #7).
	if vm.current != nil {
		stack = append(stack, vm.current.Value())
		for link := vm.current.ResumedBy; link != nil; {
			stack = append(stack, link.Stack...)
			for _, f := range link.Frames {
				closures = append(closures, f.Closure)
			}
			for u := link.OpenUpvalues; u != nil; u = u.NextOpen {
				opens = append(opens, u)
			}
			if link.Coroutine == nil {
				break
			}
			stack = append(stack, link.Coroutine.Value())
			link = link.Coroutine.ResumedBy
		}
	}

	return heap.RootSet{
		Stack:         stack,
		FrameClosures: closures,
		OpenUpvalues:  opens,
		Globals:       vm.Globals,
	}
}

// fail wraps err into a RuntimeError with a line-numbered frame trace and
// resets the VM's execution state (spec.md §7: "the VM is not re-entrant
// after a runtime error without reinitialization").
func (vm *VM) fail(err error) (value.Value, error) {
	rtErr := &RuntimeError{Err: err, Trace: vm.traceback()}
	vm.errColor.Fprintln(os.Stderr, rtErr.Error())
	for _, line := range rtErr.Trace {
		fmt.Fprintln(os.Stderr, "  "+line)
	}
	vm.resetStack()
	return value.Nil, rtErr
}

func (vm *VM) traceback() []string {
	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := vm.frames[i]
		line := fr.Closure.Function.Chunk.LineAt(fr.IP - 1)
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, fr.Closure.Function.DisplayName()))
	}
	return trace
}

// runtimeError is used by Interpret's bootstrap call path, which fails
// before the dispatch loop (and its own vm.fail) ever runs.
func (vm *VM) runtimeError(err error) error {
	_, wrapped := vm.fail(err)
	return wrapped
}

func (vm *VM) traceStep(fr *object.Frame, chunk *bytecode.Chunk) {
	fmt.Fprintf(os.Stderr, "%04d %s\n", fr.IP, heap.DumpValue(vm.peekOrNil()))
}

func (vm *VM) peekOrNil() value.Value {
	if len(vm.stack) == 0 {
		return value.Nil
	}
	return vm.peek(0)
}
