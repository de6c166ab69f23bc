// Package vm implements the frame-stack bytecode interpreter (spec §4.E): a
// fixed-capacity value stack, a fixed-capacity call-frame stack, a globals
// table, and a dispatch loop over the compiler's opcode set.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/dolthub/swiss"

	"wisp/lang/compiler"
	"wisp/lang/intern"
	"wisp/lang/value"
)

const (
	stackMax = 256 // spec §9: pre-reserved, never reallocated
	frameMax = 64
)

// VM is a single-threaded, non-reentrant bytecode interpreter (spec §5: "not
// re-entrant... no operation suspends"). Construct with New and reuse across
// multiple Interpret calls the way a REPL does; globals persist across
// calls, the value stack and frame stack reset at the start of each one.
type VM struct {
	stack    [stackMax]value.Value
	stackTop int
	frames   []frame

	globals  *swiss.Map[*intern.Name, value.Value]
	interner *intern.Table

	openUpvalues *value.Upvalue // descending by Slot

	// Stdout and Stderr are where PRINT output and diagnostics go. Nil means
	// os.Stdout / os.Stderr, the same optional-collaborator idiom the teacher
	// uses for its Thread.
	Stdout io.Writer
	Stderr io.Writer

	// MaxStack caps the number of live stack slots a program may use, no
	// larger than stackMax (the array is never reallocated, spec §9). Set
	// from WISP_MAX_STACK; zero or out-of-range means stackMax.
	MaxStack int

	// Trace, when true, writes one disassembled line per executed
	// instruction to Stderr before it runs. Set from WISP_TRACE.
	Trace bool
}

// New returns a VM sharing interner with its compiler (spec §9: pass the
// interner and globals as explicit collaborators, never ambient singletons).
func New(interner *intern.Table) *VM {
	vm := &VM{
		globals:  swiss.NewMap[*intern.Name, value.Value](64),
		interner: interner,
		frames:   make([]frame, 0, frameMax),
		MaxStack: stackMax,
	}
	vm.defineClock()
	return vm
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

func (vm *VM) maxStack() int {
	if vm.MaxStack <= 0 || vm.MaxStack > stackMax {
		return stackMax
	}
	return vm.MaxStack
}

// Interpret compiles and runs source. A compile error is returned as-is
// (its concrete type distinguishes it from a *RuntimeError, spec §7's two
// taxonomies); the value-stack and frame-stack reset before every call, so a
// prior runtime error leaves a clean slate for the next REPL line, while
// globals persist (spec §7).
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source, vm.interner)
	if err != nil {
		return err
	}

	vm.stackTop = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil

	scriptFn := value.Function{Fn: fn}
	closure := value.NewClosure(scriptFn, 0)
	if err := vm.push(closure); err != nil {
		return err
	}
	if err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) push(v value.Value) error {
	if vm.stackTop >= vm.maxStack() {
		return vm.runtimeErrorf("Stack overflow.")
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
	return nil
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) currentFrame() *frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) readByte() byte {
	f := vm.currentFrame()
	b := f.closure.Fn.Fn.Chunk.Code()[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort() int {
	hi := vm.readByte()
	lo := vm.readByte()
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant() any {
	f := vm.currentFrame()
	k := vm.readByte()
	return f.closure.Fn.Fn.Chunk.Constants()[k]
}

// rawToValue converts a raw constant-pool entry (spec §4.B: a number,
// interned name, or nested Function) into a runtime Value.
func rawToValue(raw any) value.Value {
	switch v := raw.(type) {
	case float64:
		return value.Number(v)
	case *intern.Name:
		return value.NewString(v)
	case *compiler.Function:
		return value.Function{Fn: v}
	default:
		panic(fmt.Sprintf("unhandled constant type %T", raw))
	}
}

// call pushes a new call frame for closure (spec §4.E "call(closure,
// argc)").
func (vm *VM) call(c *value.Closure, argc int) error {
	if argc != int(c.Fn.Fn.Arity) {
		return vm.runtimeErrorf("Expected %d arguments but got %d.", c.Fn.Fn.Arity, argc)
	}
	if len(vm.frames) >= frameMax {
		return vm.runtimeErrorf("Stack overflow.")
	}
	vm.frames = append(vm.frames, frame{closure: c, slots: vm.stackTop - argc - 1})
	return nil
}

// callValue dispatches CALL to a closure or a native, or reports a
// non-callable value (spec §4.E "callValue(callee, argc)").
func (vm *VM) callValue(callee value.Value, argc int) error {
	switch c := callee.(type) {
	case *value.Closure:
		return vm.call(c, argc)
	case *value.Native:
		args := make([]value.Value, argc)
		copy(args, vm.stack[vm.stackTop-argc:vm.stackTop])
		result, err := c.Fn(args)
		if err != nil {
			return vm.runtimeErrorf("%s", err)
		}
		vm.stackTop -= argc + 1
		return vm.push(result)
	default:
		return vm.runtimeErrorf("Can only call functions and classes.")
	}
}

// captureUpvalue returns the existing open Upvalue for slot, or creates one,
// keeping the open list sorted by descending Slot (spec §9 / SPEC_FULL.md
// §9).
func (vm *VM) captureUpvalue(slot int) *value.Upvalue {
	var prev *value.Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}
	created := value.NewOpenUpvalue(&vm.stack[slot], slot)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above fromSlot (SPEC_FULL.md
// §9's RETURN-side closing).
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= fromSlot {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}

// closeUpvalueAt closes the single open upvalue at exactly slot, if any
// (SPEC_FULL.md §9's POP-side closing — a block-scope POP drops exactly one
// slot, so at most one upvalue can reference it).
func (vm *VM) closeUpvalueAt(slot int) {
	if vm.openUpvalues != nil && vm.openUpvalues.Slot == slot {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}

func isNumber(v value.Value) (value.Number, bool) { n, ok := v.(value.Number); return n, ok }
func isString(v value.Value) (value.String, bool) { s, ok := v.(value.String); return s, ok }

// run executes bytecode from the current (topmost) frame until the script
// returns or a runtime error occurs (spec §4.E "Dispatch loop").
func (vm *VM) run() error {
	for {
		f := vm.currentFrame()
		if vm.Trace {
			f.closure.Fn.Fn.Chunk.TraceInstruction(vm.stderr(), f.ip)
		}
		op := compiler.Opcode(vm.readByte())

		switch op {
		case compiler.CONSTANT:
			if err := vm.push(rawToValue(vm.readConstant())); err != nil {
				return err
			}

		case compiler.NIL:
			if err := vm.push(value.None); err != nil {
				return err
			}
		case compiler.TRUE:
			if err := vm.push(value.Bool(true)); err != nil {
				return err
			}
		case compiler.FALSE:
			if err := vm.push(value.Bool(false)); err != nil {
				return err
			}

		case compiler.POP:
			vm.closeUpvalueAt(vm.stackTop - 1)
			vm.pop()

		case compiler.GET_LOCAL:
			slot := int(vm.readByte())
			if err := vm.push(vm.stack[f.slots+slot]); err != nil {
				return err
			}
		case compiler.SET_LOCAL:
			slot := int(vm.readByte())
			vm.stack[f.slots+slot] = vm.peek(0)

		case compiler.GET_UPVALUE:
			slot := int(vm.readByte())
			if err := vm.push(*f.closure.Upvalues[slot].Location); err != nil {
				return err
			}
		case compiler.SET_UPVALUE:
			slot := int(vm.readByte())
			*f.closure.Upvalues[slot].Location = vm.peek(0)

		case compiler.GET_GLOBAL:
			name := vm.readConstant().(*intern.Name)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeErrorf("Undefined variable '%s'.", name.Bytes())
			}
			if err := vm.push(v); err != nil {
				return err
			}
		case compiler.SET_GLOBAL:
			name := vm.readConstant().(*intern.Name)
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeErrorf("Undefined variable '%s'.", name.Bytes())
			}
			vm.globals.Put(name, vm.peek(0))
		case compiler.DEFINE_GLOBAL:
			name := vm.readConstant().(*intern.Name)
			vm.globals.Put(name, vm.pop())

		case compiler.EQUAL:
			b, a := vm.pop(), vm.pop()
			if err := vm.push(value.Bool(value.Equal(a, b))); err != nil {
				return err
			}
		case compiler.GREATER, compiler.LESS:
			bn, bok := isNumber(vm.peek(0))
			an, aok := isNumber(vm.peek(1))
			if !aok || !bok {
				return vm.runtimeErrorf("Operands must be numbers.")
			}
			vm.pop()
			vm.pop()
			var result bool
			if op == compiler.GREATER {
				result = an > bn
			} else {
				result = an < bn
			}
			if err := vm.push(value.Bool(result)); err != nil {
				return err
			}

		case compiler.ADD:
			bv, av := vm.peek(0), vm.peek(1)
			if an, aok := isNumber(av); aok {
				if bn, bok := isNumber(bv); bok {
					vm.pop()
					vm.pop()
					if err := vm.push(an + bn); err != nil {
						return err
					}
					break
				}
			}
			if as, aok := isString(av); aok {
				if bs, bok := isString(bv); bok {
					vm.pop()
					vm.pop()
					concat := vm.interner.Intern(as.Name.Bytes() + bs.Name.Bytes())
					if err := vm.push(value.NewString(concat)); err != nil {
						return err
					}
					break
				}
			}
			return vm.runtimeErrorf("Operands must be two numbers or two strings.")

		case compiler.SUBTRACT, compiler.MULTIPLY, compiler.DIVIDE:
			bn, bok := isNumber(vm.peek(0))
			an, aok := isNumber(vm.peek(1))
			if !aok || !bok {
				return vm.runtimeErrorf("Operands must be numbers.")
			}
			vm.pop()
			vm.pop()
			var result value.Number
			switch op {
			case compiler.SUBTRACT:
				result = an - bn
			case compiler.MULTIPLY:
				result = an * bn
			case compiler.DIVIDE:
				result = an / bn
			}
			if err := vm.push(result); err != nil {
				return err
			}

		case compiler.NOT:
			v := vm.pop()
			if err := vm.push(value.Bool(!v.Truthy())); err != nil {
				return err
			}
		case compiler.NEGATE:
			n, ok := isNumber(vm.peek(0))
			if !ok {
				return vm.runtimeErrorf("Operand must be a number.")
			}
			vm.pop()
			if err := vm.push(-n); err != nil {
				return err
			}

		case compiler.PRINT:
			fmt.Fprintln(vm.stdout(), vm.pop().String())

		case compiler.JUMP:
			off := vm.readShort()
			f.ip += off
		case compiler.JUMP_IF_FALSE:
			off := vm.readShort()
			if !vm.peek(0).Truthy() {
				f.ip += off
			}
		case compiler.LOOP:
			off := vm.readShort()
			f.ip -= off

		case compiler.CALL:
			argc := int(vm.readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}

		case compiler.CLOSURE:
			raw := vm.readConstant()
			fnVal := value.Function{Fn: raw.(*compiler.Function)}
			count := int(fnVal.Fn.UpvalueCount)
			closure := value.NewClosure(fnVal, count)
			for i := 0; i < count; i++ {
				isLocal := vm.readByte()
				index := int(vm.readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f.slots + index)
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
			if err := vm.push(closure); err != nil {
				return err
			}

		case compiler.RETURN:
			result := vm.pop()
			vm.closeUpvalues(f.slots)
			base := f.slots
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop() // the top-level script closure sentinel
				return nil
			}
			vm.stackTop = base
			if err := vm.push(result); err != nil {
				return err
			}

		default:
			return vm.runtimeErrorf("unknown opcode %s", op)
		}
	}
}
