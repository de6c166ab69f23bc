// Package value implements the runtime value model (spec §4.A): a
// tagged-sum of nil, bool, number, string, function, closure, native, and
// upvalue, each a concrete type implementing the Value interface.
package value

import (
	"fmt"
	"strconv"

	"wisp/lang/compiler"
	"wisp/lang/intern"
)

// Value is implemented by every variant the VM can push onto its stack.
type Value interface {
	// String returns the value's printable form (spec §4.A).
	String() string
	// Truthy reports whether the value is truthy: nil and false are the only
	// falsey values.
	Truthy() bool
}

// Nil is the unit value.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Truthy() bool   { return false }

// None is the sole Nil value; compare with ==, Nil carries no state.
var None = Nil{}

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Truthy() bool { return bool(b) }

// Number is an IEEE-754 double.
type Number float64

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (n Number) Truthy() bool   { return true }

// String is a reference to an interned immutable byte sequence. Two String
// values compare equal under Equal iff they reference the same *intern.Name.
type String struct {
	Name *intern.Name
}

// NewString wraps an already-interned name as a Value.
func NewString(n *intern.Name) String { return String{Name: n} }

func (s String) String() string { return s.Name.Bytes() }
func (s String) Truthy() bool   { return true }

// Function is a reference to a compiled, immutable Function record (spec
// §3: "Functions ... never mutated after endCompiler").
type Function struct {
	Fn *compiler.Function
}

func (f Function) String() string {
	if f.Fn.Name == "" {
		return "<script>"
	}
	return "<fn " + f.Fn.Name + ">"
}
func (f Function) Truthy() bool { return true }

// Native is a host-implemented callable (spec §6).
type Native struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (n *Native) String() string { return "<native fn>" }
func (n *Native) Truthy() bool   { return true }

// Callable reports whether v is one of the three callable variants:
// function, closure, native (spec §4.A).
func Callable(v Value) bool {
	switch v.(type) {
	case Function, *Closure, *Native:
		return true
	default:
		return false
	}
}

// Equal implements spec §3's equality rule: same variant and equal payload;
// string equality is reference equality after interning; NaN is never equal
// to anything, including itself.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		return float64(av) == float64(bv) // NaN != NaN falls out of IEEE-754 comparison
	case String:
		bv, ok := b.(String)
		return ok && av.Name == bv.Name
	case Function:
		bv, ok := b.(Function)
		return ok && av.Fn == bv.Fn
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	case *Native:
		bv, ok := b.(*Native)
		return ok && av == bv
	case *Upvalue:
		bv, ok := b.(*Upvalue)
		return ok && av == bv
	default:
		panic(fmt.Sprintf("unhandled value type %T in Equal", a))
	}
}
