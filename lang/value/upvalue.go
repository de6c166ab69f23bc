package value

// Upvalue is a captured-variable cell shared between a closure and the
// frame whose local it was captured from. While open, Location points into
// the live VM value stack; closing repoints Location at the Upvalue's own
// Closed field, so GET_UPVALUE/SET_UPVALUE never need to know which state
// they're in (see SPEC_FULL.md §9).
type Upvalue struct {
	Location *Value
	Closed   Value
	// Slot is the absolute stack index this upvalue was opened over; the VM
	// uses it to find which open upvalues a POP or RETURN must close.
	Slot int
	// Next chains open upvalues in descending-slot order, mirroring the
	// teacher's open-upvalue list (lang/machine/cell.go's single linked list
	// of live cells) so the VM can find-or-create in one pass and close a
	// contiguous suffix in one walk.
	Next *Upvalue
}

// NewOpenUpvalue returns an Upvalue pointing at the live stack slot loc.
func NewOpenUpvalue(loc *Value, slot int) *Upvalue {
	return &Upvalue{Location: loc, Slot: slot}
}

// Close copies the current value out of the live stack slot into the
// upvalue's own storage and repoints Location at it. Idempotent.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

func (u *Upvalue) String() string { return "<upvalue>" }
func (u *Upvalue) Truthy() bool   { return true }

// Closure pairs a compiled Function with the upvalues it captured at the
// point its CLOSURE instruction ran (spec §4.D/§4.E).
type Closure struct {
	Fn       Function
	Upvalues []*Upvalue
}

// NewClosure allocates a Closure over fn with count empty upvalue slots,
// filled in by the VM's CLOSURE dispatch as each descriptor is read.
func NewClosure(fn Function, count int) *Closure {
	return &Closure{Fn: fn, Upvalues: make([]*Upvalue, count)}
}

func (c *Closure) String() string { return c.Fn.String() }
func (c *Closure) Truthy() bool   { return true }
