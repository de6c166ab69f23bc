// Package intern canonicalizes identifier and string-literal bytes to stable
// references, so that string equality in the value model reduces to pointer
// equality (spec §4.F).
package intern

// A Name is a canonical, immutable reference to a byte sequence. Two Names
// are interned from equal bytes iff they are the same pointer.
type Name struct {
	bytes string
}

// Bytes returns the interned byte sequence.
func (n *Name) Bytes() string { return n.bytes }

func (n *Name) String() string { return n.bytes }

// A Table interns strings for the lifetime of the interpreter process. It is
// an explicit collaborator passed to the compiler and VM, never an ambient
// singleton (spec §9).
type Table struct {
	byBytes map[string]*Name
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{byBytes: make(map[string]*Name)}
}

// Intern returns the stable *Name for s, allocating one on first
// observation and returning the same pointer for every subsequent call with
// equal bytes.
func (t *Table) Intern(s string) *Name {
	if n, ok := t.byBytes[s]; ok {
		return n
	}
	n := &Name{bytes: s}
	t.byBytes[s] = n
	return n
}
