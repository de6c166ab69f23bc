// Package compiler implements the single-pass Pratt-parsing compiler that
// turns scanner tokens directly into bytecode (spec §4.D), along with the
// Chunk/Function data model it emits (spec §4.B) for the VM to execute.
package compiler

import "wisp/lang/intern"

const maxConstants = 256

// lineRun is one entry of a run-length-encoded line table: count consecutive
// bytecode bytes all map back to the same source line.
type lineRun struct {
	count int
	line  int
}

// Chunk is a compiled unit: a byte-addressable bytecode stream, its constant
// pool, and a side table mapping byte offsets back to source lines.
type Chunk struct {
	code      []byte
	constants []any // float64 | *intern.Name | *Function
	lines     []lineRun
}

// NewChunk returns an empty Chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one byte belonging to line, extending the run-length line
// table.
func (c *Chunk) Write(b byte, line int) {
	c.code = append(c.code, b)
	if n := len(c.lines); n > 0 && c.lines[n-1].line == line {
		c.lines[n-1].count++
		return
	}
	c.lines = append(c.lines, lineRun{count: 1, line: line})
}

// WriteConstant appends value to the constant table and returns its index.
// Deduplication is not required by the spec and is not performed here.
func (c *Chunk) WriteConstant(value any) (int, bool) {
	if len(c.constants) >= maxConstants {
		return 0, false
	}
	c.constants = append(c.constants, value)
	return len(c.constants) - 1, true
}

// GetLine recovers the source line for a byte offset by linearly scanning
// the run-length table. Used only for error messages and disassembly.
func (c *Chunk) GetLine(offset int) int {
	remaining := offset
	for _, run := range c.lines {
		if remaining < run.count {
			return run.line
		}
		remaining -= run.count
	}
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[len(c.lines)-1].line
}

// Code returns the read-only bytecode stream.
func (c *Chunk) Code() []byte { return c.code }

// Constants returns the read-only constant table.
func (c *Chunk) Constants() []any { return c.constants }

// NumberConstant returns the numeric constant at index k.
func (c *Chunk) NumberConstant(k int) float64 { return c.constants[k].(float64) }

// NameConstant returns the interned-name constant at index k (used for
// global names and string literals).
func (c *Chunk) NameConstant(k int) *intern.Name { return c.constants[k].(*intern.Name) }

// FunctionConstant returns the nested Function constant at index k (used
// only by CLOSURE).
func (c *Chunk) FunctionConstant(k int) *Function { return c.constants[k].(*Function) }

// Function is a compiled function unit: its Chunk plus the static metadata
// the VM needs to call it. Functions are created during compilation and
// never mutated after the compiler finishes with them; nested functions
// appear as constants in the enclosing function's chunk.
type Function struct {
	Arity        uint8
	UpvalueCount uint16
	Name         string // empty for the top-level script
	Chunk        *Chunk
}
