package compiler

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable trace of the chunk's bytecode to w,
// one instruction per line, recursing into any nested Function constants
// (spec §6's `wisp disasm` debug mode).
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.code); {
		offset = c.disassembleInstruction(w, offset)
	}
	for _, k := range c.constants {
		if fn, ok := k.(*Function); ok {
			label := fn.Name
			if label == "" {
				label = "<script>"
			}
			fn.Chunk.Disassemble(w, label)
		}
	}
}

// TraceInstruction writes a single disassembled instruction at offset to w,
// the same line disassembleInstruction would produce. Used by the VM's
// WISP_TRACE execution tracing (SPEC_FULL.md ambient stack) so the trace
// output reuses the same formatting as `wisp disasm` instead of duplicating
// it.
func (c *Chunk) TraceInstruction(w io.Writer, offset int) {
	c.disassembleInstruction(w, offset)
}

func (c *Chunk) disassembleInstruction(w io.Writer, offset int) int {
	op := Opcode(c.code[offset])
	line := c.GetLine(offset)
	fmt.Fprintf(w, "%04d %4d %s", offset, line, op)

	switch op {
	case CLOSURE:
		constIdx := int(c.code[offset+1])
		fmt.Fprintf(w, " %d %v\n", constIdx, c.constants[constIdx])
		fn := c.constants[constIdx].(*Function)
		next := offset + 2
		for i := 0; i < int(fn.UpvalueCount); i++ {
			isLocal := c.code[next]
			index := c.code[next+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "      |                     %s %d\n", kind, index)
			next += 2
		}
		return next
	case JUMP, JUMP_IF_FALSE, LOOP:
		hi, lo := c.code[offset+1], c.code[offset+2]
		fmt.Fprintf(w, " %d\n", int(hi)<<8|int(lo))
		return offset + 3
	default:
		size := operandSize(op)
		if size == 0 {
			fmt.Fprintln(w)
			return offset + 1
		}
		operand := int(c.code[offset+1])
		if op == CONSTANT || op == GET_GLOBAL || op == SET_GLOBAL || op == DEFINE_GLOBAL {
			fmt.Fprintf(w, " %d %v\n", operand, c.constants[operand])
		} else {
			fmt.Fprintf(w, " %d\n", operand)
		}
		return offset + 1 + size
	}
}
