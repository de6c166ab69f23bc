package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"wisp/lang/compiler"
	"wisp/lang/intern"
)

// Disasm implements the `disasm <path>...` debug command (SPEC_FULL.md §6):
// compile each file and print its chunk's disassembled bytecode, recursing
// into nested function constants.
func (c *Cmd) Disasm(_ context.Context, stdio mainer.Stdio, args []string) error {
	interner := intern.NewTable()
	var firstErr error
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fn, err := compiler.Compile(string(src), interner)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fn.Chunk.Disassemble(stdio.Stdout, path)
	}
	if firstErr != nil {
		c.exitCode = exitCompileError
	}
	return firstErr
}
