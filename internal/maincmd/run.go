package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"wisp/lang/intern"
	"wisp/lang/vm"
)

// Run implements the `run <path>` command: compile and execute one script
// file (spec §6 "run_file(path)").
func (c *Cmd) Run(_ context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		c.exitCode = exitUsage
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}

	m := vm.New(intern.NewTable())
	m.Stdout = stdio.Stdout
	m.Stderr = stdio.Stderr
	m.MaxStack = c.env.MaxStack
	m.Trace = c.env.Trace

	if err := m.Interpret(string(src)); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		if _, ok := err.(*vm.RuntimeError); ok {
			c.exitCode = exitRuntimeError
		} else {
			c.exitCode = exitCompileError
		}
		return err
	}
	return nil
}
