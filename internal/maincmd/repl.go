package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"wisp/lang/intern"
	"wisp/lang/vm"
)

// Repl implements the `repl` command (spec §6 "repl()"): read a line from
// stdin, feed it to Interpret, print any output, loop. A runtime or compile
// error on one line does not end the session — the next line starts from a
// clean stack with globals preserved (spec §7).
func (c *Cmd) Repl(_ context.Context, stdio mainer.Stdio, _ []string) error {
	m := vm.New(intern.NewTable())
	m.Stdout = stdio.Stdout
	m.Stderr = stdio.Stderr
	m.MaxStack = c.env.MaxStack
	m.Trace = c.env.Trace

	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		if err := m.Interpret(line); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
		}
	}
}
