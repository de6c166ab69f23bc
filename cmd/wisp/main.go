// Command wisp is the CLI entry point: run scripts, start a REPL,
// disassemble compiled bytecode, or dump a token stream.
package main

import (
	"os"

	"github.com/mna/mainer"

	"wisp/internal/maincmd"
)

var (
	// placeholder values, replaced on build
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
