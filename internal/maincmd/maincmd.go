// Package maincmd implements the command set shared by the wisp CLI: run a
// script file, start a REPL, disassemble compiled bytecode, and dump the
// token stream. It is kept separate from cmd/wisp so the commands stay
// testable without an os.Args/os.Exit dependency, the same split the
// teacher uses between internal/maincmd and cmd/nenuphar.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "wisp"

// Exit codes per spec §6: run_file(path) returns 0 OK, 65 compile error, 70
// runtime error, 64 CLI misuse.
const (
	exitOK           mainer.ExitCode = 0
	exitUsage        mainer.ExitCode = 64
	exitCompileError mainer.ExitCode = 65
	exitRuntimeError mainer.ExitCode = 70
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and interpreter for the %[1]s scripting language.

The <command> can be one of:
       run <path>                Compile and run a script file.
       repl                      Start an interactive read-eval-print loop.
       disasm <path>             Print the disassembled bytecode for a script.
       tokenize <path>...        Print the token stream for one or more files.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Environment overrides (see EnvConfig):
       WISP_MAX_STACK           Override the VM value-stack capacity.
       WISP_TRACE               If "1", trace each executed instruction to stderr.
`, binName)
)

// EnvConfig holds the CLI's environment-variable overrides, loaded with
// env.Parse — the one concrete use of caarlos0/env/v6 as a direct
// dependency (SPEC_FULL.md §4), rather than leaving it an indirect
// transitive dependency of mainer the way the teacher does.
type EnvConfig struct {
	MaxStack int  `env:"WISP_MAX_STACK" envDefault:"256"`
	Trace    bool `env:"WISP_TRACE" envDefault:"false"`
}

// Cmd is the CLI's flag-parsed configuration, built and driven by
// mainer.Parser the same way the teacher's maincmd.Cmd is.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args     []string
	flags    map[string]bool
	cmdFn    func(context.Context, mainer.Stdio, []string) error
	exitCode mainer.ExitCode
	env      EnvConfig
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	switch cmdName {
	case "tokenize", "disasm":
		if len(c.args[1:]) == 0 {
			return fmt.Errorf("%s: at least one file must be provided", cmdName)
		}
	case "run":
		if len(c.args[1:]) != 1 {
			return fmt.Errorf("run: exactly one file must be provided")
		}
	}
	return nil
}

// Main parses args, loads environment overrides, and dispatches to the
// selected command, returning the process exit code.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}
	if err := env.Parse(&c.env); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid environment configuration: %s\n", err)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return exitOK
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return exitOK
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	c.exitCode = exitRuntimeError
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command prints its own error; exitCode was set by the command
		// when it needs something other than the generic runtime-error code.
		return c.exitCode
	}
	return exitOK
}

// buildCmds mirrors commands by reflecting over Cmd's exported methods
// matching the func(context.Context, mainer.Stdio, []string) error shape,
// same convention as the teacher's maincmd.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
