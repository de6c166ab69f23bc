package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"wisp/lang/scanner"
	"wisp/lang/token"
)

// Tokenize implements the `tokenize <path>...` command: print the scanner's
// token stream for each file, one token per line.
func (c *Cmd) Tokenize(_ context.Context, stdio mainer.Stdio, args []string) error {
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
		s := scanner.New(string(src))
		for {
			tok := s.Scan()
			fmt.Fprintf(stdio.Stdout, "%4d %-20s %q\n", tok.Line, tok.Type, tok.Lexeme)
			if tok.Type == token.EOF {
				break
			}
		}
	}
	if firstErr != nil {
		c.exitCode = exitUsage
	}
	return firstErr
}
