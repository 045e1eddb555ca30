package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/scanner"
	"github.com/kestrel-lang/kestrel/lang/token"
	"github.com/mna/mainer"
)

// Tokenize prints the token stream of each source file, one token per
// line.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}

		toks, err := scanner.ScanAll(string(b), ident.NewTable())
		if err != nil {
			return printError(stdio, err)
		}
		for _, tok := range toks {
			if tok.Kind == token.EOF {
				break
			}
			fmt.Fprintf(stdio.Stdout, "%s\t%s\n", tok.Kind, tok)
		}
	}
	return nil
}
