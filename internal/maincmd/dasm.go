package maincmd

import (
	"context"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/mna/mainer"
)

// Dasm compiles the source file and prints the textual assembly of
// the resulting module.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	mod, err := compileFile(args[0], stdio)
	if err != nil {
		return printError(stdio, err)
	}

	b, err := compiler.Dasm(mod)
	if err != nil {
		return printError(stdio, err)
	}
	_, err = stdio.Stdout.Write(b)
	return err
}
