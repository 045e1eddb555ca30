package maincmd

import (
	"context"
	"os"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/machine"
	"github.com/kestrel-lang/kestrel/lang/parser"
	"github.com/kestrel-lang/kestrel/lang/stdlib"
	"github.com/kestrel-lang/kestrel/lang/types"
	"github.com/mna/mainer"
)

// Run compiles the source file and executes its main function. Extra
// arguments are passed to main as strings.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	mod, err := compileFile(args[0], stdio)
	if err != nil {
		return printError(stdio, err)
	}

	m, err := machine.Start(mod)
	if err != nil {
		return printError(stdio, err)
	}

	mainArgs := make([]types.Value, len(args[1:]))
	for i, arg := range args[1:] {
		mainArgs[i] = types.Str(arg)
	}
	if _, err := m.Exec("main", mainArgs); err != nil {
		return printError(stdio, err)
	}
	return nil
}

// compileFile runs the full front half of the pipeline on a file:
// scan, parse, register the standard library and assemble.
func compileFile(path string, stdio mainer.Stdio) (*compiler.Module, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	table := ident.NewTable()
	mod, err := parser.ParseModule(string(b), table)
	if err != nil {
		return nil, err
	}

	asm := compiler.NewAssembler(table)
	if err := stdlib.Register(asm, stdio.Stdout); err != nil {
		return nil, err
	}
	return asm.Assemble(mod)
}
