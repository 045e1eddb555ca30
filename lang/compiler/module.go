package compiler

import (
	"fmt"

	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/types"
)

// Argc is the arity class of a function: exactly N arguments or at
// least N arguments.
type Argc struct {
	N       int
	AtLeast bool
}

// Exactly returns the arity class requiring exactly n arguments.
func Exactly(n int) Argc { return Argc{N: n} }

// AtLeast returns the arity class requiring at least n arguments.
func AtLeast(n int) Argc { return Argc{N: n, AtLeast: true} }

// Check reports whether a call with n arguments satisfies the class.
func (a Argc) Check(n int) bool {
	if a.AtLeast {
		return n >= a.N
	}
	return n == a.N
}

func (a Argc) String() string {
	if a.AtLeast {
		return fmt.Sprintf("at least %d", a.N)
	}
	return fmt.Sprintf("exactly %d", a.N)
}

// NativeFn is a host-implemented function. It executes synchronously
// on the calling goroutine and returns a value or an error.
type NativeFn func(args []types.Value) (types.Value, error)

// Fn is a function-table entry: either native or interpreted. Entries
// are immutable after the module seals.
type Fn struct {
	Name   *ident.Ident
	Argc   Argc
	Native NativeFn // nil for interpreted functions
	Code   []Instr  // nil for native functions
}

// Module is an assembled program: the shared intern table, the named
// function table and the BEGIN body. A module's code sequences live
// for the entire interpreter run.
type Module struct {
	Strings   *ident.Table
	Functions map[*ident.Ident]*Fn
	Begin     []Instr
}

// Lookup returns the function-table entry for name, if any.
func (m *Module) Lookup(name *ident.Ident) (*Fn, bool) {
	fn, ok := m.Functions[name]
	return fn, ok
}
