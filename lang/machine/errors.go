package machine

import (
	"errors"
	"fmt"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/ident"
)

// Runtime errors. No error is recovered silently inside the machine:
// the first error terminates the current execution and is returned to
// the host.
var (
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrPoppedLocalVar     = errors.New("popped local var")
	ErrMarkTooHigh        = errors.New("mark too high")
	ErrPcOutOfBounds      = errors.New("pc out of bounds")
	ErrListTooLong        = errors.New("list too long")
	ErrIndexOutOfBounds   = errors.New("index out of bounds")
	ErrNegativeIndex      = errors.New("negative index")
	ErrNegativeRepetition = errors.New("negative repetition")
	ErrDividedByZero      = errors.New("divided by zero")
	ErrIllegalAdd         = errors.New("illegal add")
	ErrIllegalMultiply    = errors.New("illegal multiply")
)

// A LocalVarError reports a local slot access at or beyond the
// frame's mark.
type LocalVarError struct {
	Index int
}

func (e *LocalVarError) Error() string {
	return fmt.Sprintf("local var %d out of bounds", e.Index)
}

// A NoSuchGroupError reports a read of an absent capture group.
type NoSuchGroupError struct {
	Num uint8
}

func (e *NoSuchGroupError) Error() string {
	return fmt.Sprintf("no such group $%d", e.Num)
}

// A NoSuchGlobalError reports a pattern payload referencing an
// undefined global.
type NoSuchGlobalError struct {
	Name *ident.Ident
}

func (e *NoSuchGlobalError) Error() string {
	return fmt.Sprintf("no such global %%%s", e.Name)
}

// A NoSuchFunctionError reports a call to an unknown function.
type NoSuchFunctionError struct {
	Name *ident.Ident
}

func (e *NoSuchFunctionError) Error() string {
	return fmt.Sprintf("no such function %s", e.Name)
}

// A WrongArgcError reports a call that does not satisfy the callee's
// arity class.
type WrongArgcError struct {
	Func     *ident.Ident
	Expected compiler.Argc
	Found    int
}

func (e *WrongArgcError) Error() string {
	return fmt.Sprintf("%s was called with %d arguments, wanted %s", e.Func, e.Found, e.Expected)
}

// An AssertError reports a failed assert statement, carrying the
// asserted expression's source text.
type AssertError struct {
	Expr string
}

func (e *AssertError) Error() string {
	return fmt.Sprintf("assertion failed: %s", e.Expr)
}
