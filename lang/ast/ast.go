// Package ast defines the syntax tree produced by the parser and
// consumed by the compiler.
package ast

import (
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/pattern"
	"github.com/kestrel-lang/kestrel/lang/token"
)

// Module is a parsed source file: function definitions plus an
// optional BEGIN block run when the module starts.
type Module struct {
	Defs  []*Def
	Begin []Stmt
}

// Def is a function definition.
type Def struct {
	Name   *ident.Ident
	Params []*ident.Ident
	Body   []Stmt
	Line   int
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	stmt()
}

// My declares a local variable with an optional initializer; a
// missing initializer means nil.
type My struct {
	Name *ident.Ident
	Expr Expr // nil if absent
}

// Assign assigns to an lvalue. The compiler restricts Lhs to a local,
// a global or an index expression.
type Assign struct {
	Lhs Expr
	Rhs Expr
}

// Return returns from the enclosing function; a missing expression
// means nil.
type Return struct {
	Expr Expr // nil if absent
}

// Assert evaluates an expression and fails the program if it is
// falsy. Text carries the expression's source text for the error
// message.
type Assert struct {
	Expr Expr
	Text string
}

// IfClause is one condition/body pair of an If statement.
type IfClause struct {
	Cond Expr
	Body []Stmt
}

// If is a chain of if/else if clauses with an optional else body.
type If struct {
	Clauses []IfClause
	Else    []Stmt
}

// While is a pre-tested loop.
type While struct {
	Cond Expr
	Body []Stmt
}

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	Expr Expr
}

func (*My) stmt()       {}
func (*Assign) stmt()   {}
func (*Return) stmt()   {}
func (*Assert) stmt()   {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*ExprStmt) stmt() {}

// Expr is implemented by all expression nodes.
type Expr interface {
	expr()
}

// Local reads a local variable, $name.
type Local struct {
	Name *ident.Ident
}

// Global reads a global variable, %name.
type Global struct {
	Name *ident.Ident
}

// GroupRef reads a numbered capture group of the current frame, $N.
type GroupRef struct {
	Num uint8
}

// IntLit is an integer literal.
type IntLit struct {
	Value int32
}

// Interp is a string literal, possibly interpolated. A plain string
// is a single literal part.
type Interp struct {
	Parts []token.StrPart
}

// SymLit is a symbol literal, :name.
type SymLit struct {
	Name *ident.Ident
}

// NilLit is the nil literal, written ().
type NilLit struct{}

// PatLit is a pattern literal; its variable payloads are resolved to
// slots by the compiler and to values when the PAT opcode executes.
type PatLit struct {
	Pat *pattern.AST
}

// ListLit is a list literal.
type ListLit struct {
	Elems []Expr
}

// RecLit is a record literal, { key: value, ... }.
type RecLit struct {
	Fields []RecField
}

// RecField is one key/value pair of a record literal.
type RecField struct {
	Key   *ident.Ident
	Value Expr
}

// Call invokes a function by name.
type Call struct {
	Name *ident.Ident
	Args []Expr
}

// BinopKind enumerates the binary operators.
type BinopKind uint8

const (
	Add BinopKind = iota
	Sub
	Mul
	Div
	Idx
	Eq
	Ne
	Match
)

// Binop is a binary operation. Idx is also produced by the a[b]
// postfix form.
type Binop struct {
	Op  BinopKind
	Lhs Expr
	Rhs Expr
}

// And is the short-circuit conjunction; its value is the last
// evaluated operand.
type And struct {
	Lhs Expr
	Rhs Expr
}

// Or is the short-circuit disjunction; its value is the last
// evaluated operand.
type Or struct {
	Lhs Expr
	Rhs Expr
}

// Not is the boolean negation.
type Not struct {
	Expr Expr
}

func (*Local) expr()    {}
func (*Global) expr()   {}
func (*GroupRef) expr() {}
func (*IntLit) expr()   {}
func (*Interp) expr()   {}
func (*SymLit) expr()   {}
func (*NilLit) expr()   {}
func (*PatLit) expr()   {}
func (*ListLit) expr()  {}
func (*RecLit) expr()   {}
func (*Call) expr()     {}
func (*Binop) expr()    {}
func (*And) expr()      {}
func (*Or) expr()       {}
func (*Not) expr()      {}
