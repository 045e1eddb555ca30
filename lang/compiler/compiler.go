// Package compiler lowers the syntax tree into the flat instruction
// stream executed by the machine. The assembler resolves lexical scope
// to local-slot indices, manages implicit returns and back-patches
// symbolic labels into absolute program counters. It also provides a
// textual assembly serialization of compiled modules, used to test the
// machine without the scanner and parser phases.
package compiler

import (
	"errors"
	"fmt"

	"github.com/kestrel-lang/kestrel/lang/ast"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/token"
)

// Compile-time errors.
var (
	ErrIllegalLvalue     = errors.New("illegal lvalue")
	ErrVariableRenamed   = errors.New("variable renamed")
	ErrVariableUndefined = errors.New("variable not defined")
	ErrNoSuchLabel       = errors.New("no such label")
	ErrLabelRedefined    = errors.New("label redefined")
	ErrInternal          = errors.New("internal compiler error")
)

// Assembler builds a Module. Native functions are registered with
// DefNative before or after assembling source definitions; Assemble
// seals the function bodies.
type Assembler struct {
	strings *ident.Table
	fns     map[*ident.Ident]*Fn
	begin   []Instr
	fn      *fnasm
}

// fnasm is the per-function assembly state. Scopes map names to slot
// indices during lowering only; at runtime variables are plain
// integer slots bounded by the frame's mark.
type fnasm struct {
	code      []Instr
	scopes    []map[*ident.Ident]int
	labels    map[int]int
	nextLabel int
}

// NewAssembler returns an assembler interning identifiers in table.
func NewAssembler(table *ident.Table) *Assembler {
	return &Assembler{
		strings: table,
		fns:     make(map[*ident.Ident]*Fn),
	}
}

// Strings returns the assembler's intern table.
func (a *Assembler) Strings() *ident.Table { return a.strings }

// DefNative registers a host function under name.
func (a *Assembler) DefNative(name string, argc Argc, fn NativeFn) error {
	id, err := a.strings.Intern(name)
	if err != nil {
		return err
	}
	a.fns[id] = &Fn{Name: id, Argc: argc, Native: fn}
	return nil
}

// Assemble lowers a parsed module and returns the sealed result.
func (a *Assembler) Assemble(mod *ast.Module) (*Module, error) {
	for _, def := range mod.Defs {
		if err := a.def(def); err != nil {
			return nil, fmt.Errorf("sub %s: %w", def.Name, err)
		}
	}

	if len(mod.Begin) > 0 {
		a.fn = &fnasm{labels: make(map[int]int)}
		a.pushScope()
		if err := a.stmts(mod.Begin); err != nil {
			a.fn = nil
			return nil, fmt.Errorf("BEGIN: %w", err)
		}
		code, err := a.fn.resolve()
		a.fn = nil
		if err != nil {
			return nil, fmt.Errorf("BEGIN: %w", err)
		}
		a.begin = code
	}

	return &Module{Strings: a.strings, Functions: a.fns, Begin: a.begin}, nil
}

// def assembles a user function. Arity is captured as exactly the
// number of declared parameters, and the body is sealed with an
// implicit return nil.
func (a *Assembler) def(def *ast.Def) error {
	a.fn = &fnasm{labels: make(map[int]int)}
	defer func() { a.fn = nil }()

	scope := make(map[*ident.Ident]int, len(def.Params))
	for i, param := range def.Params {
		if _, ok := scope[param]; ok {
			return fmt.Errorf("%w: %s", ErrVariableRenamed, param)
		}
		scope[param] = i
	}
	a.fn.scopes = append(a.fn.scopes, scope)

	if err := a.stmts(def.Body); err != nil {
		return err
	}

	// implicit return
	a.emit(Instr{Op: NIL})
	a.emit(Instr{Op: RET})

	code, err := a.fn.resolve()
	if err != nil {
		return err
	}
	a.fns[def.Name] = &Fn{Name: def.Name, Argc: Exactly(len(def.Params)), Code: code}
	return nil
}

func (a *Assembler) emit(in Instr) {
	a.fn.code = append(a.fn.code, in)
}

// newLabel generates a fresh symbolic label.
func (a *Assembler) newLabel() int {
	l := a.fn.nextLabel
	a.fn.nextLabel++
	return l
}

// bind attaches a label to the next emitted instruction.
func (a *Assembler) bind(label int) error {
	if _, ok := a.fn.labels[label]; ok {
		return fmt.Errorf("%w: %d", ErrLabelRedefined, label)
	}
	a.fn.labels[label] = len(a.fn.code)
	return nil
}

// resolve back-patches symbolic jump targets into absolute indices in
// a single linear pass. An unresolved reference is a compiler-internal
// error.
func (fn *fnasm) resolve() ([]Instr, error) {
	for i, in := range fn.code {
		if !isJump(in.Op) {
			continue
		}
		idx, ok := fn.labels[in.Arg]
		if !ok {
			return nil, fmt.Errorf("%w: %d (%w)", ErrNoSuchLabel, in.Arg, ErrInternal)
		}
		fn.code[i].Arg = idx
	}
	return fn.code, nil
}

func (a *Assembler) pushScope() {
	a.fn.scopes = append(a.fn.scopes, make(map[*ident.Ident]int))
}

func (a *Assembler) popScope() {
	a.fn.scopes = a.fn.scopes[:len(a.fn.scopes)-1]
}

// depth is the number of reserved local slots: the sum of all scope
// sizes.
func (a *Assembler) depth() int {
	n := 0
	for _, scope := range a.fn.scopes {
		n += len(scope)
	}
	return n
}

// declareLocal reserves the next slot for name, with the initializer
// value already on the stack. The top scope may not shadow within
// itself; inner scopes may shadow outer ones.
func (a *Assembler) declareLocal(name *ident.Ident) error {
	top := a.fn.scopes[len(a.fn.scopes)-1]
	if _, ok := top[name]; ok {
		return fmt.Errorf("%w: %s", ErrVariableRenamed, name)
	}
	slot := a.depth()
	a.emit(Instr{Op: MARK, Arg: slot + 1})
	top[name] = slot
	return nil
}

// lookup resolves a name to its slot, innermost scope first.
func (a *Assembler) lookup(name *ident.Ident) (int, error) {
	for i := len(a.fn.scopes) - 1; i >= 0; i-- {
		if slot, ok := a.fn.scopes[i][name]; ok {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrVariableUndefined, name)
}

// block assembles a nested statement list in its own scope. On exit
// the inner locals are released with a MARK of the outer depth,
// preserving outer bindings regardless of residual operand stack.
func (a *Assembler) block(stmts []ast.Stmt) error {
	outer := a.depth()
	a.pushScope()
	if err := a.stmts(stmts); err != nil {
		return err
	}
	a.emit(Instr{Op: MARK, Arg: outer})
	a.popScope()
	return nil
}

func (a *Assembler) stmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := a.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) stmt(stmt ast.Stmt) error {
	switch stmt := stmt.(type) {
	case *ast.My:
		init := stmt.Expr
		if init == nil {
			init = &ast.NilLit{}
		}
		if err := a.expr(init); err != nil {
			return err
		}
		return a.declareLocal(stmt.Name)

	case *ast.Assign:
		return a.assign(stmt)

	case *ast.Return:
		rv := stmt.Expr
		if rv == nil {
			rv = &ast.NilLit{}
		}
		if err := a.expr(rv); err != nil {
			return err
		}
		a.emit(Instr{Op: RET})
		return nil

	case *ast.Assert:
		if err := a.expr(stmt.Expr); err != nil {
			return err
		}
		a.emit(Instr{Op: ASSERT, Str: stmt.Text})
		return nil

	case *ast.If:
		return a.ifStmt(stmt)

	case *ast.While:
		return a.whileStmt(stmt)

	case *ast.ExprStmt:
		if err := a.expr(stmt.Expr); err != nil {
			return err
		}
		a.emit(Instr{Op: DROP})
		return nil

	default:
		return fmt.Errorf("%w: unknown statement %T", ErrInternal, stmt)
	}
}

// assign lowers an assignment to one of the three legal lvalue
// shapes: a local slot, a global name, or an index expression.
func (a *Assembler) assign(stmt *ast.Assign) error {
	switch lhs := stmt.Lhs.(type) {
	case *ast.Local:
		slot, err := a.lookup(lhs.Name)
		if err != nil {
			return err
		}
		if err := a.expr(stmt.Rhs); err != nil {
			return err
		}
		a.emit(Instr{Op: STORE, Arg: slot})
		return nil

	case *ast.Global:
		if err := a.expr(stmt.Rhs); err != nil {
			return err
		}
		a.emit(Instr{Op: PUSHN, Name: lhs.Name})
		a.emit(Instr{Op: GLOBALS})
		a.emit(Instr{Op: INS})
		return nil

	case *ast.Binop:
		if lhs.Op != ast.Idx {
			return ErrIllegalLvalue
		}
		if err := a.expr(stmt.Rhs); err != nil {
			return err
		}
		if err := a.expr(lhs.Rhs); err != nil { // index
			return err
		}
		if err := a.expr(lhs.Lhs); err != nil { // container
			return err
		}
		a.emit(Instr{Op: INS})
		return nil

	default:
		return ErrIllegalLvalue
	}
}

// ifStmt assembles the clause tests into a dispatch preserving
// first-match semantics: each condition jumps to its body label, the
// fall-through runs the else body, and every body jumps to the common
// end label.
func (a *Assembler) ifStmt(stmt *ast.If) error {
	after := a.newLabel()

	bodies := make([]int, len(stmt.Clauses))
	for i, clause := range stmt.Clauses {
		label := a.newLabel()
		if err := a.expr(clause.Cond); err != nil {
			return err
		}
		a.emit(Instr{Op: JNZ, Arg: label})
		bodies[i] = label
	}

	if err := a.block(stmt.Else); err != nil {
		return err
	}
	a.emit(Instr{Op: JUMP, Arg: after})

	for i, clause := range stmt.Clauses {
		if err := a.bind(bodies[i]); err != nil {
			return err
		}
		if err := a.block(clause.Body); err != nil {
			return err
		}
		a.emit(Instr{Op: JUMP, Arg: after})
	}

	return a.bind(after)
}

func (a *Assembler) whileStmt(stmt *ast.While) error {
	body := a.newLabel()
	after := a.newLabel()

	if err := a.expr(&ast.Not{Expr: stmt.Cond}); err != nil {
		return err
	}
	a.emit(Instr{Op: JNZ, Arg: after})

	if err := a.bind(body); err != nil {
		return err
	}
	if err := a.block(stmt.Body); err != nil {
		return err
	}
	if err := a.expr(stmt.Cond); err != nil {
		return err
	}
	a.emit(Instr{Op: JNZ, Arg: body})

	return a.bind(after)
}

func (a *Assembler) expr(expr ast.Expr) error {
	switch expr := expr.(type) {
	case *ast.NilLit:
		a.emit(Instr{Op: NIL})

	case *ast.IntLit:
		a.emit(Instr{Op: PUSHI, Arg: int(expr.Value)})

	case *ast.Interp:
		return a.interp(expr)

	case *ast.SymLit:
		a.emit(Instr{Op: PUSHN, Name: expr.Name})

	case *ast.PatLit:
		resolved, err := expr.Pat.ResolveLocals(a.lookup)
		if err != nil {
			return err
		}
		a.emit(Instr{Op: PAT, Pat: resolved})

	case *ast.Local:
		slot, err := a.lookup(expr.Name)
		if err != nil {
			return err
		}
		a.emit(Instr{Op: LOAD, Arg: slot})

	case *ast.Global:
		a.globalRead(expr.Name)

	case *ast.GroupRef:
		a.emit(Instr{Op: GROUP, Arg: int(expr.Num)})

	case *ast.ListLit:
		for _, elem := range expr.Elems {
			if err := a.expr(elem); err != nil {
				return err
			}
		}
		a.emit(Instr{Op: LIST, Arg: len(expr.Elems)})

	case *ast.RecLit:
		return a.recLit(expr)

	case *ast.Call:
		for _, arg := range expr.Args {
			if err := a.expr(arg); err != nil {
				return err
			}
		}
		a.emit(Instr{Op: CALL, Name: expr.Name, Arg: len(expr.Args)})

	case *ast.Binop:
		if err := a.expr(expr.Lhs); err != nil {
			return err
		}
		if err := a.expr(expr.Rhs); err != nil {
			return err
		}
		a.emit(Instr{Op: BINOP, Binop: binopOf(expr.Op)})

	case *ast.Not:
		if err := a.expr(expr.Expr); err != nil {
			return err
		}
		a.emit(Instr{Op: NOT})

	case *ast.And:
		// keep the falsy side, evaluate the rhs otherwise
		end := a.newLabel()
		if err := a.expr(expr.Lhs); err != nil {
			return err
		}
		a.emit(Instr{Op: DUP})
		a.emit(Instr{Op: NOT})
		a.emit(Instr{Op: JNZ, Arg: end})
		a.emit(Instr{Op: DROP})
		if err := a.expr(expr.Rhs); err != nil {
			return err
		}
		return a.bind(end)

	case *ast.Or:
		// keep the truthy side, evaluate the rhs otherwise
		end := a.newLabel()
		if err := a.expr(expr.Lhs); err != nil {
			return err
		}
		a.emit(Instr{Op: DUP})
		a.emit(Instr{Op: JNZ, Arg: end})
		a.emit(Instr{Op: DROP})
		if err := a.expr(expr.Rhs); err != nil {
			return err
		}
		return a.bind(end)

	default:
		return fmt.Errorf("%w: unknown expression %T", ErrInternal, expr)
	}
	return nil
}

func binopOf(op ast.BinopKind) Binop {
	switch op {
	case ast.Add:
		return ADD
	case ast.Sub:
		return SUB
	case ast.Mul:
		return MUL
	case ast.Div:
		return DIV
	case ast.Idx:
		return IDX
	case ast.Eq:
		return EQ
	case ast.Ne:
		return NE
	default:
		return MATCH
	}
}

func (a *Assembler) globalRead(name *ident.Ident) {
	a.emit(Instr{Op: GLOBALS})
	a.emit(Instr{Op: PUSHN, Name: name})
	a.emit(Instr{Op: BINOP, Binop: IDX})
}

// interp lowers an interpolated string: each fragment pushes its
// value and STR concatenates their display forms. A plain literal
// string avoids the concatenation.
func (a *Assembler) interp(expr *ast.Interp) error {
	if len(expr.Parts) == 1 && expr.Parts[0].Kind == token.LitPart {
		a.emit(Instr{Op: PUSHS, Str: expr.Parts[0].Text})
		return nil
	}

	for _, part := range expr.Parts {
		switch part.Kind {
		case token.LitPart:
			a.emit(Instr{Op: PUSHS, Str: part.Text})
		case token.LocalPart:
			slot, err := a.lookup(part.Name)
			if err != nil {
				return err
			}
			a.emit(Instr{Op: LOAD, Arg: slot})
		case token.GlobalPart:
			a.globalRead(part.Name)
		case token.GroupPart:
			a.emit(Instr{Op: GROUP, Arg: int(part.Num)})
		}
	}
	a.emit(Instr{Op: STR, Arg: len(expr.Parts)})
	return nil
}

// recLit lowers a record literal. The empty literal is a bare REC;
// a literal with fields desugars to a call to the new constructor
// with alternating symbol keys and values.
func (a *Assembler) recLit(expr *ast.RecLit) error {
	if len(expr.Fields) == 0 {
		a.emit(Instr{Op: REC})
		return nil
	}

	newID, err := a.strings.Intern("new")
	if err != nil {
		return err
	}
	for _, field := range expr.Fields {
		a.emit(Instr{Op: PUSHN, Name: field.Key})
		if err := a.expr(field.Value); err != nil {
			return err
		}
	}
	a.emit(Instr{Op: CALL, Name: newID, Arg: 2 * len(expr.Fields)})
	return nil
}
