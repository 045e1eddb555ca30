// Package machine implements the stack-based virtual machine that
// executes a compiled module: frame discipline, local slot marking,
// stack-underflow protection, call and return with native and
// interpreted functions, pattern specialization each time a PAT
// instruction executes, and capture-group propagation.
package machine

import (
	"fmt"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/pattern"
	"github.com/kestrel-lang/kestrel/lang/types"
)

// Machine executes a module. It owns the call stack, the current
// frame and the globals record. The machine is single-threaded and
// synchronous: Step either completes one opcode or fails, and Exec
// drives Step to completion.
type Machine struct {
	mod     *compiler.Module
	strings *ident.Table
	globals *types.Record
	frame   frame
	saved   []frame
}

// frame is a per-call activation record. The operand stack is the
// tail of locals beyond mark; the prefix below mark holds the
// function's argument slots and declared locals.
type frame struct {
	code   []compiler.Instr
	pc     int
	mark   int
	locals []types.Value
	groups map[uint8]types.Str
}

// Start returns a machine for the module after running its BEGIN
// body.
func Start(mod *compiler.Module) (*Machine, error) {
	m := &Machine{
		mod:     mod,
		strings: mod.Strings,
		globals: types.NewRecord(),
		frame:   frame{code: mod.Begin},
	}
	for m.frame.pc < len(m.frame.code) {
		if err := m.Step(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Exec invokes the named function with the given arguments and runs
// it to completion, returning its value. The first error terminates
// the execution and is returned.
func (m *Machine) Exec(name string, args []types.Value) (types.Value, error) {
	id, err := m.strings.Intern(name)
	if err != nil {
		return nil, err
	}
	if err := m.fncall(id, args); err != nil {
		return nil, err
	}
	for len(m.saved) > 0 {
		if err := m.Step(); err != nil {
			return nil, err
		}
	}
	return m.pop()
}

// SetGlobal assigns a global variable.
func (m *Machine) SetGlobal(name string, v types.Value) error {
	id, err := m.strings.Intern(name)
	if err != nil {
		return err
	}
	m.globals.Set(id, v)
	return nil
}

// Globals returns the globals record.
func (m *Machine) Globals() *types.Record { return m.globals }

// Step fetches and executes a single opcode. The host may drive
// stepping externally and decide when to stop.
func (m *Machine) Step() error {
	fr := &m.frame
	if fr.pc < 0 || fr.pc >= len(fr.code) {
		return ErrPcOutOfBounds
	}
	in := fr.code[fr.pc]
	fr.pc++

	switch in.Op {
	case compiler.NIL:
		m.push(types.Nil)

	case compiler.DUP:
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.push(v)
		m.push(v)

	case compiler.DROP:
		_, err := m.pop()
		return err

	case compiler.PUSHI:
		m.push(types.Int(in.Arg))

	case compiler.PUSHS:
		m.push(types.Str(in.Str))

	case compiler.PUSHN:
		m.push(types.NewSymbol(in.Name))

	case compiler.PAT:
		pat, err := in.Pat.Specialize(patEnv{m: m})
		if err != nil {
			return err
		}
		m.push(types.NewPattern(pat))

	case compiler.LOAD:
		v, err := m.read(in.Arg)
		if err != nil {
			return err
		}
		m.push(v)

	case compiler.STORE:
		v, err := m.pop()
		if err != nil {
			return err
		}
		return m.write(in.Arg, v)

	case compiler.MARK:
		if in.Arg > len(fr.locals) {
			return ErrMarkTooHigh
		}
		fr.mark = in.Arg
		if in.Arg < len(fr.locals) {
			fr.locals = fr.locals[:in.Arg]
		}

	case compiler.GLOBALS:
		m.push(m.globals)

	case compiler.GROUP:
		num := uint8(in.Arg)
		group, ok := fr.groups[num]
		if !ok {
			return &NoSuchGroupError{Num: num}
		}
		m.push(group)

	case compiler.LIST:
		elems, err := m.capture(in.Arg)
		if err != nil {
			return err
		}
		m.push(types.NewList(elems))

	case compiler.REC:
		m.push(types.NewRecord())

	case compiler.STR:
		items, err := m.capture(in.Arg)
		if err != nil {
			return err
		}
		var buf []byte
		for _, item := range items {
			buf = append(buf, item.String()...)
		}
		m.push(types.Str(buf))

	case compiler.INS:
		lhs, err := m.pop()
		if err != nil {
			return err
		}
		idx, err := m.pop()
		if err != nil {
			return err
		}
		rhs, err := m.pop()
		if err != nil {
			return err
		}
		return insert(lhs, idx, rhs)

	case compiler.BINOP:
		rhs, err := m.pop()
		if err != nil {
			return err
		}
		lhs, err := m.pop()
		if err != nil {
			return err
		}

		var result types.Value
		if in.Binop == compiler.MATCH {
			result, err = m.matchPattern(lhs, rhs)
		} else {
			result, err = binary(in.Binop, lhs, rhs)
		}
		if err != nil {
			return err
		}
		m.push(result)

	case compiler.NOT:
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.push(types.Bool(!v.Truth()))

	case compiler.CALL:
		args, err := m.capture(in.Arg)
		if err != nil {
			return err
		}
		return m.fncall(in.Name, args)

	case compiler.RET:
		if len(m.saved) == 0 {
			return ErrStackUnderflow
		}
		rv, err := m.pop()
		if err != nil {
			return err
		}
		m.frame = m.saved[len(m.saved)-1]
		m.saved = m.saved[:len(m.saved)-1]
		m.push(rv)

	case compiler.JUMP:
		fr.pc = in.Arg

	case compiler.JNZ:
		v, err := m.pop()
		if err != nil {
			return err
		}
		if v.Truth() {
			fr.pc = in.Arg
		}

	case compiler.ASSERT:
		v, err := m.pop()
		if err != nil {
			return err
		}
		if !v.Truth() {
			return &AssertError{Expr: in.Str}
		}

	default:
		return fmt.Errorf("unimplemented opcode: %s", in.Op)
	}

	return nil
}

// fncall invokes a function by interned name with the given argument
// values. Native functions execute synchronously and their result is
// pushed immediately; interpreted functions swap in a new frame whose
// initial locals are the arguments and whose mark is the argument
// count.
func (m *Machine) fncall(name *ident.Ident, args []types.Value) error {
	fn, ok := m.mod.Lookup(name)
	if !ok {
		return &NoSuchFunctionError{Name: name}
	}
	if !fn.Argc.Check(len(args)) {
		return &WrongArgcError{Func: name, Expected: fn.Argc, Found: len(args)}
	}

	if fn.Native != nil {
		rv, err := fn.Native(args)
		if err != nil {
			return err
		}
		if rv == nil {
			rv = types.Nil
		}
		m.push(rv)
		return nil
	}

	m.saved = append(m.saved, m.frame)
	m.frame = frame{
		code:   fn.Code,
		mark:   len(args),
		locals: args,
		groups: make(map[uint8]types.Str),
	}
	return nil
}

func (m *Machine) push(v types.Value) {
	m.frame.locals = append(m.frame.locals, v)
}

// pop removes the top of the operand stack. Popping below the frame's
// mark is an error.
func (m *Machine) pop() (types.Value, error) {
	n := len(m.frame.locals)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	v := m.frame.locals[n-1]
	m.frame.locals = m.frame.locals[:n-1]
	if len(m.frame.locals) < m.frame.mark {
		return nil, ErrPoppedLocalVar
	}
	return v, nil
}

func (m *Machine) read(index int) (types.Value, error) {
	if index < 0 || index >= m.frame.mark {
		return nil, &LocalVarError{Index: index}
	}
	return m.frame.locals[index], nil
}

func (m *Machine) write(index int, v types.Value) error {
	if index < 0 || index >= m.frame.mark {
		return &LocalVarError{Index: index}
	}
	m.frame.locals[index] = v
	return nil
}

// capture removes the top n values from the operand stack, preserving
// their order.
func (m *Machine) capture(n int) ([]types.Value, error) {
	start := len(m.frame.locals) - n
	if start < 0 {
		return nil, ErrListTooLong
	}
	if start < m.frame.mark {
		return nil, ErrPoppedLocalVar
	}
	vals := make([]types.Value, n)
	copy(vals, m.frame.locals[start:])
	m.frame.locals = m.frame.locals[:start]
	return vals, nil
}

// patEnv resolves pattern payloads against the current frame's locals
// and the globals record, by display form.
type patEnv struct {
	m *Machine
}

func (e patEnv) LocalString(slot int) (string, error) {
	v, err := e.m.read(slot)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (e patEnv) GlobalString(name *ident.Ident) (string, error) {
	v, ok := e.m.globals.Get(name)
	if !ok {
		return "", &NoSuchGlobalError{Name: name}
	}
	return v.String(), nil
}

// matchPattern runs the rhs pattern over the lhs string. On success
// the frame's capture groups are replaced with the pattern's
// captures; on failure they are cleared. The pushed result is the
// boolean outcome.
func (m *Machine) matchPattern(lhs, rhs types.Value) (types.Value, error) {
	pat, err := types.AsPattern(rhs)
	if err != nil {
		return nil, err
	}
	text, err := types.AsStr(lhs)
	if err != nil {
		return nil, err
	}

	m.frame.groups = make(map[uint8]types.Str)
	captures, ok := pat.Compiled().Match(string(text))
	if !ok {
		return types.Bool(false), nil
	}
	for _, c := range captures {
		m.frame.groups[c.Group] = text[c.Start:c.End]
	}
	return types.Bool(true), nil
}

var _ pattern.Env = patEnv{}
