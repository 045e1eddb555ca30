package compiler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/pattern"
)

// This asm file implements a human-readable/writable form of a
// compiled module. This is mostly to support testing of the machine
// without going through the scanning and parsing phases of the
// language. A disassembler is also implemented.
//
// The assembly format looks like this (indentation and spacing is
// arbitrary, but order of sections is important):
//
//	module:                       # required
//
//	begin:                        # optional, the BEGIN body
//		code:                       # required, list of instructions
//			pushs "hello"
//			call print 1
//
//	function: NAME ARGC +atleast  # required at least once
//		code:
//			nil
//			ret
//
// Jump arguments refer to instruction indices in the enclosing code
// section. Pattern operands are written in delimited form, e.g.
// pat /a(b+)c/i; local variable payloads cannot appear in assembly
// patterns because there is no scope to resolve them against.

var sections = map[string]bool{
	"module:":   true,
	"begin:":    true,
	"function:": true,
	"code:":     true,
}

// Asm loads a compiled module from its assembler textual format.
func Asm(b []byte) (*Module, error) {
	asm := asm{
		s: bufio.NewScanner(bytes.NewReader(b)),
		m: &Module{Strings: ident.NewTable(), Functions: make(map[*ident.Ident]*Fn)},
	}

	// must start with the module: section
	fields := asm.next()
	asm.module(fields)

	fields = asm.next()
	fields = asm.begin(fields)

	var seen bool
	for asm.err == nil && len(fields) > 0 && fields[0] == "function:" {
		fields = asm.function(fields)
		seen = true
	}

	if asm.err == nil {
		if len(fields) > 0 {
			asm.err = fmt.Errorf("unexpected section: %s", fields[0])
		} else if !seen {
			asm.err = errors.New("missing function")
		}
	}
	return asm.m, asm.err
}

type asm struct {
	s       *bufio.Scanner
	rawLine string // current raw line (not split in fields)
	m       *Module
	err     error
}

func (a *asm) module(fields []string) {
	if a.err != nil {
		return
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "module:") {
		msg := "expected module section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
	}
}

func (a *asm) begin(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "begin:") {
		return fields
	}
	fields, code := a.code(a.next())
	a.m.Begin = code
	return fields
}

func (a *asm) function(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "function:") {
		return fields
	}

	if len(fields) < 3 {
		a.err = fmt.Errorf("invalid function: want at least 3 fields: 'function: NAME ARGC [+atleast]', got %d fields (%s)", len(fields), strings.Join(fields, " "))
		// force going forward, otherwise it would still process that line
		return a.next()
	}

	name, err := a.m.Strings.Intern(fields[1])
	if err != nil {
		a.err = fmt.Errorf("invalid function name: %w", err)
		return a.next()
	}
	argc := Argc{N: int(a.int(fields[2])), AtLeast: a.option(fields[3:], "atleast")}

	fields, code := a.code(a.next())
	if a.err == nil {
		a.m.Functions[name] = &Fn{Name: name, Argc: argc, Code: code}
	}
	return fields
}

// code parses a code section and validates jump targets, returning
// both the next fields to parse and the decoded instructions.
func (a *asm) code(fields []string) ([]string, []Instr) {
	if a.err != nil {
		return fields, nil
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		msg := "expected code section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return fields, nil
	}

	var code []Instr
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]] && !strings.HasSuffix(fields[0], ":"); fields = a.next() {
		in, ok := a.insn(fields)
		if !ok {
			return fields, nil
		}
		code = append(code, in)
	}

	// validate the jump targets; the end of the code sequence is a
	// valid target (fall off the body)
	for i, in := range code {
		if isJump(in.Op) && (in.Arg < 0 || in.Arg > len(code)) {
			a.err = fmt.Errorf("invalid jump index %d: instruction %s at index %d", in.Arg, in.Op, i)
			return fields, nil
		}
	}
	return fields, code
}

func (a *asm) insn(fields []string) (Instr, bool) {
	op, ok := reverseLookupOpcode[strings.ToLower(fields[0])]
	if !ok {
		a.err = fmt.Errorf("invalid opcode: %s", fields[0])
		return Instr{}, false
	}

	in := Instr{Op: op}
	switch {
	case op == CALL:
		if len(fields) != 3 {
			a.err = fmt.Errorf("expected name and argc for opcode %s, got %d fields", fields[0], len(fields))
			return in, false
		}
		name, err := a.m.Strings.Intern(fields[1])
		if err != nil {
			a.err = fmt.Errorf("invalid call name: %w", err)
			return in, false
		}
		in.Name = name
		in.Arg = int(a.int(fields[2]))

	case op == PUSHN:
		if len(fields) != 2 {
			a.err = fmt.Errorf("expected a name for opcode %s, got %d fields", fields[0], len(fields))
			return in, false
		}
		name, err := a.m.Strings.Intern(fields[1])
		if err != nil {
			a.err = fmt.Errorf("invalid name: %w", err)
			return in, false
		}
		in.Name = name

	case op == BINOP:
		if len(fields) != 2 {
			a.err = fmt.Errorf("expected an operator for opcode %s, got %d fields", fields[0], len(fields))
			return in, false
		}
		binop, ok := reverseLookupBinop[strings.ToLower(fields[1])]
		if !ok {
			a.err = fmt.Errorf("invalid binop: %s", fields[1])
			return in, false
		}
		in.Binop = binop

	case op == PUSHS || op == ASSERT:
		// string operands may contain whitespace, extract the quoted
		// value from the raw line
		rest := a.operand(fields[0])
		qs, err := strconv.QuotedPrefix(rest)
		if err != nil {
			a.err = fmt.Errorf("invalid string: %q: %w", rest, err)
			return in, false
		}
		s, err := strconv.Unquote(qs)
		if err != nil {
			a.err = fmt.Errorf("invalid string: %q: %w", qs, err)
			return in, false
		}
		in.Str = s

	case op == PAT:
		rest := a.operand(fields[0])
		pat, err := parseAsmPattern(rest, a.m.Strings)
		if err != nil {
			a.err = err
			return in, false
		}
		in.Pat = pat

	case hasIntArg(op):
		if len(fields) != 2 {
			a.err = fmt.Errorf("expected an argument for opcode %s, got %d fields", fields[0], len(fields))
			return in, false
		}
		in.Arg = int(a.int(fields[1]))

	default:
		if len(fields) != 1 {
			a.err = fmt.Errorf("expected no argument for opcode %s, got %d fields", fields[0], len(fields))
			return in, false
		}
	}
	return in, a.err == nil
}

// operand returns the raw text of the current line after the opcode
// name, for operands that may contain whitespace.
func (a *asm) operand(opName string) string {
	line := strings.TrimSpace(a.rawLine)
	return strings.TrimSpace(strings.TrimPrefix(line, opName))
}

// parseAsmPattern parses a delimited pattern operand. Local payloads
// are rejected: assembly code has no lexical scope to bind them to.
func parseAsmPattern(s string, table *ident.Table) (*pattern.AST, error) {
	src := &stringSource{s: s}
	pat, err := pattern.Parse(src, table)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	if rest := strings.TrimSpace(s[src.i:]); rest != "" && !strings.HasPrefix(rest, "#") {
		return nil, fmt.Errorf("invalid pattern: trailing characters in %s", s)
	}
	_, err = pat.ResolveLocals(func(name *ident.Ident) (int, error) {
		return 0, fmt.Errorf("invalid pattern: local payload $%s in assembly", name)
	})
	if err != nil {
		return nil, err
	}
	return pat, nil
}

type stringSource struct {
	s string
	i int
}

func (src *stringSource) Next() (rune, bool) {
	rn, ok := src.Peek()
	if ok {
		src.i += utf8.RuneLen(rn)
	}
	return rn, ok
}

func (src *stringSource) Peek() (rune, bool) {
	if src.i >= len(src.s) {
		return 0, false
	}
	rn, _ := utf8.DecodeRuneInString(src.s[src.i:])
	return rn, true
}

func (a *asm) option(fields []string, opt string) bool {
	for _, fld := range fields {
		if fld == "+"+opt {
			return true
		}
		if fld == "-"+opt {
			break
		}
	}
	return false
}

func (a *asm) int(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("invalid integer: %s: %w", s, err)
	}
	return i
}

// returns the fields for the next non-empty, non-comment-only line, so
// that fields[0] will contain the line identification if it is a
// section.
func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			// strip comments to make rest of parsing simpler
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm writes a compiled module to its assembler textual format.
// Native functions have no code to serialize and are skipped.
func Dasm(m *Module) ([]byte, error) {
	d := dasm{buf: new(bytes.Buffer)}
	d.write("module:\n")

	if len(m.Begin) > 0 {
		d.write("\nbegin:\n")
		d.codeSection(m.Begin)
	}

	fns := make([]*Fn, 0, len(m.Functions))
	for _, fn := range m.Functions {
		if fn.Native == nil {
			fns = append(fns, fn)
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name.Name() < fns[j].Name.Name() })
	if len(fns) == 0 && len(m.Begin) == 0 {
		d.err = errors.New("missing function")
	}

	for _, fn := range fns {
		d.function(fn)
	}
	return d.buf.Bytes(), d.err
}

type dasm struct {
	buf *bytes.Buffer
	err error
}

func (d *dasm) function(fn *Fn) {
	if d.err != nil {
		return
	}
	d.writef("\nfunction: %s %d", fn.Name, fn.Argc.N)
	if fn.Argc.AtLeast {
		d.write(" +atleast")
	}
	d.write("\n")
	d.codeSection(fn.Code)
}

func (d *dasm) codeSection(code []Instr) {
	d.write("\tcode:\n")
	for i, in := range code {
		d.writef("\t\t%s\t# %03d\n", in, i)
	}
}

func (d *dasm) writef(s string, args ...any) {
	d.write(fmt.Sprintf(s, args...))
}

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}
