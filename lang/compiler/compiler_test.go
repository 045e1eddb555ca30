package compiler_test

import (
	"testing"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/parser"
	"github.com/kestrel-lang/kestrel/lang/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) (*compiler.Module, *ident.Table, error) {
	t.Helper()
	table := ident.NewTable()
	mod, err := parser.ParseModule(src, table)
	if err != nil {
		return nil, table, err
	}
	cmod, err := compiler.NewAssembler(table).Assemble(mod)
	return cmod, table, err
}

func mustCompile(t *testing.T, src string) (*compiler.Module, *ident.Table) {
	t.Helper()
	mod, table, err := compile(t, src)
	require.NoError(t, err)
	return mod, table
}

func fnCode(t *testing.T, mod *compiler.Module, table *ident.Table, name string) []compiler.Instr {
	t.Helper()
	id, ok := table.Lookup(name)
	require.True(t, ok)
	fn, ok := mod.Lookup(id)
	require.True(t, ok)
	require.Nil(t, fn.Native)
	return fn.Code
}

func TestCompileLocals(t *testing.T) {
	mod, table := mustCompile(t, `sub main() { my $x = 2; return $x; }`)
	code := fnCode(t, mod, table, "main")
	want := []compiler.Instr{
		{Op: compiler.PUSHI, Arg: 2},
		{Op: compiler.MARK, Arg: 1},
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.RET},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompileArity(t *testing.T) {
	mod, table := mustCompile(t, `sub add($x, $y) { return $x + $y; }`)
	id, _ := table.Lookup("add")
	fn, ok := mod.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, compiler.Exactly(2), fn.Argc)
	assert.Equal(t, "exactly 2", fn.Argc.String())

	// parameters occupy the first slots
	assert.Equal(t, compiler.Instr{Op: compiler.LOAD, Arg: 0}, fn.Code[0])
	assert.Equal(t, compiler.Instr{Op: compiler.LOAD, Arg: 1}, fn.Code[1])
}

func TestCompileIf(t *testing.T) {
	mod, table := mustCompile(t, `sub f($a) { if $a { print("y"); } }`)
	code := fnCode(t, mod, table, "f")
	printID, _ := table.Lookup("print")
	want := []compiler.Instr{
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.JNZ, Arg: 4},
		{Op: compiler.MARK, Arg: 1}, // else block scope release
		{Op: compiler.JUMP, Arg: 9},
		{Op: compiler.PUSHS, Str: "y"},
		{Op: compiler.CALL, Name: printID, Arg: 1},
		{Op: compiler.DROP},
		{Op: compiler.MARK, Arg: 1}, // body scope release
		{Op: compiler.JUMP, Arg: 9},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompileWhile(t *testing.T) {
	mod, table := mustCompile(t, `sub f($n) { while $n { $n = $n - 1; } }`)
	code := fnCode(t, mod, table, "f")
	want := []compiler.Instr{
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.NOT},
		{Op: compiler.JNZ, Arg: 10},
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.PUSHI, Arg: 1},
		{Op: compiler.BINOP, Binop: compiler.SUB},
		{Op: compiler.STORE, Arg: 0},
		{Op: compiler.MARK, Arg: 1},
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.JNZ, Arg: 3},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompileShortCircuit(t *testing.T) {
	mod, table := mustCompile(t, `sub f() { my $v = () or 7; return $v; }`)
	code := fnCode(t, mod, table, "f")
	want := []compiler.Instr{
		{Op: compiler.NIL},
		{Op: compiler.DUP},
		{Op: compiler.JNZ, Arg: 5},
		{Op: compiler.DROP},
		{Op: compiler.PUSHI, Arg: 7},
		{Op: compiler.MARK, Arg: 1},
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.RET},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)

	mod, table = mustCompile(t, `sub f() { my $v = 1 and 2; }`)
	code = fnCode(t, mod, table, "f")
	want = []compiler.Instr{
		{Op: compiler.PUSHI, Arg: 1},
		{Op: compiler.DUP},
		{Op: compiler.NOT},
		{Op: compiler.JNZ, Arg: 6},
		{Op: compiler.DROP},
		{Op: compiler.PUSHI, Arg: 2},
		{Op: compiler.MARK, Arg: 1},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompileGlobals(t *testing.T) {
	mod, table := mustCompile(t, `sub f() { %g = 1; return %g; }`)
	code := fnCode(t, mod, table, "f")
	gID, _ := table.Lookup("g")
	want := []compiler.Instr{
		{Op: compiler.PUSHI, Arg: 1},
		{Op: compiler.PUSHN, Name: gID},
		{Op: compiler.GLOBALS},
		{Op: compiler.INS},
		{Op: compiler.GLOBALS},
		{Op: compiler.PUSHN, Name: gID},
		{Op: compiler.BINOP, Binop: compiler.IDX},
		{Op: compiler.RET},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompileIndexAssign(t *testing.T) {
	mod, table := mustCompile(t, `sub f($xs) { $xs[1] = 99; }`)
	code := fnCode(t, mod, table, "f")
	want := []compiler.Instr{
		{Op: compiler.PUSHI, Arg: 99},
		{Op: compiler.PUSHI, Arg: 1},
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.INS},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompileInterp(t *testing.T) {
	mod, table := mustCompile(t, `sub f($x) { return "a$x b$1"; }`)
	code := fnCode(t, mod, table, "f")
	want := []compiler.Instr{
		{Op: compiler.PUSHS, Str: "a"},
		{Op: compiler.LOAD, Arg: 0},
		{Op: compiler.PUSHS, Str: " b"},
		{Op: compiler.GROUP, Arg: 1},
		{Op: compiler.STR, Arg: 4},
		{Op: compiler.RET},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)

	// a plain literal avoids the concatenation
	mod, table = mustCompile(t, `sub f() { return "abc"; }`)
	code = fnCode(t, mod, table, "f")
	assert.Equal(t, compiler.Instr{Op: compiler.PUSHS, Str: "abc"}, code[0])
}

func TestCompileRecordLiteral(t *testing.T) {
	mod, table := mustCompile(t, `sub f() { my $r = {}; my $s = { a: 1 }; }`)
	code := fnCode(t, mod, table, "f")
	aID, _ := table.Lookup("a")
	newID, _ := table.Lookup("new")
	want := []compiler.Instr{
		{Op: compiler.REC},
		{Op: compiler.MARK, Arg: 1},
		{Op: compiler.PUSHN, Name: aID},
		{Op: compiler.PUSHI, Arg: 1},
		{Op: compiler.CALL, Name: newID, Arg: 2},
		{Op: compiler.MARK, Arg: 2},
		{Op: compiler.NIL},
		{Op: compiler.RET},
	}
	assert.Equal(t, want, code)
}

func TestCompilePatternPayload(t *testing.T) {
	mod, table := mustCompile(t, `sub f($x) { return "s" =~ re/a$x/; }`)
	code := fnCode(t, mod, table, "f")
	require.Equal(t, compiler.PAT, code[1].Op)

	local := code[1].Pat.Root.Branches[0].Leaves[1].(*pattern.Local)
	assert.Equal(t, "x", local.Name.Name())
	assert.Equal(t, 0, local.Slot)
}

func TestCompileBegin(t *testing.T) {
	mod, _ := mustCompile(t, `BEGIN { my $x = 1; } sub main() { }`)
	want := []compiler.Instr{
		{Op: compiler.PUSHI, Arg: 1},
		{Op: compiler.MARK, Arg: 1},
	}
	assert.Equal(t, want, mod.Begin)
}

func TestCompileDeterminism(t *testing.T) {
	src := `
		BEGIN { %limit = 10; }
		sub main() {
			my $i = 0;
			while $i ne %limit {
				if $i eq 3 { print("three"); } else { print($i); }
				$i = $i + 1;
			}
		}
	`
	m1, t1 := mustCompile(t, src)
	m2, t2 := mustCompile(t, src)
	assert.Equal(t, fnCode(t, m1, t1, "main"), fnCode(t, m2, t2, "main"))
	assert.Equal(t, m1.Begin, m2.Begin)
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  error
	}{
		{"undefined variable", `sub f() { return $x; }`, compiler.ErrVariableUndefined},
		{"undefined in pattern", `sub f() { return "s" =~ re/$x/; }`, compiler.ErrVariableUndefined},
		{"redeclared in same scope", `sub f() { my $x; my $x; }`, compiler.ErrVariableRenamed},
		{"redeclared parameter", `sub f($x) { my $x; }`, compiler.ErrVariableRenamed},
		{"inner local out of scope", `sub f($c) { while $c { my $n = 1; } return $n; }`, compiler.ErrVariableUndefined},
		{"illegal lvalue literal", `sub f() { 1 = 2; }`, compiler.ErrIllegalLvalue},
		{"illegal lvalue call", `sub f() { len("a") = 2; }`, compiler.ErrIllegalLvalue},
		{"illegal lvalue binop", `sub f($a) { $a + 1 = 2; }`, compiler.ErrIllegalLvalue},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, _, err := compile(t, c.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, c.err)
			assert.Contains(t, err.Error(), "sub f: ")
		})
	}
}

func TestCompileShadowing(t *testing.T) {
	// inner scopes may shadow outer ones
	_, _, err := compile(t, `sub f($x) { while $x { my $x = 0; } }`)
	assert.NoError(t, err)
}
