package stdlib_test

import (
	"bytes"
	"testing"

	"github.com/kestrel-lang/kestrel/lang/ast"
	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/machine"
	"github.com/kestrel-lang/kestrel/lang/stdlib"
	"github.com/kestrel-lang/kestrel/lang/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T) (*machine.Machine, *bytes.Buffer, *ident.Table) {
	t.Helper()
	table := ident.NewTable()
	asm := compiler.NewAssembler(table)
	var stdout bytes.Buffer
	require.NoError(t, stdlib.Register(asm, &stdout))
	mod, err := asm.Assemble(&ast.Module{})
	require.NoError(t, err)
	m, err := machine.Start(mod)
	require.NoError(t, err)
	return m, &stdout, table
}

func TestPrint(t *testing.T) {
	m, stdout, _ := newMachine(t)

	rv, err := m.Exec("print", []types.Value{types.Str("a"), types.Int(1), types.Nil})
	require.NoError(t, err)
	assert.Equal(t, types.Value(types.Nil), rv)
	assert.Equal(t, "a 1 nil\n", stdout.String())

	_, err = m.Exec("print", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wanted at least 1")
}

func TestStr(t *testing.T) {
	m, _, _ := newMachine(t)

	rv, err := m.Exec("str", []types.Value{types.Str("a"), types.Int(12), types.Str("b")})
	require.NoError(t, err)
	assert.Equal(t, types.Value(types.Str("a12b")), rv)
}

func TestLen(t *testing.T) {
	m, _, _ := newMachine(t)

	cases := []struct {
		arg  types.Value
		want types.Int
	}{
		{types.Str(""), 0},
		{types.Str("héllo"), 5},
		{types.NewList([]types.Value{types.Int(1), types.Int(2)}), 2},
		{types.NewRecord(), 0},
	}
	for _, c := range cases {
		rv, err := m.Exec("len", []types.Value{c.arg})
		require.NoError(t, err)
		assert.Equal(t, types.Value(c.want), rv)
	}

	_, err := m.Exec("len", []types.Value{types.Int(5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected str|list|record")
}

func TestSplit(t *testing.T) {
	m, _, _ := newMachine(t)

	rv, err := m.Exec("split", []types.Value{types.Str("a,b,c"), types.Str(",")})
	require.NoError(t, err)
	list, err := types.AsList(rv)
	require.NoError(t, err)
	require.Equal(t, 3, list.Len())
	assert.Equal(t, types.Value(types.Str("b")), list.Index(1))

	rv, err = m.Exec("split", []types.Value{types.Str("ab"), types.Str("")})
	require.NoError(t, err)
	list, err = types.AsList(rv)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())
}

func TestAssert(t *testing.T) {
	m, _, _ := newMachine(t)

	_, err := m.Exec("assert", []types.Value{types.Int(1)})
	assert.NoError(t, err)

	_, err = m.Exec("assert", []types.Value{types.Int(0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion failed")
}

func TestAssertEq(t *testing.T) {
	m, _, _ := newMachine(t)

	_, err := m.Exec("assert_eq", []types.Value{types.Int(3), types.Int(3)})
	assert.NoError(t, err)

	_, err = m.Exec("assert_eq", []types.Value{types.Int(3), types.Str("3")})
	require.Error(t, err)
	assert.EqualError(t, err, "assertion failed: 3 != 3")
}

func TestNew(t *testing.T) {
	m, _, table := newMachine(t)

	rv, err := m.Exec("new", nil)
	require.NoError(t, err)
	rec, err := types.AsRecord(rv)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Len())

	a, err := table.Intern("a")
	require.NoError(t, err)
	rv, err = m.Exec("new", []types.Value{types.NewSymbol(a), types.Int(1)})
	require.NoError(t, err)
	rec, err = types.AsRecord(rv)
	require.NoError(t, err)
	got, ok := rec.Get(a)
	require.True(t, ok)
	assert.Equal(t, types.Value(types.Int(1)), got)

	_, err = m.Exec("new", []types.Value{types.NewSymbol(a)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol/value pairs")

	_, err = m.Exec("new", []types.Value{types.Int(1), types.Int(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected symbol")
}
