package parser_test

import (
	"testing"

	"github.com/kestrel-lang/kestrel/lang/ast"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseModule(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := parser.ParseModule(src, ident.NewTable())
	require.NoError(t, err)
	return mod
}

func TestParseDef(t *testing.T) {
	mod := parseModule(t, `
		sub add($x, $y) {
			return $x + $y;
		}
		sub main() { }
	`)
	require.Len(t, mod.Defs, 2)

	add := mod.Defs[0]
	assert.Equal(t, "add", add.Name.Name())
	require.Len(t, add.Params, 2)
	assert.Equal(t, "x", add.Params[0].Name())
	assert.Equal(t, "y", add.Params[1].Name())
	require.Len(t, add.Body, 1)

	ret := add.Body[0].(*ast.Return)
	binop := ret.Expr.(*ast.Binop)
	assert.Equal(t, ast.Add, binop.Op)

	assert.Empty(t, mod.Defs[1].Params)
	assert.Empty(t, mod.Defs[1].Body)
}

func TestParseBegin(t *testing.T) {
	mod := parseModule(t, `
		BEGIN { my $x = 1; }
		sub main() { }
		BEGIN { my $y = 2; }
	`)
	require.Len(t, mod.Begin, 2)
	assert.IsType(t, (*ast.My)(nil), mod.Begin[0])
	assert.IsType(t, (*ast.My)(nil), mod.Begin[1])
}

func TestParseStmts(t *testing.T) {
	table := ident.NewTable()

	t.Run("my without init", func(t *testing.T) {
		stmts, err := parser.ParseStmts(`my $x;`, table)
		require.NoError(t, err)
		my := stmts[0].(*ast.My)
		assert.Equal(t, "x", my.Name.Name())
		assert.Nil(t, my.Expr)
	})

	t.Run("assignments", func(t *testing.T) {
		stmts, err := parser.ParseStmts(`$x = 1; %g = 2; $xs[0] = 3;`, table)
		require.NoError(t, err)
		require.Len(t, stmts, 3)

		assert.IsType(t, (*ast.Local)(nil), stmts[0].(*ast.Assign).Lhs)
		assert.IsType(t, (*ast.Global)(nil), stmts[1].(*ast.Assign).Lhs)
		idx := stmts[2].(*ast.Assign).Lhs.(*ast.Binop)
		assert.Equal(t, ast.Idx, idx.Op)
	})

	t.Run("if else chain", func(t *testing.T) {
		stmts, err := parser.ParseStmts(`
			if $x eq 1 { print("a"); }
			else if $x eq 2 { print("b"); }
			else { print("c"); }
		`, table)
		require.NoError(t, err)
		ifStmt := stmts[0].(*ast.If)
		assert.Len(t, ifStmt.Clauses, 2)
		assert.Len(t, ifStmt.Else, 1)
	})

	t.Run("while", func(t *testing.T) {
		stmts, err := parser.ParseStmts(`while $i { $i = $i - 1; }`, table)
		require.NoError(t, err)
		while := stmts[0].(*ast.While)
		assert.IsType(t, (*ast.Local)(nil), while.Cond)
		assert.Len(t, while.Body, 1)
	})

	t.Run("assert captures source text", func(t *testing.T) {
		stmts, err := parser.ParseStmts(`assert $x + $y eq  5;`, table)
		require.NoError(t, err)
		as := stmts[0].(*ast.Assert)
		assert.Equal(t, `$x + $y eq  5`, as.Text)
	})

	t.Run("bare call", func(t *testing.T) {
		stmts, err := parser.ParseStmts(`print("hi", 2);`, table)
		require.NoError(t, err)
		call := stmts[0].(*ast.ExprStmt).Expr.(*ast.Call)
		assert.Equal(t, "print", call.Name.Name())
		assert.Len(t, call.Args, 2)
	})
}

func TestParseExprPrecedence(t *testing.T) {
	table := ident.NewTable()

	expr := func(t *testing.T, src string) ast.Expr {
		t.Helper()
		stmts, err := parser.ParseStmts(src+";", table)
		require.NoError(t, err)
		return stmts[0].(*ast.ExprStmt).Expr
	}

	t.Run("mul binds tighter than add", func(t *testing.T) {
		e := expr(t, `1 + 2 * 3`).(*ast.Binop)
		assert.Equal(t, ast.Add, e.Op)
		rhs := e.Rhs.(*ast.Binop)
		assert.Equal(t, ast.Mul, rhs.Op)
	})

	t.Run("add binds tighter than eq", func(t *testing.T) {
		e := expr(t, `$x + $y eq 5`).(*ast.Binop)
		assert.Equal(t, ast.Eq, e.Op)
		assert.Equal(t, ast.Add, e.Lhs.(*ast.Binop).Op)
	})

	t.Run("match is a comparison", func(t *testing.T) {
		e := expr(t, `$s =~ re/a/`).(*ast.Binop)
		assert.Equal(t, ast.Match, e.Op)
		assert.IsType(t, (*ast.PatLit)(nil), e.Rhs)
	})

	t.Run("not or and", func(t *testing.T) {
		e := expr(t, `not $a and $b or $c`).(*ast.Or)
		and := e.Lhs.(*ast.And)
		assert.IsType(t, (*ast.Not)(nil), and.Lhs)
	})

	t.Run("nil literal and grouping", func(t *testing.T) {
		assert.IsType(t, (*ast.NilLit)(nil), expr(t, `()`))
		e := expr(t, `(1 + 2) * 3`).(*ast.Binop)
		assert.Equal(t, ast.Mul, e.Op)
	})

	t.Run("postfix index chains", func(t *testing.T) {
		e := expr(t, `$xs[0][1]`).(*ast.Binop)
		assert.Equal(t, ast.Idx, e.Op)
		inner := e.Lhs.(*ast.Binop)
		assert.Equal(t, ast.Idx, inner.Op)
	})

	t.Run("literals", func(t *testing.T) {
		assert.IsType(t, (*ast.ListLit)(nil), expr(t, `[1, 2, 3]`))
		assert.IsType(t, (*ast.RecLit)(nil), expr(t, `{ a: 1, b: 2 }`))
		assert.IsType(t, (*ast.RecLit)(nil), expr(t, `{}`))
		assert.IsType(t, (*ast.SymLit)(nil), expr(t, `:foo`))
		assert.IsType(t, (*ast.GroupRef)(nil), expr(t, `$1`))
		assert.IsType(t, (*ast.Interp)(nil), expr(t, `"hi"`))
	})
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string
	}{
		{"missing semi", `sub main() { my $x = 1 }`, "expected ;"},
		{"bare name", `sub main() { foo; }`, "expected expression"},
		{"top-level junk", `my $x = 1;`, "expected sub or BEGIN"},
		{"unclosed block", `sub main() {`, "expected }"},
		{"missing paren", `sub main { }`, "expected ("},
		{"bad param", `sub main(x) { }`, "expected local"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := parser.ParseModule(c.in, ident.NewTable())
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.err)
		})
	}
}

func TestParseNestedSub(t *testing.T) {
	_, err := parser.ParseModule(`sub main() { sub inner() { } }`, ident.NewTable())
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrNonStaticFunction)
}
