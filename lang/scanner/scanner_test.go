package scanner_test

import (
	"testing"

	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/scanner"
	"github.com/kestrel-lang/kestrel/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, tok := range toks {
		ks[i] = tok.Kind
	}
	return ks
}

func TestScanKinds(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		want []token.Kind
	}{
		{"empty", "", []token.Kind{token.EOF}},
		{"whitespace only", " \t\n", []token.Kind{token.EOF}},
		{"comment only", "# hello\n", []token.Kind{token.EOF}},

		{"def", "sub foo() { return $bar; }", []token.Kind{
			token.DEF, token.IDENT, token.LPAREN, token.RPAREN, token.LBRACE,
			token.RETURN, token.LOCAL, token.SEMI, token.RBRACE, token.EOF,
		}},

		{"my with init", "my $x = 1;", []token.Kind{
			token.MY, token.LOCAL, token.ASSIGN, token.INT, token.SEMI, token.EOF,
		}},

		{"operators", "+ - * / = =~ eq ne and or not", []token.Kind{
			token.ADD, token.SUB, token.MUL, token.DIV, token.ASSIGN, token.MATCH,
			token.EQ, token.NE, token.AND, token.OR, token.NOT, token.EOF,
		}},

		{"globals and groups", "%g $1 $x :sym", []token.Kind{
			token.GLOBAL, token.GROUP, token.LOCAL, token.SYM, token.EOF,
		}},

		{"colon alone", "{ a : 1 }", []token.Kind{
			token.LBRACE, token.IDENT, token.COLON, token.INT, token.RBRACE, token.EOF,
		}},

		{"begin", "BEGIN { }", []token.Kind{
			token.BEGIN, token.LBRACE, token.RBRACE, token.EOF,
		}},

		{"pattern", "$s =~ re/a+/i;", []token.Kind{
			token.LOCAL, token.MATCH, token.PAT, token.SEMI, token.EOF,
		}},

		{"comment between tokens", "my $x # trailing\n= 2;", []token.Kind{
			token.MY, token.LOCAL, token.ASSIGN, token.INT, token.SEMI, token.EOF,
		}},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			toks, err := scanner.ScanAll(c.in, ident.NewTable())
			require.NoError(t, err)
			assert.Equal(t, c.want, kinds(toks))
		})
	}
}

func TestScanPayloads(t *testing.T) {
	table := ident.NewTable()
	toks, err := scanner.ScanAll(`foo $bar %baz :quux 42 $7`, table)
	require.NoError(t, err)

	foo, _ := table.Lookup("foo")
	bar, _ := table.Lookup("bar")

	assert.Same(t, foo, toks[0].Ident)
	assert.Same(t, bar, toks[1].Ident)
	assert.Equal(t, "baz", toks[2].Ident.Name())
	assert.Equal(t, "quux", toks[3].Ident.Name())
	assert.Equal(t, int32(42), toks[4].Int)
	assert.Equal(t, uint8(7), toks[5].Num)
}

func TestScanString(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		want []token.StrPart
	}{
		{"plain", `"hello"`, []token.StrPart{
			{Kind: token.LitPart, Text: "hello"},
		}},
		{"empty", `""`, []token.StrPart{
			{Kind: token.LitPart, Text: ""},
		}},
		{"escapes", `"a\"b\\c\nd\te\$f\%g"`, []token.StrPart{
			{Kind: token.LitPart, Text: "a\"b\\c\nd\te$f%g"},
		}},
		{"interpolation", `"x=$x y=%y g=$1!"`, nil}, // checked below
		{"literal dollar", `"50$ or 10%"`, []token.StrPart{
			{Kind: token.LitPart, Text: "50$ or 10%"},
		}},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			toks, err := scanner.ScanAll(c.in, ident.NewTable())
			require.NoError(t, err)
			require.Equal(t, token.STR, toks[0].Kind)
			if c.want != nil {
				assert.Equal(t, c.want, toks[0].Parts)
			}
		})
	}

	t.Run("interpolation parts", func(t *testing.T) {
		table := ident.NewTable()
		toks, err := scanner.ScanAll(`"x=$x y=%y g=$1!"`, table)
		require.NoError(t, err)
		parts := toks[0].Parts
		require.Len(t, parts, 7)
		assert.Equal(t, token.StrPart{Kind: token.LitPart, Text: "x="}, parts[0])
		assert.Equal(t, token.LocalPart, parts[1].Kind)
		assert.Equal(t, "x", parts[1].Name.Name())
		assert.Equal(t, token.StrPart{Kind: token.LitPart, Text: " y="}, parts[2])
		assert.Equal(t, token.GlobalPart, parts[3].Kind)
		assert.Equal(t, "y", parts[3].Name.Name())
		assert.Equal(t, token.StrPart{Kind: token.LitPart, Text: " g="}, parts[4])
		assert.Equal(t, token.GroupPart, parts[5].Kind)
		assert.Equal(t, uint8(1), parts[5].Num)
		assert.Equal(t, token.StrPart{Kind: token.LitPart, Text: "!"}, parts[6])
	})
}

func TestScanErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string
	}{
		{"unterminated string", `"abc`, "malformed string"},
		{"bad escape", `"a\qb"`, `invalid escape \q`},
		{"bad char", "`", "token cannot start with"},
		{"dollar alone", "$ ", "invalid variable after $"},
		{"percent alone", "% ", "invalid variable after %"},
		{"int overflow", "99999999999", "invalid integer"},
		{"bad pattern", "re/a(/", "invalid regex"},
		{"bad pattern flag", "re/a/z", "invalid flag"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := scanner.ScanAll(c.in, ident.NewTable())
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.err)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestScanLines(t *testing.T) {
	toks, err := scanner.ScanAll("my $x = 1;\nmy $y = 2;", ident.NewTable())
	require.NoError(t, err)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[5].Line)
}
