// Package parser implements the recursive-descent parser that turns a
// token stream into the syntax tree of the ast package.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kestrel-lang/kestrel/lang/ast"
	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/scanner"
	"github.com/kestrel-lang/kestrel/lang/token"
)

// ErrNonStaticFunction is returned when a function definition appears
// anywhere but at the top level of a module.
var ErrNonStaticFunction = errors.New("non-static function")

// A SyntaxError reports an unexpected token.
type SyntaxError struct {
	Line int
	Want string
	Got  token.Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: expected %s, found %s", e.Line, e.Want, e.Got)
}

// ParseModule tokenizes and parses a full source file: a sequence of
// sub definitions and BEGIN blocks. The bodies of several BEGIN blocks
// are concatenated in source order.
func ParseModule(src string, table *ident.Table) (*ast.Module, error) {
	toks, err := scanner.ScanAll(src, table)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	return p.module()
}

// ParseStmts tokenizes and parses a bare statement list, as used by
// interactive evaluation.
func ParseStmts(src string, table *ident.Table) ([]ast.Stmt, error) {
	toks, err := scanner.ScanAll(src, table)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	stmts, err := p.stmts(token.EOF)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EOF); err != nil {
		return nil, err
	}
	return stmts, nil
}

type parser struct {
	src  string
	toks []token.Token
	i    int
}

func (p *parser) cur() token.Token  { return p.toks[p.i] }
func (p *parser) peek() token.Token { // next after cur
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token.Token {
	tok := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return tok
}

func (p *parser) expect(kind token.Kind) (token.Token, error) {
	if p.cur().Kind != kind {
		return token.Token{}, p.unexpected(kind.String())
	}
	return p.advance(), nil
}

func (p *parser) unexpected(want string) error {
	got := p.cur()
	return &SyntaxError{Line: got.Line, Want: want, Got: got}
}

func (p *parser) module() (*ast.Module, error) {
	mod := &ast.Module{}
	for {
		switch p.cur().Kind {
		case token.EOF:
			return mod, nil

		case token.DEF:
			def, err := p.def()
			if err != nil {
				return nil, err
			}
			mod.Defs = append(mod.Defs, def)

		case token.BEGIN:
			p.advance()
			body, err := p.block()
			if err != nil {
				return nil, err
			}
			mod.Begin = append(mod.Begin, body...)

		default:
			return nil, p.unexpected("sub or BEGIN")
		}
	}
}

func (p *parser) def() (*ast.Def, error) {
	defTok, err := p.expect(token.DEF)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	var params []*ident.Ident
	for p.cur().Kind != token.RPAREN {
		if len(params) > 0 {
			if _, err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
		}
		param, err := p.expect(token.LOCAL)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Ident)
	}
	p.advance() // )

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.Def{Name: name.Ident, Params: params, Body: body, Line: defTok.Line}, nil
}

// block parses { stmts }.
func (p *parser) block() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	stmts, err := p.stmts(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *parser) stmts(end token.Kind) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for p.cur().Kind != end && p.cur().Kind != token.EOF {
		stmt, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *parser) stmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case token.DEF:
		return nil, fmt.Errorf("line %d: %w", p.cur().Line, ErrNonStaticFunction)

	case token.MY:
		return p.myStmt()

	case token.RETURN:
		return p.returnStmt()

	case token.ASSERT:
		return p.assertStmt()

	case token.IF:
		return p.ifStmt()

	case token.WHILE:
		return p.whileStmt()

	default:
		return p.simpleStmt()
	}
}

func (p *parser) myStmt() (ast.Stmt, error) {
	p.advance() // my
	name, err := p.expect(token.LOCAL)
	if err != nil {
		return nil, err
	}

	var init ast.Expr
	if p.cur().Kind == token.ASSIGN {
		p.advance()
		init, err = p.expr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.My{Name: name.Ident, Expr: init}, nil
}

func (p *parser) returnStmt() (ast.Stmt, error) {
	p.advance() // return

	var rv ast.Expr
	if p.cur().Kind != token.SEMI {
		var err error
		rv, err = p.expr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.Return{Expr: rv}, nil
}

func (p *parser) assertStmt() (ast.Stmt, error) {
	p.advance() // assert
	start := p.cur().Off

	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	end := p.cur().Off
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.src[start:end])
	return &ast.Assert{Expr: expr, Text: text}, nil
}

func (p *parser) ifStmt() (ast.Stmt, error) {
	p.advance() // if

	stmt := &ast.If{}
	for {
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = append(stmt.Clauses, ast.IfClause{Cond: cond, Body: body})

		if p.cur().Kind != token.ELSE {
			return stmt, nil
		}
		p.advance() // else
		if p.cur().Kind == token.IF {
			p.advance()
			continue
		}
		last, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Else = last
		return stmt, nil
	}
}

func (p *parser) whileStmt() (ast.Stmt, error) {
	p.advance() // while
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

// simpleStmt parses an assignment or a bare expression statement.
func (p *parser) simpleStmt() (ast.Stmt, error) {
	expr, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.cur().Kind == token.ASSIGN {
		p.advance()
		rhs, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.Assign{Lhs: expr, Rhs: rhs}, nil
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: expr}, nil
}
