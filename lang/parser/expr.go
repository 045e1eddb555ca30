package parser

import (
	"github.com/kestrel-lang/kestrel/lang/ast"
	"github.com/kestrel-lang/kestrel/lang/token"
)

// Expression grammar, loosest binding first:
//
//	expr    = and { "or" and }
//	and     = not { "and" not }
//	not     = { "not" } cmp
//	cmp     = sum { ("eq" | "ne" | "=~") sum }
//	sum     = term { ("+" | "-") term }
//	term    = postfix { ("*" | "/") postfix }
//	postfix = primary { "[" expr "]" }
func (p *parser) expr() (ast.Expr, error) {
	lhs, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.OR {
		p.advance()
		rhs, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Or{Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) andExpr() (ast.Expr, error) {
	lhs, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.AND {
		p.advance()
		rhs, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		lhs = &ast.And{Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) notExpr() (ast.Expr, error) {
	if p.cur().Kind == token.NOT {
		p.advance()
		expr, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Expr: expr}, nil
	}
	return p.cmpExpr()
}

func (p *parser) cmpExpr() (ast.Expr, error) {
	lhs, err := p.sumExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinopKind
		switch p.cur().Kind {
		case token.EQ:
			op = ast.Eq
		case token.NE:
			op = ast.Ne
		case token.MATCH:
			op = ast.Match
		default:
			return lhs, nil
		}
		p.advance()
		rhs, err := p.sumExpr()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binop{Op: op, Lhs: lhs, Rhs: rhs}
	}
}

func (p *parser) sumExpr() (ast.Expr, error) {
	lhs, err := p.termExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinopKind
		switch p.cur().Kind {
		case token.ADD:
			op = ast.Add
		case token.SUB:
			op = ast.Sub
		default:
			return lhs, nil
		}
		p.advance()
		rhs, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binop{Op: op, Lhs: lhs, Rhs: rhs}
	}
}

func (p *parser) termExpr() (ast.Expr, error) {
	lhs, err := p.postfixExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinopKind
		switch p.cur().Kind {
		case token.MUL:
			op = ast.Mul
		case token.DIV:
			op = ast.Div
		default:
			return lhs, nil
		}
		p.advance()
		rhs, err := p.postfixExpr()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binop{Op: op, Lhs: lhs, Rhs: rhs}
	}
}

func (p *parser) postfixExpr() (ast.Expr, error) {
	expr, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.LBRACK {
		p.advance()
		idx, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACK); err != nil {
			return nil, err
		}
		expr = &ast.Binop{Op: ast.Idx, Lhs: expr, Rhs: idx}
	}
	return expr, nil
}

func (p *parser) primaryExpr() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.INT:
		p.advance()
		return &ast.IntLit{Value: tok.Int}, nil

	case token.STR:
		p.advance()
		return &ast.Interp{Parts: tok.Parts}, nil

	case token.SYM:
		p.advance()
		return &ast.SymLit{Name: tok.Ident}, nil

	case token.PAT:
		p.advance()
		return &ast.PatLit{Pat: tok.Pat}, nil

	case token.LOCAL:
		p.advance()
		return &ast.Local{Name: tok.Ident}, nil

	case token.GLOBAL:
		p.advance()
		return &ast.Global{Name: tok.Ident}, nil

	case token.GROUP:
		p.advance()
		return &ast.GroupRef{Num: tok.Num}, nil

	case token.IDENT:
		if p.peek().Kind != token.LPAREN {
			return nil, p.unexpected("expression")
		}
		return p.callExpr()

	case token.LBRACK:
		return p.listLit()

	case token.LBRACE:
		return p.recLit()

	case token.LPAREN:
		p.advance()
		if p.cur().Kind == token.RPAREN {
			p.advance()
			return &ast.NilLit{}, nil
		}
		expr, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.unexpected("expression")
	}
}

func (p *parser) callExpr() (ast.Expr, error) {
	name := p.advance()
	p.advance() // (

	var args []ast.Expr
	for p.cur().Kind != token.RPAREN {
		if len(args) > 0 {
			if _, err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
		}
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.advance() // )
	return &ast.Call{Name: name.Ident, Args: args}, nil
}

func (p *parser) listLit() (ast.Expr, error) {
	p.advance() // [

	var elems []ast.Expr
	for p.cur().Kind != token.RBRACK {
		if len(elems) > 0 {
			if _, err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
		}
		elem, err := p.expr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	p.advance() // ]
	return &ast.ListLit{Elems: elems}, nil
}

func (p *parser) recLit() (ast.Expr, error) {
	p.advance() // {

	rec := &ast.RecLit{}
	for p.cur().Kind != token.RBRACE {
		if len(rec.Fields) > 0 {
			if _, err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
		}
		key, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.expr()
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, ast.RecField{Key: key.Ident, Value: val})
	}
	p.advance() // }
	return rec, nil
}
