// Package scanner tokenizes kestrel source for the parser to consume.
// Interpolated string literals are scanned into their fragments and
// pattern literals are parsed in place by the pattern package, so the
// tokens the scanner yields carry pre-parsed payloads.
package scanner

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/pattern"
	"github.com/kestrel-lang/kestrel/lang/token"
)

// Lexical errors. String-scanning errors wrap these; every error
// returned by the scanner is prefixed with the offending line number.
var (
	ErrMalformedString = errors.New("malformed string")
	ErrInvalidEscape   = errors.New("invalid escape")
	ErrUnexpectedEOF   = errors.New("unexpected end of file")
)

// An UnimplementedTokenError is returned for a character that cannot
// start any token.
type UnimplementedTokenError struct {
	Ch rune
}

func (e *UnimplementedTokenError) Error() string {
	return fmt.Sprintf("token cannot start with %q", e.Ch)
}

// Scanner tokenizes a single source buffer. Identifiers are interned
// in the table given to Init so that handles are shared with the rest
// of the pipeline.
type Scanner struct {
	src   string
	table *ident.Table
	off   int
	line  int
}

// Init prepares the scanner to tokenize src.
func (s *Scanner) Init(src string, table *ident.Table) {
	s.src = src
	s.table = table
	s.off = 0
	s.line = 1
}

// ScanAll tokenizes src to completion, including the trailing EOF
// token.
func ScanAll(src string, table *ident.Table) ([]token.Token, error) {
	var s Scanner
	s.Init(src, table)

	var toks []token.Token
	for {
		tok, err := s.Scan()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (s *Scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %w", s.line, fmt.Errorf(format, args...))
}

func (s *Scanner) next() (rune, bool) {
	if s.off >= len(s.src) {
		return 0, false
	}
	rn, sz := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += sz
	if rn == '\n' {
		s.line++
	}
	return rn, true
}

func (s *Scanner) peek() (rune, bool) {
	if s.off >= len(s.src) {
		return 0, false
	}
	rn, _ := utf8.DecodeRuneInString(s.src[s.off:])
	return rn, true
}

// patSource adapts the scanner's input to the pattern parser's
// character stream.
type patSource struct {
	s *Scanner
}

func (p patSource) Next() (rune, bool) { return p.s.next() }
func (p patSource) Peek() (rune, bool) { return p.s.peek() }

// Scan returns the next token. At the end of input it returns an EOF
// token.
func (s *Scanner) Scan() (token.Token, error) {
	// skip whitespace and comments
	for {
		rn, ok := s.peek()
		if !ok {
			return s.tok(token.EOF), nil
		}
		if rn == '#' {
			for {
				c, ok := s.next()
				if !ok || c == '\n' {
					break
				}
			}
			continue
		}
		if unicode.IsSpace(rn) {
			s.next()
			continue
		}
		break
	}

	tok := s.tok(0)
	first, _ := s.next()

	switch first {
	case '(':
		tok.Kind = token.LPAREN
	case ')':
		tok.Kind = token.RPAREN
	case '[':
		tok.Kind = token.LBRACK
	case ']':
		tok.Kind = token.RBRACK
	case '{':
		tok.Kind = token.LBRACE
	case '}':
		tok.Kind = token.RBRACE
	case ',':
		tok.Kind = token.COMMA
	case ';':
		tok.Kind = token.SEMI
	case '+':
		tok.Kind = token.ADD
	case '-':
		tok.Kind = token.SUB
	case '*':
		tok.Kind = token.MUL
	case '/':
		tok.Kind = token.DIV

	case '=':
		if rn, ok := s.peek(); ok && rn == '~' {
			s.next()
			tok.Kind = token.MATCH
		} else {
			tok.Kind = token.ASSIGN
		}

	case '"':
		parts, err := s.scanString()
		if err != nil {
			return tok, err
		}
		tok.Kind = token.STR
		tok.Parts = parts

	case ':':
		if rn, ok := s.peek(); ok && unicode.IsLetter(rn) {
			id, err := s.scanIdent()
			if err != nil {
				return tok, err
			}
			tok.Kind = token.SYM
			tok.Ident = id
		} else {
			tok.Kind = token.COLON
		}

	case '$':
		rn, ok := s.peek()
		switch {
		case ok && unicode.IsLetter(rn):
			id, err := s.scanIdent()
			if err != nil {
				return tok, err
			}
			tok.Kind = token.LOCAL
			tok.Ident = id
		case ok && rn >= '0' && rn <= '9':
			s.next()
			tok.Kind = token.GROUP
			tok.Num = uint8(rn - '0')
		default:
			return tok, s.errorf("invalid variable after $")
		}

	case '%':
		if rn, ok := s.peek(); !ok || !unicode.IsLetter(rn) {
			return tok, s.errorf("invalid variable after %%")
		}
		id, err := s.scanIdent()
		if err != nil {
			return tok, err
		}
		tok.Kind = token.GLOBAL
		tok.Ident = id

	default:
		switch {
		case unicode.IsLetter(first):
			word := s.scanWord(first)
			if kw, ok := token.Keywords[word]; ok {
				tok.Kind = kw
				break
			}
			if word == "re" {
				pat, err := pattern.Parse(patSource{s: s}, s.table)
				if err != nil {
					return tok, s.errorf("%w", err)
				}
				tok.Kind = token.PAT
				tok.Pat = pat
				break
			}
			id, err := s.table.Intern(word)
			if err != nil {
				return tok, s.errorf("%w", err)
			}
			tok.Kind = token.IDENT
			tok.Ident = id

		case first >= '0' && first <= '9':
			digits := s.scanDigits(first)
			n, err := strconv.ParseInt(digits, 10, 32)
			if err != nil {
				return tok, s.errorf("invalid integer %s", digits)
			}
			tok.Kind = token.INT
			tok.Int = int32(n)

		default:
			return tok, fmt.Errorf("line %d: %w", s.line, &UnimplementedTokenError{Ch: first})
		}
	}

	return tok, nil
}

func (s *Scanner) tok(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Off: s.off, Line: s.line}
}

func (s *Scanner) scanWord(first rune) string {
	word := []rune{first}
	for {
		rn, ok := s.peek()
		if !ok || !isIdentRune(rn) {
			return string(word)
		}
		word = append(word, rn)
		s.next()
	}
}

func (s *Scanner) scanIdent() (*ident.Ident, error) {
	first, _ := s.next()
	id, err := s.table.Intern(s.scanWord(first))
	if err != nil {
		return nil, s.errorf("%w", err)
	}
	return id, nil
}

func (s *Scanner) scanDigits(first rune) string {
	digits := []rune{first}
	for {
		rn, ok := s.peek()
		if !ok || rn < '0' || rn > '9' {
			return string(digits)
		}
		digits = append(digits, rn)
		s.next()
	}
}

// scanString scans the body of an interpolated string literal, after
// the opening quote. $name, $N and %name fragments interpolate the
// corresponding local, capture group or global; a $ or % followed by
// anything else is literal.
func (s *Scanner) scanString() ([]token.StrPart, error) {
	var (
		parts []token.StrPart
		lit   []rune
	)
	flush := func() {
		if len(lit) > 0 {
			parts = append(parts, token.StrPart{Kind: token.LitPart, Text: string(lit)})
			lit = nil
		}
	}

	for {
		rn, ok := s.next()
		if !ok {
			return nil, s.errorf("%w: %w", ErrMalformedString, ErrUnexpectedEOF)
		}

		switch rn {
		case '"':
			flush()
			if len(parts) == 0 {
				parts = append(parts, token.StrPart{Kind: token.LitPart, Text: ""})
			}
			return parts, nil

		case '\\':
			c, ok := s.next()
			if !ok {
				return nil, s.errorf("%w: %w", ErrMalformedString, ErrUnexpectedEOF)
			}
			switch c {
			case '"', '\\', '$', '%':
				lit = append(lit, c)
			case 'n':
				lit = append(lit, '\n')
			case 't':
				lit = append(lit, '\t')
			default:
				return nil, s.errorf("%w \\%c", ErrInvalidEscape, c)
			}

		case '$':
			next, ok := s.peek()
			switch {
			case ok && unicode.IsLetter(next):
				id, err := s.scanIdent()
				if err != nil {
					return nil, err
				}
				flush()
				parts = append(parts, token.StrPart{Kind: token.LocalPart, Name: id})
			case ok && next >= '0' && next <= '9':
				s.next()
				flush()
				parts = append(parts, token.StrPart{Kind: token.GroupPart, Num: uint8(next - '0')})
			default:
				lit = append(lit, '$')
			}

		case '%':
			if next, ok := s.peek(); ok && unicode.IsLetter(next) {
				id, err := s.scanIdent()
				if err != nil {
					return nil, err
				}
				flush()
				parts = append(parts, token.StrPart{Kind: token.GlobalPart, Name: id})
			} else {
				lit = append(lit, '%')
			}

		default:
			lit = append(lit, rn)
		}
	}
}

func isIdentRune(rn rune) bool {
	return unicode.IsLetter(rn) || unicode.IsDigit(rn) || rn == '_'
}
