package query

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ParseError describes a syntax error in a query string. It is a
// per-query failure, the caller is expected to report it and carry on.
type ParseError struct {
	Pos int    // byte offset into the query string
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// IsParseError returns true if err is a ParseError.
func IsParseError(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// Parse parses a query string into a Query tree.
//
// The grammar is deliberately minimal. A word is a maximal run of
// alphanumeric characters, whitespace between tokens is ignored and
// parentheses group sub-expressions. Both operators associate to the
// right and the precedence is resolved by the descent order below:
// after each primary the parser first collects a full chain of ORs and
// only then looks for an AND, so `foo AND bar OR baz` parses as
// And(foo, Or(bar, baz)) while `foo OR bar AND baz` parses as
// And(Or(foo, bar), baz).
func Parse(input string) (Query, error) {
	p := &parser{input: input}
	q, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected input after the query"}
	}
	return q, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) expr() (Query, error) {
	return p.andExpr()
}

func (p *parser) andExpr() (Query, error) {
	lhs, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.eat("AND") {
		rhs, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		return And{LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func (p *parser) orExpr() (Query, error) {
	lhs, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.eat("OR") {
		rhs, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		return Or{LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func (p *parser) primaryExpr() (Query, error) {
	p.skipSpaces()
	if p.eat("(") {
		q, err := p.expr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if !p.eat(")") {
			return nil, &ParseError{Pos: p.pos, Msg: "missing closing parenthesis"}
		}
		return q, nil
	}
	word := p.word()
	if word == "" {
		return nil, &ParseError{Pos: p.pos, Msg: "expected a word or a parenthesized expression"}
	}
	return Word(word), nil
}

// word consumes a maximal run of alphanumeric characters, which may
// be empty.
func (p *parser) word() string {
	start := p.pos
	for p.pos < len(p.input) {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			break
		}
		p.pos += size
	}
	return p.input[start:p.pos]
}

// eat consumes the given token if the remaining input starts with it.
// Operators are recognized purely by prefix, there is no word boundary
// check after them.
func (p *parser) eat(token string) bool {
	if len(p.input)-p.pos < len(token) || p.input[p.pos:p.pos+len(token)] != token {
		return false
	}
	p.pos += len(token)
	return true
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		p.pos += size
	}
}
