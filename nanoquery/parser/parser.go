// Package parser turns filter query text into a concrete parse tree.
//
// The grammar, from lowest to highest precedence:
//
//	query          := orQuery
//	orQuery        := andQuery (OR andQuery)*
//	andQuery       := atomicQuery (AND? atomicQuery)*
//	atomicQuery    := subQuery | notQuery | term
//	subQuery       := '(' query ')'
//	notQuery       := ('-' | NOT) atomicQuery
//	term           := equalFieldTerm | otherFieldTerm | globalTerm
//	equalFieldTerm := field ':' value (',' value)*
//	otherFieldTerm := field ('<' | '<=' | '>' | '>=') value
//	globalTerm     := value
//
// Example:
//
//	status:draft,review -tags:archived (title:"hello world" OR views>=100) golang
package parser

import "fmt"

type parser struct {
	tokens []Token
	pos    int
}

// Parse parses query text. Blank text yields an empty query.
func Parse(text string) (*Query, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	if p.peek().Kind == EOF {
		return &Query{}, nil
	}

	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != EOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return q, nil
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) advance() Token {
	t := p.peek()
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t Token, format string, args ...any) error {
	return &SyntaxError{Pos: t.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseQuery() (*Query, error) {
	or, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return &Query{Or: or}, nil
}

func (p *parser) parseOr() (*OrQuery, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	or := &OrQuery{Ands: []*AndQuery{first}}
	for p.peek().Kind == Or {
		p.advance()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		or.Ands = append(or.Ands, next)
	}
	return or, nil
}

func (p *parser) parseAnd() (*AndQuery, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	and := &AndQuery{Atoms: []Atom{first}}
	for {
		t := p.peek()
		switch {
		case t.Kind == And:
			p.advance()
		case startsAtom(t):
		default:
			return and, nil
		}
		next, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		and.Atoms = append(and.Atoms, next)
	}
}

func startsAtom(t Token) bool {
	switch t.Kind {
	case LParen, Minus, Not:
		return true
	}
	return t.Is(CatValue | CatField)
}

func (p *parser) parseAtom() (Atom, error) {
	t := p.peek()
	switch t.Kind {
	case LParen:
		open := p.advance()
		if p.peek().Kind == RParen {
			return nil, p.errorf(p.peek(), "empty group")
		}
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.Kind != RParen {
			return nil, p.errorf(closing, "expected ')' to close group opened at position %d, got %s", open.Pos, closing)
		}
		p.advance()
		return &SubQuery{Open: open, Query: q}, nil
	case Minus, Not:
		op := p.advance()
		inner, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &NotQuery{Op: op, Atom: inner}, nil
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (Atom, error) {
	t := p.peek()
	if t.Is(CatField) {
		switch next := p.peekAt(1); {
		case next.Kind == Colon:
			return p.parseEqualFieldTerm()
		case next.Is(CatComparator):
			field := p.advance()
			op := p.advance()
			value, err := p.expectValue()
			if err != nil {
				return nil, err
			}
			return &OtherFieldTerm{Field: field, Op: op, Value: value}, nil
		}
	}
	if t.Is(CatValue) {
		return &GlobalTerm{Value: p.advance()}, nil
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

func (p *parser) parseEqualFieldTerm() (Atom, error) {
	term := &EqualFieldTerm{Field: p.advance()}
	p.advance() // ':'
	for {
		value, err := p.expectValue()
		if err != nil {
			return nil, err
		}
		term.Values = append(term.Values, value)
		if p.peek().Kind != Comma {
			return term, nil
		}
		p.advance()
	}
}

func (p *parser) expectValue() (Token, error) {
	t := p.peek()
	if !t.Is(CatValue) {
		return Token{}, p.errorf(t, "expected a value, got %s", t)
	}
	return p.advance(), nil
}
