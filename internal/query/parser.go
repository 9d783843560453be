package query

// Binding powers for the precedence-climbing loop. Higher binds tighter.
// Atoms carry a binding power too: it is what drives implicit AND between
// adjacent atoms.
const (
	bpNot  = 100
	bpAnd  = 80
	bpOr   = 60
	bpAtom = 50
)

func bindingPower(tok Token) int {
	switch tok.Kind {
	case TokenNot:
		return bpNot
	case TokenAnd:
		return bpAnd
	case TokenOr:
		return bpOr
	case TokenRParen:
		return 0
	default:
		return bpAtom
	}
}

// Parse builds an AST from a token sequence. It returns a *SearchError for
// malformed input: unexpected end of input, unmatched parentheses, a range
// operator whose left side is not a scheduled:/deadline: filter, or any token
// the grammar does not expect.
func Parse(tokens []Token) (Node, error) {
	p := &parser{tokens: tokens}

	node, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}

	if tok, ok := p.peek(); ok {
		if tok.Kind == TokenRParen {
			return nil, searchErr(tok.Pos, "unmatched parenthesis")
		}

		return nil, searchErr(tok.Pos, "unexpected token %q", tok.Raw)
	}

	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}

	return p.tokens[p.pos], true
}

func (p *parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}

	return tok, ok
}

// endPos is the error position for unexpected end of input.
func (p *parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}

	last := p.tokens[len(p.tokens)-1]

	return last.Pos + len(last.Raw)
}

// parseExpr is the precedence-climbing loop: parse one atom, then keep
// consuming operators that bind tighter than minBP. Operators recurse with
// their own binding power minus one, making them right-associative.
func (p *parser) parseExpr(minBP int) (Node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || bindingPower(tok) <= minBP {
			return left, nil
		}

		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseAtom() (Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, searchErr(p.endPos(), "unexpected end of input")
	}

	switch tok.Kind {
	case TokenWord:
		return &TermNode{Value: tok.Value}, nil

	case TokenPhrase:
		return &PhraseNode{Value: tok.Value}, nil

	case TokenNot:
		// Leading NOT is a true prefix operator. Mid-expression NOT is
		// handled in parseInfix instead.
		child, err := p.parseExpr(bpNot - 1)
		if err != nil {
			return nil, err
		}

		return &NotNode{Child: child}, nil

	case TokenLParen:
		node, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}

		closing, ok := p.next()
		if !ok || closing.Kind != TokenRParen {
			return nil, searchErr(tok.Pos, "unmatched parenthesis")
		}

		return node, nil

	case TokenPrefix:
		return p.parsePrefixFilter(tok)

	case TokenProperty:
		return &PropertyNode{Raw: tok.Value, Exact: tok.Quoted}, nil

	default:
		return nil, searchErr(tok.Pos, "unexpected token %q", tok.Raw)
	}
}

func (p *parser) parsePrefixFilter(prefixTok Token) (Node, error) {
	valueTok, ok := p.next()
	if !ok {
		return nil, searchErr(p.endPos(), "unexpected end of input")
	}

	var exact bool

	switch valueTok.Kind {
	case TokenPrefixValue, TokenWord:
		exact = false
	case TokenPrefixValueQuoted, TokenPhrase:
		exact = true
	default:
		return nil, searchErr(valueTok.Pos, "unexpected token %q", valueTok.Raw)
	}

	return &PrefixNode{Field: Field(prefixTok.Value), Value: valueTok.Value, Exact: exact}, nil
}

func (p *parser) parseInfix(left Node) (Node, error) {
	tok, _ := p.next()

	switch tok.Kind {
	case TokenAnd:
		right, err := p.parseExpr(bpAnd - 1)
		if err != nil {
			return nil, err
		}

		return conjoin(left, right), nil

	case TokenOr:
		right, err := p.parseExpr(bpOr - 1)
		if err != nil {
			return nil, err
		}

		return disjoin(left, right), nil

	case TokenNot:
		// Mid-expression NOT combines with AND against whatever preceded it:
		// "a -b" is and(a, not(b)).
		operand, err := p.parseExpr(bpNot - 1)
		if err != nil {
			return nil, err
		}

		return conjoin(left, &NotNode{Child: operand}), nil

	case TokenRange:
		return p.parseRange(left, tok)

	default:
		// Adjacent atom with no operator in between: implicit AND. Put the
		// token back so the recursive call parses it as an atom.
		p.pos--

		right, err := p.parseExpr(bpAtom - 1)
		if err != nil {
			return nil, err
		}

		return conjoin(left, right), nil
	}
}

func (p *parser) parseRange(left Node, rangeTok Token) (Node, error) {
	prefix, ok := left.(*PrefixNode)
	if !ok || !prefix.Field.DateField() {
		return nil, searchErr(rangeTok.Pos, "range filter requires a scheduled: or deadline: prefix")
	}

	valueTok, ok := p.next()
	if !ok {
		return nil, searchErr(p.endPos(), "unexpected end of input")
	}

	switch valueTok.Kind {
	case TokenWord, TokenPrefixValue, TokenPhrase, TokenPrefixValueQuoted:
	default:
		return nil, searchErr(valueTok.Pos, "unexpected token %q", valueTok.Raw)
	}

	return &RangeNode{Field: prefix.Field, Start: prefix.Value, End: valueTok.Value}, nil
}

// conjoin combines two nodes under AND, flattening conjunctions on either
// side so "a b c" yields one and-node with three children. The right side
// needs flattening too: implicit AND recurses right-associatively, so a chain
// arrives as and(a, and(b, c)).
func conjoin(left, right Node) Node {
	children := make([]Node, 0, 3)

	if and, ok := left.(*AndNode); ok {
		children = append(children, and.Children...)
	} else {
		children = append(children, left)
	}

	if and, ok := right.(*AndNode); ok {
		children = append(children, and.Children...)
	} else {
		children = append(children, right)
	}

	return &AndNode{Children: children}
}

func disjoin(left, right Node) Node {
	children := make([]Node, 0, 3)

	if or, ok := left.(*OrNode); ok {
		children = append(children, or.Children...)
	} else {
		children = append(children, left)
	}

	if or, ok := right.(*OrNode); ok {
		children = append(children, or.Children...)
	} else {
		children = append(children, right)
	}

	return &OrNode{Children: children}
}
