package condition

// Grammar:
//
//	program    = "WHEN" or_expr "THEN" call_list [ "ELSE" call_list ]
//	or_expr    = and_expr { "OR" and_expr }
//	and_expr   = unary { "AND" unary }
//	unary      = "NOT" unary | comparison
//	comparison = path operator literal
//	call_list  = call { "," call }
//	call       = ident "(" [ arg { "," arg } ] ")"
//	arg        = ident "=" literal | literal
//
// Keywords are case-insensitive. Parenthesized grouping inside a condition is
// not part of the language and is rejected with a SyntaxError.

// Parse compiles rule source into a Program. On failure it returns a
// *SyntaxError and a nil Program.
func Parse(source string) (*Program, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// MustParse is Parse for sources known to be valid, such as test fixtures.
func MustParse(source string) *Program {
	prog, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return prog
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) cur() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(kw string) bool {
	tok := p.cur()
	return tok.kind == tokKeyword && tok.text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return syntaxErrorAt(p.cur(), "expected %s", kw)
	}
	p.advance()
	return nil
}

func (p *parser) parseProgram() (*Program, error) {
	if err := p.expectKeyword("WHEN"); err != nil {
		return nil, err
	}

	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}

	then, err := p.parseCallList()
	if err != nil {
		return nil, err
	}

	prog := &Program{Condition: cond, Then: then}

	if p.isKeyword("ELSE") {
		p.advance()
		prog.Else, err = p.parseCallList()
		if err != nil {
			return nil, err
		}
	}

	if tok := p.cur(); tok.kind != tokEOF {
		return nil, syntaxErrorAt(tok, "unexpected %s after action list", tok.kind)
	}
	return prog, nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.isKeyword("NOT") {
		p.advance()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	tok := p.cur()
	switch tok.kind {
	case tokIdent:
	case tokLParen:
		return nil, syntaxErrorAt(tok, "parenthesized grouping is not supported; write conditions as a flat AND/OR chain")
	default:
		return nil, syntaxErrorAt(tok, "expected a context path, got %s", tok.kind)
	}
	if isReservedLiteral(tok.text) {
		return nil, syntaxErrorAt(tok, "expected a context path, got literal %s", tok.text)
	}
	p.advance()

	opTok := p.cur()
	if opTok.kind != tokOperator {
		if opTok.kind == tokAssign {
			return nil, syntaxErrorAt(opTok, "use '==' for equality")
		}
		return nil, syntaxErrorAt(opTok, "expected a comparison operator, got %s", opTok.kind)
	}
	p.advance()

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	return &Comparison{
		Path:     tok.text,
		Operator: Operator(opTok.text),
		Literal:  lit,
		Pos:      tok.pos,
	}, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	tok := p.cur()
	switch tok.kind {
	case tokString:
		p.advance()
		return Literal{Kind: LiteralString, Text: tok.text}, nil
	case tokNumber:
		p.advance()
		return Literal{Kind: LiteralNumber, Text: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "true", "false":
			p.advance()
			return Literal{Kind: LiteralBool, Text: tok.text}, nil
		case "null":
			p.advance()
			return Literal{Kind: LiteralNull, Text: tok.text}, nil
		}
		return Literal{}, syntaxErrorAt(tok, "expected a literal; quote string values")
	}
	return Literal{}, syntaxErrorAt(tok, "expected a literal, got %s", tok.kind)
}

func (p *parser) parseCallList() ([]ActionCall, error) {
	var calls []ActionCall
	for {
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)

		if p.cur().kind != tokComma {
			return calls, nil
		}
		p.advance()
	}
}

func (p *parser) parseCall() (ActionCall, error) {
	nameTok := p.cur()
	if nameTok.kind != tokIdent {
		return ActionCall{}, syntaxErrorAt(nameTok, "expected an action name, got %s", nameTok.kind)
	}
	p.advance()

	if tok := p.cur(); tok.kind != tokLParen {
		return ActionCall{}, syntaxErrorAt(tok, "expected '(' after action name %s", nameTok.text)
	}
	p.advance()

	call := ActionCall{Name: nameTok.text, Pos: nameTok.pos}
	if p.cur().kind == tokRParen {
		p.advance()
		return call, nil
	}

	for {
		arg, err := p.parseArg()
		if err != nil {
			return ActionCall{}, err
		}
		call.Args = append(call.Args, arg)

		tok := p.cur()
		switch tok.kind {
		case tokComma:
			p.advance()
		case tokRParen:
			p.advance()
			return call, nil
		default:
			return ActionCall{}, syntaxErrorAt(tok, "expected ',' or ')' in arguments of %s", call.Name)
		}
	}
}

func (p *parser) parseArg() (Arg, error) {
	tok := p.cur()
	if tok.kind == tokIdent && !isReservedLiteral(tok.text) && p.tokens[p.pos+1].kind == tokAssign {
		p.advance()
		p.advance()
		lit, err := p.parseLiteral()
		if err != nil {
			return Arg{}, err
		}
		return Arg{Key: tok.text, Value: lit}, nil
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return Arg{}, err
	}
	return Arg{Value: lit}, nil
}

func isReservedLiteral(word string) bool {
	return word == "true" || word == "false" || word == "null"
}
