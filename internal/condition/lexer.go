package condition

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokKeyword
	tokIdent
	tokString
	tokNumber
	tokOperator
	tokAssign
	tokComma
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokKeyword:
		return "keyword"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokOperator:
		return "operator"
	case tokAssign:
		return "'='"
	case tokComma:
		return "','"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "token"
}

var keywords = map[string]bool{
	"WHEN": true,
	"THEN": true,
	"ELSE": true,
	"AND":  true,
	"OR":   true,
	"NOT":  true,
}

type token struct {
	kind tokenKind
	// text is the canonical form: keywords upper-cased, strings unquoted.
	text string
	pos  Position
}

type lexer struct {
	src  []rune
	off  int
	line int
	col  int
}

func tokenize(source string) ([]token, error) {
	lx := &lexer{src: []rune(source), line: 1, col: 1}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) peek(ahead int) rune {
	if lx.off+ahead >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+ahead]
}

func (lx *lexer) advance() rune {
	r := lx.src[lx.off]
	lx.off++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) skipSpace() {
	for lx.off < len(lx.src) {
		r := lx.peek(0)
		switch {
		case unicode.IsSpace(r):
			lx.advance()
		case r == '#':
			for lx.off < len(lx.src) && lx.peek(0) != '\n' {
				lx.advance()
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	pos := Position{Line: lx.line, Column: lx.col}
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, pos: pos}, nil
	}

	r := lx.peek(0)
	switch {
	case r == '"' || r == '\'':
		return lx.lexString(pos)
	case isDigit(r) || (r == '-' && isDigit(lx.peek(1))):
		return lx.lexNumber(pos), nil
	case isIdentStart(r):
		return lx.lexWord(pos), nil
	case r == '(':
		lx.advance()
		return token{kind: tokLParen, text: "(", pos: pos}, nil
	case r == ')':
		lx.advance()
		return token{kind: tokRParen, text: ")", pos: pos}, nil
	case r == ',':
		lx.advance()
		return token{kind: tokComma, text: ",", pos: pos}, nil
	case r == '=' || r == '!' || r == '<' || r == '>':
		return lx.lexOperator(pos)
	}

	lx.advance()
	return token{}, &SyntaxError{
		Token:   string(r),
		Line:    pos.Line,
		Column:  pos.Column,
		Message: "unexpected character",
	}
}

func (lx *lexer) lexString(pos Position) (token, error) {
	quote := lx.advance()
	var sb strings.Builder
	for {
		if lx.off >= len(lx.src) || lx.peek(0) == '\n' {
			return token{}, &SyntaxError{
				Token:   string(quote) + sb.String(),
				Line:    pos.Line,
				Column:  pos.Column,
				Message: "unterminated string literal",
			}
		}
		r := lx.advance()
		if r == quote {
			return token{kind: tokString, text: sb.String(), pos: pos}, nil
		}
		if r == '\\' && lx.off < len(lx.src) {
			esc := lx.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
}

func (lx *lexer) lexNumber(pos Position) token {
	start := lx.off
	if lx.peek(0) == '-' {
		lx.advance()
	}
	for isDigit(lx.peek(0)) {
		lx.advance()
	}
	if lx.peek(0) == '.' && isDigit(lx.peek(1)) {
		lx.advance()
		for isDigit(lx.peek(0)) {
			lx.advance()
		}
	}
	return token{kind: tokNumber, text: string(lx.src[start:lx.off]), pos: pos}
}

// lexWord reads a keyword or a dotted path. Path segments after a dot may
// start with a digit so list elements can be addressed as items.0.sku.
func (lx *lexer) lexWord(pos Position) token {
	start := lx.off
	for isIdentPart(lx.peek(0)) {
		lx.advance()
	}
	for lx.peek(0) == '.' && isIdentPart(lx.peek(1)) {
		lx.advance()
		for isIdentPart(lx.peek(0)) {
			lx.advance()
		}
	}

	word := string(lx.src[start:lx.off])
	if upper := strings.ToUpper(word); keywords[upper] {
		return token{kind: tokKeyword, text: upper, pos: pos}
	}
	return token{kind: tokIdent, text: word, pos: pos}
}

func (lx *lexer) lexOperator(pos Position) (token, error) {
	first := lx.advance()
	if lx.peek(0) == '=' {
		lx.advance()
		return token{kind: tokOperator, text: string(first) + "=", pos: pos}, nil
	}

	switch first {
	case '<', '>':
		return token{kind: tokOperator, text: string(first), pos: pos}, nil
	case '=':
		return token{kind: tokAssign, text: "=", pos: pos}, nil
	}
	return token{}, &SyntaxError{
		Token:   string(first),
		Line:    pos.Line,
		Column:  pos.Column,
		Message: "expected '!='",
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
