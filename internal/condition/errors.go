package condition

import "fmt"

// SyntaxError reports malformed rule source. Token is the offending token's
// text (empty at end of input).
type SyntaxError struct {
	Token   string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	token := e.Token
	if token == "" {
		token = "end of input"
	}
	return fmt.Sprintf("syntax error at line %d, column %d near %q: %s", e.Line, e.Column, token, e.Message)
}

func syntaxErrorAt(tok token, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{
		Token:   tok.text,
		Line:    tok.pos.Line,
		Column:  tok.pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}
