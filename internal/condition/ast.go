// Package condition implements the rule condition language: a small
// WHEN/THEN/ELSE grammar compiled into a boolean tree of comparisons, and a
// pure evaluator that walks that tree against a read-only context.
package condition

import (
	"fmt"
	"strconv"
	"strings"
)

type Operator string

const (
	OpEq  Operator = "=="
	OpNe  Operator = "!="
	OpGt  Operator = ">"
	OpLt  Operator = "<"
	OpGte Operator = ">="
	OpLte Operator = "<="
)

// Position is a 1-based location in the rule source.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
	LiteralNull
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralNumber:
		return "number"
	case LiteralBool:
		return "bool"
	case LiteralNull:
		return "null"
	default:
		return "string"
	}
}

// Literal keeps the literal's canonical text; comparison semantics are
// decided at evaluation time from the text of both operands.
type Literal struct {
	Kind LiteralKind
	Text string
}

// Value converts the literal to a plain Go value.
func (l Literal) Value() interface{} {
	switch l.Kind {
	case LiteralNumber:
		f, _ := strconv.ParseFloat(l.Text, 64)
		return f
	case LiteralBool:
		return l.Text == "true"
	case LiteralNull:
		return nil
	default:
		return l.Text
	}
}

func (l Literal) String() string {
	if l.Kind == LiteralString {
		return fmt.Sprintf("%q", l.Text)
	}
	return l.Text
}

// Node is one of Comparison, And, Or or Not.
type Node interface {
	fmt.Stringer
	node()
}

type Comparison struct {
	Path     string
	Operator Operator
	Literal  Literal
	Pos      Position
}

type And struct {
	Left  Node
	Right Node
}

type Or struct {
	Left  Node
	Right Node
}

type Not struct {
	Child Node
}

func (*Comparison) node() {}
func (*And) node()        {}
func (*Or) node()         {}
func (*Not) node()        {}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Path, c.Operator, c.Literal)
}

func (a *And) String() string { return fmt.Sprintf("(%s AND %s)", a.Left, a.Right) }
func (o *Or) String() string  { return fmt.Sprintf("(%s OR %s)", o.Left, o.Right) }
func (n *Not) String() string { return fmt.Sprintf("NOT %s", n.Child) }

// Arg is one argument of an inline action call. Key is empty for positional
// arguments.
type Arg struct {
	Key   string
	Value Literal
}

// ActionCall is an inline action written in a THEN or ELSE block.
type ActionCall struct {
	Name string
	Args []Arg
	Pos  Position
}

func (c ActionCall) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		if a.Key != "" {
			parts[i] = a.Key + "=" + a.Value.String()
		} else {
			parts[i] = a.Value.String()
		}
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// Positional returns the positional arguments in source order.
func (c ActionCall) Positional() []Literal {
	var out []Literal
	for _, a := range c.Args {
		if a.Key == "" {
			out = append(out, a.Value)
		}
	}
	return out
}

// Named returns the keyword arguments; a repeated key keeps its last value.
func (c ActionCall) Named() map[string]Literal {
	out := make(map[string]Literal)
	for _, a := range c.Args {
		if a.Key != "" {
			out[a.Key] = a.Value
		}
	}
	return out
}

// Program is a parsed rule.
type Program struct {
	Condition Node
	Then      []ActionCall
	Else      []ActionCall
}

// Paths lists every context path the condition reads, in source order.
func (p *Program) Paths() []string {
	var paths []string
	var walk func(n Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Comparison:
			paths = append(paths, v.Path)
		case *And:
			walk(v.Left)
			walk(v.Right)
		case *Or:
			walk(v.Left)
			walk(v.Right)
		case *Not:
			walk(v.Child)
		}
	}
	walk(p.Condition)
	return paths
}
