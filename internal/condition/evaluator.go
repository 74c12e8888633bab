package condition

// Resolver looks up dotted paths in an evaluation context. ok is false when
// the path does not resolve.
type Resolver interface {
	Lookup(path string) (value interface{}, ok bool)
}

// LeafTrace records how one comparison was evaluated.
type LeafTrace struct {
	Path     string      `json:"path"`
	Operator Operator    `json:"operator"`
	Expected string      `json:"expected"`
	Actual   interface{} `json:"actual,omitempty"`
	Resolved bool        `json:"resolved"`
	Result   bool        `json:"result"`
	Error    string      `json:"error,omitempty"`
	Line     int         `json:"line"`
	Column   int         `json:"column"`
}

// Evaluate walks node against ctx. AND and OR short-circuit; the trace lists
// only the comparisons that were actually evaluated, in evaluation order.
// Unresolvable paths and incomparable values make the comparison false and
// are reported in the trace, never as an error.
func Evaluate(node Node, ctx Resolver) (bool, []LeafTrace) {
	var traces []LeafTrace
	result := eval(node, ctx, &traces)
	return result, traces
}

func eval(node Node, ctx Resolver, traces *[]LeafTrace) bool {
	switch n := node.(type) {
	case *Comparison:
		trace := evalComparison(n, ctx)
		*traces = append(*traces, trace)
		return trace.Result
	case *And:
		if !eval(n.Left, ctx, traces) {
			return false
		}
		return eval(n.Right, ctx, traces)
	case *Or:
		if eval(n.Left, ctx, traces) {
			return true
		}
		return eval(n.Right, ctx, traces)
	case *Not:
		return !eval(n.Child, ctx, traces)
	}
	return false
}

func evalComparison(c *Comparison, ctx Resolver) LeafTrace {
	trace := LeafTrace{
		Path:     c.Path,
		Operator: c.Operator,
		Expected: c.Literal.Text,
		Line:     c.Pos.Line,
		Column:   c.Pos.Column,
	}

	actual, ok := ctx.Lookup(c.Path)
	if !ok {
		trace.Error = "path not resolved"
		return trace
	}
	trace.Resolved = true
	trace.Actual = actual

	text, ok := scalarText(actual)
	if !ok {
		trace.Error = "value is not a scalar"
		return trace
	}

	result, err := compare(text, c.Literal.Text, c.Operator)
	if err != nil {
		trace.Error = err.Error()
		return trace
	}
	trace.Result = result
	return trace
}
