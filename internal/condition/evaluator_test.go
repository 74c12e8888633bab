package condition

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapContext resolves dotted paths over nested maps and slices.
type mapContext map[string]interface{}

func (m mapContext) Lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(m)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func TestEvaluate_Comparisons(t *testing.T) {
	ctx := mapContext{
		"customer": map[string]interface{}{
			"tier":    "premium",
			"age":     42,
			"score":   7.5,
			"active":  true,
			"manager": nil,
			"tags":    []interface{}{"vip", "beta"},
			"name":    "Nan",
			"alias":   "Inf",
		},
	}

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{"string equality", `customer.tier == "premium"`, true},
		{"string inequality", `customer.tier != "basic"`, true},
		{"numeric greater", `customer.age > 40`, true},
		{"numeric not lexical", `customer.age > 9`, true},
		{"float less or equal", `customer.score <= 7.5`, true},
		{"bool literal", `customer.active == true`, true},
		{"null literal", `customer.manager == null`, true},
		{"lexical fallback", `customer.tier > "basic"`, true},
		{"slice element", `customer.tags.1 == "beta"`, true},
		{"missing path", `customer.email == "x"`, false},
		{"missing path negated", `NOT customer.email == "x"`, true},
		{"composite value", `customer.tags == "vip"`, false},
		{"nan spelling is text", `customer.name == 5`, false},
		{"inf spelling is text", `customer.alias > 1000`, true},
		{"nan spelling is not below numbers", `customer.name <= 5`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse("WHEN " + tt.condition + " THEN notify()")
			require.NoError(t, err)
			got, _ := Evaluate(prog.Condition, ctx)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_PremiumVersusBasic(t *testing.T) {
	prog := MustParse(`WHEN customer.tier == "premium" AND order.total >= 500 THEN notify(channel="sales")`)

	premium := mapContext{
		"customer": map[string]interface{}{"tier": "premium"},
		"order":    map[string]interface{}{"total": 650.0},
	}
	basic := mapContext{
		"customer": map[string]interface{}{"tier": "basic"},
		"order":    map[string]interface{}{"total": 650.0},
	}

	matched, traces := Evaluate(prog.Condition, premium)
	assert.True(t, matched)
	require.Len(t, traces, 2)
	assert.True(t, traces[0].Result)
	assert.True(t, traces[1].Result)

	matched, traces = Evaluate(prog.Condition, basic)
	assert.False(t, matched)
	require.Len(t, traces, 1, "AND must short-circuit after a false left side")
	assert.Equal(t, "customer.tier", traces[0].Path)
	assert.Equal(t, "basic", traces[0].Actual)
}

func TestEvaluate_OrShortCircuits(t *testing.T) {
	prog := MustParse(`WHEN a == 1 OR b == 2 THEN notify()`)
	matched, traces := Evaluate(prog.Condition, mapContext{"a": 1})
	assert.True(t, matched)
	require.Len(t, traces, 1)
}

func TestEvaluate_TraceForUnresolvedPath(t *testing.T) {
	prog := MustParse(`WHEN order.total > 10 THEN notify()`)
	matched, traces := Evaluate(prog.Condition, mapContext{})
	assert.False(t, matched)
	require.Len(t, traces, 1)
	assert.Equal(t, LeafTrace{
		Path:     "order.total",
		Operator: OpGt,
		Expected: "10",
		Error:    "path not resolved",
		Line:     1,
		Column:   6,
	}, traces[0])
}

func TestEvaluate_Deterministic(t *testing.T) {
	prog := MustParse(`WHEN x.n > 3 AND NOT x.s == "no" OR x.b == false THEN notify()`)
	ctx := mapContext{"x": map[string]interface{}{"n": 4, "s": "yes", "b": true}}

	first, firstTrace := Evaluate(prog.Condition, ctx)
	for i := 0; i < 10; i++ {
		got, trace := Evaluate(prog.Condition, ctx)
		assert.Equal(t, first, got)
		assert.Equal(t, firstTrace, trace)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		actual, expected string
		op               Operator
		want             bool
	}{
		{"10", "9", OpGt, true},
		{"10", "10.0", OpEq, true},
		{"abc", "abd", OpLt, true},
		{"abc", "abc", OpGte, true},
		{"-1", "0", OpLte, true},
		{"x", "y", OpNe, true},
		{"1e3", "1000", OpEq, true},
		{" 42 ", "42", OpEq, true},
		{"Nan", "5", OpEq, false},
		{"NaN", "5", OpNe, true},
		{"Inf", "1000", OpGt, true},
		{"Inf", "1000", OpEq, false},
		{"-Infinity", "0", OpLt, true},
		{"0x10", "16", OpEq, false},
	}
	for _, tt := range tests {
		got, err := compare(tt.actual, tt.expected, tt.op)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s %s", tt.actual, tt.op, tt.expected)
	}

	_, err := compare("1", "1", Operator("=~"))
	assert.Error(t, err)
}
