// Package dispatch turns a rule's resolved actions into delivered side
// effects: it expands {path} placeholders against the trigger context and
// invokes the matching delivery capability, recording one ActionResult per
// action whatever happens.
package dispatch

import (
	"regexp"

	"ruleflow/internal/rulecontext"
)

// placeholder matches {root.key.0.key}; braces around anything else, such
// as JSON objects, are left alone.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\}`)

// Interpolate replaces each placeholder in s with the string form of the
// context value at its path, left to right in a single pass. Undefined
// paths become the empty string; substituted text is never re-expanded.
func Interpolate(s string, rc *rulecontext.Context) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		return rulecontext.Stringify(rc.Resolve(m[1 : len(m)-1]))
	})
}

// Expander binds Interpolate to rc for ActionConfig.Interpolate.
func Expander(rc *rulecontext.Context) func(string) string {
	return func(s string) string {
		return Interpolate(s, rc)
	}
}
