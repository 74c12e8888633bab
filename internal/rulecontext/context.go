// Package rulecontext assembles the read-only snapshot of domain entities and
// event data that one trigger's rules are evaluated and interpolated against.
package rulecontext

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Root keys of a Context.
const (
	RootCustomer = "customer"
	RootOrder    = "order"
	RootProduct  = "product"
	RootEvent    = "event"
	RootTrigger  = "trigger"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is returned by Resolve for paths that do not exist.
var Undefined interface{} = undefined{}

// Context is immutable after construction. Values handed in are deep-copied
// and normalized to map[string]interface{} / []interface{} trees, so callers
// may keep mutating their own copies.
type Context struct {
	roots map[string]interface{}
}

func New(roots map[string]interface{}) *Context {
	c := &Context{roots: make(map[string]interface{}, len(roots))}
	for k, v := range roots {
		if v == nil {
			continue
		}
		c.roots[k] = normalize(reflect.ValueOf(v))
	}
	return c
}

// Has reports whether a root key is present.
func (c *Context) Has(root string) bool {
	_, ok := c.roots[root]
	return ok
}

// Roots lists the present root keys.
func (c *Context) Roots() []string {
	out := make([]string, 0, len(c.roots))
	for _, k := range []string{RootCustomer, RootOrder, RootProduct, RootEvent, RootTrigger} {
		if _, ok := c.roots[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Lookup walks a dotted path. Map keys are matched exactly; a numeric segment
// indexes into a list.
func (c *Context) Lookup(path string) (interface{}, bool) {
	if c == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	cur, ok := c.roots[segments[0]]
	if !ok {
		return nil, false
	}

	for _, seg := range segments[1:] {
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

// Resolve is Lookup returning Undefined for missing paths.
func (c *Context) Resolve(path string) interface{} {
	v, ok := c.Lookup(path)
	if !ok {
		return Undefined
	}
	return v
}

// Snapshot returns a deep copy of the context roots, for audit and debugging.
func (c *Context) Snapshot() map[string]interface{} {
	out, _ := normalize(reflect.ValueOf(c.roots)).(map[string]interface{})
	return out
}

// Stringify renders a resolved value for interpolation. Undefined and nil
// become the empty string; maps and lists are rendered as JSON.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil, undefined:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// normalize deep-copies v. Maps with string keys and structs become
// map[string]interface{}, slices and arrays (other than byte slices) become
// []interface{}; everything else is kept as a scalar.
func normalize(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem())
	case reflect.Struct:
		if _, ok := v.Interface().(time.Time); ok {
			return v.Interface()
		}
		return structToMap(v)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value())
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		fallthrough
	case reflect.Array:
		out := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = normalize(v.Index(i))
		}
		return out
	}
	return v.Interface()
}

// structToMap copies a struct through its JSON form, so json tags name the
// path segments. A struct that cannot be encoded is dropped.
func structToMap(v reflect.Value) interface{} {
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
