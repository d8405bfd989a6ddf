package triggers

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Condition is a single field/operator/value comparison evaluated against
// the dispatch context. A nil condition always matches.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Matches evaluates the condition against the given context. The policy is
// deliberately asymmetric: an incomplete condition (missing field or
// operator) or an unknown operator matches everything, so a typo in a rule
// cannot silently drop workflows, while structural errors (malformed
// condition, non-array operand for "in") never match.
func (c *Condition) Matches(context map[string]any) bool {
	if c == nil {
		return true
	}
	if c.Field == "" || c.Operator == "" {
		return true
	}

	val, found := lookupPath(context, c.Field)

	switch c.Operator {
	case "eq":
		return found && looseEqual(val, c.Value)
	case "ne":
		return !(found && looseEqual(val, c.Value))
	case "gt", "gte", "lt", "lte":
		a, aok := toNumber(val, found)
		b, bok := toNumber(c.Value, true)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case "gt":
			return a > b
		case "gte":
			return a >= b
		case "lt":
			return a < b
		default:
			return a <= b
		}
	case "contains":
		return strings.Contains(toString(val, found), toString(c.Value, true))
	case "startsWith":
		return strings.HasPrefix(toString(val, found), toString(c.Value, true))
	case "endsWith":
		return strings.HasSuffix(toString(val, found), toString(c.Value, true))
	case "in":
		items, ok := c.Value.([]any)
		if !ok {
			return false
		}
		if !found {
			return false
		}
		for _, item := range items {
			if looseEqual(val, item) {
				return true
			}
		}
		return false
	default:
		// Unknown operator: fail open.
		return true
	}
}

// ParseCondition decodes a stored JSON condition. An empty input yields a
// nil condition.
func ParseCondition(data string) (*Condition, error) {
	if data == "" {
		return nil, nil
	}
	var c Condition
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("parsing condition: %w", err)
	}
	return &c, nil
}

// lookupPath resolves a dot-separated path by successive key lookups.
// Resolution stops the first time a key is missing or a non-object is
// indexed; that is not an error, the value simply reads as undefined.
func lookupPath(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// looseEqual compares two values the way the condition language defines
// equality: numeric types compare numerically regardless of Go width, but
// there is no cross-type coercion ("5" is not equal to 5). Everything else
// compares by deep equality.
func looseEqual(a, b any) bool {
	if an, aok := numericValue(a); aok {
		bn, bok := numericValue(b)
		return bok && an == bn
	}
	if _, bok := numericValue(b); bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// numericValue unifies Go numeric types to float64 without coercing
// strings or booleans.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toNumber coerces a value to float64 for the ordering operators. Numeric
// strings parse, booleans map to 0/1, null reads as zero. An operand that
// cannot be coerced fails the comparison.
func toNumber(v any, found bool) (float64, bool) {
	if !found {
		return 0, false
	}
	if f, ok := numericValue(v); ok {
		return f, true
	}
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// toString coerces a value to its string form for the substring operators.
// An undefined value reads as the empty string.
func toString(v any, found bool) string {
	if !found || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
