package table

import "strconv"

// Condition is the single-predicate comparator used by table-store
// mutation paths: {column, operator, value}. It cannot express AND/OR;
// composite WHERE clauses are the executor's job to evaluate against
// scanned rows, while UPDATE/DELETE flatten to (at most) one predicate.
type Condition struct {
	Column   string
	Operator string // "=", "!=", "<", "<=", ">", ">="
	Value    any    // int32 or string
}

// Match evaluates c against a row's values. Strings and integers coerce
// to one another by attempting a digit parse in both directions; on
// failure to coerce, the predicate is false (never an error).
func (c Condition) Match(values map[string]any) bool {
	if c.Column == "" {
		return true
	}
	left, ok := values[c.Column]
	if !ok {
		return false
	}
	return compare(left, c.Operator, c.Value)
}

func compare(left any, op string, right any) bool {
	li, lIsInt := asInt(left)
	ri, rIsInt := asInt(right)
	if lIsInt && rIsInt {
		return compareInt(li, op, ri)
	}
	ls, lIsStr := asString(left)
	rs, rIsStr := asString(right)
	if lIsStr && rIsStr {
		return compareString(ls, op, rs)
	}
	return false
}

// asInt coerces v to int32: directly if it is one, else by parsing a
// string of digits (optionally signed).
func asInt(v any) (int32, bool) {
	switch t := v.(type) {
	case int32:
		return t, true
	case string:
		n, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, false
		}
		return int32(n), true
	default:
		return 0, false
	}
}

// asString coerces v to a string: directly if it is one, else by
// formatting an int32.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	default:
		return "", false
	}
}

func compareInt(l int32, op string, r int32) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	default:
		return false
	}
}

func compareString(l string, op string, r string) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	default:
		return false
	}
}
