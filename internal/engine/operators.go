// internal/engine/operators.go
package engine

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

/*
 * Operator library: the toolbox pipelines are built from.
 *
 * Each operator is a pure function op(value, arg) -> value. Operators
 * degrade gracefully on shape mismatch: a non-list input to a list
 * operator yields an empty list or a zero, never an error. Malformed data
 * produces a neutral metric value rather than aborting the batch.
 *
 * Operators:
 *   - count/sum/average/max/min: list aggregators (non-numeric elements ignored)
 *   - distinct/flatten/sort/reverse: list transforms
 *   - where: filter by a small condition mini-language
 *
 * Arguments arrive as the verbatim parenthesized text from the pipeline
 * spec; each operator parses its own argument grammar. where() owns the
 * comparison/contains mini-language so no shared grammar couples the
 * catalog together.
 *
 * Why function-based: a map of name -> func mirrors how the catalog is
 * declared in configuration; ten interface implementations with minimal
 * behavior variation would add nothing.
 */

// OpFunc is a single pipeline operator. arg is the raw argument text,
// empty when the invocation carried no argument.
type OpFunc func(value any, arg string) any

// operatorMap is the static registry the pipeline executor dispatches
// through. Aliases map to the same function.
var operatorMap = map[string]OpFunc{
	// Aggregators
	"count":    opCount,
	"sum":      opSum,
	"total":    opSum,
	"average":  opAverage,
	"avg":      opAverage,
	"max":      opMax,
	"highest":  opMax,
	"min":      opMin,
	"smallest": opMin,

	// Transformers
	"distinct": opDistinct,
	"unique":   opDistinct,
	"flatten":  opFlatten,
	"sort":     opSort,
	"reverse":  opReverse,
	"where":    opWhere,
}

// opCount returns the length of a list, 0 for anything else.
func opCount(value any, _ string) any {
	if list, ok := value.([]any); ok {
		return len(list)
	}
	return 0
}

// opSum sums the numeric elements of a list. Non-numeric elements are
// ignored; non-list input yields 0.0.
func opSum(value any, _ string) any {
	total := 0.0
	for _, n := range numericElements(value) {
		total += n
	}
	return total
}

// opAverage returns the mean of the numeric elements, 0.0 if there are none.
func opAverage(value any, _ string) any {
	nums := numericElements(value)
	if len(nums) == 0 {
		return 0.0
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums))
}

// opMax returns the largest numeric element, nil if there are none.
func opMax(value any, _ string) any {
	nums := numericElements(value)
	if len(nums) == 0 {
		return nil
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n > best {
			best = n
		}
	}
	return best
}

// opMin returns the smallest numeric element, nil if there are none.
func opMin(value any, _ string) any {
	nums := numericElements(value)
	if len(nums) == 0 {
		return nil
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n < best {
			best = n
		}
	}
	return best
}

// opDistinct returns unique elements preserving first-occurrence order.
// Composite elements (maps, slices) are keyed by their JSON encoding so
// structurally equal composites deduplicate.
func opDistinct(value any, _ string) any {
	list, ok := value.([]any)
	if !ok {
		return []any{}
	}
	seen := make(map[string]struct{}, len(list))
	out := make([]any, 0, len(list))
	for _, elem := range list {
		key := distinctKey(elem)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, elem)
	}
	return out
}

// distinctKey builds a dedup key for an element. Scalars key on kind+text
// so 1 and "1" stay distinct; composites fall back to JSON encoding.
func distinctKey(elem any) string {
	switch v := elem.(type) {
	case nil:
		return "z"
	case bool:
		return "b" + strconv.FormatBool(v)
	case float64:
		return "n" + strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return "s" + v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "?"
		}
		return "j" + string(encoded)
	}
}

// opFlatten flattens one level of a list of lists. Non-list sub-elements
// are dropped.
func opFlatten(value any, _ string) any {
	list, ok := value.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, 0, len(list))
	for _, elem := range list {
		sub, ok := elem.([]any)
		if !ok {
			continue
		}
		out = append(out, sub...)
	}
	return out
}

// opSort sorts a copy of the list. Numeric elements order numerically
// among themselves; mixed or non-comparable elements fall back to a
// string-keyed ordering. arg "reverse" descends.
func opSort(value any, arg string) any {
	list, ok := value.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, len(list))
	copy(out, list)

	allNumeric := len(out) > 0
	for _, elem := range out {
		if _, ok := toFloat64(elem); !ok {
			allNumeric = false
			break
		}
	}

	less := func(a, b any) bool {
		if allNumeric {
			na, _ := toFloat64(a)
			nb, _ := toFloat64(b)
			return na < nb
		}
		return sortKey(a) < sortKey(b)
	}

	reverse := strings.TrimSpace(arg) == "reverse"
	sort.SliceStable(out, func(i, j int) bool {
		if reverse {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// sortKey renders any element as a string for the mixed-type fallback sort.
func sortKey(elem any) string {
	switch v := elem.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// opReverse reverses the order of a list.
func opReverse(value any, _ string) any {
	list, ok := value.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, len(list))
	for i, elem := range list {
		out[len(list)-1-i] = elem
	}
	return out
}

// opWhere filters a list by a condition string:
//
//	is_not_empty        drop nil and empty-string elements
//	contains "substr"   keep string elements containing substr
//	> >= < <= == != N   keep numeric elements satisfying the comparison
//
// An unrecognized condition yields an empty list. That permissiveness is
// long-standing configuration behavior; the pipeline compiler warns about
// it at load time so typos are still visible.
func opWhere(value any, arg string) any {
	list, ok := value.([]any)
	if !ok {
		return []any{}
	}
	condition := strings.TrimSpace(arg)
	if condition == "" {
		return []any{}
	}

	if condition == "is_not_empty" {
		out := make([]any, 0, len(list))
		for _, elem := range list {
			if elem == nil || elem == "" {
				continue
			}
			out = append(out, elem)
		}
		return out
	}

	if substr, ok := parseContains(condition); ok {
		out := make([]any, 0, len(list))
		for _, elem := range list {
			s, isStr := elem.(string)
			if isStr && strings.Contains(s, substr) {
				out = append(out, elem)
			}
		}
		return out
	}

	if cmp, threshold, ok := parseComparison(condition); ok {
		out := make([]any, 0, len(list))
		for _, elem := range list {
			n, isNum := toFloat64(elem)
			if isNum && cmp(n, threshold) {
				out = append(out, elem)
			}
		}
		return out
	}

	return []any{}
}

// parseContains recognizes `contains "substr"` / `contains 'substr'`.
// The keyword is case-insensitive; the substring match is exact.
func parseContains(condition string) (string, bool) {
	rest, ok := cutKeyword(condition, "contains")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 {
		return "", false
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return "", false
	}
	if rest[len(rest)-1] != quote {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}

// cutKeyword strips a leading case-insensitive keyword followed by at
// least one space.
func cutKeyword(s, keyword string) (string, bool) {
	if len(s) <= len(keyword) {
		return "", false
	}
	if !strings.EqualFold(s[:len(keyword)], keyword) {
		return "", false
	}
	rest := s[len(keyword):]
	if !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", false
	}
	return rest, true
}

// parseComparison recognizes `<op> <number>` with op in > >= < <= == !=.
func parseComparison(condition string) (func(a, b float64) bool, float64, bool) {
	var cmp func(a, b float64) bool
	var rest string

	switch {
	case strings.HasPrefix(condition, ">="):
		cmp, rest = func(a, b float64) bool { return a >= b }, condition[2:]
	case strings.HasPrefix(condition, "<="):
		cmp, rest = func(a, b float64) bool { return a <= b }, condition[2:]
	case strings.HasPrefix(condition, "=="):
		cmp, rest = func(a, b float64) bool { return a == b }, condition[2:]
	case strings.HasPrefix(condition, "!="):
		cmp, rest = func(a, b float64) bool { return a != b }, condition[2:]
	case strings.HasPrefix(condition, ">"):
		cmp, rest = func(a, b float64) bool { return a > b }, condition[1:]
	case strings.HasPrefix(condition, "<"):
		cmp, rest = func(a, b float64) bool { return a < b }, condition[1:]
	default:
		return nil, 0, false
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return nil, 0, false
	}
	return cmp, threshold, true
}

// numericElements extracts the float64-convertible elements of a list.
// Returns nil for non-list input.
func numericElements(value any) []float64 {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	nums := make([]float64, 0, len(list))
	for _, elem := range list {
		if n, ok := toFloat64(elem); ok {
			nums = append(nums, n)
		}
	}
	return nums
}

// toFloat64 converts value to float64 if it's a numeric type.
// Handles float64, int, int64 from JSON unmarshaling and YAML literals.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
