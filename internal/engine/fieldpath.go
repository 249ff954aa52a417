// internal/engine/fieldpath.go
package engine

import "strings"

/*
 * Field path resolution for final-state records.
 *
 * Resolves dot-separated paths through nested objects with list broadcast:
 * when traversal hits a sequence, the remaining path is resolved against
 * each mapping element of that sequence and the results are collected into
 * a new sequence. Non-mapping elements contribute nothing. The broadcast
 * happens exactly once, at the first sequence encountered; it does not
 * recurse through nested sequences.
 *
 * Key functions:
 *   - Resolve: Traverses a record following dot-path segments
 *   - resolveSegments: Internal segment-by-segment traversal
 *
 * Absence is never an error: a missing key, a null mid-path, or a scalar
 * where the path continues all resolve to nil. The empty path denotes the
 * whole record.
 */

// Resolve traverses record following the dot-separated field path.
// Returns nil for missing or shape-mismatched paths, never an error.
func Resolve(path string, record any) any {
	if path == "" {
		return record
	}
	return resolveSegments(strings.Split(path, "."), record)
}

// resolveSegments walks the remaining path segments against current.
// Total over the JSON value kinds: nil, map, slice, scalar.
func resolveSegments(segments []string, current any) any {
	for i, seg := range segments {
		switch v := current.(type) {
		case nil:
			return nil
		case map[string]any:
			// Missing key yields nil on the next iteration's nil case
			current = v[seg]
		case []any:
			// Broadcast: resolve the current and remaining segments against
			// each mapping element. Non-mapping elements and elements where
			// the path is absent contribute nothing; in broadcast context
			// absence is an empty sequence, not a null placeholder.
			out := make([]any, 0, len(v))
			for _, elem := range v {
				m, ok := elem.(map[string]any)
				if !ok {
					continue
				}
				if resolved := resolveSegments(segments[i:], m); resolved != nil {
					out = append(out, resolved)
				}
			}
			return out
		default:
			// Scalar mid-path: path invalid for this shape
			return nil
		}
	}
	return current
}

// Truthy reports whether a resolved value counts as present and non-empty.
// Mirrors the loose truthiness the definitions are written against:
// nil, false, 0, "", empty sequence, and empty mapping are all falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
