// Package types provides domain models shared across scorekeeper components.
//
// Zero-dependency design: types.go and errors.go use only encoding/json so
// the engine packages carry no transitive baggage. ID utilities in ids.go
// import uuid but are isolated for selective inclusion.
package types

import "encoding/json"

// RunID represents a UUIDv7 evaluation-run identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering ensures sequential IDs cluster in B-tree indexes.
type RunID string

// Record is one recorded agent interaction: the final state of a single run
// as an arbitrary JSON-shaped object. Records are produced externally and
// treated as read-only input; the engines never mutate them.
//
// After unmarshaling via encoding/json a Record holds only the JSON value
// kinds: nil, bool, float64, string, []any, map[string]any. Engine code
// switches exhaustively over that closed set.
type Record = map[string]any

// ParseRecord decodes one raw JSON document into a Record.
// Non-object documents are rejected; field paths are rooted at an object.
func ParseRecord(data json.RawMessage) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Sentinel result strings reported in place of values that could not be
// computed. Downstream reports show these inline among valid results so
// partial failure stays visible without aborting the batch.
const (
	// CalculationError replaces the value of a metric whose evaluation failed.
	CalculationError = "CALCULATION_ERROR"

	// NoPathMatched is returned by a derive_path metric when no rule matched.
	NoPathMatched = "no_path_matched"

	// UnsupportedMetricType is returned for a metric whose compiled kind is
	// not recognized at evaluation time.
	UnsupportedMetricType = "Unsupported metric type"
)

// DefaultStage groups assertions that declare no stage of their own.
const DefaultStage = "default_stage"
