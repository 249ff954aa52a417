// internal/engine/pipeline.go
package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/types"
)

/*
 * Pipeline compilation and execution.
 *
 * A pipeline spec like "distinct|where(>1)|count" is parsed once at
 * configuration load into ordered (name, argument) steps; execution
 * resolves the field path and threads the value through each step.
 *
 * Operator names are checked against the registry at execution time, not
 * load time: an unknown operator is a hard failure for the one metric
 * using it, which the metric engine converts to a sentinel. Loading still
 * succeeds so the rest of the configuration keeps evaluating.
 */

// opCall is one parsed operator invocation.
type opCall struct {
	Name string
	Arg  string // verbatim parenthesized text, "" when absent
}

// Pipeline is a compiled operator chain rooted at a field path.
type Pipeline struct {
	Field string
	Steps []opCall
}

// compilePipeline parses a |-delimited operator chain specification.
// Unrecognized where-conditions are warned about here, once, rather than
// silently per record.
func compilePipeline(field, spec string, logger *zap.Logger) Pipeline {
	p := Pipeline{Field: field}
	for _, segment := range strings.Split(spec, "|") {
		call := parseOpCall(strings.TrimSpace(segment))
		if call.Name == "where" && !whereConditionRecognized(call.Arg) {
			logger.Warn("unrecognized where condition, filter will match nothing",
				zap.String("field", field),
				zap.String("condition", call.Arg))
		}
		p.Steps = append(p.Steps, call)
	}
	return p
}

// parseOpCall splits "name(argument)" into its parts. The argument is the
// parenthesized content verbatim; each operator parses its own grammar.
func parseOpCall(segment string) opCall {
	open := strings.IndexByte(segment, '(')
	if open > 0 && strings.HasSuffix(segment, ")") {
		return opCall{
			Name: segment[:open],
			Arg:  segment[open+1 : len(segment)-1],
		}
	}
	return opCall{Name: segment}
}

// whereConditionRecognized reports whether where() will interpret the
// condition as something other than the match-nothing fallback.
func whereConditionRecognized(arg string) bool {
	condition := strings.TrimSpace(arg)
	if condition == "is_not_empty" {
		return true
	}
	if _, ok := parseContains(condition); ok {
		return true
	}
	if _, _, ok := parseComparison(condition); ok {
		return true
	}
	return false
}

// Execute resolves the pipeline's field path against record and applies
// each operator in order. Returns ErrUnknownOperator (wrapped with the
// offending name) if a step is not in the operator registry.
func (p Pipeline) Execute(record types.Record) (any, error) {
	current := Resolve(p.Field, record)
	for _, step := range p.Steps {
		fn, ok := operatorMap[step.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownOperator, step.Name)
		}
		current = fn(current, step.Arg)
	}
	return current, nil
}
