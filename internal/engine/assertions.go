// internal/engine/assertions.go
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/types"
)

/*
 * Assertion engine: declarative pass/fail checks over one record.
 *
 * Assertions are grouped by stage at load time; running a stage evaluates
 * only that stage's assertions, in configuration order, independently of
 * every other stage. Each run is stateless.
 *
 * Rule operators:
 *   - must_exist_one_of: at least one listed field resolves truthy
 *   - fields_must_be_consistent: ordered if/then condition rules; every
 *     rule is checked and every failure is reported, so one assertion can
 *     surface messages from multiple unrelated conditions
 *
 * An assertion whose type is not recognized is skipped, not failed:
 * configurations written for a newer rule catalog must stay loadable.
 */

// Assertion rule operator names.
const (
	assertMustExistOneOf         = "must_exist_one_of"
	assertFieldsMustBeConsistent = "fields_must_be_consistent"
)

// compiledAssertion is one validated assertion bound to its stage.
type compiledAssertion struct {
	Name       string
	Type       string
	Stage      string
	Fields     []string
	Conditions []ConsistencyRule
}

// AssertionEngine runs a fixed suite of pass/fail checks against records,
// organized by stage. Read-only after construction.
type AssertionEngine struct {
	ordered []compiledAssertion
	stages  []string // first-appearance order
	logger  *zap.Logger
}

// NewAssertionEngine validates assertion definitions and groups them by
// stage. Definitions without a stage land in the default stage.
func NewAssertionEngine(defs []AssertionDef, logger *zap.Logger) (*AssertionEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]struct{})
	var stages []string
	ordered := make([]compiledAssertion, 0, len(defs))

	for _, def := range defs {
		if def.Type == "" {
			return nil, types.ErrMissingAssertionType
		}
		name := def.Name
		if name == "" {
			name = "Unnamed Assertion"
		}
		stage := def.Stage
		if stage == "" {
			stage = types.DefaultStage
		}
		if _, ok := seen[stage]; !ok {
			seen[stage] = struct{}{}
			stages = append(stages, stage)
		}
		ordered = append(ordered, compiledAssertion{
			Name:       name,
			Type:       def.Type,
			Stage:      stage,
			Fields:     def.Fields,
			Conditions: def.Conditions,
		})
	}

	logger.Info("assertion engine initialized",
		zap.Int("assertions", len(ordered)),
		zap.Int("stages", len(stages)))
	return &AssertionEngine{ordered: ordered, stages: stages, logger: logger}, nil
}

// NewAssertionEngineFromFile loads a YAML assertion configuration.
func NewAssertionEngineFromFile(path string, logger *zap.Logger) (*AssertionEngine, error) {
	defs, err := LoadAssertionDefs(path)
	if err != nil {
		return nil, err
	}
	return NewAssertionEngine(defs, logger)
}

// Stages returns the configured stage names in first-appearance order.
func (e *AssertionEngine) Stages() []string {
	out := make([]string, len(e.stages))
	copy(out, e.stages)
	return out
}

// RunStage evaluates the assertions belonging to one stage and returns
// the accumulated failure messages. Empty result means the stage passed.
func (e *AssertionEngine) RunStage(stage string, record types.Record) []string {
	var failures []string
	for _, a := range e.ordered {
		if a.Stage != stage {
			continue
		}
		failures = append(failures, e.check(a, record)...)
	}
	return failures
}

// RunAll evaluates every assertion regardless of stage, in configuration
// order.
func (e *AssertionEngine) RunAll(record types.Record) []string {
	var failures []string
	for _, a := range e.ordered {
		failures = append(failures, e.check(a, record)...)
	}
	return failures
}

// check dispatches one assertion by type. Unrecognized types are skipped.
func (e *AssertionEngine) check(a compiledAssertion, record types.Record) []string {
	var reasons []string
	switch a.Type {
	case assertMustExistOneOf:
		reasons = checkMustExistOneOf(a.Fields, record)
	case assertFieldsMustBeConsistent:
		reasons = checkFieldsConsistent(a.Conditions, record)
	default:
		return nil
	}

	failures := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		failures = append(failures, fmt.Sprintf("'%s': %s", a.Name, reason))
	}
	return failures
}

// checkMustExistOneOf passes when at least one listed field resolves to a
// truthy value; the failure message names every checked field.
func checkMustExistOneOf(fields []string, record types.Record) []string {
	for _, field := range fields {
		if Truthy(Resolve(field, record)) {
			return nil
		}
	}
	return []string{fmt.Sprintf("None of the required fields %v were present.", fields)}
}

// checkFieldsConsistent evaluates every condition rule in order and
// accumulates all failures rather than stopping at the first.
func checkFieldsConsistent(conditions []ConsistencyRule, record types.Record) []string {
	var reasons []string
	for _, rule := range conditions {
		ifValue := Resolve(rule.If.Field, record)

		met := false
		switch {
		case rule.If.Equals != nil:
			met = looseEqual(ifValue, *rule.If.Equals)
		case rule.If.Exists != nil:
			// Present means non-null and non-empty-string; a zero or false
			// value still counts as present here
			present := ifValue != nil && ifValue != ""
			met = present == *rule.If.Exists
		}
		if !met {
			continue
		}

		thenValue := Resolve(rule.Then.Field, record)

		if rule.Then.MustExist && !Truthy(thenValue) {
			reasons = append(reasons, fmt.Sprintf(
				"Consistency failed: '%s' was '%v', but required field '%s' was missing.",
				rule.If.Field, ifValue, rule.Then.Field))
		}
		if rule.Then.MustNotExist && Truthy(thenValue) {
			reasons = append(reasons, fmt.Sprintf(
				"Consistency failed: '%s' was '%v', but field '%s' should NOT exist.",
				rule.If.Field, ifValue, rule.Then.Field))
		}
		if len(rule.Then.IsIn) > 0 && !memberOf(thenValue, rule.Then.IsIn) {
			reasons = append(reasons, fmt.Sprintf(
				"Consistency failed: Field '%s' had value '%v', which is not in the allowed list %v.",
				rule.Then.Field, thenValue, rule.Then.IsIn))
		}
	}
	return reasons
}

// looseEqual compares a record value with a configuration literal.
// Numeric types mix (YAML ints vs JSON float64s); everything else
// compares by interface equality.
func looseEqual(a, b any) bool {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	if oka && okb {
		return na == nb
	}
	return a == b
}

// memberOf tests membership with looseEqual semantics.
func memberOf(value any, allowed []any) bool {
	for _, candidate := range allowed {
		if looseEqual(value, candidate) {
			return true
		}
	}
	return false
}
