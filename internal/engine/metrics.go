// internal/engine/metrics.go
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/types"
)

/*
 * Metric engine: compile-once, evaluate-many.
 *
 * Definitions are validated and compiled at construction time; evaluation
 * dispatches each compiled metric by kind. Per-metric failures are
 * isolated: an evaluation error is logged and recorded as the
 * CALCULATION_ERROR sentinel for that metric only, and every other metric
 * in the same call still computes.
 *
 * Compile-time checks (missing name/type, duplicate names, incomplete
 * ratios) fail construction outright. Unknown operator names inside a
 * pipeline are deliberately NOT a compile error: they surface per metric
 * at evaluation time so one typo cannot take the whole configuration down.
 */

// metricKind is the compiled discriminator for metric dispatch.
type metricKind int

const (
	metricPipeline metricKind = iota
	metricRatio
	metricDerivePath
)

// compiledMetric is a fully pre-processed metric ready for evaluation.
type compiledMetric struct {
	Name        string
	Kind        metricKind
	Pipeline    Pipeline // metricPipeline
	Numerator   Pipeline // metricRatio
	Denominator Pipeline
	Options     RatioOptions
	Paths       []DerivePathRule // metricDerivePath
}

// MetricEngine evaluates a fixed, ordered set of compiled metric
// definitions against one record at a time. Construction loads the
// configuration once; after that the engine is read-only and safe to
// share across goroutines.
type MetricEngine struct {
	metrics []compiledMetric
	logger  *zap.Logger
}

// NewMetricEngine validates and compiles metric definitions.
// Definition order is preserved; it governs evaluation (and log) order
// but not values.
func NewMetricEngine(defs []MetricDef, logger *zap.Logger) (*MetricEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]struct{}, len(defs))
	compiled := make([]compiledMetric, 0, len(defs))

	for _, def := range defs {
		if def.Name == "" {
			return nil, types.ErrMissingMetricName
		}
		if _, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateMetricName, def.Name)
		}
		seen[def.Name] = struct{}{}

		cm, err := compileMetric(def, logger)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", def.Name, err)
		}
		compiled = append(compiled, cm)
	}

	logger.Info("metric engine initialized", zap.Int("metrics", len(compiled)))
	return &MetricEngine{metrics: compiled, logger: logger}, nil
}

// NewMetricEngineFromFile loads a YAML metric configuration and compiles it.
func NewMetricEngineFromFile(path string, logger *zap.Logger) (*MetricEngine, error) {
	defs, err := LoadMetricDefs(path)
	if err != nil {
		return nil, err
	}
	return NewMetricEngine(defs, logger)
}

// compileMetric validates one definition and pre-parses its pipelines.
func compileMetric(def MetricDef, logger *zap.Logger) (compiledMetric, error) {
	switch def.Type {
	case "":
		return compiledMetric{}, types.ErrMissingMetricType

	case "ratio":
		if def.Numerator == nil || def.Denominator == nil {
			return compiledMetric{}, types.ErrMissingPipeline
		}
		if def.Numerator.Type == "" || def.Denominator.Type == "" {
			return compiledMetric{}, types.ErrMissingMetricType
		}
		return compiledMetric{
			Name:        def.Name,
			Kind:        metricRatio,
			Numerator:   compilePipeline(def.Numerator.Field, def.Numerator.Type, logger),
			Denominator: compilePipeline(def.Denominator.Field, def.Denominator.Type, logger),
			Options:     def.Options,
		}, nil

	case "derive_path":
		for _, rule := range def.Paths {
			if rule.Name == "" {
				return compiledMetric{}, types.ErrMissingRuleName
			}
		}
		return compiledMetric{
			Name:  def.Name,
			Kind:  metricDerivePath,
			Paths: def.Paths,
		}, nil

	default:
		// Anything else is a pipeline: the type string is the operator chain
		return compiledMetric{
			Name:     def.Name,
			Kind:     metricPipeline,
			Pipeline: compilePipeline(def.Field, def.Type, logger),
		}, nil
	}
}

// MetricNames returns the configured metric names in definition order.
func (e *MetricEngine) MetricNames() []string {
	names := make([]string, len(e.metrics))
	for i, m := range e.metrics {
		names[i] = m.Name
	}
	return names
}

// CalculateAll evaluates every configured metric against one final-state
// record. The result maps metric name to computed value; a metric that
// failed to evaluate maps to the CALCULATION_ERROR sentinel.
func (e *MetricEngine) CalculateAll(record types.Record) map[string]any {
	results := make(map[string]any, len(e.metrics))
	for _, m := range e.metrics {
		value, err := e.calculate(m, record)
		if err != nil {
			e.logger.Warn("metric calculation failed",
				zap.String("metric", m.Name),
				zap.Error(err))
			results[m.Name] = types.CalculationError
			continue
		}
		results[m.Name] = value
	}
	return results
}

// calculate dispatches one compiled metric by kind.
func (e *MetricEngine) calculate(m compiledMetric, record types.Record) (any, error) {
	switch m.Kind {
	case metricPipeline:
		return m.Pipeline.Execute(record)
	case metricRatio:
		return e.calculateRatio(m, record)
	case metricDerivePath:
		return derivePath(m.Paths, record), nil
	default:
		return types.UnsupportedMetricType, nil
	}
}

// calculateRatio executes the numerator and denominator pipelines
// independently and divides. A zero denominator yields the configured
// fallback instead of an error or infinity.
func (e *MetricEngine) calculateRatio(m compiledMetric, record types.Record) (any, error) {
	numValue, err := m.Numerator.Execute(record)
	if err != nil {
		return nil, err
	}
	denValue, err := m.Denominator.Execute(record)
	if err != nil {
		return nil, err
	}

	num, ok := toFloat64(numValue)
	if !ok {
		return nil, fmt.Errorf("%w: numerator %v", types.ErrNonNumericOperand, numValue)
	}
	den, ok := toFloat64(denValue)
	if !ok {
		return nil, fmt.Errorf("%w: denominator %v", types.ErrNonNumericOperand, denValue)
	}

	if den == 0 {
		return m.Options.OnZeroDenominator, nil
	}

	result := num / den
	if m.Options.FormatAsPercent {
		result *= 100.0
	}
	return result, nil
}

// derivePath returns the name of the first rule whose field resolves to a
// truthy value, or the first fallback rule. Rules are checked top to
// bottom; a fallback always matches.
func derivePath(rules []DerivePathRule, record types.Record) string {
	for _, rule := range rules {
		if rule.IfFieldExists == "" {
			return rule.Name
		}
		if Truthy(Resolve(rule.IfFieldExists, record)) {
			return rule.Name
		}
	}
	return types.NoPathMatched
}
