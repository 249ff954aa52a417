package types

import "errors"

// Sentinel errors for scorekeeper operations.
var (
	// ErrUnknownOperator indicates a pipeline references an operator name
	// not present in the operator library.
	ErrUnknownOperator = errors.New("unknown pipeline operator")

	// ErrMissingMetricName indicates a metric definition without a name.
	ErrMissingMetricName = errors.New("metric definition missing name")

	// ErrMissingMetricType indicates a metric definition without a type.
	ErrMissingMetricType = errors.New("metric definition missing type")

	// ErrDuplicateMetricName indicates two metric definitions share a name.
	ErrDuplicateMetricName = errors.New("duplicate metric name in configuration")

	// ErrMissingPipeline indicates a ratio metric lacks a numerator or
	// denominator pipeline.
	ErrMissingPipeline = errors.New("ratio metric missing numerator or denominator")

	// ErrMissingRuleName indicates a derive_path rule without a result name.
	ErrMissingRuleName = errors.New("derive_path rule missing name")

	// ErrMissingAssertionType indicates an assertion definition without a type.
	ErrMissingAssertionType = errors.New("assertion definition missing type")

	// ErrNonNumericOperand indicates a ratio pipeline produced a value that
	// cannot be used as a ratio operand.
	ErrNonNumericOperand = errors.New("ratio operand is not numeric")
)
