// internal/engine/load.go
package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*
 * Declarative configuration loading.
 *
 * Metric and assertion definitions are YAML documents with a single
 * top-level key (`metrics:` or `assertions:`) holding an ordered list of
 * definition objects. Field names are fixed and case-sensitive.
 *
 * Loading only decodes; structural validation happens during compilation
 * in metrics.go / assertions.go so programmatically-built definitions get
 * the same checks as file-loaded ones.
 */

// MetricDef is one declarative metric definition as written in YAML.
type MetricDef struct {
	Name        string           `yaml:"name"`
	Type        string           `yaml:"type"`
	Field       string           `yaml:"field"`
	Numerator   *PipelineSpec    `yaml:"numerator"`
	Denominator *PipelineSpec    `yaml:"denominator"`
	Options     RatioOptions     `yaml:"options"`
	Paths       []DerivePathRule `yaml:"paths"`
}

// PipelineSpec is a field path plus an operator chain, used standalone by
// ratio numerators and denominators. For plain pipeline metrics the
// chain lives in the definition's type string.
type PipelineSpec struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// RatioOptions tunes ratio metrics. OnZeroDenominator defaults to 0.0.
type RatioOptions struct {
	OnZeroDenominator float64 `yaml:"on_zero_denominator"`
	FormatAsPercent   bool    `yaml:"format_as_percent"`
}

// DerivePathRule is one ordered rule of a derive_path metric. A rule
// without IfFieldExists is a fallback that always matches.
type DerivePathRule struct {
	IfFieldExists string `yaml:"if_field_exists"`
	Name          string `yaml:"name"`
}

// AssertionDef is one declarative assertion definition as written in YAML.
type AssertionDef struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Stage      string            `yaml:"stage"`
	Fields     []string          `yaml:"fields"`
	Conditions []ConsistencyRule `yaml:"conditions"`
}

// ConsistencyRule pairs an if clause with a then clause inside a
// fields_must_be_consistent assertion.
type ConsistencyRule struct {
	If   IfClause   `yaml:"if"`
	Then ThenClause `yaml:"then"`
}

// IfClause triggers a consistency rule. Equals and Exists are pointers so
// presence of the key is distinguishable from a zero value.
type IfClause struct {
	Field  string `yaml:"field"`
	Equals *any   `yaml:"equals"`
	Exists *bool  `yaml:"exists"`
}

// ThenClause is the obligation checked when the if clause holds.
type ThenClause struct {
	Field        string `yaml:"field"`
	MustExist    bool   `yaml:"must_exist"`
	MustNotExist bool   `yaml:"must_not_exist"`
	IsIn         []any  `yaml:"is_in"`
}

type metricsDocument struct {
	Metrics []MetricDef `yaml:"metrics"`
}

type assertionsDocument struct {
	Assertions []AssertionDef `yaml:"assertions"`
}

// LoadMetricDefs reads an ordered list of metric definitions from a YAML
// file with a top-level `metrics:` key.
func LoadMetricDefs(path string) ([]MetricDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metric configuration: %w", err)
	}
	var doc metricsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metric configuration: %w", err)
	}
	return doc.Metrics, nil
}

// LoadAssertionDefs reads an ordered list of assertion definitions from a
// YAML file with a top-level `assertions:` key.
func LoadAssertionDefs(path string) ([]AssertionDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assertion configuration: %w", err)
	}
	var doc assertionsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse assertion configuration: %w", err)
	}
	return doc.Assertions, nil
}
