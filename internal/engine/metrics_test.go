package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/types"
)

func pipelineSpec(field, chain string) *PipelineSpec {
	return &PipelineSpec{Field: field, Type: chain}
}

func TestNewMetricEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []MetricDef
		wantErr error
	}{
		{
			name:    "missing name",
			defs:    []MetricDef{{Type: "count", Field: "a"}},
			wantErr: types.ErrMissingMetricName,
		},
		{
			name:    "missing type",
			defs:    []MetricDef{{Name: "m"}},
			wantErr: types.ErrMissingMetricType,
		},
		{
			name: "duplicate names",
			defs: []MetricDef{
				{Name: "m", Type: "count", Field: "a"},
				{Name: "m", Type: "sum", Field: "b"},
			},
			wantErr: types.ErrDuplicateMetricName,
		},
		{
			name:    "ratio missing denominator",
			defs:    []MetricDef{{Name: "r", Type: "ratio", Numerator: pipelineSpec("a", "count")}},
			wantErr: types.ErrMissingPipeline,
		},
		{
			name: "ratio with empty numerator chain",
			defs: []MetricDef{{
				Name:        "r",
				Type:        "ratio",
				Numerator:   pipelineSpec("a", ""),
				Denominator: pipelineSpec("b", "count"),
			}},
			wantErr: types.ErrMissingMetricType,
		},
		{
			name: "derive_path rule without name",
			defs: []MetricDef{{
				Name:  "d",
				Type:  "derive_path",
				Paths: []DerivePathRule{{IfFieldExists: "a"}},
			}},
			wantErr: types.ErrMissingRuleName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetricEngine(tt.defs, zap.NewNop())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewMetricEngine() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetricNames_PreservesOrder(t *testing.T) {
	eng, err := NewMetricEngine([]MetricDef{
		{Name: "zulu", Type: "count", Field: "a"},
		{Name: "alpha", Type: "count", Field: "b"},
		{Name: "mike", Type: "count", Field: "c"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	names := eng.MetricNames()
	want := []string{"zulu", "alpha", "mike"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("MetricNames()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestCalculateAll_Pipeline(t *testing.T) {
	eng, err := NewMetricEngine([]MetricDef{
		{Name: "tool_calls", Type: "count", Field: "tools.invocations"},
		{Name: "distinct_tools", Type: "distinct|count", Field: "tools.invocations.name"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	record := mustRecord(t, `{
		"tools": {"invocations": [
			{"name": "search"}, {"name": "fetch"}, {"name": "search"}
		]}
	}`)

	results := eng.CalculateAll(record)
	if results["tool_calls"] != 3 {
		t.Errorf("tool_calls = %v, want 3", results["tool_calls"])
	}
	if results["distinct_tools"] != 2 {
		t.Errorf("distinct_tools = %v, want 2", results["distinct_tools"])
	}
}

func TestCalculateAll_Ratio(t *testing.T) {
	defs := []MetricDef{
		{
			Name:        "error_rate",
			Type:        "ratio",
			Numerator:   pipelineSpec("errors", "count"),
			Denominator: pipelineSpec("calls", "count"),
			Options:     RatioOptions{FormatAsPercent: true},
		},
		{
			Name:        "hit_ratio",
			Type:        "ratio",
			Numerator:   pipelineSpec("hits", "count"),
			Denominator: pipelineSpec("misses", "count"),
			Options:     RatioOptions{OnZeroDenominator: -1},
		},
	}
	eng, err := NewMetricEngine(defs, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	record := mustRecord(t, `{
		"errors": [1],
		"calls": [1, 2, 3, 4],
		"hits": [1, 2],
		"misses": []
	}`)

	results := eng.CalculateAll(record)
	if results["error_rate"] != 25.0 {
		t.Errorf("error_rate = %v, want 25.0", results["error_rate"])
	}
	if results["hit_ratio"] != -1.0 {
		t.Errorf("hit_ratio = %v, want -1.0 (zero denominator fallback)", results["hit_ratio"])
	}
}

func TestCalculateAll_RatioDefaultsToZeroOnZeroDenominator(t *testing.T) {
	eng, err := NewMetricEngine([]MetricDef{{
		Name:        "r",
		Type:        "ratio",
		Numerator:   pipelineSpec("a", "count"),
		Denominator: pipelineSpec("b", "count"),
	}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	results := eng.CalculateAll(mustRecord(t, `{"a": [1]}`))
	if results["r"] != 0.0 {
		t.Errorf("r = %v, want 0.0", results["r"])
	}
}

func TestCalculateAll_DerivePath(t *testing.T) {
	defs := []MetricDef{{
		Name: "outcome",
		Type: "derive_path",
		Paths: []DerivePathRule{
			{IfFieldExists: "result.error", Name: "failed"},
			{IfFieldExists: "result.output", Name: "succeeded"},
			{Name: "unknown"},
		},
	}}
	eng, err := NewMetricEngine(defs, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	tests := []struct {
		name     string
		data     string
		expected string
	}{
		{"first rule wins", `{"result": {"error": "boom", "output": "x"}}`, "failed"},
		{"second rule", `{"result": {"output": "x"}}`, "succeeded"},
		{"fallback", `{"result": {}}`, "unknown"},
		{"falsy field does not match", `{"result": {"error": ""}}`, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := eng.CalculateAll(mustRecord(t, tt.data))
			if results["outcome"] != tt.expected {
				t.Errorf("outcome = %v, want %q", results["outcome"], tt.expected)
			}
		})
	}
}

func TestDerivePath_NoRuleMatches(t *testing.T) {
	eng, err := NewMetricEngine([]MetricDef{{
		Name:  "path",
		Type:  "derive_path",
		Paths: []DerivePathRule{{IfFieldExists: "never", Name: "a"}},
	}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	results := eng.CalculateAll(mustRecord(t, `{}`))
	if results["path"] != types.NoPathMatched {
		t.Errorf("path = %v, want %q", results["path"], types.NoPathMatched)
	}
}

func TestCalculateAll_FailureIsolation(t *testing.T) {
	eng, err := NewMetricEngine([]MetricDef{
		{Name: "broken", Type: "count|frobnicate", Field: "a"},
		{Name: "healthy", Type: "count", Field: "a"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	results := eng.CalculateAll(mustRecord(t, `{"a": [1, 2]}`))
	if results["broken"] != types.CalculationError {
		t.Errorf("broken = %v, want %q", results["broken"], types.CalculationError)
	}
	if results["healthy"] != 2 {
		t.Errorf("healthy = %v, want 2 (must not be affected by sibling failure)", results["healthy"])
	}
}

func TestCalculateAll_NonNumericRatioOperand(t *testing.T) {
	eng, err := NewMetricEngine([]MetricDef{{
		Name:        "r",
		Type:        "ratio",
		Numerator:   pipelineSpec("a", "distinct"),
		Denominator: pipelineSpec("a", "count"),
	}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngine() error = %v", err)
	}

	results := eng.CalculateAll(mustRecord(t, `{"a": [1, 2]}`))
	if results["r"] != types.CalculationError {
		t.Errorf("r = %v, want %q", results["r"], types.CalculationError)
	}
}

func TestNewMetricEngineFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.yaml")
	doc := `metrics:
  - name: "Tool Call Count"
    type: "count"
    field: "tools.invocations"
  - name: "Success Rate"
    type: "ratio"
    numerator:
      field: "successes"
      type: "count"
    denominator:
      field: "attempts"
      type: "count"
    options:
      format_as_percent: true
      on_zero_denominator: 0.0
  - name: "Run Outcome"
    type: "derive_path"
    paths:
      - if_field_exists: "final.error"
        name: "error_path"
      - name: "clean_path"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	eng, err := NewMetricEngineFromFile(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMetricEngineFromFile() error = %v", err)
	}

	record := mustRecord(t, `{
		"tools": {"invocations": [{"name": "a"}]},
		"successes": [1, 2, 3],
		"attempts": [1, 2, 3, 4],
		"final": {"error": "timeout"}
	}`)

	results := eng.CalculateAll(record)
	if results["Tool Call Count"] != 1 {
		t.Errorf("Tool Call Count = %v, want 1", results["Tool Call Count"])
	}
	if results["Success Rate"] != 75.0 {
		t.Errorf("Success Rate = %v, want 75.0", results["Success Rate"])
	}
	if results["Run Outcome"] != "error_path" {
		t.Errorf("Run Outcome = %v, want error_path", results["Run Outcome"])
	}
}

func TestNewMetricEngineFromFile_MissingFile(t *testing.T) {
	_, err := NewMetricEngineFromFile(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
	if err == nil {
		t.Errorf("NewMetricEngineFromFile() error = nil, want error")
	}
}
