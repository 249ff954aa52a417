package engine

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/types"
)

func TestParseOpCall(t *testing.T) {
	tests := []struct {
		segment string
		name    string
		arg     string
	}{
		{"count", "count", ""},
		{"where(>1)", "where", ">1"},
		{`where(contains "api")`, "where", `contains "api"`},
		{"sort(reverse)", "sort", "reverse"},
		{"where()", "where", ""},
		{"(weird)", "(weird)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			call := parseOpCall(tt.segment)
			if call.Name != tt.name || call.Arg != tt.arg {
				t.Errorf("parseOpCall(%q) = {%q, %q}, want {%q, %q}",
					tt.segment, call.Name, call.Arg, tt.name, tt.arg)
			}
		})
	}
}

func TestCompilePipeline(t *testing.T) {
	p := compilePipeline("log.events.type", "distinct | where(contains \"err\") | count", zap.NewNop())

	if p.Field != "log.events.type" {
		t.Errorf("Field = %q, want log.events.type", p.Field)
	}
	want := []opCall{
		{Name: "distinct"},
		{Name: "where", Arg: `contains "err"`},
		{Name: "count"},
	}
	if !reflect.DeepEqual(p.Steps, want) {
		t.Errorf("Steps = %v, want %v", p.Steps, want)
	}
}

func TestPipelineExecute_Chain(t *testing.T) {
	record := mustRecord(t, `{
		"log": {"events": [
			{"type": "call"}, {"type": "error"}, {"type": "call"}, {"type": "retry"}
		]}
	}`)

	tests := []struct {
		name     string
		field    string
		spec     string
		expected any
	}{
		{"resolve only", "log.events.type", "distinct", []any{"call", "error", "retry"}},
		{"distinct then count", "log.events.type", "distinct|count", 3},
		{"where then count", "log.events.type", `where(contains "err")|count`, 1},
		{"sort chain", "log.events.type", "distinct|sort(reverse)", []any{"retry", "error", "call"}},
		{"count missing field", "log.missing.type", "count", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := compilePipeline(tt.field, tt.spec, zap.NewNop())
			result, err := p.Execute(record)
			if err != nil {
				t.Fatalf("Execute() error = %v, want nil", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Execute() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPipelineExecute_NumericChain(t *testing.T) {
	record := mustRecord(t, `{"scores": [3, 1, 1, 8, 1]}`)

	p := compilePipeline("scores", "where(>1)|count", zap.NewNop())
	result, err := p.Execute(record)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if result != 2 {
		t.Errorf("Execute() = %v, want 2", result)
	}
}

func TestPipelineExecute_UnknownOperator(t *testing.T) {
	record, err := types.ParseRecord(json.RawMessage(`{"a": [1]}`))
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}

	p := compilePipeline("a", "count|frobnicate", zap.NewNop())
	_, err = p.Execute(record)
	if !errors.Is(err, types.ErrUnknownOperator) {
		t.Errorf("Execute() error = %v, want ErrUnknownOperator", err)
	}
}
