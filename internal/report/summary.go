// Package report aggregates per-record evaluation results into batch
// summaries.
//
// Aggregation is type-inferred per metric value: numeric values roll up
// into average/min/max, strings and booleans into a categorical
// distribution, and list values into an element frequency table. Sentinel
// strings (CALCULATION_ERROR and friends) land in the categorical bucket,
// which keeps partial failure visible inline in the report.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// NumericStats summarizes one numeric metric across a batch.
type NumericStats struct {
	Count   int
	Average float64
	Min     float64
	Max     float64
}

// Summary accumulates evaluation results record by record.
// Not safe for concurrent use; batch evaluation is sequential.
type Summary struct {
	Records       int
	numeric       map[string][]float64
	categorical   map[string]map[string]int
	listFreq      map[string]map[string]int
	stageFailures map[string][]string
}

// NewSummary returns an empty accumulator.
func NewSummary() *Summary {
	return &Summary{
		numeric:       make(map[string][]float64),
		categorical:   make(map[string]map[string]int),
		listFreq:      make(map[string]map[string]int),
		stageFailures: make(map[string][]string),
	}
}

// AddRecord folds one record's computed metrics into the summary.
func (s *Summary) AddRecord(metrics map[string]any) {
	s.Records++
	for name, value := range metrics {
		switch v := value.(type) {
		case float64:
			s.numeric[name] = append(s.numeric[name], v)
		case int:
			s.numeric[name] = append(s.numeric[name], float64(v))
		case int64:
			s.numeric[name] = append(s.numeric[name], float64(v))
		case []any:
			freq := s.listFreq[name]
			if freq == nil {
				freq = make(map[string]int)
				s.listFreq[name] = freq
			}
			for _, elem := range v {
				freq[valueLabel(elem)]++
			}
		default:
			// Strings, booleans, nulls, sentinels: categorical
			counts := s.categorical[name]
			if counts == nil {
				counts = make(map[string]int)
				s.categorical[name] = counts
			}
			counts[valueLabel(v)]++
		}
	}
}

// AddFailures folds one record's assertion failures for a stage.
func (s *Summary) AddFailures(stage string, failures []string) {
	if len(failures) == 0 {
		return
	}
	s.stageFailures[stage] = append(s.stageFailures[stage], failures...)
}

// NumericStats computes per-metric statistics for all numeric results.
func (s *Summary) NumericStats() map[string]NumericStats {
	out := make(map[string]NumericStats, len(s.numeric))
	for name, values := range s.numeric {
		if len(values) == 0 {
			continue
		}
		stats := NumericStats{Count: len(values), Min: values[0], Max: values[0]}
		total := 0.0
		for _, v := range values {
			total += v
			if v < stats.Min {
				stats.Min = v
			}
			if v > stats.Max {
				stats.Max = v
			}
		}
		stats.Average = total / float64(len(values))
		out[name] = stats
	}
	return out
}

// CategoricalCounts returns the value distribution per categorical metric.
func (s *Summary) CategoricalCounts() map[string]map[string]int {
	return s.categorical
}

// ListFrequencies returns the element frequency table per list metric.
func (s *Summary) ListFrequencies() map[string]map[string]int {
	return s.listFreq
}

// FailureCounts returns the number of failure messages per stage.
func (s *Summary) FailureCounts() map[string]int {
	out := make(map[string]int, len(s.stageFailures))
	for stage, msgs := range s.stageFailures {
		out[stage] = len(msgs)
	}
	return out
}

// Render writes the human-readable batch report. Formatting is
// presentation only; the aggregation semantics live in the accessors.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintln(w, "========== Batch Analysis Summary ==========")
	fmt.Fprintf(w, "Total interactions processed: %d\n", s.Records)

	fmt.Fprintln(w, "\n--- Objective Metrics (Averages) ---")
	stats := s.NumericStats()
	if len(stats) == 0 {
		fmt.Fprintln(w, "No numeric metrics to display.")
	}
	for _, name := range sortedKeys(stats) {
		st := stats[name]
		fmt.Fprintf(w, "- %-30s: Avg=%-10.2f | Min=%-10.2f | Max=%-10.2f\n",
			name, st.Average, st.Min, st.Max)
	}

	fmt.Fprintln(w, "\n--- Categorical Metrics (Distribution) ---")
	if len(s.categorical) == 0 {
		fmt.Fprintln(w, "No categorical data to display.")
	}
	for _, name := range sortedKeys(s.categorical) {
		fmt.Fprintf(w, "- Metric: '%s'\n", name)
		counts := s.categorical[name]
		total := 0
		for _, c := range counts {
			total += c
		}
		for _, label := range sortedKeys(counts) {
			count := counts[label]
			percent := 0.0
			if total > 0 {
				percent = float64(count) / float64(total) * 100
			}
			fmt.Fprintf(w, "  - %-28s: %d occurrences (%.1f%%)\n", label, count, percent)
		}
	}

	if len(s.listFreq) > 0 {
		fmt.Fprintln(w, "\n--- List Metrics (Frequency) ---")
		for _, name := range sortedKeys(s.listFreq) {
			fmt.Fprintf(w, "- Metric: '%s'\n", name)
			freq := s.listFreq[name]
			for _, label := range sortedKeys(freq) {
				fmt.Fprintf(w, "  - %-28s: %d occurrences\n", label, freq[label])
			}
		}
	}

	fmt.Fprintln(w, "\n--- Assertion Failures ---")
	if len(s.stageFailures) == 0 {
		fmt.Fprintln(w, "All assertions passed.")
	}
	for _, stage := range sortedKeys(s.stageFailures) {
		msgs := s.stageFailures[stage]
		fmt.Fprintf(w, "- Stage '%s': %d failures\n", stage, len(msgs))
		for _, msg := range msgs {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	fmt.Fprintln(w, "\n==========================================")
}

// valueLabel renders any metric value as a stable aggregation key.
func valueLabel(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(encoded)
	}
}

// sortedKeys returns map keys in ascending order for deterministic output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
