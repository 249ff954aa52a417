// Package store persists evaluation results so batch runs can be
// re-aggregated and compared after the fact.
//
// Thin orchestration over the db layer: one eval_runs row per analyzer
// invocation, one metric_results row per (record, metric), one
// assertion_failures row per failure message. Numeric metric values are
// double-stored (JSON plus a numeric column) so SQL aggregation does not
// have to parse JSON.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tiendita/scorekeeper/internal/core/db"
	"github.com/tiendita/scorekeeper/internal/types"
)

// Store writes and reads evaluation results.
type Store struct {
	queries *db.Queries
}

// New wraps an open database with the named-query catalog.
func New(database *sqlx.DB) (*Store, error) {
	if database == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return &Store{queries: queries}, nil
}

// Run is one persisted analyzer invocation.
type Run struct {
	RunID            string  `db:"run_id"`
	StartedAt        string  `db:"started_at"`
	LogFile          string  `db:"log_file"`
	LookbackHours    float64 `db:"lookback_hours"`
	RecordsProcessed int     `db:"records_processed"`
}

// CreateRun registers a new evaluation run before any results are written.
func (s *Store) CreateRun(id types.RunID, startedAt time.Time, logFile string, lookbackHours float64) error {
	_, err := s.queries.Exec("insert-run",
		string(id), startedAt.UTC().Format(time.RFC3339), logFile, lookbackHours)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records how many log entries the run processed.
func (s *Store) FinishRun(id types.RunID, records int) error {
	_, err := s.queries.Exec("finish-run", records, string(id))
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordMetrics persists one record's computed metric values.
// recordTS may be zero for undated records.
func (s *Store) RecordMetrics(id types.RunID, recordTS time.Time, metrics map[string]any) error {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := metrics[name]
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode metric %q: %w", name, err)
		}

		var numeric sql.NullFloat64
		switch v := value.(type) {
		case float64:
			numeric = sql.NullFloat64{Float64: v, Valid: true}
		case int:
			numeric = sql.NullFloat64{Float64: float64(v), Valid: true}
		case int64:
			numeric = sql.NullFloat64{Float64: float64(v), Valid: true}
		}

		_, err = s.queries.Exec("insert-metric-result",
			string(id), nullableTS(recordTS), name, string(encoded), numeric)
		if err != nil {
			return fmt.Errorf("failed to store metric %q: %w", name, err)
		}
	}
	return nil
}

// RecordFailures persists one record's assertion failures for a stage.
func (s *Store) RecordFailures(id types.RunID, recordTS time.Time, stage string, failures []string) error {
	for _, message := range failures {
		_, err := s.queries.Exec("insert-assertion-failure",
			string(id), nullableTS(recordTS), stage, message)
		if err != nil {
			return fmt.Errorf("failed to store assertion failure: %w", err)
		}
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(id types.RunID) (Run, error) {
	var run Run
	if err := s.queries.Get("get-run", &run, string(id)); err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun fetches the most recent run. UUIDv7 run IDs sort by time, so
// ordering by run_id is ordering by start time.
func (s *Store) LatestRun() (Run, error) {
	var run Run
	if err := s.queries.Get("latest-run", &run); err != nil {
		return Run{}, fmt.Errorf("failed to load latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	if err := s.queries.Select("list-runs", &runs, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// NumericAggregate is a SQL-side numeric rollup for one metric.
type NumericAggregate struct {
	Metric      string  `db:"metric"`
	SampleCount int     `db:"sample_count"`
	AvgValue    float64 `db:"avg_value"`
	MinValue    float64 `db:"min_value"`
	MaxValue    float64 `db:"max_value"`
}

// NumericSummary aggregates the numeric metric results of one run.
func (s *Store) NumericSummary(id types.RunID) ([]NumericAggregate, error) {
	var aggs []NumericAggregate
	if err := s.queries.Select("metric-numeric-summary", &aggs, string(id)); err != nil {
		return nil, fmt.Errorf("failed to summarize metrics: %w", err)
	}
	return aggs, nil
}

// ValueCount is one (metric, value) occurrence count.
type ValueCount struct {
	Metric      string `db:"metric"`
	ValueJSON   string `db:"value_json"`
	Occurrences int    `db:"occurrences"`
}

// ValueDistribution returns the distribution of non-numeric metric values
// for one run.
func (s *Store) ValueDistribution(id types.RunID) ([]ValueCount, error) {
	var counts []ValueCount
	if err := s.queries.Select("metric-value-distribution", &counts, string(id)); err != nil {
		return nil, fmt.Errorf("failed to load value distribution: %w", err)
	}
	return counts, nil
}

// StageFailures is the failure count for one assertion stage.
type StageFailures struct {
	Stage    string `db:"stage"`
	Failures int    `db:"failures"`
}

// FailureCounts returns per-stage assertion failure counts for one run.
func (s *Store) FailureCounts(id types.RunID) ([]StageFailures, error) {
	var counts []StageFailures
	if err := s.queries.Select("assertion-failure-counts", &counts, string(id)); err != nil {
		return nil, fmt.Errorf("failed to load failure counts: %w", err)
	}
	return counts, nil
}

// FailureMessage is one stored assertion failure.
type FailureMessage struct {
	Stage   string `db:"stage"`
	Message string `db:"message"`
}

// FailureMessages returns every assertion failure of one run, grouped by
// stage in insertion order.
func (s *Store) FailureMessages(id types.RunID) ([]FailureMessage, error) {
	var messages []FailureMessage
	if err := s.queries.Select("assertion-failure-messages", &messages, string(id)); err != nil {
		return nil, fmt.Errorf("failed to load failure messages: %w", err)
	}
	return messages, nil
}

// nullableTS renders a timestamp as RFC3339, or NULL when zero.
func nullableTS(ts time.Time) sql.NullString {
	if ts.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ts.UTC().Format(time.RFC3339), Valid: true}
}
