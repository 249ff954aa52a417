package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/core/config"
	"github.com/tiendita/scorekeeper/internal/core/db"
	"github.com/tiendita/scorekeeper/internal/core/store"
	"github.com/tiendita/scorekeeper/internal/engine"
	"github.com/tiendita/scorekeeper/internal/logstream"
	"github.com/tiendita/scorekeeper/internal/report"
	"github.com/tiendita/scorekeeper/internal/types"
)

const Version = "0.1.0"

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate metrics and assertions over a batch of log records",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("metrics", "", "metric definition YAML path")
	analyzeCmd.Flags().String("assertions", "", "assertion definition YAML path")
	analyzeCmd.Flags().String("log-file", "", "jsonl interaction log path")
	analyzeCmd.Flags().Float64("lookback", 24, "analysis window in hours (0 = whole file)")
	analyzeCmd.Flags().Int("limit", 10000, "maximum records per run")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("metrics") {
		cfg.MetricsPath, _ = cmd.Flags().GetString("metrics")
	}
	if cmd.Flags().Changed("assertions") {
		cfg.AssertionsPath, _ = cmd.Flags().GetString("assertions")
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile, _ = cmd.Flags().GetString("log-file")
	}
	if cmd.Flags().Changed("lookback") {
		cfg.LookbackHours, _ = cmd.Flags().GetFloat64("lookback")
	}
	if cmd.Flags().Changed("limit") {
		cfg.BatchLimit, _ = cmd.Flags().GetInt("limit")
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	metricEngine, err := engine.NewMetricEngineFromFile(cfg.MetricsPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load metric definitions: %w", err)
	}

	var assertionEngine *engine.AssertionEngine
	if cfg.AssertionsPath != "" {
		assertionEngine, err = engine.NewAssertionEngineFromFile(cfg.AssertionsPath, logger)
		if err != nil {
			return fmt.Errorf("failed to load assertion definitions: %w", err)
		}
	}

	lookback := time.Duration(cfg.LookbackHours * float64(time.Hour))
	entries, err := logstream.ReadRecent(cfg.LogFile, lookback, time.Now().UTC(), logger)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	if len(entries) > cfg.BatchLimit {
		logger.Warn("truncating batch to configured limit",
			zap.Int("entries", len(entries)),
			zap.Int("limit", cfg.BatchLimit))
		entries = entries[:cfg.BatchLimit]
	}

	var resultStore *store.Store
	var runID types.RunID
	if dbURL != "" {
		database, err := openMigratedDB()
		if err != nil {
			return err
		}
		defer database.Close()

		resultStore, err = store.New(database)
		if err != nil {
			return fmt.Errorf("failed to open results store: %w", err)
		}

		runID = types.NewRunID()
		if err := resultStore.CreateRun(runID, time.Now().UTC(), cfg.LogFile, cfg.LookbackHours); err != nil {
			return err
		}
	}

	summary := report.NewSummary()
	for _, entry := range entries {
		metrics := metricEngine.CalculateAll(entry.Record)
		summary.AddRecord(metrics)
		if resultStore != nil {
			if err := resultStore.RecordMetrics(runID, entry.Timestamp, metrics); err != nil {
				return err
			}
		}

		if assertionEngine == nil {
			continue
		}
		for _, stage := range assertionEngine.Stages() {
			failures := assertionEngine.RunStage(stage, entry.Record)
			summary.AddFailures(stage, failures)
			if resultStore != nil && len(failures) > 0 {
				if err := resultStore.RecordFailures(runID, entry.Timestamp, stage, failures); err != nil {
					return err
				}
			}
		}
	}

	if resultStore != nil {
		if err := resultStore.FinishRun(runID, len(entries)); err != nil {
			return err
		}
		logger.Info("evaluation run stored", zap.String("run_id", string(runID)))
	}

	summary.Render(os.Stdout)
	return nil
}

// openMigratedDB opens the results database and verifies the schema
// migration has been applied.
func openMigratedDB() (*sqlx.DB, error) {
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '001_initial_schema.sql'`
	err = database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		database.Close()
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("migration 001_initial_schema not applied - run 'scorekeeper migrate' first")
		}
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}

	return database, nil
}
