package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiendita/scorekeeper/internal/core/config"
	"github.com/tiendita/scorekeeper/internal/engine"
	"github.com/tiendita/scorekeeper/internal/logstream"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run assertions against log records and fail on violations",
	Long: `check evaluates assertion rules only, without computing metrics.
The exit status is non-zero when any assertion fails, so it can gate
CI pipelines and deployment checks.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("assertions", "", "assertion definition YAML path")
	checkCmd.Flags().String("log-file", "", "jsonl interaction log path")
	checkCmd.Flags().String("stage", "", "run only this assertion stage")
	checkCmd.Flags().Float64("lookback", 0, "analysis window in hours (0 = whole file)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("assertions") {
		cfg.AssertionsPath, _ = cmd.Flags().GetString("assertions")
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile, _ = cmd.Flags().GetString("log-file")
	}
	lookbackHours, _ := cmd.Flags().GetFloat64("lookback")
	stage, _ := cmd.Flags().GetString("stage")

	if cfg.AssertionsPath == "" {
		return fmt.Errorf("--assertions required (or set analyzer.assertions_path)")
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	assertionEngine, err := engine.NewAssertionEngineFromFile(cfg.AssertionsPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load assertion definitions: %w", err)
	}

	stages := assertionEngine.Stages()
	if stage != "" {
		found := false
		for _, s := range stages {
			if s == stage {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown stage %q (defined stages: %v)", stage, stages)
		}
		stages = []string{stage}
	}

	lookback := time.Duration(lookbackHours * float64(time.Hour))
	entries, err := logstream.ReadRecent(cfg.LogFile, lookback, time.Now().UTC(), logger)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	total := 0
	for i, entry := range entries {
		for _, s := range stages {
			for _, failure := range assertionEngine.RunStage(s, entry.Record) {
				fmt.Printf("record %d [%s]: %s\n", i+1, s, failure)
				total++
			}
		}
	}

	if total > 0 {
		return fmt.Errorf("%d assertion failure(s) across %d record(s)", total, len(entries))
	}
	fmt.Printf("All assertions passed across %d record(s).\n", len(entries))
	return nil
}
