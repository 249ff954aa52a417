package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiendita/scorekeeper/internal/core/store"
	"github.com/tiendita/scorekeeper/internal/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a stored evaluation run",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("run", "", "run ID to report on (default: latest)")
	reportCmd.Flags().Int("list", 0, "list the N most recent runs instead of reporting")
	reportCmd.Flags().Bool("failures", false, "print individual assertion failure messages")
}

func runReport(cmd *cobra.Command, args []string) error {
	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := openMigratedDB()
	if err != nil {
		return err
	}
	defer database.Close()

	resultStore, err := store.New(database)
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}

	if listN, _ := cmd.Flags().GetInt("list"); listN > 0 {
		runs, err := resultStore.ListRuns(listN)
		if err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Printf("%s  started=%s  log=%s  lookback=%gh  records=%d\n",
				run.RunID, run.StartedAt, run.LogFile, run.LookbackHours, run.RecordsProcessed)
		}
		return nil
	}

	var run store.Run
	if runArg, _ := cmd.Flags().GetString("run"); runArg != "" {
		id, err := types.ParseRunID(runArg)
		if err != nil {
			return fmt.Errorf("invalid run ID: %w", err)
		}
		run, err = resultStore.GetRun(id)
		if err != nil {
			return err
		}
	} else {
		run, err = resultStore.LatestRun()
		if err != nil {
			return err
		}
	}

	id := types.RunID(run.RunID)
	fmt.Printf("Run %s (started %s, %d records from %s)\n\n",
		run.RunID, run.StartedAt, run.RecordsProcessed, run.LogFile)

	aggs, err := resultStore.NumericSummary(id)
	if err != nil {
		return err
	}
	if len(aggs) > 0 {
		fmt.Println("Numeric metrics:")
		for _, agg := range aggs {
			fmt.Printf("  %s: Avg=%.2f, Min=%.2f, Max=%.2f (n=%d)\n",
				agg.Metric, agg.AvgValue, agg.MinValue, agg.MaxValue, agg.SampleCount)
		}
		fmt.Println()
	}

	counts, err := resultStore.ValueDistribution(id)
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Println("Value distributions:")
		lastMetric := ""
		for _, count := range counts {
			if count.Metric != lastMetric {
				fmt.Printf("  %s:\n", count.Metric)
				lastMetric = count.Metric
			}
			fmt.Printf("    %s: %d\n", count.ValueJSON, count.Occurrences)
		}
		fmt.Println()
	}

	failures, err := resultStore.FailureCounts(id)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Println("No assertion failures recorded.")
		return nil
	}
	fmt.Println("Assertion failures:")
	for _, stage := range failures {
		fmt.Printf("  %s: %d\n", stage.Stage, stage.Failures)
	}

	if showFailures, _ := cmd.Flags().GetBool("failures"); showFailures {
		messages, err := resultStore.FailureMessages(id)
		if err != nil {
			return err
		}
		fmt.Println()
		for _, msg := range messages {
			fmt.Printf("  [%s] %s\n", msg.Stage, msg.Message)
		}
	}
	return nil
}
