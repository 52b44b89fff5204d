package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/domain"
	"forecast-guard/internal/validation"
)

var (
	cycleAutoRepair bool
	cycleFull       bool
	cycleMax        int
)

// cycleSummary is printed after every cycle, including aborted ones.
type cycleSummary struct {
	Run     domain.ValidationRun      `json:"run"`
	Scope   string                    `json:"scope"`
	Repair  *domain.BatchRepairResult `json:"repair,omitempty"`
	Quality domain.QualityReport      `json:"quality"`
	Errors  []string                  `json:"errors,omitempty"`
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one validation cycle over the update queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			result, err := d.Service.RunCycle(ctx, validation.CycleOptions{
				AutoRepair: cycleAutoRepair || cfg.AutoRepair,
				Full:       cycleFull,
				MaxItems:   cycleMax,
			})
			if result != nil {
				if perr := printJSON(cmd.OutOrStdout(), cycleSummary{
					Run:     result.Run,
					Scope:   result.Scope,
					Repair:  result.Repair,
					Quality: result.Quality,
					Errors:  result.Errors,
				}); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return errFailed
			}
			return nil
		})
	},
}

var historyForecastID string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent validation runs or one forecast's outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			if historyForecastID != "" {
				outcomes, err := d.Runs.GetOutcomesByForecast(ctx, historyForecastID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), outcomes)
			}
			runs, err := d.Runs.ListRuns(ctx, 20)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runs)
		})
	},
}

func init() {
	cycleCmd.Flags().BoolVar(&cycleAutoRepair, "auto-repair", false, "Swap inverted bounds of checked forecasts")
	cycleCmd.Flags().BoolVar(&cycleFull, "full", false, "Validate every forecast when the queue is empty")
	cycleCmd.Flags().IntVar(&cycleMax, "max", 0, "Maximum queued ids to process (0 = all)")
	historyCmd.Flags().StringVar(&historyForecastID, "forecast-id", "", "Show outcomes of one forecast")
	rootCmd.AddCommand(cycleCmd, historyCmd)
}
