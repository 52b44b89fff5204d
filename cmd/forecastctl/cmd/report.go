package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
	"forecast-guard/internal/reporting"
	"forecast-guard/internal/storage"
)

var (
	reportOutputDir  string
	reportWindowDays int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the validation report as Markdown and CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		window := cfg.WindowDays
		if cmd.Flags().Changed("window-days") {
			window = reportWindowDays
		}

		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			report, err := reporting.NewGenerator(d.Store).Generate(ctx, storage.ForecastFilter{}, window)
			if err != nil {
				return err
			}

			paths, err := reporting.WriteFiles(reportOutputDir, report)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Validation report generated successfully:")
			for _, p := range paths {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return nil
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "reports", "Output directory for generated files")
	reportCmd.Flags().IntVar(&reportWindowDays, "window-days", 30, "Quality window in days (0 = all)")
	rootCmd.AddCommand(reportCmd)
}
