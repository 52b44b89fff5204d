package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"forecast-guard/internal/bootstrap"
)

var qualityWindowDays int

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Score completeness, accuracy, consistency and timeliness",
	RunE: func(cmd *cobra.Command, args []string) error {
		window := cfg.WindowDays
		if cmd.Flags().Changed("window-days") {
			window = qualityWindowDays
		}

		return withDeps(cmd, bootstrap.Options{}, func(ctx context.Context, d *bootstrap.Deps) error {
			report, err := d.Service.Quality(ctx, window)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

func init() {
	qualityCmd.Flags().IntVar(&qualityWindowDays, "window-days", 30, "Only score forecasts created in the last N days (0 = all)")
	rootCmd.AddCommand(qualityCmd)
}
